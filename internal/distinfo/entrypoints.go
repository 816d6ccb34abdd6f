package distinfo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ShadowJonathan/enscons-soar/internal/pyproject"
)

// renderEntryPoints writes entry_points.txt: one INI-style section per
// group, groups and names in sorted order. Returns nil when the project
// declares no entry points.
func renderEntryPoints(meta *pyproject.Metadata) []byte {
	if len(meta.EntryPoints) == 0 {
		return nil
	}

	groups := make([]string, 0, len(meta.EntryPoints))
	for group := range meta.EntryPoints {
		groups = append(groups, group)
	}
	sort.Strings(groups)

	var b strings.Builder
	for _, group := range groups {
		fmt.Fprintf(&b, "[%s]\n", group)

		entries := meta.EntryPoints[group]
		names := make([]string, 0, len(entries))
		for name := range entries {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			fmt.Fprintf(&b, "%s = %s\n", name, entries[name])
		}
		b.WriteString("\n")
	}

	return []byte(b.String())
}
