package editable

import (
	"fmt"
	"strings"

	"github.com/ShadowJonathan/enscons-soar/internal/archive"
)

// redirectMechanism installs a meta-path finder that resolves imports
// against the source tree at import time, so files added or removed
// after installation are picked up without reinstalling.
type redirectMechanism struct{}

func (redirectMechanism) Mode() string { return "redirect" }

func (redirectMechanism) Members(plan *Plan) ([]archive.Member, error) {
	module := finderModule(plan)
	finder := renderFinder(plan)
	pth := fmt.Sprintf("import %s; %s.install()\n", module, module)

	return []archive.Member{
		{Path: module + ".py", Data: []byte(finder)},
		{Path: "__editable__." + plan.Meta.CanonicalName + ".pth", Data: []byte(pth)},
	}, nil
}

// finderModule names the generated finder: a valid module identifier
// unique per distribution name and version.
func finderModule(plan *Plan) string {
	return fmt.Sprintf("__editable___%s_%s_finder",
		plan.Meta.FileName(), versionSlug(plan.Meta.VersionString))
}

func renderFinder(plan *Plan) string {
	var b strings.Builder

	b.WriteString("import importlib.util\n")
	b.WriteString("import os.path\n")
	b.WriteString("import sys\n")
	b.WriteString("\n")
	b.WriteString("MAPPING = {\n")
	for _, name := range plan.Names() {
		fmt.Fprintf(&b, "    %s: %s,\n", pyString(name), pyString(plan.Mapping[name]))
	}
	b.WriteString("}\n")
	b.WriteString(`

class _Finder:
    @classmethod
    def find_spec(cls, fullname, path=None, target=None):
        parts = fullname.split('.')
        location = MAPPING.get(parts[0])
        if location is None:
            return None
        if location.endswith('.py'):
            if len(parts) > 1:
                return None
            return importlib.util.spec_from_file_location(fullname, location)
        candidate = os.path.join(location, *parts[1:])
        init = os.path.join(candidate, '__init__.py')
        if os.path.isfile(init):
            return importlib.util.spec_from_file_location(
                fullname, init, submodule_search_locations=[candidate])
        source = candidate + '.py'
        if os.path.isfile(source):
            return importlib.util.spec_from_file_location(fullname, source)
        return None


def install():
    if not any(finder is _Finder for finder in sys.meta_path):
        sys.meta_path.append(_Finder)
`)

	return b.String()
}

// pyString renders s as a single-quoted string literal.
func pyString(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
