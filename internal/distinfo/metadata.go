package distinfo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ShadowJonathan/enscons-soar/internal/pyproject"
)

// renderMetadata writes the METADATA text: key/value headers with
// two-space continuation for multi-line values, then the readme as body.
func renderMetadata(meta *pyproject.Metadata, projectDir string) ([]byte, error) {
	var b strings.Builder

	writeHeader(&b, "Metadata-Version", "2.1")
	writeHeader(&b, "Name", meta.Name)
	writeHeader(&b, "Version", meta.VersionString)

	if meta.Description != "" {
		writeHeader(&b, "Summary", meta.Description)
	}
	if meta.RequiresPython != "" {
		writeHeader(&b, "Requires-Python", meta.RequiresPython)
	}
	if meta.License.Text != "" {
		writeHeader(&b, "License", meta.License.Text)
	}
	if meta.License.File != "" {
		writeHeader(&b, "License-File", filepath.Base(meta.License.File))
	}

	writeContacts(&b, "Author", "Author-email", meta.Authors)
	writeContacts(&b, "Maintainer", "Maintainer-email", meta.Maintainers)

	if len(meta.Keywords) > 0 {
		writeHeader(&b, "Keywords", strings.Join(meta.Keywords, ","))
	}
	for _, classifier := range meta.Classifiers {
		writeHeader(&b, "Classifier", classifier)
	}
	for _, label := range sortedKeys(meta.URLs) {
		writeHeader(&b, "Project-URL", fmt.Sprintf("%s, %s", label, meta.URLs[label]))
	}

	for _, req := range meta.Dependencies {
		writeHeader(&b, "Requires-Dist", req.String())
	}
	for _, group := range meta.ExtraGroups {
		writeHeader(&b, "Provides-Extra", group)
		for _, req := range meta.OptionalDependencies[group] {
			writeHeader(&b, "Requires-Dist", req.WithExtraMarker(group))
		}
	}

	if meta.Readme.File != "" || meta.Readme.Text != "" {
		if meta.Readme.ContentType != "" {
			writeHeader(&b, "Description-Content-Type", meta.Readme.ContentType)
		}
		body := meta.Readme.Text
		if meta.Readme.File != "" {
			data, err := readFile(filepath.Join(projectDir, meta.Readme.File))
			if err != nil {
				return nil, fmt.Errorf("distinfo: readme %s: %w", meta.Readme.File, err)
			}
			body = string(data)
		}
		b.WriteString("\n")
		b.WriteString(body)
	}

	return []byte(b.String()), nil
}

// writeHeader folds multi-line values with two-space continuations.
func writeHeader(b *strings.Builder, name, value string) {
	lines := strings.Split(value, "\n")
	fmt.Fprintf(b, "%s: %s\n", name, lines[0])
	for _, line := range lines[1:] {
		fmt.Fprintf(b, "  %s\n", line)
	}
}

// writeContacts renders author/maintainer entries. A single contact gets
// separate name and email headers; multiple contacts are joined into one
// header, the email variant when any entry carries an address.
func writeContacts(b *strings.Builder, nameHeader, emailHeader string, contacts []pyproject.Contact) {
	switch len(contacts) {
	case 0:
	case 1:
		if contacts[0].Name != "" {
			writeHeader(b, nameHeader, contacts[0].Name)
		}
		if contacts[0].Email != "" {
			writeHeader(b, emailHeader, contacts[0].Email)
		}
	default:
		parts := make([]string, len(contacts))
		anyEmail := false
		for i, contact := range contacts {
			switch {
			case contact.Name != "" && contact.Email != "":
				parts[i] = fmt.Sprintf("%s <%s>", contact.Name, contact.Email)
			case contact.Email != "":
				parts[i] = contact.Email
			default:
				parts[i] = contact.Name
			}
			if contact.Email != "" {
				anyEmail = true
			}
		}
		header := nameHeader
		if anyEmail {
			header = emailHeader
		}
		writeHeader(b, header, strings.Join(parts, ", "))
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
