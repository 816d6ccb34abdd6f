// Package setupcfg converts the legacy setup.cfg metadata dialect into
// the declarative manifest this backend consumes.
package setupcfg

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/pelletier/go-toml/v2"
)

// Generated manifest layout. go-toml renders tables in struct order and
// map keys sorted, so conversion output is deterministic.
type document struct {
	BuildSystem buildSystem          `toml:"build-system"`
	Project     project              `toml:"project"`
	Tool        map[string]toolTable `toml:"tool,omitempty"`
}

type buildSystem struct {
	Requires []string `toml:"requires"`
	Backend  string   `toml:"build-backend"`
}

type project struct {
	Name           string    `toml:"name"`
	Version        string    `toml:"version"`
	Description    string    `toml:"description,omitempty"`
	Readme         string    `toml:"readme,omitempty"`
	RequiresPython string    `toml:"requires-python,omitempty"`
	License        string    `toml:"license,omitempty"`
	Keywords       []string  `toml:"keywords,omitempty"`
	Classifiers    []string  `toml:"classifiers,omitempty"`
	Authors        []contact `toml:"authors,omitempty"`

	URLs map[string]string `toml:"urls,omitempty"`

	Dependencies         []string            `toml:"dependencies,omitempty"`
	OptionalDependencies map[string][]string `toml:"optional-dependencies,omitempty"`

	Scripts     map[string]string            `toml:"scripts,omitempty"`
	GUIScripts  map[string]string            `toml:"gui-scripts,omitempty"`
	EntryPoints map[string]map[string]string `toml:"entry-points,omitempty"`
}

type contact struct {
	Name  string `toml:"name,omitempty"`
	Email string `toml:"email,omitempty"`
}

type toolTable struct {
	SrcRoot string `toml:"src-root,omitempty"`
}

// Convert parses setup.cfg content and renders the equivalent manifest.
func Convert(data []byte) ([]byte, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		AllowPythonMultilineValues: true,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("setupcfg: parsing: %w", err)
	}

	doc := document{
		BuildSystem: buildSystem{
			Requires: []string{"enscons-soar"},
			Backend:  "enscons_soar",
		},
	}

	metadata := cfg.Section("metadata")
	doc.Project.Name = metadata.Key("name").String()
	doc.Project.Version = metadata.Key("version").String()
	if doc.Project.Name == "" {
		return nil, fmt.Errorf("setupcfg: [metadata] name missing")
	}
	if doc.Project.Version == "" {
		return nil, fmt.Errorf("setupcfg: [metadata] version missing")
	}

	doc.Project.Description = metadata.Key("description").String()
	doc.Project.License = metadata.Key("license").String()
	doc.Project.Keywords = splitList(metadata.Key("keywords").String())
	doc.Project.Classifiers = splitLines(metadata.Key("classifiers").String())
	doc.Project.Readme = fileRef(metadata.Key("long_description").String())

	if author := metadata.Key("author").String(); author != "" {
		doc.Project.Authors = append(doc.Project.Authors, contact{
			Name:  author,
			Email: metadata.Key("author_email").String(),
		})
	}

	doc.Project.URLs = map[string]string{}
	if url := metadata.Key("url").String(); url != "" {
		doc.Project.URLs["Homepage"] = url
	}
	for _, line := range splitLines(metadata.Key("project_urls").String()) {
		label, url, ok := splitPair(line)
		if !ok {
			return nil, fmt.Errorf("setupcfg: malformed project_urls entry %q", line)
		}
		doc.Project.URLs[label] = url
	}
	if len(doc.Project.URLs) == 0 {
		doc.Project.URLs = nil
	}

	options := cfg.Section("options")
	doc.Project.RequiresPython = options.Key("python_requires").String()
	doc.Project.Dependencies = splitLines(options.Key("install_requires").String())

	if err := convertExtras(cfg, &doc.Project); err != nil {
		return nil, err
	}
	if err := convertEntryPoints(cfg, &doc.Project); err != nil {
		return nil, err
	}

	if srcRoot := packageDirRoot(options.Key("package_dir").String()); srcRoot != "" {
		doc.Tool = map[string]toolTable{"soar": {SrcRoot: srcRoot}}
	}

	out, err := toml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("setupcfg: rendering: %w", err)
	}
	return out, nil
}

func convertExtras(cfg *ini.File, proj *project) error {
	section := cfg.Section("options.extras_require")
	if len(section.Keys()) == 0 {
		return nil
	}
	proj.OptionalDependencies = make(map[string][]string)
	for _, key := range section.Keys() {
		proj.OptionalDependencies[key.Name()] = splitLines(key.String())
	}
	return nil
}

func convertEntryPoints(cfg *ini.File, proj *project) error {
	section := cfg.Section("options.entry_points")
	for _, key := range section.Keys() {
		group := key.Name()
		entries := make(map[string]string)
		for _, line := range splitLines(key.String()) {
			name, target, ok := splitPair(line)
			if !ok {
				return fmt.Errorf("setupcfg: malformed entry point %q in group %s", line, group)
			}
			entries[name] = target
		}
		if len(entries) == 0 {
			continue
		}
		// console and GUI scripts have dedicated manifest keys.
		switch group {
		case "console_scripts":
			proj.Scripts = entries
		case "gui_scripts":
			proj.GUIScripts = entries
		default:
			if proj.EntryPoints == nil {
				proj.EntryPoints = make(map[string]map[string]string)
			}
			proj.EntryPoints[group] = entries
		}
	}
	return nil
}

// fileRef strips the "file:" prefix used by long_description.
func fileRef(value string) string {
	value = strings.TrimSpace(value)
	if rest, ok := strings.CutPrefix(value, "file:"); ok {
		return strings.TrimSpace(rest)
	}
	return ""
}

// packageDirRoot extracts the root directory from a package_dir value of
// the form "= src" (all packages under one root).
func packageDirRoot(value string) string {
	for _, line := range splitLines(value) {
		key, dir, ok := splitPair(line)
		if ok && key == "" {
			return dir
		}
	}
	return ""
}

// splitLines breaks a multiline value into trimmed, non-empty lines.
func splitLines(value string) []string {
	var out []string
	for _, line := range strings.Split(value, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// splitList accepts comma- or newline-separated values.
func splitList(value string) []string {
	if strings.Contains(value, ",") {
		var out []string
		for _, item := range strings.Split(value, ",") {
			item = strings.TrimSpace(item)
			if item != "" {
				out = append(out, item)
			}
		}
		return out
	}
	return splitLines(value)
}

func splitPair(line string) (string, string, bool) {
	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}
