package pyproject

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/ShadowJonathan/enscons-soar/internal/pep440"
	"github.com/ShadowJonathan/enscons-soar/internal/pep508"
)

// rawManifest mirrors the manifest file layout before normalization.
type rawManifest struct {
	Project *rawProject        `toml:"project"`
	Tool    map[string]rawTool `toml:"tool"`
}

type rawProject struct {
	Name           string   `toml:"name"`
	Version        string   `toml:"version"`
	Description    string   `toml:"description"`
	RequiresPython string   `toml:"requires-python"`
	License        any      `toml:"license"`
	Readme         any      `toml:"readme"`
	Keywords       []string `toml:"keywords"`
	Classifiers    []string `toml:"classifiers"`

	Authors     []rawContact      `toml:"authors"`
	Maintainers []rawContact      `toml:"maintainers"`
	URLs        map[string]string `toml:"urls"`

	Dependencies         []string            `toml:"dependencies"`
	OptionalDependencies map[string][]string `toml:"optional-dependencies"`

	Scripts     map[string]string            `toml:"scripts"`
	GUIScripts  map[string]string            `toml:"gui-scripts"`
	EntryPoints map[string]map[string]string `toml:"entry-points"`
}

type rawContact struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

type rawTool struct {
	SrcRoot      string    `toml:"src-root"`
	SourceRoots  []string  `toml:"source-roots"`
	Include      []string  `toml:"include"`
	Exclude      []string  `toml:"exclude"`
	PlatformTag  string    `toml:"platform-tag"`
	RecordHash   string    `toml:"record-hash"`
	EditableMode string    `toml:"editable-mode"`
	Build        *rawBuild `toml:"build"`
}

type rawBuild struct {
	Command    []string `toml:"command"`
	ResultFile string   `toml:"result-file"`
	Targets    []string `toml:"targets"`
	Requires   []string `toml:"requires"`
	Native     bool     `toml:"native"`
}

// entry-point targets must name a module, optionally with an attribute path.
var targetRe = regexp.MustCompile(
	`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*` +
		`(:[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*)?$`)

// Load reads and normalizes the manifest at projectDir. It performs no
// other side effects. All failures are *MetadataError.
func Load(projectDir string) (*Metadata, error) {
	path := filepath.Join(projectDir, ManifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &MetadataError{Msg: fmt.Sprintf("reading %s", ManifestName), Err: err}
	}

	var raw rawManifest
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, &MetadataError{Msg: fmt.Sprintf("parsing %s", ManifestName), Err: err}
	}
	if raw.Project == nil {
		return nil, &MetadataError{Field: "project", Msg: "table missing"}
	}

	return normalize(raw)
}

func normalize(raw rawManifest) (*Metadata, error) {
	proj := raw.Project

	if strings.TrimSpace(proj.Name) == "" {
		return nil, &MetadataError{Field: "project.name", Msg: "missing or empty"}
	}
	if strings.TrimSpace(proj.Version) == "" {
		return nil, &MetadataError{Field: "project.version", Msg: "missing or empty"}
	}

	version, err := pep440.Parse(proj.Version)
	if err != nil {
		return nil, &MetadataError{Field: "project.version", Msg: "invalid", Err: err}
	}

	meta := &Metadata{
		Name:           proj.Name,
		CanonicalName:  CanonicalName(proj.Name),
		Version:        version,
		VersionString:  version.String(),
		Description:    proj.Description,
		RequiresPython: proj.RequiresPython,
		Keywords:       proj.Keywords,
		Classifiers:    proj.Classifiers,
		URLs:           proj.URLs,
	}

	for _, contact := range proj.Authors {
		meta.Authors = append(meta.Authors, Contact(contact))
	}
	for _, contact := range proj.Maintainers {
		meta.Maintainers = append(meta.Maintainers, Contact(contact))
	}

	meta.License, err = normalizeLicense(proj.License)
	if err != nil {
		return nil, err
	}
	meta.Readme, err = normalizeReadme(proj.Readme)
	if err != nil {
		return nil, err
	}

	meta.Dependencies, err = parseRequirements("project.dependencies", proj.Dependencies)
	if err != nil {
		return nil, err
	}

	if len(proj.OptionalDependencies) > 0 {
		meta.OptionalDependencies = make(map[string][]*pep508.Requirement, len(proj.OptionalDependencies))
		for group, deps := range proj.OptionalDependencies {
			field := fmt.Sprintf("project.optional-dependencies.%s", group)
			reqs, err := parseRequirements(field, deps)
			if err != nil {
				return nil, err
			}
			meta.OptionalDependencies[group] = reqs
			meta.ExtraGroups = append(meta.ExtraGroups, group)
		}
		sort.Strings(meta.ExtraGroups)
	}

	meta.EntryPoints, err = normalizeEntryPoints(proj)
	if err != nil {
		return nil, err
	}

	if err := normalizeTool(raw.Tool["soar"], &meta.Tool); err != nil {
		return nil, err
	}

	return meta, nil
}

func parseRequirements(field string, specs []string) ([]*pep508.Requirement, error) {
	var reqs []*pep508.Requirement
	for _, spec := range specs {
		req, err := pep508.Parse(spec)
		if err != nil {
			return nil, &MetadataError{Field: field, Msg: "invalid requirement", Err: err}
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func normalizeEntryPoints(proj *rawProject) (map[string]map[string]string, error) {
	groups := make(map[string]map[string]string)

	add := func(group, name, target string) error {
		if !targetRe.MatchString(target) {
			return &MetadataError{
				Field: fmt.Sprintf("entry point %s.%s", group, name),
				Msg:   fmt.Sprintf("target %q is not module:attribute form", target),
			}
		}
		if groups[group] == nil {
			groups[group] = make(map[string]string)
		}
		groups[group][name] = target
		return nil
	}

	for name, target := range proj.Scripts {
		if err := add("console_scripts", name, target); err != nil {
			return nil, err
		}
	}
	for name, target := range proj.GUIScripts {
		if err := add("gui_scripts", name, target); err != nil {
			return nil, err
		}
	}
	for group, entries := range proj.EntryPoints {
		for name, target := range entries {
			if err := add(group, name, target); err != nil {
				return nil, err
			}
		}
	}

	if len(groups) == 0 {
		return nil, nil
	}
	return groups, nil
}

func normalizeLicense(v any) (License, error) {
	switch val := v.(type) {
	case nil:
		return License{}, nil
	case string:
		return License{Text: val}, nil
	case map[string]any:
		lic := License{}
		lic.Text, _ = val["text"].(string)
		lic.File, _ = val["file"].(string)
		if lic.Text == "" && lic.File == "" {
			return License{}, &MetadataError{Field: "project.license", Msg: "needs text or file"}
		}
		if lic.Text != "" && lic.File != "" {
			return License{}, &MetadataError{Field: "project.license", Msg: "text and file are exclusive"}
		}
		return lic, nil
	default:
		return License{}, &MetadataError{Field: "project.license", Msg: "must be a string or table"}
	}
}

func normalizeReadme(v any) (Readme, error) {
	switch val := v.(type) {
	case nil:
		return Readme{}, nil
	case string:
		return Readme{File: val, ContentType: readmeContentType(val)}, nil
	case map[string]any:
		readme := Readme{}
		readme.File, _ = val["file"].(string)
		readme.Text, _ = val["text"].(string)
		readme.ContentType, _ = val["content-type"].(string)
		if readme.File == "" && readme.Text == "" {
			return Readme{}, &MetadataError{Field: "project.readme", Msg: "needs file or text"}
		}
		if readme.ContentType == "" {
			readme.ContentType = readmeContentType(readme.File)
		}
		return readme, nil
	default:
		return Readme{}, &MetadataError{Field: "project.readme", Msg: "must be a string or table"}
	}
}

// readmeContentType infers the content type from the filename extension.
func readmeContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".rst":
		return "text/x-rst"
	case ".md":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	default:
		return ""
	}
}

func normalizeTool(raw rawTool, tool *Tool) error {
	srcRoot := raw.SrcRoot
	if srcRoot == "" {
		srcRoot = "."
	}
	tool.SourceRoots = raw.SourceRoots
	if len(tool.SourceRoots) == 0 {
		tool.SourceRoots = []string{srcRoot}
	}
	tool.Include = raw.Include
	tool.Exclude = raw.Exclude
	tool.PlatformTag = raw.PlatformTag

	tool.RecordHash = raw.RecordHash
	switch tool.RecordHash {
	case "":
		tool.RecordHash = "sha256"
	case "sha256", "blake3":
	default:
		return &MetadataError{Field: "tool.soar.record-hash", Msg: fmt.Sprintf("unsupported algorithm %q", tool.RecordHash)}
	}

	tool.EditableMode = raw.EditableMode
	switch tool.EditableMode {
	case "":
		tool.EditableMode = "redirect"
	case "redirect", "path":
	default:
		return &MetadataError{Field: "tool.soar.editable-mode", Msg: fmt.Sprintf("unknown mode %q", tool.EditableMode)}
	}

	if raw.Build != nil {
		if len(raw.Build.Command) == 0 {
			return &MetadataError{Field: "tool.soar.build.command", Msg: "missing or empty"}
		}
		requires, err := parseRequirements("tool.soar.build.requires", raw.Build.Requires)
		if err != nil {
			return err
		}
		tool.Build = &Build{
			Command:    raw.Build.Command,
			ResultFile: raw.Build.ResultFile,
			Targets:    raw.Build.Targets,
			Requires:   requires,
			Native:     raw.Build.Native,
		}
	}

	return nil
}
