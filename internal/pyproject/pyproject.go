// Package pyproject loads the declarative project manifest and normalizes
// it into the in-memory metadata model every other component consumes.
// The model is constructed once per backend call and never mutated after.
package pyproject

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ShadowJonathan/enscons-soar/internal/pep440"
	"github.com/ShadowJonathan/enscons-soar/internal/pep508"
)

// ManifestName is the manifest file expected at the project root.
const ManifestName = "pyproject.toml"

// Metadata is the normalized project description.
type Metadata struct {
	Name          string // as written in the manifest
	CanonicalName string // lower-cased, runs of [-_.] collapsed to '-'
	Version       *pep440.Version
	VersionString string // canonical rendering

	Description    string
	RequiresPython string
	License        License
	Readme         Readme
	Authors        []Contact
	Maintainers    []Contact
	Keywords       []string
	Classifiers    []string
	URLs           map[string]string

	Dependencies         []*pep508.Requirement
	OptionalDependencies map[string][]*pep508.Requirement
	ExtraGroups          []string // sorted keys of OptionalDependencies

	// EntryPoints maps group name to name -> "module:attr" target.
	// scripts and gui-scripts land in console_scripts / gui_scripts.
	EntryPoints map[string]map[string]string

	Tool Tool
}

// Contact is an author or maintainer entry.
type Contact struct {
	Name  string
	Email string
}

// License holds either inline text or a file reference.
type License struct {
	Text string
	File string
}

// Readme references the long description.
type Readme struct {
	File        string
	Text        string
	ContentType string
}

// Tool is the backend's own configuration table.
type Tool struct {
	SourceRoots  []string
	Include      []string
	Exclude      []string
	PlatformTag  string
	RecordHash   string // "sha256" (default) or "blake3"
	EditableMode string // "redirect" (default) or "path"
	Build        *Build
}

// Build describes the external build-tool invocation.
type Build struct {
	Command    []string
	ResultFile string
	Targets    []string
	Requires   []*pep508.Requirement
	Native     bool
}

// Pure reports whether the project declares no platform-specific build
// outputs.
func (m *Metadata) Pure() bool {
	return m.Tool.Build == nil || !m.Tool.Build.Native
}

// FileName is the filename-escaped form of the canonical name ('-' -> '_').
func (m *Metadata) FileName() string {
	return strings.ReplaceAll(m.CanonicalName, "-", "_")
}

// NameVer is "<filename-form>-<canonical version>", the stem of every
// artifact name.
func (m *Metadata) NameVer() string {
	return m.FileName() + "-" + m.VersionString
}

// DistInfoDir is the metadata directory name inside a built distribution.
func (m *Metadata) DistInfoDir() string {
	return m.NameVer() + ".dist-info"
}

// MetadataError reports a malformed or missing project description. It is
// fatal to the call and never retried.
type MetadataError struct {
	Field string
	Msg   string
	Err   error
}

func (e *MetadataError) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("metadata: %s: %s: %v", e.Field, e.Msg, e.Err)
	case e.Field != "":
		return fmt.Sprintf("metadata: %s: %s", e.Field, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("metadata: %s: %v", e.Msg, e.Err)
	default:
		return fmt.Sprintf("metadata: %s", e.Msg)
	}
}

func (e *MetadataError) Unwrap() error { return e.Err }

var canonicalRe = regexp.MustCompile(`[-_.]+`)

// CanonicalName normalizes a distribution name: lower-cased with runs of
// '.', '-' and '_' collapsed to a single '-'.
func CanonicalName(name string) string {
	return canonicalRe.ReplaceAllString(strings.ToLower(name), "-")
}
