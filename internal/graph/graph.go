// Package graph bridges the metadata model to the external dependency-graph
// build tool and produces the manifest of files that go into an archive.
//
// The tool is treated as one atomic blocking step: invoked synchronously,
// never retried, its diagnostic output surfaced verbatim on failure.
package graph

import (
	"fmt"
	"path"
	"strings"
)

// Kind is the requested artifact kind.
type Kind string

const (
	KindSdist    Kind = "sdist"
	KindWheel    Kind = "wheel"
	KindEditable Kind = "editable"
)

// Entry maps one on-disk source file to its archive-relative destination.
type Entry struct {
	Source string `json:"source" yaml:"source"`
	Dest   string `json:"dest" yaml:"dest"`
}

// Manifest is an ordered set of entries with unique, rooted destinations.
type Manifest struct {
	Entries []Entry
}

// NewManifest validates entries: destinations must be unique, relative,
// and must not escape the archive root. Exact repeats collapse to one
// entry; the same destination from two different sources is an error.
func NewManifest(entries []Entry) (*Manifest, error) {
	seen := make(map[string]string, len(entries))
	deduped := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if err := checkDest(entry.Dest); err != nil {
			return nil, &BuildError{Stage: "manifest", Err: err}
		}
		if prev, ok := seen[entry.Dest]; ok {
			if prev != entry.Source {
				return nil, &BuildError{
					Stage: "manifest",
					Err:   fmt.Errorf("%s and %s both map to archive path %s", prev, entry.Source, entry.Dest),
				}
			}
			continue
		}
		seen[entry.Dest] = entry.Source
		deduped = append(deduped, entry)
	}
	return &Manifest{Entries: deduped}, nil
}

func checkDest(dest string) error {
	if dest == "" {
		return fmt.Errorf("empty archive path")
	}
	if strings.HasPrefix(dest, "/") || strings.Contains(dest, "\\") {
		return fmt.Errorf("archive path %q is not relative", dest)
	}
	clean := path.Clean(dest)
	if clean != dest || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("archive path %q escapes the archive root", dest)
	}
	return nil
}

// BuildError reports an external tool failure or an inconsistent manifest.
// Tool output is preserved verbatim for diagnosis.
type BuildError struct {
	Stage  string
	Output string
	Err    error
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("build: %s: %v", e.Stage, e.Err)
	if e.Output != "" {
		msg += "\n" + strings.TrimRight(e.Output, "\n")
	}
	return msg
}

func (e *BuildError) Unwrap() error { return e.Err }
