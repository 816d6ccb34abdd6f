package graph

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// defaultExcludes are dropped from every walk in addition to the
// project's own exclude rules: bytecode caches, hidden files, and the
// project's own metadata and artifact files, which a source root of "."
// would otherwise sweep into the payload.
var defaultExcludes = []string{
	"__pycache__", "*.pyc", "*.pyo", ".*",
	"pyproject.toml", "setup.cfg", "PKG-INFO",
	"*.egg-info", "*.dist-info", "*.whl", "*.tar.gz",
}

// walkRoot collects the files under one source root, applying the
// include/exclude rule set. Destinations are relative to the root, so a
// file src/foo/x.py under root "src" lands at foo/x.py. The walk is
// deterministic: results come back sorted by destination.
func walkRoot(fsys fs.FS, root string, include, exclude []string) ([]Entry, error) {
	var entries []Entry

	err := fs.WalkDir(fsys, ".", func(rel string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if excluded(rel, d.Name(), exclude) {
				return fs.SkipDir
			}
			return nil
		}
		if excluded(rel, d.Name(), exclude) {
			return nil
		}
		if len(include) > 0 && !matchAny(rel, d.Name(), include) {
			return nil
		}

		entries = append(entries, Entry{
			Source: filepath.Join(root, filepath.FromSlash(rel)),
			Dest:   rel,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Dest < entries[j].Dest })
	return entries, nil
}

// excluded applies the default excludes plus the project's rules.
func excluded(rel, base string, exclude []string) bool {
	return matchAny(rel, base, defaultExcludes) || matchAny(rel, base, exclude)
}

// matchAny matches a slash-relative path against glob patterns. A pattern
// containing a slash matches the whole relative path, otherwise the base
// name, plus a prefix match so "build/*" rules subsume their subtrees.
func matchAny(rel, base string, patterns []string) bool {
	for _, pattern := range patterns {
		target := base
		if strings.Contains(pattern, "/") {
			target = rel
		}
		if ok, err := path.Match(pattern, target); err == nil && ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			// Directory-name patterns also drop everything beneath.
			for _, segment := range strings.Split(path.Dir(rel), "/") {
				if ok, _ := path.Match(pattern, segment); ok {
					return true
				}
			}
		}
	}
	return false
}
