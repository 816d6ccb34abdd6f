// Package editable produces the shim files that make a source tree
// importable in place. The shims are packaged into a wheel whose payload
// is only the shim files themselves; the source tree is never copied.
package editable

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ShadowJonathan/enscons-soar/internal/archive"
	"github.com/ShadowJonathan/enscons-soar/internal/pyproject"
)

// ConflictError reports two source roots claiming the same top-level
// importable name. The call fails rather than silently picking one.
type ConflictError struct {
	Name     string
	Existing string
	Claimed  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("editable: top-level name %q claimed by both %s and %s",
		e.Name, e.Existing, e.Claimed)
}

// Plan maps every top-level importable name under the declared source
// roots to its absolute on-disk location: the package directory for
// packages, the .py file for single-file modules.
type Plan struct {
	Meta    *pyproject.Metadata
	Mapping map[string]string
	Roots   []string // absolute source roots, sorted
}

// NewPlan scans the declared source roots for top-level packages and
// modules. A directory counts as a package only when it carries an
// __init__.py; dunder and hidden entries are skipped.
func NewPlan(meta *pyproject.Metadata, projectDir string) (*Plan, error) {
	roots := meta.Tool.SourceRoots
	if len(roots) == 0 {
		roots = []string{"."}
	}

	plan := &Plan{Meta: meta, Mapping: make(map[string]string)}
	seen := make(map[string]bool)
	for _, root := range roots {
		abs, err := filepath.Abs(filepath.Join(projectDir, root))
		if err != nil {
			return nil, fmt.Errorf("editable: %w", err)
		}
		if !seen[abs] {
			seen[abs] = true
			plan.Roots = append(plan.Roots, abs)
		}
		if err := plan.scanRoot(abs); err != nil {
			return nil, err
		}
	}
	sort.Strings(plan.Roots)

	if len(plan.Mapping) == 0 {
		return nil, fmt.Errorf("editable: no importable packages or modules under source roots of %s", meta.Name)
	}
	return plan, nil
}

func (p *Plan) scanRoot(root string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("editable: source root %s: %w", root, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "__") {
			continue
		}

		var top, location string
		if entry.IsDir() {
			init := filepath.Join(root, name, "__init__.py")
			if _, err := os.Stat(init); err != nil {
				continue
			}
			top = name
			location = filepath.Join(root, name)
		} else if strings.HasSuffix(name, ".py") {
			top = strings.TrimSuffix(name, ".py")
			location = filepath.Join(root, name)
		} else {
			continue
		}

		if existing, ok := p.Mapping[top]; ok {
			if existing != location {
				return &ConflictError{Name: top, Existing: existing, Claimed: location}
			}
			continue
		}
		p.Mapping[top] = location
	}
	return nil
}

// Names returns the mapped top-level names in sorted order.
func (p *Plan) Names() []string {
	names := make([]string, 0, len(p.Mapping))
	for name := range p.Mapping {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Mechanism generates the shim members for one installation strategy.
type Mechanism interface {
	// Mode is the configuration name selecting this mechanism.
	Mode() string
	// Members renders the shim files for the plan.
	Members(plan *Plan) ([]archive.Member, error)
}

// ForMode returns the mechanism selected by tool.soar.editable-mode.
// The dynamic redirect is the default; "path" selects the static
// snapshot for targets that cannot run an import hook.
func ForMode(mode string) (Mechanism, error) {
	switch mode {
	case "", "redirect":
		return redirectMechanism{}, nil
	case "path":
		return pathMechanism{}, nil
	default:
		return nil, fmt.Errorf("editable: unknown mode %q", mode)
	}
}

// versionSlug flattens a version string into an identifier fragment.
func versionSlug(version string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, version)
}
