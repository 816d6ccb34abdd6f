package graph

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/ShadowJonathan/enscons-soar/internal/ctxlog"
	"github.com/ShadowJonathan/enscons-soar/internal/pyproject"
)

// Bridge translates project metadata into a build-tool invocation and the
// resulting archive manifest.
type Bridge struct {
	ProjectDir string
	Tool       Tool // nil selects ExecTool from the metadata's build command
}

// NewBridge creates a bridge for one project root.
func NewBridge(projectDir string, tool Tool) *Bridge {
	return &Bridge{ProjectDir: projectDir, Tool: tool}
}

// Materialize produces the manifest for the requested kind. Projects with
// a declared build graph go through the external tool; pure-metadata
// projects degenerate to a deterministic walk of the source roots. Sdists
// always package the source tree, never build outputs.
func (b *Bridge) Materialize(ctx context.Context, meta *pyproject.Metadata, kind Kind, settings map[string]string) (*Manifest, error) {
	if kind == KindSdist || meta.Tool.Build == nil {
		return b.walkSources(meta, kind)
	}
	return b.invokeTool(ctx, meta, kind, settings)
}

// walkSources discovers the manifest from the source roots. Wheel dests
// are root-relative (the import path starts at the root); sdist dests
// keep the root prefix so an unpacked sdist rebuilds in place.
func (b *Bridge) walkSources(meta *pyproject.Metadata, kind Kind) (*Manifest, error) {
	var entries []Entry
	for _, root := range meta.Tool.SourceRoots {
		dir := filepath.Join(b.ProjectDir, root)
		info, err := os.Stat(dir)
		if err != nil {
			return nil, &BuildError{Stage: "walk", Err: fmt.Errorf("source root %s: %w", root, err)}
		}
		if !info.IsDir() {
			return nil, &BuildError{Stage: "walk", Err: fmt.Errorf("source root %s is not a directory", root)}
		}

		rootEntries, err := walkRoot(os.DirFS(dir), dir, meta.Tool.Include, meta.Tool.Exclude)
		if err != nil {
			return nil, &BuildError{Stage: "walk", Err: err}
		}
		if kind == KindSdist {
			if prefix := path.Clean(filepath.ToSlash(root)); prefix != "." {
				for i := range rootEntries {
					rootEntries[i].Dest = prefix + "/" + rootEntries[i].Dest
				}
			}
		}
		entries = append(entries, rootEntries...)
	}
	return NewManifest(entries)
}

func (b *Bridge) invokeTool(ctx context.Context, meta *pyproject.Metadata, kind Kind, settings map[string]string) (*Manifest, error) {
	build := meta.Tool.Build

	resultFile := build.ResultFile
	if resultFile == "" {
		resultFile = filepath.Join("build", "soar-result.json")
	}
	if !filepath.IsAbs(resultFile) {
		resultFile = filepath.Join(b.ProjectDir, resultFile)
	}
	if err := os.MkdirAll(filepath.Dir(resultFile), 0755); err != nil {
		return nil, &BuildError{Stage: "invoke", Err: fmt.Errorf("result directory: %w", err)}
	}

	deps := make([]string, len(meta.Dependencies))
	for i, req := range meta.Dependencies {
		deps[i] = req.String()
	}

	inv := Invocation{
		ProjectDir:   b.ProjectDir,
		SourceRoots:  meta.Tool.SourceRoots,
		Dependencies: deps,
		Kind:         kind,
		Targets:      build.Targets,
		Settings:     settings,
		ResultFile:   resultFile,
	}

	tool := b.Tool
	if tool == nil {
		tool = NewExecTool(build.Command)
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("invoking build tool", "kind", kind, "targets", build.Targets)

	result, err := tool.Invoke(ctx, inv)
	if err != nil {
		return nil, err
	}
	logger.Debug("build tool finished", "files", len(result.Files))

	// Every reported file must exist on disk after the run.
	entries := make([]Entry, 0, len(result.Files))
	for _, entry := range result.Files {
		source := entry.Source
		if !filepath.IsAbs(source) {
			source = filepath.Join(b.ProjectDir, source)
		}
		if _, err := os.Stat(source); err != nil {
			return nil, &BuildError{
				Stage:  "result",
				Output: result.Output,
				Err:    fmt.Errorf("reported file %s does not exist: %w", entry.Source, err),
			}
		}
		entries = append(entries, Entry{Source: source, Dest: entry.Dest})
	}

	return NewManifest(entries)
}
