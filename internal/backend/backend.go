// Package backend exposes the fixed hook surface a build front-end calls.
// Each hook loads the project manifest fresh, composes the tag resolver,
// build graph bridge and archive assembler for one artifact kind, and
// returns the produced filename. No state persists between calls.
//
// Concurrent calls against distinct project roots are safe. Serializing
// calls against the same project root is the caller's responsibility; the
// external build tool keeps a mutable on-disk cache under the root.
package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ShadowJonathan/enscons-soar/internal/archive"
	"github.com/ShadowJonathan/enscons-soar/internal/ctxlog"
	"github.com/ShadowJonathan/enscons-soar/internal/distinfo"
	"github.com/ShadowJonathan/enscons-soar/internal/editable"
	"github.com/ShadowJonathan/enscons-soar/internal/graph"
	"github.com/ShadowJonathan/enscons-soar/internal/pyproject"
	"github.com/ShadowJonathan/enscons-soar/internal/tag"
)

// Options configures a Backend. The zero value works for a pure project
// in the current directory.
type Options struct {
	ProjectDir string
	// Tool overrides the build-tool invocation declared in the manifest.
	// Nil selects the declared command via a subprocess.
	Tool graph.Tool
	// BuildContext identifies the building interpreter for non-pure
	// projects. Ignored for pure projects.
	BuildContext tag.BuildContext
}

// Backend is the hook surface for one project root.
type Backend struct {
	projectDir   string
	tool         graph.Tool
	buildContext tag.BuildContext
}

// New creates a backend for the project root in opts.
func New(opts Options) *Backend {
	dir := opts.ProjectDir
	if dir == "" {
		dir = "."
	}
	return &Backend{
		projectDir:   dir,
		tool:         opts.Tool,
		buildContext: opts.BuildContext,
	}
}

func (b *Backend) load() (*pyproject.Metadata, error) {
	return pyproject.Load(b.projectDir)
}

// GetRequiresForBuildSdist reports extra build requirements for an sdist
// build. Source distributions never run the build tool, so there are none
// beyond the backend itself.
func (b *Backend) GetRequiresForBuildSdist(ctx context.Context) ([]string, error) {
	if _, err := b.load(); err != nil {
		return nil, err
	}
	return nil, nil
}

// GetRequiresForBuildWheel reports the extra requirements declared for
// the build-tool run.
func (b *Backend) GetRequiresForBuildWheel(ctx context.Context) ([]string, error) {
	meta, err := b.load()
	if err != nil {
		return nil, err
	}
	if meta.Tool.Build == nil {
		return nil, nil
	}
	requires := make([]string, len(meta.Tool.Build.Requires))
	for i, req := range meta.Tool.Build.Requires {
		requires[i] = req.String()
	}
	return requires, nil
}

// BuildSdist assembles a source distribution into outputDir and returns
// its filename.
func (b *Backend) BuildSdist(ctx context.Context, outputDir string) (string, error) {
	meta, err := b.load()
	if err != nil {
		return "", err
	}

	bridge := graph.NewBridge(b.projectDir, b.tool)
	manifest, err := bridge.Materialize(ctx, meta, graph.KindSdist, nil)
	if err != nil {
		return "", err
	}
	members, err := archive.MembersFromManifest(manifest)
	if err != nil {
		return "", err
	}
	members = append(members, b.metadataSidecars(meta)...)

	pkgInfo, err := distinfo.PKGInfo(meta, b.projectDir)
	if err != nil {
		return "", err
	}

	return archive.WriteSdist(ctx, meta, b.projectDir, members, pkgInfo, outputDir)
}

// metadataSidecars adds readme and license files referenced from the
// manifest, which may live outside the declared source roots.
func (b *Backend) metadataSidecars(meta *pyproject.Metadata) []archive.Member {
	var members []archive.Member
	for _, name := range []string{meta.Readme.File, meta.License.File} {
		if name == "" {
			continue
		}
		source := filepath.Join(b.projectDir, name)
		if _, err := os.Stat(source); err != nil {
			continue
		}
		members = append(members, archive.Member{Path: filepath.ToSlash(name), Source: source})
	}
	return members
}

// BuildWheel builds a wheel into outputDir and returns its filename.
// settings are forwarded to the build tool verbatim.
func (b *Backend) BuildWheel(ctx context.Context, outputDir string, settings map[string]string) (string, error) {
	meta, err := b.load()
	if err != nil {
		return "", err
	}
	resolved, err := tag.Resolve(meta, b.buildContext)
	if err != nil {
		return "", err
	}

	bridge := graph.NewBridge(b.projectDir, b.tool)
	manifest, err := bridge.Materialize(ctx, meta, graph.KindWheel, settings)
	if err != nil {
		return "", err
	}
	payload, err := archive.MembersFromManifest(manifest)
	if err != nil {
		return "", err
	}

	bundle, err := distinfo.New(meta, resolved, b.projectDir)
	if err != nil {
		return "", err
	}

	name, err := archive.WriteWheel(ctx, meta, resolved, payload, bundle, outputDir)
	if err != nil {
		return "", err
	}
	ctxlog.FromContext(ctx).Info("built wheel", "filename", name)
	return name, nil
}

// BuildEditable builds an editable wheel into outputDir: the payload is
// only the import shims, pointing back at the source tree.
func (b *Backend) BuildEditable(ctx context.Context, outputDir string, settings map[string]string) (string, error) {
	meta, err := b.load()
	if err != nil {
		return "", err
	}
	resolved, err := tag.Resolve(meta, b.buildContext)
	if err != nil {
		return "", err
	}

	plan, err := editable.NewPlan(meta, b.projectDir)
	if err != nil {
		return "", err
	}
	mechanism, err := editable.ForMode(meta.Tool.EditableMode)
	if err != nil {
		return "", err
	}
	payload, err := mechanism.Members(plan)
	if err != nil {
		return "", err
	}

	bundle, err := distinfo.New(meta, resolved, b.projectDir)
	if err != nil {
		return "", err
	}

	name, err := archive.WriteWheel(ctx, meta, resolved, payload, bundle, outputDir)
	if err != nil {
		return "", err
	}
	ctxlog.FromContext(ctx).Info("built editable wheel",
		"filename", name, "mode", mechanism.Mode())
	return name, nil
}

// PrepareMetadataForBuildWheel writes the dist-info directory that the
// eventual wheel will contain into outputDir and returns its name. The
// directory appears atomically; a failed render leaves nothing behind.
func (b *Backend) PrepareMetadataForBuildWheel(ctx context.Context, outputDir string) (string, error) {
	meta, err := b.load()
	if err != nil {
		return "", err
	}
	resolved, err := tag.Resolve(meta, b.buildContext)
	if err != nil {
		return "", err
	}
	bundle, err := distinfo.New(meta, resolved, b.projectDir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("backend: %w", err)
	}
	tmpDir, err := os.MkdirTemp(outputDir, ".soar-tmp-*")
	if err != nil {
		return "", fmt.Errorf("backend: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	for _, f := range bundle.Files {
		path := filepath.Join(tmpDir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return "", fmt.Errorf("backend: %w", err)
		}
		if err := os.WriteFile(path, f.Data, 0644); err != nil {
			return "", fmt.Errorf("backend: %w", err)
		}
	}

	distInfoDir := meta.DistInfoDir()
	finalPath := filepath.Join(outputDir, distInfoDir)
	if err := os.Rename(tmpDir, finalPath); err != nil {
		return "", fmt.Errorf("backend: %w", err)
	}
	return distInfoDir, nil
}
