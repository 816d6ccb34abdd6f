package pyproject

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ManifestName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeManifest(t, `
[project]
name = "Foo.Bar"
version = "1.0"
description = "A thing"
requires-python = ">=3.8"
keywords = ["build", "backend"]
classifiers = ["Programming Language :: Python :: 3"]
dependencies = ["requests>=2.8.1", "tomli; python_version < '3.11'"]

[project.license]
text = "MIT"

[project.urls]
Homepage = "https://example.com"

[project.optional-dependencies]
secure = ["cryptography"]

[project.scripts]
foo = "foo.cli:main"

[project.entry-points."foo.plugins"]
default = "foo.plugins.default"

[tool.soar]
src-root = "src"
exclude = ["*.tmp"]
`)

	meta, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if meta.Name != "Foo.Bar" {
		t.Errorf("Name = %q", meta.Name)
	}
	if meta.CanonicalName != "foo-bar" {
		t.Errorf("CanonicalName = %q, want foo-bar", meta.CanonicalName)
	}
	if meta.FileName() != "foo_bar" {
		t.Errorf("FileName() = %q, want foo_bar", meta.FileName())
	}
	if meta.VersionString != "1.0" {
		t.Errorf("VersionString = %q, want 1.0", meta.VersionString)
	}
	if meta.DistInfoDir() != "foo_bar-1.0.dist-info" {
		t.Errorf("DistInfoDir() = %q", meta.DistInfoDir())
	}
	if !meta.Pure() {
		t.Error("Pure() = false, want true for project without native build")
	}
	if len(meta.Dependencies) != 2 || meta.Dependencies[0].Name != "requests" {
		t.Errorf("Dependencies = %+v", meta.Dependencies)
	}
	if meta.License.Text != "MIT" {
		t.Errorf("License = %+v", meta.License)
	}
	if got := meta.EntryPoints["console_scripts"]["foo"]; got != "foo.cli:main" {
		t.Errorf("console_scripts.foo = %q", got)
	}
	if got := meta.EntryPoints["foo.plugins"]["default"]; got != "foo.plugins.default" {
		t.Errorf("foo.plugins.default = %q", got)
	}
	if len(meta.Tool.SourceRoots) != 1 || meta.Tool.SourceRoots[0] != "src" {
		t.Errorf("SourceRoots = %v", meta.Tool.SourceRoots)
	}
	if meta.Tool.RecordHash != "sha256" {
		t.Errorf("RecordHash = %q, want default sha256", meta.Tool.RecordHash)
	}
	if meta.Tool.EditableMode != "redirect" {
		t.Errorf("EditableMode = %q, want default redirect", meta.Tool.EditableMode)
	}
}

func TestLoad_NativeBuild(t *testing.T) {
	dir := writeManifest(t, `
[project]
name = "native-ext"
version = "2.1.0"

[tool.soar.build]
command = ["mk", "-q"]
targets = ["ext"]
requires = ["mk>=4"]
native = true
`)

	meta, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if meta.Pure() {
		t.Error("Pure() = true, want false with native build outputs")
	}
	if meta.Tool.Build == nil || len(meta.Tool.Build.Command) != 2 {
		t.Fatalf("Build = %+v", meta.Tool.Build)
	}
	if len(meta.Tool.Build.Requires) != 1 || meta.Tool.Build.Requires[0].Name != "mk" {
		t.Errorf("Build.Requires = %+v", meta.Tool.Build.Requires)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing project table", `[tool.soar]` + "\n"},
		{"missing name", "[project]\nversion = \"1.0\"\n"},
		{"missing version", "[project]\nname = \"foo\"\n"},
		{"bad version", "[project]\nname = \"foo\"\nversion = \"not.a.version.x\"\n"},
		{"bad dependency", "[project]\nname = \"foo\"\nversion = \"1.0\"\ndependencies = [\"foo >= nope\"]\n"},
		{"bad entry point", "[project]\nname = \"foo\"\nversion = \"1.0\"\n[project.scripts]\nfoo = \"not a target\"\n"},
		{"bad record hash", "[project]\nname = \"foo\"\nversion = \"1.0\"\n[tool.soar]\nrecord-hash = \"md5\"\n"},
		{"build without command", "[project]\nname = \"foo\"\nversion = \"1.0\"\n[tool.soar.build]\nnative = true\n"},
		{"malformed toml", "[project\nname =\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeManifest(t, tt.content)
			_, err := Load(dir)
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			var metaErr *MetadataError
			if !errors.As(err, &metaErr) {
				t.Errorf("Load() error = %T, want *MetadataError", err)
			}
		})
	}
}

func TestLoad_ManifestAbsent(t *testing.T) {
	_, err := Load(t.TempDir())
	var metaErr *MetadataError
	if !errors.As(err, &metaErr) {
		t.Fatalf("Load() error = %v, want *MetadataError", err)
	}
}

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Foo.Bar", "foo-bar"},
		{"foo_bar", "foo-bar"},
		{"Foo--Bar__baz..qux", "foo-bar-baz-qux"},
		{"simple", "simple"},
	}
	for _, tt := range tests {
		if got := CanonicalName(tt.in); got != tt.want {
			t.Errorf("CanonicalName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
