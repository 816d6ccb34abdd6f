package setupcfg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ShadowJonathan/enscons-soar/internal/pyproject"
)

const sampleCfg = `[metadata]
name = Foo.Bar
version = 1.0
description = Demo project
long_description = file: README.md
author = Jane Doe
author_email = jane@example.com
license = MIT
keywords = build, backend
url = https://example.com
classifiers =
    Programming Language :: Python :: 3
    License :: OSI Approved :: MIT License
project_urls =
    Source = https://example.com/src

[options]
python_requires = >=3.8
package_dir =
    = src
install_requires =
    requests>=2.8.1
    attrs

[options.extras_require]
secure =
    cryptography

[options.entry_points]
console_scripts =
    foo = foo.cli:main
foo.plugins =
    default = foo.plugins.default
`

func TestConvert(t *testing.T) {
	out, err := Convert([]byte(sampleCfg))
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	text := string(out)

	wantFragments := []string{
		"[build-system]",
		"name = 'Foo.Bar'",
		"version = '1.0'",
		"readme = 'README.md'",
		"requires-python = '>=3.8'",
		"license = 'MIT'",
		"'Programming Language :: Python :: 3'",
		"Source = 'https://example.com/src'",
		"Homepage = 'https://example.com'",
		"'requests>=2.8.1'",
		"src-root = 'src'",
	}
	for _, fragment := range wantFragments {
		if !strings.Contains(text, fragment) {
			t.Errorf("output missing %q:\n%s", fragment, text)
		}
	}
}

func TestConvert_OutputLoads(t *testing.T) {
	out, err := Convert([]byte(sampleCfg))
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, pyproject.ManifestName), out, 0644); err != nil {
		t.Fatal(err)
	}

	meta, err := pyproject.Load(dir)
	if err != nil {
		t.Fatalf("generated manifest does not load: %v\n%s", err, out)
	}

	if meta.CanonicalName != "foo-bar" {
		t.Errorf("CanonicalName = %q", meta.CanonicalName)
	}
	if len(meta.Dependencies) != 2 {
		t.Errorf("Dependencies = %v", meta.Dependencies)
	}
	if meta.Tool.SourceRoots[0] != "src" {
		t.Errorf("SourceRoots = %v", meta.Tool.SourceRoots)
	}
	if meta.EntryPoints["console_scripts"]["foo"] != "foo.cli:main" {
		t.Errorf("console_scripts = %v", meta.EntryPoints["console_scripts"])
	}
	if meta.EntryPoints["foo.plugins"]["default"] != "foo.plugins.default" {
		t.Errorf("plugin group = %v", meta.EntryPoints["foo.plugins"])
	}
	if len(meta.OptionalDependencies["secure"]) != 1 {
		t.Errorf("extras = %v", meta.OptionalDependencies)
	}
}

func TestConvert_MissingName(t *testing.T) {
	if _, err := Convert([]byte("[metadata]\nversion = 1.0\n")); err == nil {
		t.Error("Convert() expected error for missing name")
	}
}

func TestConvert_MissingVersion(t *testing.T) {
	if _, err := Convert([]byte("[metadata]\nname = foo\n")); err == nil {
		t.Error("Convert() expected error for missing version")
	}
}

func TestConvert_MalformedEntryPoint(t *testing.T) {
	cfg := "[metadata]\nname = foo\nversion = 1.0\n\n[options.entry_points]\nconsole_scripts =\n    broken-line\n"
	if _, err := Convert([]byte(cfg)); err == nil {
		t.Error("Convert() expected error for malformed entry point")
	}
}
