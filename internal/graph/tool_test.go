package graph

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// writeScript installs an executable shell script acting as the build tool.
func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "tool.sh")
	script := "#!/bin/sh\n" + body
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
}

func TestExecTool_ParsesJSONResult(t *testing.T) {
	skipWithoutShell(t)
	dir := t.TempDir()

	resultFile := filepath.Join(dir, "result.json")
	script := writeScript(t, dir,
		`cat > "$RESULT" <<'EOF'
{"files": [{"source": "build/gen.py", "dest": "foo/gen.py"}]}
EOF
`)

	tool := NewExecTool([]string{script})
	result, err := tool.Invoke(contextWithEnv(t, resultFile), Invocation{
		ProjectDir: dir,
		Kind:       KindWheel,
		ResultFile: resultFile,
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if len(result.Files) != 1 || result.Files[0].Dest != "foo/gen.py" {
		t.Fatalf("result = %+v", result.Files)
	}
}

func TestExecTool_ParsesYAMLResult(t *testing.T) {
	skipWithoutShell(t)
	dir := t.TempDir()

	resultFile := filepath.Join(dir, "result.yaml")
	script := writeScript(t, dir,
		`cat > "$RESULT" <<'EOF'
files:
  - source: build/gen.py
    dest: foo/gen.py
  - source: build/other.py
    dest: foo/other.py
EOF
`)

	tool := NewExecTool([]string{script})
	result, err := tool.Invoke(contextWithEnv(t, resultFile), Invocation{
		ProjectDir: dir,
		Kind:       KindWheel,
		ResultFile: resultFile,
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if len(result.Files) != 2 {
		t.Fatalf("result = %+v", result.Files)
	}
}

func TestExecTool_NonZeroExit(t *testing.T) {
	skipWithoutShell(t)
	dir := t.TempDir()

	script := writeScript(t, dir, "echo 'mk: no rule for target' >&2\nexit 2\n")

	tool := NewExecTool([]string{script})
	_, err := tool.Invoke(context.Background(), Invocation{ProjectDir: dir, Kind: KindWheel})

	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("Invoke() error = %v, want *BuildError", err)
	}
	if buildErr.Output == "" {
		t.Error("tool diagnostic output not captured")
	}
}

func TestExecTool_MissingResultFile(t *testing.T) {
	skipWithoutShell(t)
	dir := t.TempDir()

	script := writeScript(t, dir, "exit 0\n")

	tool := NewExecTool([]string{script})
	_, err := tool.Invoke(context.Background(), Invocation{
		ProjectDir: dir,
		Kind:       KindWheel,
		ResultFile: filepath.Join(dir, "never-written.json"),
	})

	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("Invoke() error = %v, want *BuildError", err)
	}
}

// contextWithEnv points the script's $RESULT at the result file via the
// process environment; sh expands it at run time.
func contextWithEnv(t *testing.T, resultFile string) context.Context {
	t.Helper()
	t.Setenv("RESULT", resultFile)
	return context.Background()
}
