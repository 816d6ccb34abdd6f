package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Invocation carries everything the external build tool needs for one run.
// Settings are forwarded opaquely from the front-end.
type Invocation struct {
	ProjectDir   string            `json:"project_dir" yaml:"project_dir"`
	SourceRoots  []string          `json:"source_roots" yaml:"source_roots"`
	Dependencies []string          `json:"dependencies" yaml:"dependencies"`
	Kind         Kind              `json:"kind" yaml:"kind"`
	Targets      []string          `json:"targets,omitempty" yaml:"targets,omitempty"`
	Settings     map[string]string `json:"settings,omitempty" yaml:"settings,omitempty"`
	ResultFile   string            `json:"result_file" yaml:"result_file"`
}

// Result is what the tool reports back through its result file.
type Result struct {
	Files  []Entry `json:"files" yaml:"files"`
	Output string  `json:"-" yaml:"-"` // captured process output
}

// Tool runs one build and reports the files it produced. Implementations
// must be synchronous; the bridge never retries and never cancels mid-run.
type Tool interface {
	Invoke(ctx context.Context, inv Invocation) (*Result, error)
}

// ExecTool invokes the configured command as a subprocess. The request is
// handed over as a JSON file; the tool answers through the result file,
// which may be JSON or YAML.
type ExecTool struct {
	Command []string
}

// NewExecTool creates an ExecTool for the given argv.
func NewExecTool(command []string) *ExecTool {
	return &ExecTool{Command: command}
}

// Invoke runs the tool once and parses its result file. A non-zero exit
// or an unreadable result is a *BuildError carrying the tool's output.
func (t *ExecTool) Invoke(ctx context.Context, inv Invocation) (*Result, error) {
	if len(t.Command) == 0 {
		return nil, &BuildError{Stage: "invoke", Err: fmt.Errorf("no build command configured")}
	}

	reqFile, err := writeRequest(inv)
	if err != nil {
		return nil, &BuildError{Stage: "invoke", Err: err}
	}
	defer os.Remove(reqFile)

	args := append(append([]string{}, t.Command[1:]...), "--soar-request", reqFile)
	cmd := exec.CommandContext(ctx, t.Command[0], args...)
	cmd.Dir = inv.ProjectDir

	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, &BuildError{Stage: "invoke", Output: string(out), Err: fmt.Errorf("%s: %w", t.Command[0], err)}
	}

	result, err := readResult(inv.ResultFile)
	if err != nil {
		return nil, &BuildError{Stage: "result", Output: string(out), Err: err}
	}
	result.Output = string(out)
	return result, nil
}

func writeRequest(inv Invocation) (string, error) {
	f, err := os.CreateTemp("", "soar-request-*.json")
	if err != nil {
		return "", fmt.Errorf("writing request: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(inv); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing request: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("writing request: %w", err)
	}
	return f.Name(), nil
}

// readResult parses the result file, trying JSON first and YAML second.
func readResult(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading result file: %w", err)
	}

	var result Result
	if jsonErr := json.Unmarshal(data, &result); jsonErr != nil {
		if yamlErr := yaml.Unmarshal(data, &result); yamlErr != nil {
			return nil, fmt.Errorf("parsing result file %s: %w", filepath.Base(path), jsonErr)
		}
	}
	return &result, nil
}
