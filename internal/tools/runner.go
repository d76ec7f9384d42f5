// Package tools provides result-checked invocation of the external
// command-line programs the pipeline delegates to, plus a pre-flight check
// that required binaries are present on PATH.
//
// Every numerically significant step of the pipeline happens inside an
// external tool; the orchestrator's only responsibility is to hand them the
// right arguments and to treat a non-zero exit as fatal. All invocations go
// through the Runner interface so the orchestration logic can be tested
// without the real toolchain installed.
package tools

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner executes an external tool and reports its outcome. Implementations
// must return a *ToolError when the tool exits non-zero.
type Runner interface {
	// Run executes name with args and waits for completion.
	Run(name string, args ...string) error

	// Output executes name with args and returns its stdout.
	Output(name string, args ...string) (string, error)
}

// ToolError reports a failed external tool invocation.
type ToolError struct {
	Tool     string
	ExitCode int
	Output   string // last lines of combined stdout/stderr
}

func (e *ToolError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d:\n%s", e.Tool, e.ExitCode, e.Output)
}

// ExecRunner runs tools as blocking subprocesses via os/exec. All commands
// use an explicit args slice; nothing is ever passed through a shell.
type ExecRunner struct{}

// Run executes the tool, capturing combined output. On a non-zero exit it
// returns a *ToolError carrying the exit code and the last 50 lines of
// output.
func (ExecRunner) Run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return toolError(name, err, out)
	}
	return nil
}

// Output executes the tool and returns its stdout. Stderr is captured
// separately and included in the error on failure.
func (ExecRunner) Output(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", toolError(name, err, []byte(stderr.String()))
	}
	return string(out), nil
}

// toolError converts an exec error into a *ToolError when an exit code is
// available, otherwise wraps the start failure.
func toolError(name string, err error, output []byte) error {
	if exitErr, ok := err.(*exec.ExitError); ok {
		return &ToolError{
			Tool:     name,
			ExitCode: exitErr.ExitCode(),
			Output:   lastLines(output, 50),
		}
	}
	return fmt.Errorf("run %s: %w", name, err)
}

// lastLines returns at most n trailing lines of output, trimmed.
func lastLines(output []byte, n int) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// CheckDependencies verifies that every named binary is available on PATH.
// Returns a descriptive error listing all missing binaries; nil if all are
// present.
func CheckDependencies(binaries ...string) error {
	var missing []string
	for _, bin := range binaries {
		if _, err := exec.LookPath(bin); err != nil {
			missing = append(missing, bin)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required binaries on PATH: %s",
			strings.Join(missing, ", "))
	}
	return nil
}

// CheckExecutable verifies that path exists and is a regular file, for the
// pipeline's bundled executables that are resolved relative to the install
// location rather than found on PATH.
func CheckExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("required executable %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("required executable %s is a directory", path)
	}
	return nil
}
