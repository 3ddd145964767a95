package osipack

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"

	"github.com/magefile/mage/sh"
)

// Invoker spawns external build tools, one child process per call.
//
// The child's stderr is connected directly to Stderr (inherited, not
// buffered), so warnings and long-compile progress are visible live and
// independent of success or failure. The call blocks until the child
// exits.
//
// Failures are typed: a child that could not be started yields *ExecError,
// a child that exited unsuccessfully yields *ExitError. Nothing is retried.
//
// The zero value uses os.Stdout and os.Stderr.
type Invoker struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (v *Invoker) stdout() io.Writer {
	if v.Stdout != nil {
		return v.Stdout
	}
	return os.Stdout
}

func (v *Invoker) stderr() io.Writer {
	if v.Stderr != nil {
		return v.Stderr
	}
	return os.Stderr
}

// Run invokes tool with args and waits for it to exit.
func (v *Invoker) Run(ctx context.Context, tool string, args ...string) error {
	return v.RunIn(ctx, "", nil, tool, args...)
}

// RunIn invokes tool with args from the working directory dir (empty for
// the current directory) with env merged over the parent environment for
// this single child only.
//
// env is the spot where secret-bearing variables travel: they are scoped
// to the one child and never written to the process-wide environment, so
// they cannot leak into unrelated invocations.
func (v *Invoker) RunIn(ctx context.Context, dir string, env map[string]string, tool string, args ...string) error {
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Dir = dir
	cmd.Stdout = v.stdout()
	cmd.Stderr = v.stderr()
	if len(env) > 0 {
		cmd.Env = os.Environ()
		for key, value := range env {
			cmd.Env = append(cmd.Env, key+"="+value)
		}
	}

	err := cmd.Run()
	if err == nil {
		return nil
	}
	var exit *exec.ExitError
	if errors.As(err, &exit) {
		return &ExitError{Tool: tool, Code: sh.ExitStatus(err)}
	}
	return &ExecError{Tool: tool, Err: err}
}

// Output invokes tool with args and returns its standard output, while the
// child's stderr still streams live to the parent. Used for tools whose
// machine-readable result arrives on stdout (cargo's JSON messages).
func (v *Invoker) Output(ctx context.Context, dir string, tool string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Dir = dir
	cmd.Stderr = v.stderr()

	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}
	var exit *exec.ExitError
	if errors.As(err, &exit) {
		return out, &ExitError{Tool: tool, Code: sh.ExitStatus(err)}
	}
	return out, &ExecError{Tool: tool, Err: err}
}

// dotSlash gives a relative path an explicit "./" prefix so external tools
// never mistake a leading '-' for an option. Absolute paths are unchanged.
func dotSlash(path string) string {
	if path == "" || os.IsPathSeparator(path[0]) {
		return path
	}
	if len(path) >= 2 && path[1] == ':' {
		// Windows drive-letter absolute path.
		return path
	}
	return "./" + path
}
