package osipack

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"testing"
)

func TestInvokerExecError(t *testing.T) {
	inv := &Invoker{}
	err := inv.Run(context.Background(), "definitely-not-a-real-tool-host")
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecError, got %v", err)
	}
	if execErr.Tool != "definitely-not-a-real-tool-host" {
		t.Errorf("ExecError.Tool = %q", execErr.Tool)
	}
}

func TestInvokerExitError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	inv := &Invoker{Stderr: &bytes.Buffer{}}
	err := inv.Run(context.Background(), "sh", "-c", "exit 3")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if exitErr.Code != 3 {
		t.Errorf("ExitError.Code = %d, want 3", exitErr.Code)
	}
}

func TestInvokerChildEnvIsScoped(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	var out bytes.Buffer
	inv := &Invoker{Stdout: &out}
	env := map[string]string{"OSI_TEST_SECRET": "hunter2"}
	err := inv.RunIn(context.Background(), "", env, "sh", "-c", `printf %s "$OSI_TEST_SECRET"`)
	if err != nil {
		t.Fatal(err)
	}
	if out.String() != "hunter2" {
		t.Errorf("child saw %q, want \"hunter2\"", out.String())
	}

	// The variable lives in the one child only, never process-wide.
	out.Reset()
	if err := inv.Run(context.Background(), "sh", "-c", `printf %s "$OSI_TEST_SECRET"`); err != nil {
		t.Fatal(err)
	}
	if out.String() != "" {
		t.Errorf("secret leaked to an unrelated invocation: %q", out.String())
	}
}

func TestInvokerStreamsStderr(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	var errOut bytes.Buffer
	inv := &Invoker{Stderr: &errOut}
	if err := inv.Run(context.Background(), "sh", "-c", "echo warned >&2"); err != nil {
		t.Fatal(err)
	}
	if errOut.String() != "warned\n" {
		t.Errorf("stderr = %q, want \"warned\\n\"", errOut.String())
	}
}

func TestDotSlash(t *testing.T) {
	testCases := []struct{ in, want string }{
		{"foo/bar", "./foo/bar"},
		{"-weird", "./-weird"},
		{"/abs/path", "/abs/path"},
		{"", ""},
	}
	for _, tc := range testCases {
		if got := dotSlash(tc.in); got != tc.want {
			t.Errorf("dotSlash(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
