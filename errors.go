package osipack

import "fmt"

// ToolchainPart identifies which toolchain dependency an error refers to,
// so diagnostics can name exactly what is missing and why.
type ToolchainPart int

// Toolchain dependencies that discovery can fail on.
const (
	PartSdk ToolchainPart = iota
	PartBuildTools
	PartPlatform
	PartJdk
	PartKdk
)

// String returns the human-readable name of the toolchain part.
func (p ToolchainPart) String() string {
	switch p {
	case PartSdk:
		return "Android SDK"
	case PartBuildTools:
		return "Android build-tools"
	case PartPlatform:
		return "Android platform"
	case PartJdk:
		return "Java Development Kit"
	case PartKdk:
		return "Kotlin distribution"
	default:
		return "unknown toolchain part"
	}
}

// ToolchainError reports a toolchain dependency that could not be located
// (Missing) or that was found but failed validation (not Missing).
//
// The two cases are kept distinguishable per part because callers and tests
// key off the exact failure kind: "no SDK configured" and "directory exists
// but is not an initialized SDK" need different remedies.
type ToolchainError struct {
	Part    ToolchainPart
	Missing bool   // true: not found at all; false: found but invalid
	Path    string // the path that was examined, if any
	Reason  string // short human-readable detail
}

func (e *ToolchainError) Error() string {
	verb := "invalid"
	if e.Missing {
		verb = "cannot locate"
	}
	msg := fmt.Sprintf("%s %s", verb, e.Part)
	if e.Path != "" {
		msg += fmt.Sprintf(" at %q", e.Path)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is reports whether target matches this error by part and kind, so tests
// can write errors.Is(err, &ToolchainError{Part: PartSdk, Missing: true})
// without caring about path or reason.
func (e *ToolchainError) Is(target error) bool {
	t, ok := target.(*ToolchainError)
	if !ok {
		return false
	}
	return t.Part == e.Part && t.Missing == e.Missing
}

// ExecError reports an external tool whose process could not be spawned at
// all, typically because the binary is absent from PATH.
type ExecError struct {
	Tool string
	Err  error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("cannot execute %q: %v", e.Tool, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// ExitError reports an external tool that ran but exited unsuccessfully.
// By the time this error is produced the child's diagnostics have already
// been streamed to the parent's stderr, so the message stays short.
type ExitError struct {
	Tool string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%q failed with exit code %d", e.Tool, e.Code)
}

// PathError reports a path that cannot be represented in the form a
// specific external tool requires (for example, an empty path where a
// relative file argument is expected).
type PathError struct {
	Tool string
	Path string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("path %q cannot be passed to %q", e.Path, e.Tool)
}

// AbiError reports a configured ABI string with no known target triple.
type AbiError struct {
	Abi string
}

func (e *AbiError) Error() string {
	return fmt.Sprintf("unsupported ABI %q", e.Abi)
}
