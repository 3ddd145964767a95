package osipack

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
)

// Artifact is one build output of a Cargo invocation: its file path, a
// flag telling whether Cargo launched it as an executable product, and the
// owning package name. Artifacts are ephemeral; they are produced per
// build invocation and consumed immediately by the classifier.
type Artifact struct {
	Path       string
	Executable bool
	Package    string
}

// CargoBuildFunc is the narrow collaborator interface the pipelines
// consume: run one Cargo build for the given target triple (empty for the
// host default) and profile, and return the produced artifacts.
type CargoBuildFunc func(ctx context.Context, target, profile string) ([]Artifact, error)

// Cargo runs real cargo builds. It satisfies CargoBuildFunc via Build.
type Cargo struct {
	// Dir is the directory holding the workspace Cargo.toml; empty runs
	// from the current directory.
	Dir     string
	Invoker *Invoker
}

// Build runs `cargo build` for one target/profile pair and parses the
// artifact list from cargo's JSON message stream. Human diagnostics stay
// on stderr and stream live; only the machine-readable messages arrive on
// stdout.
func (c *Cargo) Build(ctx context.Context, target, profile string) ([]Artifact, error) {
	args := []string{"build", "--message-format=json-render-diagnostics"}
	switch profile {
	case "", "dev":
	case "release":
		args = append(args, "--release")
	default:
		args = append(args, "--profile", profile)
	}
	if target != "" {
		args = append(args, "--target", target)
	}

	out, err := c.Invoker.Output(ctx, c.Dir, "cargo", args...)
	if err != nil {
		return nil, err
	}
	return parseCargoMessages(out)
}

// cargoMessage is the subset of cargo's JSON message stream we consume.
type cargoMessage struct {
	Reason     string   `json:"reason"`
	PackageID  string   `json:"package_id"`
	Filenames  []string `json:"filenames"`
	Executable string   `json:"executable"`
}

func parseCargoMessages(stream []byte) ([]Artifact, error) {
	var artifacts []Artifact
	dec := json.NewDecoder(bytes.NewReader(stream))
	for dec.More() {
		var msg cargoMessage
		if err := dec.Decode(&msg); err != nil {
			return nil, err
		}
		if msg.Reason != "compiler-artifact" {
			continue
		}
		pkg := cargoPackageName(msg.PackageID)
		for _, file := range msg.Filenames {
			artifacts = append(artifacts, Artifact{
				Path:       file,
				Executable: file == msg.Executable && msg.Executable != "",
				Package:    pkg,
			})
		}
	}
	return artifacts, nil
}

// cargoPackageName extracts the package name from a cargo package id.
// Both the old and the new id format occur in the wild:
//
//	path+file:///work/app#0.1.0
//	registry+https://github.com/rust-lang/crates.io-index#serde@1.0.0
//	app 0.1.0 (path+file:///work/app)
func cargoPackageName(id string) string {
	if head, tail, ok := strings.Cut(id, "#"); ok {
		if name, _, hasVersion := strings.Cut(tail, "@"); hasVersion {
			return name
		}
		// No name in the fragment: the last path segment of the URL is
		// the package name.
		if idx := strings.LastIndexByte(head, '/'); idx >= 0 {
			return head[idx+1:]
		}
		return head
	}
	if name, _, ok := strings.Cut(id, " "); ok {
		return name
	}
	return id
}
