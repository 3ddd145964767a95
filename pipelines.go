package osipack

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
)

// BuildRequest carries the per-invocation build metadata the pipelines
// consume from their collaborators: the cargo target output directory and
// the declared source roots. It is created per build and dropped at its
// end.
type BuildRequest struct {
	// TargetDir is cargo's target output directory; the build tree lives
	// under <TargetDir>/osi/<application-id-symbol>.
	TargetDir string

	// Release selects the release profile for native and dex compilation.
	Release bool

	// SourceDirs are the declared JVM-language source roots (Android).
	SourceDirs []string

	// ResourceDirs are the declared resource roots (Android).
	ResourceDirs []string

	// AssetDirs are the declared raw asset directories (Android).
	AssetDirs []string

	// KeystorePass and KeyPass are handed to the signing tool through a
	// per-child environment; they are never placed on a command line.
	KeystorePass string
	KeyPass      string
}

// Pipeline is one platform packaging pipeline. Build runs it to
// completion; a failed stage aborts the whole build.
type Pipeline interface {
	// Name returns the platform identifier ("android", "macos").
	Name() string

	// Build packages the application described by the pipeline's
	// configuration into its platform artifact tree.
	Build(ctx context.Context, req *BuildRequest) error
}

// PipelineOptions bundles the collaborators shared by all pipelines.
type PipelineOptions struct {
	Cargo   CargoBuildFunc // nil uses a real cargo invocation
	Invoker *Invoker       // nil uses the default invoker
	Log     *log.Logger    // nil uses the package default logger
}

// PipelineFor returns the pipeline for the named platform of cfg.
//
// platform may be empty when the configuration declares exactly one
// platform table; with several tables present it must name one of them.
func PipelineFor(cfg *Config, platform string, opts PipelineOptions) (Pipeline, error) {
	if opts.Invoker == nil {
		opts.Invoker = &Invoker{}
	}
	if opts.Cargo == nil {
		cargo := &Cargo{Invoker: opts.Invoker}
		opts.Cargo = cargo.Build
	}

	if platform == "" {
		switch {
		case cfg.Android != nil && cfg.Macos == nil:
			platform = "android"
		case cfg.Macos != nil && cfg.Android == nil:
			platform = "macos"
		case cfg.Android == nil && cfg.Macos == nil:
			return nil, fmt.Errorf("configuration declares no platform tables")
		default:
			return nil, fmt.Errorf("configuration declares multiple platforms; pick one explicitly")
		}
	}

	switch platform {
	case "android":
		if cfg.Android == nil {
			return nil, fmt.Errorf("configuration has no android platform table")
		}
		return &AndroidBuilder{Config: cfg, Cargo: opts.Cargo, Invoker: opts.Invoker, Log: opts.Log}, nil
	case "macos":
		if cfg.Macos == nil {
			return nil, fmt.Errorf("configuration has no macos platform table")
		}
		return &MacosBuilder{Config: cfg, Cargo: opts.Cargo, Invoker: opts.Invoker, Log: opts.Log}, nil
	default:
		return nil, fmt.Errorf("unknown platform %q", platform)
	}
}
