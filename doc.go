// Package osipack turns a compiled application into a native, installable
// platform package: an Android application package (APK) tree or a macOS
// application bundle. Application authors never touch the native toolchains
// directly; the package discovers them, drives them, and places their
// outputs according to each platform's packaging conventions.
//
// # Supported Platforms
//
// The package includes pipelines for:
//   - Android - aapt2 resource compilation and linking, javac/kotlinc/d8
//     class compilation, zipalign and apksigner finishing
//   - macOS - per-architecture cargo builds classified into a .app bundle
//     (Contents/MacOS, Helpers, Frameworks, Resources) with a generated
//     Info.plist
//
// # Basic Usage
//
// Load a project configuration and run the pipeline for its platform:
//
//	cfg, err := osipack.LoadConfig("osiris.toml")
//	if err != nil { ... }
//
//	pipeline, err := osipack.PipelineFor(cfg, "", osipack.PipelineOptions{})
//	if err != nil { ... }
//
//	err = pipeline.Build(ctx, &osipack.BuildRequest{
//	    TargetDir: "./target",
//	    Release:   true,
//	})
//
// # Architecture
//
// The package is organized around the Pipeline interface, selected per
// platform by PipelineFor:
//
//	Pipeline
//	├── AndroidBuilder (Prepare → Resources → Apk → Java → Kotlin → Native)
//	└── MacosBuilder   (per-ABI cargo build → classify → assemble bundle)
//
// Both pipelines share the same process-invocation discipline: one external
// tool per call, the child's stderr streamed live to the parent, and typed
// errors (ExecError, ExitError) on failure. Everything is synchronous; no
// two external processes ever run concurrently within one build.
//
// # Requirements
//
// Requires Go 1.25 or later. The Android pipeline needs an initialized
// Android SDK (ANDROID_HOME or configuration), a JDK and, for Kotlin
// sources, a Kotlin distribution. The macOS pipeline needs cargo; signing
// and universal binaries additionally need the Xcode command line tools.
package osipack
