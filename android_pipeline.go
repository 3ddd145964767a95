package osipack

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/charmbracelet/log"
)

// androidAbiTargets maps configured Android ABI strings to Rust target
// triples. An ABI string outside this table is a fatal configuration
// error, never a silent fallback.
var androidAbiTargets = map[string]string{
	"armeabi-v7a": "armv7-linux-androideabi",
	"arm64-v8a":   "aarch64-linux-android",
	"x86":         "i686-linux-android",
	"x86_64":      "x86_64-linux-android",
}

// AndroidDirs is the build directory layout of one Android build, rooted
// at <cargo-target-dir>/osi/<application-id-symbol>. The tree is created
// at pipeline start and reused across builds; reuse is what makes the
// resource staleness check effective on the next invocation.
type AndroidDirs struct {
	Base      string
	Artifacts string // package.apk, AndroidManifest.xml, classes.dex, lib/
	Classes   string // javac/kotlinc output
	Java      string // generated resource bindings (R.java)
	Resources string // compiled .flat files
}

func newAndroidDirs(targetDir, idSymbol string) *AndroidDirs {
	base := filepath.Join(targetDir, "osi", idSymbol)
	return &AndroidDirs{
		Base:      base,
		Artifacts: filepath.Join(base, "artifacts"),
		Classes:   filepath.Join(base, "classes"),
		Java:      filepath.Join(base, "java"),
		Resources: filepath.Join(base, "resources"),
	}
}

func (d *AndroidDirs) create() error {
	for _, dir := range []string{d.Artifacts, d.Classes, d.Java, d.Resources} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create build directory %q: %w", dir, err)
		}
	}
	return nil
}

func (d *AndroidDirs) manifest() string {
	return filepath.Join(d.Artifacts, "AndroidManifest.xml")
}

func (d *AndroidDirs) apk() string {
	return filepath.Join(d.Artifacts, "package.apk")
}

// androidManifestTemplate is rendered deterministically every build, so
// the manifest on disk always matches the configuration.
var androidManifestTemplate = template.Must(template.New("manifest").Parse(
	`<?xml version="1.0" encoding="utf-8"?>
<manifest xmlns:android="http://schemas.android.com/apk/res/android"
    package="{{.ApplicationId}}"
    android:versionCode="{{.VersionCode}}"
    android:versionName="{{.VersionName}}">
    <uses-sdk android:minSdkVersion="{{.MinSdk}}" android:targetSdkVersion="{{.TargetSdk}}" />
    <application android:label="{{.AppName}}" android:hasCode="{{.HasCode}}">
    </application>
</manifest>
`))

type androidManifestData struct {
	ApplicationId string
	VersionCode   uint32
	VersionName   string
	MinSdk        uint32
	TargetSdk     uint32
	AppName       string
	HasCode       bool
}

// AndroidBuilder packages an application into an APK tree.
//
// The build runs a fixed, strictly sequential stage order with no backward
// transitions:
//
//	Prepare → BuildResources → BuildApk → BuildJava → BuildKotlin → BuildNative → Done
//
// Stages with nothing to do (no Java sources, no configured keystore) are
// still visited but skip internally. Any stage failure aborts the build;
// partially produced output stays on disk and is reconciled by the next
// invocation's staleness checks.
type AndroidBuilder struct {
	Config  *Config
	Cargo   CargoBuildFunc
	Invoker *Invoker
	Log     *log.Logger
}

// androidBuild carries the state threaded through the stages of one build
// invocation. Nothing in it survives past Build.
type androidBuild struct {
	req       *BuildRequest
	dirs      *AndroidDirs
	sdk       *Sdk
	tools     *BuildTools
	platform  *Platform
	jdk       *Jdk
	resources []ResourceEntry
	hasCode   bool
}

// Name returns the platform identifier of this pipeline.
func (b *AndroidBuilder) Name() string { return "android" }

func (b *AndroidBuilder) log() *log.Logger {
	if b.Log != nil {
		return b.Log
	}
	return log.Default()
}

// Build runs the full Android pipeline for one request.
func (b *AndroidBuilder) Build(ctx context.Context, req *BuildRequest) error {
	if b.Config.Android == nil {
		return fmt.Errorf("configuration has no android platform table")
	}
	state := &androidBuild{req: req}

	stages := []struct {
		name string
		run  func(context.Context, *androidBuild) error
	}{
		{"prepare", b.prepare},
		{"build-resources", b.buildResources},
		{"build-apk", b.buildApk},
		{"build-java", b.buildJava},
		{"build-kotlin", b.buildKotlin},
		{"build-native", b.buildNative},
	}
	for _, stage := range stages {
		b.log().Info("android", "stage", stage.name)
		if err := stage.run(ctx, state); err != nil {
			return fmt.Errorf("stage %s: %w", stage.name, err)
		}
	}
	b.log().Info("android package ready", "apk", state.dirs.apk())
	return nil
}

// prepare creates (or reuses) the build directory tree, rewrites the
// manifest and resolves the toolchain handles used by every later stage.
func (b *AndroidBuilder) prepare(_ context.Context, state *androidBuild) error {
	cfg := b.Config.Android
	state.dirs = newAndroidDirs(state.req.TargetDir, b.Config.Application.IdSymbol())
	if err := state.dirs.create(); err != nil {
		return err
	}

	javaSources, err := gatherSources(state.req.SourceDirs, ".java")
	if err != nil {
		return err
	}
	kotlinSources, err := gatherSources(state.req.SourceDirs, ".kt")
	if err != nil {
		return err
	}
	state.hasCode = len(javaSources) > 0 || len(kotlinSources) > 0

	var manifest bytes.Buffer
	err = androidManifestTemplate.Execute(&manifest, androidManifestData{
		ApplicationId: cfg.ApplicationId,
		VersionCode:   cfg.VersionCode,
		VersionName:   cfg.VersionName,
		MinSdk:        cfg.MinSdk,
		TargetSdk:     cfg.TargetSdk,
		AppName:       b.Config.Application.Name,
		HasCode:       state.hasCode,
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(state.dirs.manifest(), manifest.Bytes(), 0o644); err != nil {
		return fmt.Errorf("cannot write manifest: %w", err)
	}

	if state.sdk, err = LocateSdk(cfg.SdkRoot); err != nil {
		return err
	}
	if state.tools, err = state.sdk.SelectBuildTools(cfg.BuildTools); err != nil {
		return err
	}
	if state.platform, err = state.sdk.SelectPlatform(cfg.TargetSdk); err != nil {
		return err
	}
	if state.jdk, err = LocateJdk(""); err != nil {
		return err
	}
	return nil
}

func (b *AndroidBuilder) buildResources(ctx context.Context, state *androidBuild) error {
	compiler := &ResourceCompiler{Aapt2: state.tools.Aapt2(), Invoker: b.Invoker}
	entries, compiled, err := compiler.Compile(ctx, state.req.ResourceDirs, state.dirs.Resources)
	if err != nil {
		return err
	}
	state.resources = entries
	if compiled {
		b.log().Debug("resources recompiled", "count", len(entries))
	}
	return nil
}

// buildApk links compiled resources and the manifest into the unsigned
// package archive. The linker runs even with an empty resource list, so a
// project without resources still yields a valid archive.
func (b *AndroidBuilder) buildApk(ctx context.Context, state *androidBuild) error {
	linker := &PackageLinker{Tools: state.tools, Invoker: b.Invoker}
	return linker.Link(ctx, &LinkRequest{
		AssetDirs:   state.req.AssetDirs,
		LinkAgainst: []string{state.platform.AndroidJar()},
		Manifest:    state.dirs.manifest(),
		Output:      state.dirs.apk(),
		JavaDir:     state.dirs.Java,
		Package:     b.Config.Android.Namespace,
		Resources:   state.resources,
	})
}

func (b *AndroidBuilder) buildJava(ctx context.Context, state *androidBuild) error {
	compiler := &JavaCompiler{Jdk: state.jdk, Invoker: b.Invoker}
	srcDirs := append([]string{}, state.req.SourceDirs...)
	srcDirs = append(srcDirs, state.dirs.Java)
	return compiler.Compile(ctx, srcDirs, []string{state.platform.AndroidJar()}, state.dirs.Classes)
}

// buildKotlin compiles Kotlin sources when any exist. The Kotlin
// distribution is only resolved once sources are present, so pure-Java
// projects build without one installed.
func (b *AndroidBuilder) buildKotlin(ctx context.Context, state *androidBuild) error {
	sources, err := gatherSources(state.req.SourceDirs, ".kt")
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return nil
	}
	kdk, err := LocateKdk("")
	if err != nil {
		return err
	}
	compiler := &KotlinCompiler{Kdk: kdk, Invoker: b.Invoker}
	classPath := []string{state.platform.AndroidJar(), state.dirs.Classes}
	return compiler.Compile(ctx, state.req.SourceDirs, classPath, state.dirs.Classes)
}

// buildNative finishes the archive: dex-compiles the class output, builds
// the native code per ABI, adds everything to the package, aligns it and,
// when a keystore is configured, signs it.
func (b *AndroidBuilder) buildNative(ctx context.Context, state *androidBuild) error {
	cfg := b.Config.Android
	linker := &PackageLinker{Tools: state.tools, Invoker: b.Invoker}

	classFiles, err := gatherSources([]string{state.dirs.Classes}, ".class")
	if err != nil {
		return err
	}
	if len(classFiles) > 0 {
		dex := &DexCompiler{Tools: state.tools, Invoker: b.Invoker}
		err := dex.Compile(ctx, classFiles, []string{state.platform.AndroidJar()},
			cfg.MinSdk, state.req.Release, state.dirs.Artifacts)
		if err != nil {
			return err
		}
		if err := linker.Add(ctx, state.dirs.apk(), state.dirs.Artifacts, "classes.dex"); err != nil {
			return err
		}
	}

	profile := "dev"
	if state.req.Release {
		profile = "release"
	}
	for _, abi := range cfg.Abis {
		triple, ok := androidAbiTargets[abi]
		if !ok {
			return &AbiError{Abi: abi}
		}
		artifacts, err := b.Cargo(ctx, triple, profile)
		if err != nil {
			return err
		}
		for _, artifact := range artifacts {
			if !isSharedLibrary(artifact.Path) || artifact.Package != b.Config.Application.Package {
				continue
			}
			rel := filepath.Join("lib", abi, filepath.Base(artifact.Path))
			if err := copyFile(artifact.Path, filepath.Join(state.dirs.Artifacts, rel)); err != nil {
				return err
			}
			if err := linker.Add(ctx, state.dirs.apk(), state.dirs.Artifacts, rel); err != nil {
				return err
			}
		}
	}

	aligned := state.dirs.apk() + ".aligned"
	if err := linker.Align(ctx, state.dirs.apk(), aligned); err != nil {
		return err
	}
	if err := os.Rename(aligned, state.dirs.apk()); err != nil {
		return err
	}

	if cfg.Keystore == "" {
		return nil
	}
	return linker.Sign(ctx, &SignRequest{
		Archive:      state.dirs.apk(),
		Keystore:     cfg.Keystore,
		KeystorePass: state.req.KeystorePass,
		KeyPass:      state.req.KeyPass,
	})
}
