package osipack

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
)

func TestMacosTargetTriple(t *testing.T) {
	testCases := []struct {
		abi  string
		want string
	}{
		{"arm64", "aarch64-apple-darwin"},
		{"aarch64", "aarch64-apple-darwin"},
		{"x86-64", "x86_64-apple-darwin"},
		{"x86_64", "x86_64-apple-darwin"},
		{"native", ""},
	}
	for _, tc := range testCases {
		got, err := MacosTargetTriple(tc.abi)
		if err != nil {
			t.Errorf("MacosTargetTriple(%q) failed: %v", tc.abi, err)
			continue
		}
		if got != tc.want {
			t.Errorf("MacosTargetTriple(%q) = %q, want %q", tc.abi, got, tc.want)
		}
	}

	_, err := MacosTargetTriple("mips")
	var abiErr *AbiError
	if !errors.As(err, &abiErr) {
		t.Fatalf("expected AbiError, got %v", err)
	}
	if abiErr.Abi != "mips" {
		t.Errorf("AbiError.Abi = %q, want \"mips\"", abiErr.Abi)
	}
}

func TestClassifyArtifact(t *testing.T) {
	in := ClassifyInput{
		TargetDir:  "/work/target",
		Triple:     "aarch64-apple-darwin",
		Profile:    "",
		AppSymbol:  "my_app",
		AppPackage: "my-app",
	}

	testCases := []struct {
		name     string
		artifact Artifact
		wantKind DestinationKind
		wantPath string
	}{
		{
			name: "main executable, nested path flattened and renamed",
			artifact: Artifact{
				Path:       "/work/target/aarch64-apple-darwin/debug/deep/nested/my-app",
				Executable: true,
				Package:    "my-app",
			},
			wantKind: DestMainExecutable,
			wantPath: filepath.Join("Contents", "MacOS", "my_app"),
		},
		{
			name: "other executable becomes a helper",
			artifact: Artifact{
				Path:       "/work/target/aarch64-apple-darwin/debug/tools/updater",
				Executable: true,
				Package:    "updater",
			},
			wantKind: DestHelper,
			wantPath: filepath.Join("Contents", "Helpers", "updater"),
		},
		{
			name: "dylib anywhere in the tree becomes a framework",
			artifact: Artifact{
				Path:    "/work/target/aarch64-apple-darwin/debug/deps/libcore.dylib",
				Package: "core",
			},
			wantKind: DestFramework,
			wantPath: filepath.Join("Contents", "Frameworks", "libcore.dylib"),
		},
		{
			name: "plain data file keeps its hierarchy under Resources",
			artifact: Artifact{
				Path:    "/work/target/aarch64-apple-darwin/debug/foo/bar.dat",
				Package: "my-app",
			},
			wantKind: DestResource,
			wantPath: filepath.Join("Contents", "Resources", "foo", "bar.dat"),
		},
		{
			name: "artifact outside the expected tree falls back to base name",
			artifact: Artifact{
				Path:    "/elsewhere/thing.dat",
				Package: "my-app",
			},
			wantKind: DestResource,
			wantPath: filepath.Join("Contents", "Resources", "thing.dat"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dest := ClassifyArtifact(tc.artifact, in)
			if dest.Kind != tc.wantKind {
				t.Errorf("kind = %d, want %d", dest.Kind, tc.wantKind)
			}
			if dest.Path != tc.wantPath {
				t.Errorf("path = %q, want %q", dest.Path, tc.wantPath)
			}
		})
	}
}

func TestClassifyArtifactHostDefaultTarget(t *testing.T) {
	// With no explicit triple the per-target strip step is skipped.
	in := ClassifyInput{
		TargetDir:  "/work/target",
		Profile:    "release",
		AppSymbol:  "my_app",
		AppPackage: "my-app",
	}
	dest := ClassifyArtifact(Artifact{Path: "/work/target/release/data/a.txt"}, in)
	if dest.Kind != DestResource {
		t.Fatalf("kind = %d, want DestResource", dest.Kind)
	}
	if want := filepath.Join("Contents", "Resources", "data", "a.txt"); dest.Path != want {
		t.Errorf("path = %q, want %q", dest.Path, want)
	}
}

func TestClassifyArtifactRelativeTargetDir(t *testing.T) {
	// cargo reports artifact paths absolute even when the target directory
	// is configured relative to the working directory; classification must
	// still strip the tree prefix.
	lib, err := filepath.Abs(filepath.Join("target", "debug", "deps", "libcore.dylib"))
	if err != nil {
		t.Fatal(err)
	}
	in := ClassifyInput{
		TargetDir:  "target",
		AppSymbol:  "my_app",
		AppPackage: "my-app",
	}
	dest := ClassifyArtifact(Artifact{Path: lib, Package: "core"}, in)
	if dest.Kind != DestFramework {
		t.Fatalf("kind = %d, want DestFramework", dest.Kind)
	}
	if want := filepath.Join("Contents", "Frameworks", "libcore.dylib"); dest.Path != want {
		t.Errorf("path = %q, want %q", dest.Path, want)
	}

	data, err := filepath.Abs(filepath.Join("target", "debug", "foo", "bar.dat"))
	if err != nil {
		t.Fatal(err)
	}
	dest = ClassifyArtifact(Artifact{Path: data, Package: "my-app"}, in)
	if want := filepath.Join("Contents", "Resources", "foo", "bar.dat"); dest.Kind != DestResource || dest.Path != want {
		t.Errorf("data destination = (%d, %q), want resource at %q", dest.Kind, dest.Path, want)
	}
}

func TestProfileDir(t *testing.T) {
	testCases := []struct{ profile, want string }{
		{"", "debug"},
		{"dev", "debug"},
		{"release", "release"},
		{"bench", "bench"},
	}
	for _, tc := range testCases {
		if got := profileDir(tc.profile); got != tc.want {
			t.Errorf("profileDir(%q) = %q, want %q", tc.profile, got, tc.want)
		}
	}
}

func TestMacosBundleAssembly(t *testing.T) {
	targetDir := t.TempDir()
	profile := filepath.Join(targetDir, "debug")
	if err := os.MkdirAll(filepath.Join(profile, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeArtifact := func(rel string) string {
		path := filepath.Join(profile, rel)
		if err := os.WriteFile(path, []byte(rel), 0o755); err != nil {
			t.Fatal(err)
		}
		return path
	}
	exe := writeArtifact("demo")
	lib := writeArtifact("libdemo.dylib")
	dat := writeArtifact(filepath.Join("sub", "data.bin"))

	cfg := &Config{
		Application: ApplicationConfig{Id: "demo", Package: "demo"},
		Macos:       &MacosConfig{BundleId: "com.example.demo", Abis: []string{"native"}},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	cargo := func(ctx context.Context, target, profile string) ([]Artifact, error) {
		if target != "" {
			t.Errorf("native ABI passed explicit target %q", target)
		}
		return []Artifact{
			{Path: exe, Executable: true, Package: "demo"},
			{Path: lib, Package: "demo"},
			{Path: dat, Package: "demo"},
		}, nil
	}

	builder := &MacosBuilder{Config: cfg, Cargo: cargo, Invoker: &Invoker{}}
	bundle := builder.BundleDir(targetDir)

	// A stale bundle from a previous run must be deleted, not merged.
	stale := filepath.Join(bundle, "Contents", "MacOS", "leftover")
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := builder.Build(context.Background(), &BuildRequest{TargetDir: targetDir}); err != nil {
		t.Fatal(err)
	}

	wantFiles := []string{
		filepath.Join("Contents", "Info.plist"),
		filepath.Join("Contents", "MacOS", "demo"),
		filepath.Join("Contents", "Frameworks", "libdemo.dylib"),
		filepath.Join("Contents", "Resources", "sub", "data.bin"),
	}
	for _, rel := range wantFiles {
		if _, err := os.Stat(filepath.Join(bundle, rel)); err != nil {
			t.Errorf("bundle is missing %q: %v", rel, err)
		}
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale bundle content survived the rebuild")
	}
}

func TestMacosToolWrappers(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub tools require a shell")
	}
	dir := t.TempDir()
	logFile := filepath.Join(dir, "calls.log")
	for _, tool := range []string{"lipo", "actool", "pkgbuild"} {
		stubTool(t, filepath.Join(dir, tool), logFile)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	inv := &Invoker{}
	ctx := context.Background()
	if err := LipoCreate(ctx, inv, "/out/universal", "/in/a", "/in/b"); err != nil {
		t.Fatal(err)
	}
	if err := ActoolCompile(ctx, inv, "Assets.xcassets", "/out/res", "11.0"); err != nil {
		t.Fatal(err)
	}
	err := PkgbuildComponent(ctx, inv, "/out/demo.app", "com.example.demo", "1.2.3", "/out/demo.pkg")
	if err != nil {
		t.Fatal(err)
	}

	calls, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(calls)), "\n")
	wantArgs := []string{
		"-create -output /out/universal /in/a /in/b",
		"--compile /out/res --platform macosx --minimum-deployment-target 11.0 ./Assets.xcassets",
		"--component /out/demo.app --identifier com.example.demo --version 1.2.3 --install-location /Applications /out/demo.pkg",
	}
	if len(lines) != len(wantArgs) {
		t.Fatalf("expected %d invocations, got %d", len(wantArgs), len(lines))
	}
	for i, want := range wantArgs {
		if !strings.HasSuffix(lines[i], want) {
			t.Errorf("invocation %d = %q, want suffix %q", i, lines[i], want)
		}
	}
}

func TestInfoPlistTemplate(t *testing.T) {
	var buf bytes.Buffer
	err := infoPlistTemplate.Execute(&buf, infoPlistData{
		Executable:  "demo",
		BundleId:    "com.example.demo",
		Name:        "Demo",
		VersionName: "1.2.3",
		VersionCode: 7,
		Category:    "public.app-category.developer-tools",
		MinOs:       "11.0",
	})
	if err != nil {
		t.Fatal(err)
	}

	want := `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleDevelopmentRegion</key>
	<string>en</string>
	<key>CFBundleExecutable</key>
	<string>demo</string>
	<key>CFBundleIdentifier</key>
	<string>com.example.demo</string>
	<key>CFBundleInfoDictionaryVersion</key>
	<string>6.0</string>
	<key>CFBundleName</key>
	<string>Demo</string>
	<key>CFBundlePackageType</key>
	<string>APPL</string>
	<key>CFBundleShortVersionString</key>
	<string>1.2.3</string>
	<key>CFBundleVersion</key>
	<string>7</string>
	<key>LSApplicationCategoryType</key>
	<string>public.app-category.developer-tools</string>
	<key>LSMinimumSystemVersion</key>
	<string>11.0</string>
	<key>NSHighResolutionCapable</key>
	<true/>
</dict>
</plist>
`
	if got := buf.String(); got != want {
		diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(want),
			B:        difflib.SplitLines(got),
			FromFile: "want",
			ToFile:   "got",
			Context:  2,
		})
		t.Errorf("Info.plist mismatch:\n%s", diff)
	}
}
