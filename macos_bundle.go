package osipack

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/charmbracelet/log"
)

// macosAbiTargets maps configured macOS ABI strings to Rust target
// triples. The literal "native" means "use the host's default target" and
// maps to the empty triple.
var macosAbiTargets = map[string]string{
	"arm64":   "aarch64-apple-darwin",
	"aarch64": "aarch64-apple-darwin",
	"x86-64":  "x86_64-apple-darwin",
	"x86_64":  "x86_64-apple-darwin",
	"native":  "",
}

// MacosTargetTriple resolves a configured ABI string to a target triple.
// The empty result means the host default target.
func MacosTargetTriple(abi string) (string, error) {
	triple, ok := macosAbiTargets[abi]
	if !ok {
		return "", &AbiError{Abi: abi}
	}
	return triple, nil
}

// DestinationKind classifies where inside a bundle an artifact belongs.
type DestinationKind int

const (
	DestMainExecutable DestinationKind = iota
	DestHelper
	DestFramework
	DestResource
)

// BundleDestination is the classification result for one artifact: its
// kind and its destination path relative to the .app directory.
type BundleDestination struct {
	Kind DestinationKind
	Path string
}

// ClassifyInput carries the per-build facts classification needs.
type ClassifyInput struct {
	TargetDir  string // cargo's target output directory
	Triple     string // explicit target triple, empty for the host default
	Profile    string // configured cargo profile name ("" means dev)
	AppSymbol  string // the application id symbol, names the main executable
	AppPackage string // the application's own cargo package
}

// profileDir returns the subdirectory cargo places outputs of the profile
// in: "debug" for the dev profile, the profile name otherwise.
func profileDir(profile string) string {
	if profile == "" || profile == "dev" {
		return "debug"
	}
	return profile
}

// ClassifyArtifact decides where one build artifact belongs inside the
// bundle. It is a total function: every artifact gets a destination.
//
// The artifact path is first stripped of the cargo target directory, the
// per-target subdirectory (when an explicit triple was used) and the
// profile subdirectory. An artifact outside that expected tree falls back
// to a flattened resource placement, keeping classification total at the
// cost of hierarchy.
//
// Within the stripped tree, priority order: the application's own primary
// executable (flattened, renamed to the application symbol), any other
// executable (flattened helper), shared libraries (flattened framework),
// and everything else (hierarchy-preserving resource).
func ClassifyArtifact(a Artifact, in ClassifyInput) BundleDestination {
	if a.Executable && a.Package == in.AppPackage {
		return BundleDestination{
			Kind: DestMainExecutable,
			Path: filepath.Join("Contents", "MacOS", in.AppSymbol),
		}
	}

	rel, ok := stripComponents(a.Path, in.TargetDir, in.Triple, profileDir(in.Profile))
	if !ok {
		return BundleDestination{
			Kind: DestResource,
			Path: filepath.Join("Contents", "Resources", filepath.Base(a.Path)),
		}
	}
	switch {
	case a.Executable:
		return BundleDestination{
			Kind: DestHelper,
			Path: filepath.Join("Contents", "Helpers", filepath.Base(rel)),
		}
	case isSharedLibrary(rel):
		return BundleDestination{
			Kind: DestFramework,
			Path: filepath.Join("Contents", "Frameworks", filepath.Base(rel)),
		}
	default:
		return BundleDestination{
			Kind: DestResource,
			Path: filepath.Join("Contents", "Resources", rel),
		}
	}
}

// stripComponents removes the target directory prefix, then the optional
// triple component, then the profile component. Any failing step aborts.
//
// Both sides resolve to absolute paths first: cargo reports artifact paths
// absolute, while the configured target directory is frequently relative
// to the working directory, and a verbatim prefix comparison would never
// match across that mismatch.
func stripComponents(path, targetDir, triple, profile string) (string, bool) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	absTarget, err := filepath.Abs(targetDir)
	if err != nil {
		return "", false
	}
	rel, ok := stripDirPrefix(absPath, absTarget)
	if !ok {
		return "", false
	}
	if triple != "" {
		if rel, ok = stripDirPrefix(rel, triple); !ok {
			return "", false
		}
	}
	return stripDirPrefix(rel, profile)
}

func stripDirPrefix(path, prefix string) (string, bool) {
	path = filepath.Clean(path)
	prefix = filepath.Clean(prefix)
	if path == prefix {
		return "", false
	}
	if !strings.HasPrefix(path, prefix+string(filepath.Separator)) {
		return "", false
	}
	rel := path[len(prefix)+1:]
	if rel == "" {
		return "", false
	}
	return rel, true
}

func isSharedLibrary(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dylib", ".so", ".bundle":
		return true
	default:
		return false
	}
}

var infoPlistTemplate = template.Must(template.New("plist").Parse(
	`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleDevelopmentRegion</key>
	<string>en</string>
	<key>CFBundleExecutable</key>
	<string>{{.Executable}}</string>
	<key>CFBundleIdentifier</key>
	<string>{{.BundleId}}</string>
	<key>CFBundleInfoDictionaryVersion</key>
	<string>6.0</string>
	<key>CFBundleName</key>
	<string>{{.Name}}</string>
	<key>CFBundlePackageType</key>
	<string>APPL</string>
	<key>CFBundleShortVersionString</key>
	<string>{{.VersionName}}</string>
	<key>CFBundleVersion</key>
	<string>{{.VersionCode}}</string>
	<key>LSApplicationCategoryType</key>
	<string>{{.Category}}</string>
	<key>LSMinimumSystemVersion</key>
	<string>{{.MinOs}}</string>
	<key>NSHighResolutionCapable</key>
	<true/>
</dict>
</plist>
`))

type infoPlistData struct {
	Executable  string
	BundleId    string
	Name        string
	VersionName string
	VersionCode uint32
	Category    string
	MinOs       string
}

// MacosBuilder packages an application into a .app bundle.
//
// macOS builds are never incremental: any pre-existing bundle directory is
// deleted up front, so stale output from a previous failed run can never
// be mistaken for current output. Each configured ABI is built natively
// in sequence, classified, and copied into the bundle.
type MacosBuilder struct {
	Config  *Config
	Cargo   CargoBuildFunc
	Invoker *Invoker
	Log     *log.Logger
}

// Name returns the platform identifier of this pipeline.
func (b *MacosBuilder) Name() string { return "macos" }

func (b *MacosBuilder) log() *log.Logger {
	if b.Log != nil {
		return b.Log
	}
	return log.Default()
}

// BundleDir returns the bundle directory this builder assembles for the
// given target directory.
func (b *MacosBuilder) BundleDir(targetDir string) string {
	symbol := b.Config.Application.IdSymbol()
	return filepath.Join(targetDir, "osi", symbol, symbol+".app")
}

// Build runs the full macOS pipeline for one request.
func (b *MacosBuilder) Build(ctx context.Context, req *BuildRequest) error {
	cfg := b.Config.Macos
	if cfg == nil {
		return fmt.Errorf("configuration has no macos platform table")
	}

	bundle := b.BundleDir(req.TargetDir)
	if err := os.RemoveAll(bundle); err != nil {
		return fmt.Errorf("cannot remove stale bundle %q: %w", bundle, err)
	}
	contents := filepath.Join(bundle, "Contents")
	if err := os.MkdirAll(contents, 0o755); err != nil {
		return fmt.Errorf("cannot create bundle: %w", err)
	}

	var plist bytes.Buffer
	err := infoPlistTemplate.Execute(&plist, infoPlistData{
		Executable:  b.Config.Application.IdSymbol(),
		BundleId:    cfg.BundleId,
		Name:        b.Config.Application.Name,
		VersionName: cfg.VersionName,
		VersionCode: cfg.VersionCode,
		Category:    cfg.Category,
		MinOs:       cfg.MinOs,
	})
	if err != nil {
		return err
	}
	plistFile := filepath.Join(contents, "Info.plist")
	if err := os.WriteFile(plistFile, plist.Bytes(), 0o644); err != nil {
		return fmt.Errorf("cannot write Info.plist: %w", err)
	}

	profile := "dev"
	if req.Release {
		profile = "release"
	}
	// Destination collisions across ABIs resolve last-write-wins; the
	// warning below is the audit trail for that.
	placed := make(map[string]string)
	for _, abi := range cfg.Abis {
		triple, err := MacosTargetTriple(abi)
		if err != nil {
			return err
		}
		b.log().Info("macos", "stage", "build-native", "abi", abi)
		artifacts, err := b.Cargo(ctx, triple, profile)
		if err != nil {
			return err
		}

		in := ClassifyInput{
			TargetDir:  req.TargetDir,
			Triple:     triple,
			Profile:    profile,
			AppSymbol:  b.Config.Application.IdSymbol(),
			AppPackage: b.Config.Application.Package,
		}
		for _, artifact := range artifacts {
			dest := ClassifyArtifact(artifact, in)
			target := filepath.Join(bundle, dest.Path)
			if prev, collided := placed[target]; collided {
				b.log().Warn("bundle destination overwritten",
					"destination", dest.Path, "previous", prev, "current", artifact.Path)
			}
			placed[target] = artifact.Path
			if err := copyFile(artifact.Path, target); err != nil {
				return err
			}
		}
	}

	if cfg.BinaryPlist {
		if err := b.plistConvert(ctx, plistFile); err != nil {
			return err
		}
	}
	if cfg.SigningIdentity != "" {
		if err := b.codesign(ctx, cfg.SigningIdentity, bundle); err != nil {
			return err
		}
	}
	b.log().Info("macos bundle ready", "bundle", bundle)
	return nil
}

// plistConvert rewrites a property list in binary form with plutil.
func (b *MacosBuilder) plistConvert(ctx context.Context, plist string) error {
	return b.Invoker.Run(ctx, "plutil", "-convert", "binary1", dotSlash(plist))
}

// codesign signs the assembled bundle with the given identity ("-" for
// ad-hoc).
func (b *MacosBuilder) codesign(ctx context.Context, identity, bundle string) error {
	return b.Invoker.Run(ctx, "codesign", "--force", "--deep", "-s", identity, dotSlash(bundle))
}

// LipoCreate merges per-architecture binaries into one universal binary.
// It is provided as a primitive for callers that merge same-destination
// executables themselves; the bundle assembler keeps last-write-wins
// semantics for colliding destinations and does not merge.
func LipoCreate(ctx context.Context, inv *Invoker, output string, inputs ...string) error {
	args := []string{"-create", "-output", dotSlash(output)}
	for _, input := range inputs {
		args = append(args, dotSlash(input))
	}
	return inv.Run(ctx, "lipo", args...)
}

// ActoolCompile compiles an asset catalog (.xcassets) into compiled
// resources under outDir, typically the bundle's Contents/Resources.
func ActoolCompile(ctx context.Context, inv *Invoker, catalog, outDir, minOs string) error {
	return inv.Run(ctx, "actool",
		"--compile", dotSlash(outDir),
		"--platform", "macosx",
		"--minimum-deployment-target", minOs,
		dotSlash(catalog),
	)
}

// PkgbuildComponent wraps an assembled bundle into an installer package
// rooted at /Applications.
func PkgbuildComponent(ctx context.Context, inv *Invoker, bundle, identifier, version, output string) error {
	return inv.Run(ctx, "pkgbuild",
		"--component", dotSlash(bundle),
		"--identifier", identifier,
		"--version", version,
		"--install-location", "/Applications",
		dotSlash(output),
	)
}

// copyFile copies src to dst, creating intermediate directories and
// preserving the file mode (so executables stay executable).
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
