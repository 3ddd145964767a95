package osipack

import (
	"context"
	"path/filepath"
)

// Environment variables carrying keystore passphrases into the one signing
// child process. They are set per child, never process-wide, so secret
// material stays off the command line and out of unrelated invocations.
const (
	envKeystorePass = "OSI_APK_KS_PASS"
	envKeyPass      = "OSI_APK_KEY_PASS"
)

// LinkRequest describes one aapt2 link invocation.
type LinkRequest struct {
	// AssetDirs are zero or more raw asset directories.
	AssetDirs []string

	// LinkAgainst are the package archives to link against (android.jar).
	LinkAgainst []string

	// Manifest is the AndroidManifest.xml to embed.
	Manifest string

	// Output is the unsigned output archive.
	Output string

	// JavaDir optionally receives generated source bindings (R.java).
	JavaDir string

	// Package optionally overrides the Java package of the generated
	// bindings (aapt2's --custom-package).
	Package string

	// Resources are the compiled .flat files, in destination-map order.
	Resources []ResourceEntry
}

// PackageLinker wraps the archive-producing build-tools: aapt2 link, aapt
// add, zipalign and apksigner.
//
// Every path handed to the external tools gets an explicit "./" prefix so
// file arguments can never be mistaken for options.
type PackageLinker struct {
	Tools   *BuildTools
	Invoker *Invoker
}

// Link links compiled resources and a manifest into an unsigned package
// archive, optionally emitting generated source bindings into JavaDir.
func (l *PackageLinker) Link(ctx context.Context, req *LinkRequest) error {
	if req.Manifest == "" {
		return &PathError{Tool: "aapt2", Path: req.Manifest}
	}
	args := []string{"link"}
	for _, dir := range req.AssetDirs {
		args = append(args, "-A", dotSlash(dir))
	}
	for _, jar := range req.LinkAgainst {
		args = append(args, "-I", dotSlash(jar))
	}
	args = append(args, "--manifest", dotSlash(req.Manifest))
	args = append(args, "-o", dotSlash(req.Output))
	if req.JavaDir != "" {
		args = append(args, "--java", dotSlash(req.JavaDir))
	}
	if req.Package != "" {
		args = append(args, "--custom-package", req.Package)
	}
	for _, entry := range req.Resources {
		args = append(args, dotSlash(entry.Destination))
	}
	return l.Invoker.Run(ctx, l.Tools.Aapt2(), args...)
}

// Add appends raw files to an existing archive. When workDir is non-empty
// the tool runs from there, so relative file paths are preserved verbatim
// as entry names inside the archive. The archive path is interpreted
// relative to the caller's working directory, not workDir.
func (l *PackageLinker) Add(ctx context.Context, archive, workDir string, files ...string) error {
	abs, err := filepath.Abs(archive)
	if err != nil {
		return &PathError{Tool: "aapt", Path: archive}
	}
	args := []string{"add", abs}
	for _, file := range files {
		if file == "" {
			return &PathError{Tool: "aapt", Path: file}
		}
		args = append(args, file)
	}
	return l.Invoker.RunIn(ctx, workDir, nil, l.Tools.Aapt(), args...)
}

// Align byte-aligns the entries of archive to a 4-byte boundary, writing
// the result to output.
func (l *PackageLinker) Align(ctx context.Context, archive, output string) error {
	return l.Invoker.Run(ctx, l.Tools.Zipalign(),
		"-f",
		"4", // 32-bit alignment
		dotSlash(archive),
		dotSlash(output),
	)
}

// SignRequest describes one apksigner invocation.
type SignRequest struct {
	Archive      string
	Keystore     string
	KeystorePass string // passed via per-child environment, never as an argument
	KeyPass      string // ditto; empty reuses KeystorePass
}

// Sign signs archive in place with the given keystore. Passphrases travel
// through process-scoped environment variables created for this single
// child invocation.
func (l *PackageLinker) Sign(ctx context.Context, req *SignRequest) error {
	keyPass := req.KeyPass
	if keyPass == "" {
		keyPass = req.KeystorePass
	}
	env := map[string]string{
		envKeystorePass: req.KeystorePass,
		envKeyPass:      keyPass,
	}
	return l.Invoker.RunIn(ctx, "", env, l.Tools.Apksigner(),
		"sign",
		"--ks", dotSlash(req.Keystore),
		"--ks-pass", "env:"+envKeystorePass,
		"--key-pass", "env:"+envKeyPass,
		dotSlash(req.Archive),
	)
}
