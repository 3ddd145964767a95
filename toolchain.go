package osipack

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Environment variables consulted during toolchain discovery.
const (
	envAndroidHome = "ANDROID_HOME"
	envJavaHome    = "JAVA_HOME"
	envKotlinHome  = "KOTLIN_HOME"
)

// sdkLicenseMarker is written by sdkmanager when the user accepts the SDK
// license. Its presence is used as a proxy for "this is an initialized
// SDK", not as a guarantee that any specific component is installed.
const sdkLicenseMarker = "licenses/android-sdk-license"

var exeSuffix string

func init() {
	if runtime.GOOS == "windows" {
		exeSuffix = ".exe"
	}
}

// Sdk is a validated reference to an installed Android SDK root.
// Construct it once per build with LocateSdk; read-only afterward.
type Sdk struct {
	Root string
}

// BuildTools is a validated reference to one versioned build-tools
// component of an SDK (the directory bundling aapt2, zipalign, apksigner,
// d8 and friends).
type BuildTools struct {
	Root    string
	Version string
}

// Platform is a validated reference to one target-API platform component
// of an SDK (the directory carrying android.jar).
type Platform struct {
	Root string
	Name string
}

// Jdk is a validated reference to a Java Development Kit root.
type Jdk struct {
	Root string
}

// Kdk is a validated reference to a Kotlin distribution root.
type Kdk struct {
	Root string
}

// LocateSdk validates root as an Android SDK installation.
//
// root defaults to $ANDROID_HOME when empty. The only validation performed
// is that root is a directory carrying the SDK license marker; individual
// components are validated later by their own selectors.
func LocateSdk(root string) (*Sdk, error) {
	if root == "" {
		root = os.Getenv(envAndroidHome)
	}
	if root == "" {
		return nil, &ToolchainError{Part: PartSdk, Missing: true, Reason: "no path configured and " + envAndroidHome + " is unset"}
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, &ToolchainError{Part: PartSdk, Missing: true, Path: root, Reason: "not a directory"}
	}
	marker := filepath.Join(root, filepath.FromSlash(sdkLicenseMarker))
	if _, err := os.Stat(marker); err != nil {
		return nil, &ToolchainError{Part: PartSdk, Path: root, Reason: "license marker missing; run sdkmanager --licenses"}
	}
	return &Sdk{Root: root}, nil
}

// SelectBuildTools selects one build-tools component of sdk.
//
// version must be a single path component naming an installed version, or
// empty to select the newest installed version in natural order.
func (sdk *Sdk) SelectBuildTools(version string) (*BuildTools, error) {
	dir := filepath.Join(sdk.Root, "build-tools")
	selected, err := selectComponent(PartBuildTools, dir, version, "")
	if err != nil {
		return nil, err
	}
	return &BuildTools{Root: filepath.Join(dir, selected), Version: selected}, nil
}

// SelectPlatform selects one target-API platform component of sdk.
//
// api selects "android-<api>" when non-zero; zero selects the newest
// installed platform in natural order.
func (sdk *Sdk) SelectPlatform(api uint32) (*Platform, error) {
	dir := filepath.Join(sdk.Root, "platforms")
	version := ""
	if api != 0 {
		version = fmt.Sprintf("android-%d", api)
	}
	selected, err := selectComponent(PartPlatform, dir, version, "android-")
	if err != nil {
		return nil, err
	}
	return &Platform{Root: filepath.Join(dir, selected), Name: selected}, nil
}

// AndroidJar returns the path of the platform's android.jar, the archive
// packages are linked against and classes are compiled against.
func (p *Platform) AndroidJar() string {
	return filepath.Join(p.Root, "android.jar")
}

// selectComponent implements the shared discovery rule for versioned SDK
// subdirectories: explicit version wins, otherwise the natural-order
// maximum of the installed entries.
func selectComponent(part ToolchainPart, dir, version, prefix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", &ToolchainError{Part: part, Missing: true, Path: dir, Reason: "cannot enumerate"}
	}

	if version != "" {
		if strings.ContainsRune(version, '/') || strings.ContainsRune(version, filepath.Separator) {
			return "", &ToolchainError{Part: part, Path: version, Reason: "version must be a single path component"}
		}
		if info, err := os.Stat(filepath.Join(dir, version)); err != nil || !info.IsDir() {
			return "", &ToolchainError{Part: part, Path: filepath.Join(dir, version), Reason: "not installed"}
		}
		return version, nil
	}

	best := ""
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		if best == "" || CompareNatural(name, best) > 0 {
			best = name
		}
	}
	if best == "" {
		return "", &ToolchainError{Part: part, Missing: true, Path: dir, Reason: "no installed versions"}
	}
	return best, nil
}

// Aapt2 returns the path of the resource compiler/linker binary.
func (bt *BuildTools) Aapt2() string { return bt.tool("aapt2") }

// Aapt returns the path of the legacy archive editor binary.
func (bt *BuildTools) Aapt() string { return bt.tool("aapt") }

// Zipalign returns the path of the archive alignment tool.
func (bt *BuildTools) Zipalign() string { return bt.tool("zipalign") }

// Apksigner returns the path of the package signing tool.
func (bt *BuildTools) Apksigner() string { return bt.tool("apksigner") }

// D8 returns the path of the bytecode-to-dex compiler.
func (bt *BuildTools) D8() string { return bt.tool("d8") }

func (bt *BuildTools) tool(name string) string {
	return filepath.Join(bt.Root, name+exeSuffix)
}

// LocateJdk resolves a Java Development Kit.
//
// Discovery order: the explicit root when non-empty, then $JAVA_HOME, then
// the directory two levels above a javac found on PATH. The resolved root
// must pass a basic shape check (bin/javac present).
func LocateJdk(root string) (*Jdk, error) {
	root, err := locateKitRoot(PartJdk, root, envJavaHome, "javac")
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(root, "bin", "javac"+exeSuffix)); err != nil {
		return nil, &ToolchainError{Part: PartJdk, Path: root, Reason: "bin/javac missing"}
	}
	return &Jdk{Root: root}, nil
}

// Javac returns the path of the Java compiler binary.
func (jdk *Jdk) Javac() string {
	return filepath.Join(jdk.Root, "bin", "javac"+exeSuffix)
}

// LocateKdk resolves a Kotlin distribution.
//
// Discovery order: the explicit root when non-empty, then $KOTLIN_HOME,
// then the directory two levels above a kotlinc found on PATH. The
// resolved root must pass a basic shape check (bin/kotlinc present).
func LocateKdk(root string) (*Kdk, error) {
	root, err := locateKitRoot(PartKdk, root, envKotlinHome, "kotlinc")
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(root, "bin", "kotlinc")); err != nil {
		return nil, &ToolchainError{Part: PartKdk, Path: root, Reason: "bin/kotlinc missing"}
	}
	return &Kdk{Root: root}, nil
}

// Kotlinc returns the path of the Kotlin compiler driver.
func (kdk *Kdk) Kotlinc() string {
	return filepath.Join(kdk.Root, "bin", "kotlinc")
}

func locateKitRoot(part ToolchainPart, root, envVar, compiler string) (string, error) {
	if root != "" {
		return root, nil
	}
	if env := os.Getenv(envVar); env != "" {
		return env, nil
	}
	path, err := exec.LookPath(compiler)
	if err != nil {
		return "", &ToolchainError{Part: part, Missing: true, Reason: compiler + " not found on PATH and " + envVar + " is unset"}
	}
	// <root>/bin/<compiler> -> <root>
	return filepath.Dir(filepath.Dir(path)), nil
}
