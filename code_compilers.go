package osipack

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// JavaCompiler invokes javac over an explicit source-file list.
type JavaCompiler struct {
	Jdk     *Jdk
	Invoker *Invoker
}

// KotlinCompiler invokes kotlinc over an explicit source-file list.
type KotlinCompiler struct {
	Kdk     *Kdk
	Invoker *Invoker
}

// DexCompiler invokes d8 over an explicit class-file list.
type DexCompiler struct {
	Tools   *BuildTools
	Invoker *Invoker
}

// gatherSources walks dirs and collects every regular file carrying ext.
// Passing the full list to the compiler explicitly, instead of relying on
// its own source discovery, keeps stray files from silently leaking into
// the build.
func gatherSources(dirs []string, ext string) ([]string, error) {
	var sources []string
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ext) {
				sources = append(sources, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("cannot enumerate source directory %q: %w", dir, err)
		}
	}
	return sources, nil
}

// Compile compiles every .java file found under srcDirs into classDir,
// against the given class path. Compilation is skipped entirely when no
// Java sources exist. There is no staleness logic here: the compiler's own
// incremental behavior is trusted as-is, and all selected sources are
// always recompiled.
func (c *JavaCompiler) Compile(ctx context.Context, srcDirs []string, classPath []string, classDir string) error {
	sources, err := gatherSources(srcDirs, ".java")
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return nil
	}
	args := []string{
		"-d", dotSlash(classDir),
		"--class-path", joinClassPath(classPath),
	}
	for _, src := range sources {
		args = append(args, dotSlash(src))
	}
	return c.Invoker.Run(ctx, c.Jdk.Javac(), args...)
}

// Compile compiles every .kt file found under srcDirs into classDir.
// Filtering by extension lets Java and Kotlin source trees coexist in the
// same declared directories.
func (c *KotlinCompiler) Compile(ctx context.Context, srcDirs []string, classPath []string, classDir string) error {
	sources, err := gatherSources(srcDirs, ".kt")
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return nil
	}
	args := []string{
		"-d", dotSlash(classDir),
		"-classpath", joinClassPath(classPath),
	}
	for _, src := range sources {
		args = append(args, dotSlash(src))
	}
	return c.Invoker.Run(ctx, c.Kdk.Kotlinc(), args...)
}

// Compile translates the given class files to the dex format in outDir.
// Release mode enables d8's optimizing backend.
func (c *DexCompiler) Compile(ctx context.Context, classFiles []string, classPath []string, minAPI uint32, release bool, outDir string) error {
	if len(classFiles) == 0 {
		return nil
	}
	args := []string{
		"--min-api", fmt.Sprint(minAPI),
		"--output", dotSlash(outDir),
	}
	if release {
		args = append(args, "--release")
	} else {
		args = append(args, "--debug")
	}
	for _, jar := range classPath {
		args = append(args, "--classpath", dotSlash(jar))
	}
	for _, class := range classFiles {
		args = append(args, dotSlash(class))
	}
	return c.Invoker.Run(ctx, c.Tools.D8(), args...)
}

func joinClassPath(entries []string) string {
	return strings.Join(entries, string(filepath.ListSeparator))
}
