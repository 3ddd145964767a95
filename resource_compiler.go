package osipack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResourceEntry is one predicted (destination, source) pair of a resource
// compilation sweep. Destination is the compiled .flat file inside the
// resource output directory; Source is the raw resource file it is
// compiled from.
type ResourceEntry struct {
	Destination string
	Source      string
}

// ResourceCompiler drives aapt2's compile mode over the resource trees of
// an Android project, skipping files whose compiled output is already
// newer than its source.
type ResourceCompiler struct {
	Aapt2   string // path of the aapt2 binary
	Invoker *Invoker
}

// FlatFileName predicts the file name aapt2 gives a compiled resource.
//
// The convention is undocumented but stable: the resource-type directory
// and the file stem joined by '_', the extension preserved, and a ".flat"
// suffix. Two special cases apply: the two-level ".9.png" suffix of
// nine-patch images counts as a single extension, and XML files in a
// "values" type directory compile to ".arsc" instead of ".xml".
//
// The boolean result is false when the path carries no file name or no
// resource-type directory (no prediction possible):
//
//	FlatFileName("drawable/icon.png")    = "drawable_icon.png.flat", true
//	FlatFileName("values-de/strings.xml") = "values-de_strings.arsc.flat", true
//	FlatFileName("icon.png")             = "", false
func FlatFileName(path string) (string, bool) {
	comps := pathComponents(path)
	if len(comps) < 2 {
		return "", false
	}
	name := comps[len(comps)-1]
	dir := comps[len(comps)-2]
	if name == ".." || dir == ".." || dir == "/" {
		return "", false
	}

	stem, ext := splitExtension(name)
	if ext == "png" {
		if innerStem, innerExt := splitExtension(stem); innerExt == "9" {
			stem, ext = innerStem, "9.png"
		}
	}

	resType, _, _ := strings.Cut(dir, "-")
	if resType == "values" && ext == "xml" {
		ext = "arsc"
	}

	flat := dir + "_" + stem
	if ext != "" {
		flat += "." + ext
	}
	return flat + ".flat", true
}

// pathComponents normalizes path the way the external tools see it: "."
// segments and empty segments are dropped, ".." segments are kept, and a
// leading root becomes a "/" component.
func pathComponents(path string) []string {
	path = filepath.ToSlash(path)
	var comps []string
	if strings.HasPrefix(path, "/") {
		comps = append(comps, "/")
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." {
			continue
		}
		comps = append(comps, seg)
	}
	return comps
}

// splitExtension splits a file name into stem and extension. A name with
// no dot, or only a leading dot, has no extension.
func splitExtension(name string) (stem, ext string) {
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 {
		return name, ""
	}
	return name[:idx], name[idx+1:]
}

// Compile sweeps the resource root directories and compiles every stale
// resource file into outDir.
//
// Each root contains resource-type subdirectories (drawable, values-de,
// ...), each of which contains resource files; nested directories inside a
// type directory are skipped. The returned entries map every enumerated
// source to its predicted destination, in enumeration order; when two
// sources predict the same destination the later mapping replaces the
// earlier one.
//
// A destination strictly newer than its source is considered fresh and
// skipped. A source or destination without a queryable modification time
// is always recompiled. The returned flag reports whether at least one
// file was (re)compiled.
func (c *ResourceCompiler) Compile(ctx context.Context, roots []string, outDir string) ([]ResourceEntry, bool, error) {
	var entries []ResourceEntry
	index := make(map[string]int)
	compiled := false

	for _, root := range roots {
		typeDirs, err := os.ReadDir(root)
		if err != nil {
			return nil, false, fmt.Errorf("cannot enumerate resource root %q: %w", root, err)
		}
		for _, typeDir := range typeDirs {
			if !typeDir.IsDir() {
				continue
			}
			dir := filepath.Join(root, typeDir.Name())
			files, err := os.ReadDir(dir)
			if err != nil {
				return nil, false, fmt.Errorf("cannot enumerate resource directory %q: %w", dir, err)
			}
			for _, file := range files {
				if file.IsDir() {
					continue
				}
				src := filepath.Join(dir, file.Name())
				flat, ok := FlatFileName(src)
				if !ok {
					continue
				}
				dst := filepath.Join(outDir, flat)
				if prev, dup := index[dst]; dup {
					entries[prev].Source = src
				} else {
					index[dst] = len(entries)
					entries = append(entries, ResourceEntry{Destination: dst, Source: src})
				}

				if destinationFresh(src, dst) {
					continue
				}
				err := c.Invoker.Run(ctx, c.Aapt2, "compile", "-o", dotSlash(outDir), dotSlash(src))
				if err != nil {
					return nil, false, err
				}
				compiled = true
			}
		}
	}
	return entries, compiled, nil
}

// destinationFresh reports whether dst exists and is strictly newer than
// src. Any unreadable modification time counts as stale, so files are
// recompiled conservatively.
func destinationFresh(src, dst string) bool {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false
	}
	dstInfo, err := os.Stat(dst)
	if err != nil {
		return false
	}
	return srcInfo.ModTime().Before(dstInfo.ModTime())
}
