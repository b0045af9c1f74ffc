package install

import (
	"os"
	"path/filepath"
	"sort"
)

// TargetSource tells where a Target was found.
type TargetSource int

const (
	// SourceLocal is an embedded package under <project>/Packages.
	SourceLocal TargetSource = iota
	// SourceCache is a resolved package under <project>/Library/PackageCache.
	SourceCache
)

// String returns the string representation of the source
func (s TargetSource) String() string {
	if s == SourceCache {
		return "cache"
	}
	return "local"
}

// Target is the directory package contents are extracted into.
type Target struct {
	Dir    string
	Source TargetSource
}

// ResolveTarget looks for the package directory of a project. Local
// packages are checked first for every name, then the package cache
// ("<name>@<version>" directories). It returns false when none exists.
func ResolveTarget(projectDir string, names []string) (*Target, bool) {
	for _, name := range names {
		dir := filepath.Join(projectDir, "Packages", name)
		if isDir(dir) {
			return &Target{Dir: absOrSelf(dir), Source: SourceLocal}, true
		}
	}

	cache := filepath.Join(projectDir, "Library", "PackageCache")
	if !isDir(cache) {
		return nil, false
	}

	for _, name := range names {
		matches, err := filepath.Glob(filepath.Join(cache, name+"@*"))
		if err != nil {
			continue
		}
		sort.Strings(matches)
		for _, m := range matches {
			if isDir(m) {
				return &Target{Dir: absOrSelf(m), Source: SourceCache}, true
			}
		}
	}

	return nil, false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func absOrSelf(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
