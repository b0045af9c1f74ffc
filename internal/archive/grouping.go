package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/prokit/internal/config"
)

// Asset is one logical file reassembled from a group of raw entries.
type Asset struct {
	// Path is the destination path relative to the install root, slash separated.
	Path string
	// Payload is the staged file holding the asset's bytes.
	Payload string
	// Sidecar is the staged metadata file, or empty when the group has none.
	Sidecar string
}

// Grouping maps a directory of staged raw entries onto logical assets.
// Implementations decide which groups are complete; incomplete groups
// are skipped, not reported as errors.
type Grouping interface {
	Assets(stagingDir string, log config.Logger) ([]Asset, error)
}

// Names used by the pathname/asset layout.
const (
	groupPathnameFile = "pathname"
	groupAssetFile    = "asset"
	groupSidecarFile  = "asset.meta"

	// SidecarSuffix is appended to a payload's name to form its sidecar's name.
	SidecarSuffix = ".meta"
)

// PathnameGrouping implements the editor package layout: one folder per
// asset holding "pathname", "asset" and an optional "asset.meta".
//
// Root is the logical prefix every pathname must start with (for
// example "Assets/"); it is stripped from the returned Path. Groups
// whose pathname is outside Root are skipped. An empty Root accepts
// every pathname unchanged.
type PathnameGrouping struct {
	Root string
}

// Assets returns the complete groups under stagingDir in directory order.
func (g PathnameGrouping) Assets(stagingDir string, log config.Logger) ([]Asset, error) {
	log = config.LoggerOrNop(log)

	dirs, err := os.ReadDir(stagingDir)
	if err != nil {
		return nil, fmt.Errorf("read staging dir: %w", err)
	}

	var assets []Asset
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		groupDir := filepath.Join(stagingDir, d.Name())

		pathnamePath := filepath.Join(groupDir, groupPathnameFile)
		assetPath := filepath.Join(groupDir, groupAssetFile)
		if !isRegularFile(pathnamePath) || !isRegularFile(assetPath) {
			// Folder-only and partial groups are normal in real packages
			log.Debug("skipping incomplete asset group", "group", d.Name())
			continue
		}

		raw, err := os.ReadFile(pathnamePath)
		if err != nil {
			return nil, fmt.Errorf("read pathname for group %s: %w", d.Name(), err)
		}
		logical := firstLine(string(raw))

		rel, ok := g.relative(logical)
		if !ok {
			log.Warn("skipping asset outside package root", "group", d.Name(), "pathname", logical, "root", g.Root)
			continue
		}

		asset := Asset{Path: rel, Payload: assetPath}
		if sidecar := filepath.Join(groupDir, groupSidecarFile); isRegularFile(sidecar) {
			asset.Sidecar = sidecar
		}
		assets = append(assets, asset)
	}

	return assets, nil
}

// relative strips Root from a logical path.
func (g PathnameGrouping) relative(logical string) (string, bool) {
	logical = strings.ReplaceAll(logical, "\\", "/")
	if g.Root == "" {
		return logical, logical != ""
	}
	if !strings.HasPrefix(logical, g.Root) {
		return "", false
	}
	rel := strings.TrimPrefix(logical, g.Root)
	return rel, rel != ""
}

// firstLine returns the first line of s without surrounding whitespace.
// Some exporters append a second line after the path.
func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
