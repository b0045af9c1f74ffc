package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZebulonRouseFrantzich/prokit/internal/config"
)

// StagingPattern names the temporary directories ExtractUnityPackage
// creates under UnityOptions.StagingDir.
const StagingPattern = "prokit-extract-*"

// UnityOptions configures ExtractUnityPackage.
type UnityOptions struct {
	// Grouping reassembles staged entries. Defaults to PathnameGrouping with root "Assets/".
	Grouping Grouping
	// StagingDir is the parent for the temporary staging directory. Defaults to os.TempDir().
	StagingDir string
	Log        config.Logger
}

// ExtractUnityPackage decodes a gzip-compressed tape archive in the
// grouped asset layout and places each asset under destDir, together
// with its sidecar (payload name + SidecarSuffix) when present.
// Existing files are overwritten.
//
// Raw entries are staged on disk first because a group's pathname can
// arrive after its payload. The staging directory is always removed.
//
// It returns ErrCorruptArchive (wrapped) when the container cannot be
// decoded and ErrNoEntries when no asset could be placed.
func ExtractUnityPackage(packagePath, destDir string, opts UnityOptions) (Stats, error) {
	log := config.LoggerOrNop(opts.Log)
	grouping := opts.Grouping
	if grouping == nil {
		grouping = PathnameGrouping{Root: config.DefaultAssetsPrefix}
	}

	var stats Stats

	f, err := os.Open(packagePath)
	if err != nil {
		return stats, fmt.Errorf("open package: %w", err)
	}
	defer f.Close()

	tgz, err := NewTarGzReader(f)
	if err != nil {
		return stats, err
	}
	defer tgz.Close()

	staging, err := os.MkdirTemp(opts.StagingDir, StagingPattern)
	if err != nil {
		return stats, fmt.Errorf("create staging dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			log.Warn("failed to remove staging dir", "dir", staging, "error", err)
		}
	}()

	raw, err := ExtractTar(tgz.TarReader, staging, log)
	if err != nil {
		if !errors.Is(err, ErrCorruptArchive) {
			err = fmt.Errorf("%w: %v", ErrCorruptArchive, err)
		}
		return stats, err
	}
	stats.Skipped = raw.Skipped
	log.Debug("staged package entries", "files", raw.Files, "dirs", raw.Dirs, "bytes", raw.Bytes)

	assets, err := grouping.Assets(staging, log)
	if err != nil {
		return stats, fmt.Errorf("group package entries: %w", err)
	}

	for _, asset := range assets {
		target, err := SafeJoin(destDir, asset.Path)
		if err != nil {
			log.Warn("skipping asset outside destination", "path", asset.Path)
			stats.Skipped++
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return stats, fmt.Errorf("create directory for %s: %w", asset.Path, err)
		}

		n, err := copyFile(asset.Payload, target)
		if err != nil {
			return stats, fmt.Errorf("place %s: %w", asset.Path, err)
		}
		stats.Files++
		stats.Bytes += uint64(n)

		if asset.Sidecar != "" {
			if _, err := copyFile(asset.Sidecar, target+SidecarSuffix); err != nil {
				return stats, fmt.Errorf("place sidecar for %s: %w", asset.Path, err)
			}
			stats.Sidecar++
		}
	}

	if stats.Files == 0 {
		return stats, ErrNoEntries
	}

	log.Info("extracted package", "files", stats.Files, "sidecars", stats.Sidecar, "skipped", stats.Skipped, "dest", destDir)
	return stats, nil
}
