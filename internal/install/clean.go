package install

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/prokit/internal/archive"
	"github.com/ZebulonRouseFrantzich/prokit/internal/config"
)

// downloadPrefix starts the name of every package an Installer downloads.
const downloadPrefix = "package_"

// CleanStats reports what Clean removed.
type CleanStats struct {
	Removed int
	Bytes   int64
}

// Clean removes leftovers of interrupted runs from downloadDir:
// downloaded packages, partial transfers and extraction staging
// directories. Other files, the install lock included, are left alone.
// A missing directory is not an error.
//
// Clean must not run concurrently with Install; callers hold the lock.
func Clean(downloadDir string, log config.Logger) (CleanStats, error) {
	log = config.LoggerOrNop(log)

	var stats CleanStats
	entries, err := os.ReadDir(downloadDir)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("read download dir: %w", err)
	}

	for _, e := range entries {
		if !isLeftover(e.Name()) {
			continue
		}

		path := filepath.Join(downloadDir, e.Name())
		size := treeSize(path)
		if err := os.RemoveAll(path); err != nil {
			return stats, fmt.Errorf("remove %s: %w", path, err)
		}
		log.Debug("removed leftover", "path", path, "bytes", size)
		stats.Removed++
		stats.Bytes += size
	}

	log.Info("download cache cleared", "dir", downloadDir, "removed", stats.Removed)
	return stats, nil
}

func isLeftover(name string) bool {
	if strings.HasPrefix(name, downloadPrefix) || strings.HasSuffix(name, ".part") {
		return true
	}
	matched, _ := filepath.Match(archive.StagingPattern, name)
	return matched
}

// treeSize sums regular file sizes under path. Errors count as zero.
func treeSize(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if info, err := d.Info(); err == nil && info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total
}
