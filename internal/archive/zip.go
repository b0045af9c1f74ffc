package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/ZebulonRouseFrantzich/prokit/internal/config"
)

// ExtractZip extracts a zip archive into destDir with overwrite
// semantics, creating parent directories as needed.
//
// Directory placeholders (names ending in "/") are skipped rather than
// written as empty files. Entries resolving outside destDir are logged
// and skipped. A container that cannot be opened or whose entries fail
// to decompress is reported as ErrCorruptArchive.
func ExtractZip(zipPath, destDir string, log config.Logger) (Stats, error) {
	log = config.LoggerOrNop(log)
	var stats Stats

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return stats, fmt.Errorf("%w: open zip: %v", ErrCorruptArchive, err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return stats, fmt.Errorf("create dest dir: %w", err)
	}

	for _, f := range r.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if name == "" || strings.HasSuffix(name, "/") {
			continue
		}

		target, err := SafeJoin(destDir, name)
		if err != nil {
			log.Warn("skipping zip entry outside destination", "path", f.Name)
			stats.Skipped++
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return stats, fmt.Errorf("create parent dir for %s: %w", target, err)
		}

		n, err := extractZipFile(f, target)
		if err != nil {
			return stats, err
		}
		stats.Files++
		stats.Bytes += uint64(n)
	}

	log.Info("extracted zip", "files", stats.Files, "skipped", stats.Skipped, "dest", destDir)
	return stats, nil
}

func extractZipFile(f *zip.File, target string) (int64, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: open zip entry %s: %v", ErrCorruptArchive, f.Name, err)
	}
	defer rc.Close()

	// Installed files stay writable so the next install can replace them.
	perm := os.FileMode(0644)
	if f.Mode().Perm()&0111 != 0 {
		perm = 0755
	}

	if err := makeWritable(target); err != nil {
		return 0, err
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return 0, fmt.Errorf("create file %s: %w", target, err)
	}

	n, err := io.Copy(out, rc)
	if err != nil {
		out.Close()
		return n, fmt.Errorf("%w: decompress %s: %v", ErrCorruptArchive, f.Name, err)
	}

	if err := out.Close(); err != nil {
		return n, fmt.Errorf("close file %s: %w", target, err)
	}

	return n, nil
}
