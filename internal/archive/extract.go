package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ZebulonRouseFrantzich/prokit/internal/config"
)

// Stats summarizes what an extraction wrote.
type Stats struct {
	Files   int    // payload files written
	Dirs    int    // directories created from directory entries
	Sidecar int    // sidecar files written next to payloads
	Skipped int    // entries ignored (unsafe path, unsupported type, incomplete group)
	Bytes   uint64 // payload bytes written
}

// ExtractTar writes every entry of tr under destDir, preserving relative
// paths. Files are streamed straight from the archive to disk.
//
// Unsafe paths and entry kinds other than files and directories are
// logged and skipped. Decoding errors abort the extraction.
func ExtractTar(tr *TarReader, destDir string, log config.Logger) (Stats, error) {
	log = config.LoggerOrNop(log)
	var stats Stats

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return stats, fmt.Errorf("create dest dir: %w", err)
	}

	for {
		entry, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("read tar entry: %w", err)
		}

		if entry.Kind == KindOther {
			log.Warn("skipping unsupported tar entry", "path", entry.Path, "typeflag", string(entry.Typeflag))
			stats.Skipped++
			continue
		}

		target, err := SafeJoin(destDir, entry.Path)
		if err != nil {
			if entry.Kind == KindDirectory && isRootEntry(entry.Path) {
				continue
			}
			log.Warn("skipping tar entry outside destination", "path", entry.Path)
			stats.Skipped++
			continue
		}

		switch entry.Kind {
		case KindDirectory:
			if err := os.MkdirAll(target, 0755); err != nil {
				return stats, fmt.Errorf("create directory %s: %w", target, err)
			}
			stats.Dirs++

		case KindFile:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return stats, fmt.Errorf("create parent dir for %s: %w", target, err)
			}
			n, err := writeFile(target, tr, 0644)
			if err != nil {
				return stats, err
			}
			stats.Files++
			stats.Bytes += uint64(n)
		}
	}
}

// isRootEntry reports names such as "./" that refer to the archive root.
func isRootEntry(name string) bool {
	return filepath.Clean(filepath.FromSlash(name)) == "."
}

// writeFile streams r into path, truncating any existing file.
func writeFile(path string, r io.Reader, perm os.FileMode) (int64, error) {
	if err := makeWritable(path); err != nil {
		return 0, err
	}

	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return 0, fmt.Errorf("create file %s: %w", path, err)
	}

	n, err := io.Copy(out, r)
	if err != nil {
		out.Close()
		return n, fmt.Errorf("write file %s: %w", path, err)
	}

	if err := out.Close(); err != nil {
		return n, fmt.Errorf("close file %s: %w", path, err)
	}

	return n, nil
}

// copyFile copies src to dst with overwrite semantics.
func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	return writeFile(dst, in, 0644)
}

// makeWritable adds the owner write bit to an existing read-only file so
// it can be overwritten. A missing file is not an error.
func makeWritable(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() || info.Mode().Perm()&0200 != 0 {
		return nil
	}
	if err := os.Chmod(path, info.Mode().Perm()|0200); err != nil {
		return fmt.Errorf("make %s writable: %w", path, err)
	}
	return nil
}
