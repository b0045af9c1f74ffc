package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath reports an archive path that would resolve outside the
// destination root.
var ErrUnsafePath = errors.New("path escapes destination directory")

// SafeJoin resolves an archive path (slash or backslash separated)
// under root. Absolute paths, paths that climb out of root with "..",
// and empty paths are rejected with ErrUnsafePath.
func SafeJoin(root, name string) (string, error) {
	slashed := strings.ReplaceAll(name, "\\", "/")
	rel := filepath.FromSlash(strings.TrimSuffix(slashed, "/"))
	if rel == "" || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}

	cleanRoot := filepath.Clean(root)
	target := filepath.Join(cleanRoot, rel)

	if target != cleanRoot && !strings.HasPrefix(target, cleanRoot+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}

	return target, nil
}
