package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Format identifies a package container.
type Format int

const (
	FormatUnknown Format = iota
	FormatZip
	FormatUnityPackage
)

// String returns the string representation of the format
func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatUnityPackage:
		return "unitypackage"
	default:
		return "unknown"
	}
}

// Extension returns the file extension used when saving a package of this format.
func (f Format) Extension() string {
	switch f {
	case FormatZip:
		return ".zip"
	case FormatUnityPackage:
		return ".unitypackage"
	default:
		return ".bin"
	}
}

var (
	zipMagic      = []byte("PK\x03\x04")
	zipEmptyMagic = []byte("PK\x05\x06")
	gzipMagic     = []byte{0x1f, 0x8b}
)

// FormatFromName guesses a format from a file name or URL.
// Query strings are ignored.
func FormatFromName(name string) Format {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	lower := strings.ToLower(name)

	switch {
	case strings.HasSuffix(lower, ".zip"):
		return FormatZip
	case strings.HasSuffix(lower, ".unitypackage"),
		strings.HasSuffix(lower, ".tar.gz"),
		strings.HasSuffix(lower, ".tgz"):
		return FormatUnityPackage
	default:
		return FormatUnknown
	}
}

// DetectFormat identifies the container at path from its leading bytes.
// The content decides; a file whose bytes match neither signature is
// FormatUnknown whatever its name says.
func DetectFormat(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("open package: %w", err)
	}
	defer f.Close()

	head := make([]byte, 4)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatUnknown, fmt.Errorf("read package header: %w", err)
	}

	return sniff(head[:n]), nil
}

func sniff(head []byte) Format {
	switch {
	case bytes.HasPrefix(head, zipMagic), bytes.HasPrefix(head, zipEmptyMagic):
		return FormatZip
	case bytes.HasPrefix(head, gzipMagic):
		return FormatUnityPackage
	default:
		return FormatUnknown
	}
}
