package archive

import (
	"archive/tar"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

// rawHeader builds a minimal header block by hand so tests control
// every byte the reader looks at.
func rawHeader(name string, size int, flag byte) []byte {
	b := make([]byte, BlockSize)
	copy(b[nameOffset:nameOffset+nameLen], name)
	copy(b[sizeOffset:sizeOffset+sizeLen], fmt.Sprintf("%011o\x00", size))
	b[typeflagOffset] = flag
	return b
}

// padded returns data followed by zero bytes up to the next block boundary.
func padded(data []byte) []byte {
	out := append([]byte{}, data...)
	return append(out, make([]byte, Padding(uint64(len(data))))...)
}

func zeroBlock() []byte {
	return make([]byte, BlockSize)
}

func concat(parts ...[]byte) []byte {
	var buf bytes.Buffer
	for _, p := range parts {
		buf.Write(p)
	}
	return buf.Bytes()
}

type tarItem struct {
	name    string
	content string
	dir     bool
}

// buildTar encodes items with the standard library writer in USTAR format.
func buildTar(t *testing.T, items []tarItem) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, it := range items {
		hdr := &tar.Header{
			Name:    it.name,
			Mode:    0644,
			ModTime: time.Unix(1700000000, 0),
			Format:  tar.FormatUSTAR,
		}
		if it.dir {
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0755
		} else {
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(it.content))
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if !it.dir {
			_, err := tw.Write([]byte(it.content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(data)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
