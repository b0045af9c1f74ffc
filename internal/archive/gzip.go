package archive

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// TarGzReader is a TarReader over a gzip-compressed stream.
type TarGzReader struct {
	*TarReader
	gz *gzip.Reader
}

// NewTarGzReader wraps r with a gzip decompressor and a tape archive
// reader. A stream that is not gzip is reported as ErrCorruptArchive.
func NewTarGzReader(r io.Reader) (*TarGzReader, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: open gzip stream: %v", ErrCorruptArchive, err)
	}

	return &TarGzReader{
		TarReader: NewTarReader(gz),
		gz:        gz,
	}, nil
}

// Close releases the decompressor. It does not close the underlying reader.
func (t *TarGzReader) Close() error {
	return t.gz.Close()
}
