package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// BlockSize is the tape archive record size. Headers occupy exactly one
// block and content is padded to a multiple of it.
const BlockSize = 512

// Header field offsets. These are the on-disk contract of the format.
const (
	nameOffset     = 0
	nameLen        = 100
	sizeOffset     = 124
	sizeLen        = 12
	typeflagOffset = 156
	magicOffset    = 257
	prefixOffset   = 345
	prefixLen      = 155
)

var (
	// ErrCorruptArchive reports a container that cannot be decoded.
	ErrCorruptArchive = errors.New("corrupt archive")

	// ErrNoEntries reports an archive that decoded cleanly but produced
	// nothing to install.
	ErrNoEntries = errors.New("archive contains no installable entries")
)

// Kind classifies an archive entry.
type Kind int

const (
	// KindFile is a regular file with content.
	KindFile Kind = iota
	// KindDirectory creates a directory and carries no content.
	KindDirectory
	// KindOther covers links, extension headers and devices. Consumers skip these.
	KindOther
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}

// Entry is one header decoded from a tape archive. The entry's content
// is read from the TarReader that produced it.
type Entry struct {
	Path     string
	Kind     Kind
	Size     uint64
	Typeflag byte
}

// TarReader reads entries sequentially from an uncompressed tape archive.
//
// Usage mirrors archive/tar: call Next to advance, then Read to stream
// the current entry's content. Content not read before the next call to
// Next is discarded, so at most one entry is ever in flight.
type TarReader struct {
	r         io.Reader
	block     [BlockSize]byte
	remaining uint64 // unread content bytes of the current entry
	pad       uint64 // padding bytes following the current entry
	done      bool
	err       error
}

// NewTarReader creates a reader over an uncompressed tape archive stream.
func NewTarReader(r io.Reader) *TarReader {
	return &TarReader{r: r}
}

// Next advances to the next entry and returns its header.
// It returns io.EOF at the end of the archive: the first all-zero block,
// a header with an empty name, or a clean end of stream on a block
// boundary. Anything following the terminator is never read.
func (tr *TarReader) Next() (*Entry, error) {
	if tr.err != nil {
		return nil, tr.err
	}
	if tr.done {
		return nil, io.EOF
	}

	if err := tr.skipCurrent(); err != nil {
		tr.err = err
		return nil, err
	}
	if tr.done {
		return nil, io.EOF
	}

	n, err := io.ReadFull(tr.r, tr.block[:])
	switch {
	case errors.Is(err, io.EOF):
		tr.done = true
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		tr.err = fmt.Errorf("%w: truncated header (%d of %d bytes)", ErrCorruptArchive, n, BlockSize)
		return nil, tr.err
	case err != nil:
		tr.err = fmt.Errorf("read header: %w", err)
		return nil, tr.err
	}

	if isZeroBlock(tr.block[:]) {
		tr.done = true
		return nil, io.EOF
	}

	entry, err := parseHeader(tr.block[:])
	if err != nil {
		tr.err = err
		return nil, err
	}
	if entry == nil {
		tr.done = true
		return nil, io.EOF
	}

	tr.remaining = entry.Size
	tr.pad = Padding(entry.Size)

	return entry, nil
}

// Read reads content of the current entry. It returns io.EOF once the
// entry's declared size has been consumed.
func (tr *TarReader) Read(p []byte) (int, error) {
	if tr.err != nil {
		return 0, tr.err
	}
	if tr.remaining == 0 {
		return 0, io.EOF
	}

	if uint64(len(p)) > tr.remaining {
		p = p[:tr.remaining]
	}

	n, err := tr.r.Read(p)
	tr.remaining -= uint64(n)

	if errors.Is(err, io.EOF) {
		if tr.remaining > 0 {
			tr.err = fmt.Errorf("%w: entry content truncated (%d bytes missing)", ErrCorruptArchive, tr.remaining)
			return n, tr.err
		}
		err = nil
	}
	if err != nil {
		tr.err = err
	}

	return n, err
}

// skipCurrent discards unread content and the padding after it.
// Missing content is corruption; missing padding at the very end of the
// stream is tolerated and ends the archive.
func (tr *TarReader) skipCurrent() error {
	if tr.remaining > 0 {
		n, err := io.CopyN(io.Discard, tr.r, int64(tr.remaining))
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: entry content truncated (%d bytes missing)",
					ErrCorruptArchive, tr.remaining-uint64(n))
			}
			return fmt.Errorf("skip entry content: %w", err)
		}
		tr.remaining = 0
	}

	if tr.pad > 0 {
		pad := tr.pad
		tr.pad = 0
		if _, err := io.CopyN(io.Discard, tr.r, int64(pad)); err != nil {
			if errors.Is(err, io.EOF) {
				tr.done = true
				return nil
			}
			return fmt.Errorf("skip padding: %w", err)
		}
	}

	return nil
}

// Padding returns the number of bytes between the end of an entry of
// the given size and the next block boundary.
func Padding(size uint64) uint64 {
	return (BlockSize - size%BlockSize) % BlockSize
}

// ParseOctal decodes a numeric header field stored as octal ASCII.
// The field ends at the first NUL; surrounding spaces are ignored and a
// blank field is zero. Anything else that is not base-8 is an error.
func ParseOctal(field []byte) (uint64, error) {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	s := strings.TrimSpace(string(field))
	if s == "" {
		return 0, nil
	}

	v, err := strconv.ParseUint(s, 8, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid octal field %q", ErrCorruptArchive, s)
	}
	return v, nil
}

// parseHeader decodes one header block. It returns (nil, nil) when the
// name is empty, which ends the archive.
func parseHeader(block []byte) (*Entry, error) {
	name := cString(block[nameOffset : nameOffset+nameLen])
	if name == "" {
		return nil, nil
	}

	if bytes.HasPrefix(block[magicOffset:], []byte("ustar")) {
		if prefix := cString(block[prefixOffset : prefixOffset+prefixLen]); prefix != "" {
			name = prefix + "/" + name
		}
	}

	size, err := ParseOctal(block[sizeOffset : sizeOffset+sizeLen])
	if err != nil {
		return nil, fmt.Errorf("entry %q size: %w", name, err)
	}

	flag := block[typeflagOffset]
	entry := &Entry{
		Path:     name,
		Size:     size,
		Typeflag: flag,
	}

	switch {
	case flag == '5' || strings.HasSuffix(name, "/"):
		entry.Kind = KindDirectory
	case flag == '0' || flag == 0:
		entry.Kind = KindFile
	default:
		entry.Kind = KindOther
	}

	return entry, nil
}

// cString returns b up to its first NUL.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func isZeroBlock(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
