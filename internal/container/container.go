// Package container exposes the named streams of an HWP compound file or an HWPX archive.
package container

import (
	"errors"
	"io"

	"github.com/hanpama/hwarang/internal/hwperr"
)

// DefaultMaxStreamSize caps a single decoded stream.
const DefaultMaxStreamSize = 256 << 20

// Stream describes one named stream. Entries are listed in container order.
type Stream struct {
	Name       string
	Size       int64
	Compressed bool
}

// Container is an opened document. It owns the byte source until Close.
type Container interface {
	Format() Format
	Streams() []Stream
	Has(name string) bool
	// ReadStream returns the raw stored bytes of a stream. Compound file streams
	// are returned as stored; archive entries are returned decompressed.
	ReadStream(name string) ([]byte, error)
	Close() error
}

// Limits bounds the work done on untrusted input.
type Limits struct {
	MaxStreamSize int64
}

func (l Limits) maxStream() int64 {
	if l.MaxStreamSize <= 0 {
		return DefaultMaxStreamSize
	}
	return l.MaxStreamSize
}

// Open sniffs the leading bytes of ra and opens the matching container.
// If ra implements io.Closer it is closed by the container's Close.
func Open(ra io.ReaderAt, size int64, lim Limits) (Container, error) {
	prefix := make([]byte, SniffLen)
	n, err := ra.ReadAt(prefix, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, hwperr.File(err)
	}

	format, err := Sniff(prefix[:n])
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatHWP:
		return openCFB(ra, size, lim)
	case FormatHWPX:
		return openArchive(ra, size, lim)
	}
	return nil, hwperr.InvalidSignature("unrecognized container")
}

func closeSource(ra io.ReaderAt) error {
	if c, ok := ra.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
