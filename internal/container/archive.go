package container

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"

	"github.com/hanpama/hwarang/internal/hwperr"
)

// archiveContainer exposes zip entries as streams.
type archiveContainer struct {
	ra      io.ReaderAt
	zr      *zip.Reader
	lim     Limits
	streams []Stream
	files   map[string]*zip.File
}

func openArchive(ra io.ReaderAt, size int64, lim Limits) (Container, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, hwperr.Hwpx("failed to open archive", err)
	}

	ac := &archiveContainer{
		ra:    ra,
		zr:    zr,
		lim:   lim,
		files: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		if _, dup := ac.files[f.Name]; dup {
			continue
		}
		ac.files[f.Name] = f
		ac.streams = append(ac.streams, Stream{
			Name:       f.Name,
			Size:       int64(f.UncompressedSize64),
			Compressed: f.Method != zip.Store,
		})
	}
	return ac, nil
}

func (c *archiveContainer) Format() Format { return FormatHWPX }

func (c *archiveContainer) Streams() []Stream {
	out := make([]Stream, len(c.streams))
	copy(out, c.streams)
	return out
}

func (c *archiveContainer) Has(name string) bool {
	_, ok := c.files[name]
	return ok
}

// ReadStream inflates an entry, reading at most the stream limit so a
// forged uncompressed size cannot exhaust memory.
func (c *archiveContainer) ReadStream(name string) ([]byte, error) {
	f, ok := c.files[name]
	if !ok {
		return nil, hwperr.StreamNotFound(name)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, hwperr.Hwpx(fmt.Sprintf("failed to open entry %s", name), err)
	}
	defer rc.Close()

	limit := c.lim.maxStream()
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, hwperr.Hwpx(fmt.Sprintf("failed to read entry %s", name), err)
	}
	if int64(len(data)) > limit {
		return nil, hwperr.Hwpx(fmt.Sprintf("entry %s exceeds %d bytes", name, limit), nil)
	}
	return data, nil
}

func (c *archiveContainer) Close() error {
	return closeSource(c.ra)
}
