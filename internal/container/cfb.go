package container

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/richardlehane/mscfb"

	"github.com/hanpama/hwarang/internal/hwperr"
)

// cfbContainer reads an OLE compound file through mscfb.
type cfbContainer struct {
	ra      io.ReaderAt
	lim     Limits
	streams []Stream
	files   map[string]*mscfb.File
}

func openCFB(ra io.ReaderAt, size int64, lim Limits) (c Container, err error) {
	if err := checkChains(ra, size); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			c, err = nil, hwperr.Parsef("compound file: %v", r)
		}
	}()

	doc, err := mscfb.New(ra)
	if err != nil {
		return nil, hwperr.Wrap(hwperr.KindParse, "failed to open compound file", err)
	}

	cc := &cfbContainer{
		ra:    ra,
		lim:   lim,
		files: make(map[string]*mscfb.File),
	}
	for _, f := range doc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := streamName(f)
		if _, dup := cc.files[name]; dup {
			continue
		}
		if f.Size > size {
			return nil, &hwperr.Error{Kind: hwperr.KindParse, Offset: -1, Stream: name,
				Detail: fmt.Sprintf("declared size %d exceeds container size %d", f.Size, size)}
		}
		cc.files[name] = f
		cc.streams = append(cc.streams, Stream{Name: name, Size: f.Size})
	}
	return cc, nil
}

// streamName joins the storage path with the entry name and restores the
// non-printable first character mscfb strips, e.g. "\x05HwpSummaryInformation".
func streamName(f *mscfb.File) string {
	name := f.Name
	if f.Initial != 0 && !unicode.IsPrint(rune(f.Initial)) {
		name = string(rune(f.Initial)) + name
	}
	if len(f.Path) == 0 {
		return name
	}
	return strings.Join(f.Path, "/") + "/" + name
}

func (c *cfbContainer) Format() Format { return FormatHWP }

func (c *cfbContainer) Streams() []Stream {
	out := make([]Stream, len(c.streams))
	copy(out, c.streams)
	return out
}

func (c *cfbContainer) Has(name string) bool {
	_, ok := c.files[name]
	return ok
}

func (c *cfbContainer) ReadStream(name string) (data []byte, err error) {
	f, ok := c.files[name]
	if !ok {
		return nil, hwperr.StreamNotFound(name)
	}
	if f.Size > c.lim.maxStream() {
		return nil, &hwperr.Error{Kind: hwperr.KindParse, Offset: -1, Stream: name,
			Detail: fmt.Sprintf("stream size %d exceeds limit %d", f.Size, c.lim.maxStream())}
	}
	if f.Size == 0 {
		return []byte{}, nil
	}

	defer func() {
		if r := recover(); r != nil {
			data, err = nil, &hwperr.Error{Kind: hwperr.KindParse, Offset: -1, Stream: name, Detail: fmt.Sprint(r)}
		}
	}()

	data = make([]byte, f.Size)
	n, err := f.ReadAt(data, 0)
	if err != nil && !(err == io.EOF && int64(n) == f.Size) {
		return nil, &hwperr.Error{Kind: hwperr.KindParse, Offset: -1, Stream: name, Detail: "failed to read stream", Err: err}
	}
	return data[:n], nil
}

func (c *cfbContainer) Close() error {
	return closeSource(c.ra)
}
