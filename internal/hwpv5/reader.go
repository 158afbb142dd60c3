package hwpv5

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/hanpama/hwarang/internal/container"
	"github.com/hanpama/hwarang/internal/document"
	"github.com/hanpama/hwarang/internal/hwperr"
)

// Options tunes a Reader.
type Options struct {
	// MaxStreamSize caps a decompressed stream. Zero means container.DefaultMaxStreamSize.
	MaxStreamSize int64
	Logger        *slog.Logger
}

// Reader wraps an open HWP document.
type Reader struct {
	c      container.Container
	Header FileHeader
	limit  int64
	log    *slog.Logger
}

// Open validates the FileHeader of a compound file. No other stream is read.
func Open(c container.Container, opts Options) (*Reader, error) {
	if !c.Has("FileHeader") {
		return nil, hwperr.UnsupportedFormat("compound file has no FileHeader stream")
	}
	data, err := c.ReadStream("FileHeader")
	if err != nil {
		return nil, hwperr.InStream(err, "FileHeader")
	}
	hdr, err := ParseFileHeader(data)
	if err != nil {
		return nil, hwperr.InStream(err, "FileHeader")
	}

	r := &Reader{
		c:      c,
		Header: hdr,
		limit:  opts.MaxStreamSize,
		log:    opts.Logger,
	}
	if r.limit <= 0 {
		r.limit = container.DefaultMaxStreamSize
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	r.log.Debug("hwp header validated",
		"version", hdr.Version.String(),
		"flags", strings.Join(hdr.Properties.Names(), ","))
	return r, nil
}

// CheckProtection reports whether the body may be read at all.
func (r *Reader) CheckProtection() error {
	return CheckProtection(r.Header)
}

// IsDistributionDoc returns true if this is a distribution document (uses ViewText).
func (r *Reader) IsDistributionDoc() bool {
	return r.Header.Properties.Distribution()
}

func (r *Reader) bodyStorage() string {
	if r.IsDistributionDoc() {
		return "ViewText"
	}
	return "BodyText"
}

// SectionNames lists the body section streams in section number order.
func (r *Reader) SectionNames() []string {
	type sectionRef struct {
		name  string
		index int
	}
	prefix := r.bodyStorage() + "/Section"
	refs := lo.FilterMap(r.c.Streams(), func(s container.Stream, _ int) (sectionRef, bool) {
		rest, ok := strings.CutPrefix(s.Name, prefix)
		if !ok {
			return sectionRef{}, false
		}
		n, err := strconv.Atoi(rest)
		return sectionRef{name: s.Name, index: n}, err == nil && n >= 0
	})
	slices.SortStableFunc(refs, func(a, b sectionRef) int { return cmp.Compare(a.index, b.index) })
	return lo.Map(refs, func(ref sectionRef, _ int) string { return ref.name })
}

// Streams lists the container streams, marking those stored deflated.
func (r *Reader) Streams() []container.Stream {
	compressed := r.Header.Properties.Compressed()
	return lo.Map(r.c.Streams(), func(s container.Stream, _ int) container.Stream {
		if compressed && isCompressedStream(s.Name) {
			s.Compressed = true
		}
		return s
	})
}

func isCompressedStream(name string) bool {
	if name == "DocInfo" {
		return true
	}
	storage, _, ok := strings.Cut(name, "/")
	return ok && (storage == "BodyText" || storage == "ViewText" || storage == "BinData")
}

// ReadSection returns the decoded record bytes of a section stream,
// decrypting distribution documents and inflating compressed ones.
func (r *Reader) ReadSection(name string) ([]byte, error) {
	if err := r.CheckProtection(); err != nil {
		return nil, err
	}
	data, err := r.c.ReadStream(name)
	if err != nil {
		return nil, err
	}
	if r.IsDistributionDoc() && strings.HasPrefix(name, "ViewText/") {
		if data, err = decryptDistributed(data); err != nil {
			return nil, hwperr.InStream(err, name)
		}
	}
	return r.inflate(name, data)
}

func (r *Reader) inflate(name string, data []byte) ([]byte, error) {
	if !r.Header.Properties.Compressed() {
		return data, nil
	}
	out, err := Inflate(data, len(data)*4, r.limit)
	if err != nil {
		return nil, hwperr.InStream(err, name)
	}
	return out, nil
}

// DocInfo decodes the document properties. A missing DocInfo stream is
// tolerated; a damaged one is not.
func (r *Reader) DocInfo() (DocInfo, error) {
	if err := r.CheckProtection(); err != nil {
		return DocInfo{}, err
	}
	if !r.c.Has("DocInfo") {
		return DocInfo{}, nil
	}
	data, err := r.c.ReadStream("DocInfo")
	if err != nil {
		return DocInfo{}, err
	}
	if data, err = r.inflate("DocInfo", data); err != nil {
		return DocInfo{}, err
	}
	recs, err := ParseRecords(data)
	if err != nil {
		return DocInfo{}, hwperr.InStream(err, "DocInfo")
	}
	return parseDocInfo(recs), nil
}

// Summary decodes the summary property set. The stream is not encrypted
// and may be read for protected documents.
func (r *Reader) Summary() (document.Metadata, error) {
	if !r.c.Has(summaryStream) {
		return document.Metadata{}, nil
	}
	data, err := r.c.ReadStream(summaryStream)
	if err != nil {
		return document.Metadata{}, err
	}
	meta, err := parseSummary(data)
	if err != nil {
		return document.Metadata{}, hwperr.InStream(err, summaryStream)
	}
	return meta, nil
}

// Extract decodes every body section into a document.
func (r *Reader) Extract() (*document.Document, error) {
	if err := r.CheckProtection(); err != nil {
		return nil, err
	}
	info, err := r.DocInfo()
	if err != nil {
		return nil, err
	}

	names := r.SectionNames()
	if len(names) == 0 {
		return nil, hwperr.UnsupportedFormat(fmt.Sprintf("no %s sections", r.bodyStorage()))
	}
	if info.SectionCount > 0 && info.SectionCount != len(names) {
		r.log.Warn("section count mismatch", "declared", info.SectionCount, "found", len(names))
	}

	doc := &document.Document{}
	for _, name := range names {
		data, err := r.ReadSection(name)
		if err != nil {
			return nil, err
		}
		recs, err := ParseRecords(data)
		if err != nil {
			return nil, hwperr.InStream(err, name)
		}
		r.log.Debug("section decoded", "stream", name, "records", len(recs))
		doc.Sections = append(doc.Sections, Reconstruct(name, recs))
	}

	if doc.Metadata, err = r.Summary(); err != nil {
		r.log.Warn("summary information ignored", "err", err)
	}
	return doc, nil
}
