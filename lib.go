// Package hwarang extracts plain text and stream listings from Hangul Word
// Processor documents.
//
// Both the binary HWP v5 format (.hwp, an OLE compound file) and the
// XML-based HWPX format (.hwpx, a ZIP archive) are supported. The format is
// detected from the leading bytes of the file, never from its extension.
//
// # Example Usage
//
//	text, err := hwarang.ExtractText("document.hwp")
//	if errors.Is(err, hwarang.ErrPasswordProtected) {
//		// the body cannot be read without the password
//	}
//
// # Supported Formats
//
// HWP v5 (.hwp): Binary format with OLE Compound File container
//   - Paragraph, table, footnote and text box extraction
//   - AES-128 ECB decryption for distribution documents
//   - Summary information metadata
//
// HWPX (.hwpx): XML-based format with ZIP container
//   - OWPML (Open Word-processor Markup Language) parsing
//   - Spine ordered sections and package metadata
//   - Encrypted packages are reported as password protected
//
// Tables are written cell by cell, one line per paragraph, unless
// Config.Tables asks for ASCII grids. Images and other embedded objects
// become placeholders such as [IMAGE]; equations are written as their script.
package hwarang

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/sourcegraph/conc/iter"

	"github.com/hanpama/hwarang/internal/container"
	"github.com/hanpama/hwarang/internal/document"
	"github.com/hanpama/hwarang/internal/hwperr"
	"github.com/hanpama/hwarang/internal/hwpv5"
	"github.com/hanpama/hwarang/internal/hwpx"
	"github.com/hanpama/hwarang/internal/render"
)

// DefaultMaxFileSize is the largest file ExtractText opens by default.
const DefaultMaxFileSize = 512 << 20

// TableMode selects how tables are written.
type TableMode = render.TableMode

const (
	TableText = render.TableText
	TableGrid = render.TableGrid
)

// Metadata is the document summary: title, author, dates.
type Metadata = document.Metadata

// Stream describes one named stream of a document, in container order.
type Stream = container.Stream

// Config controls an Extractor. The zero value is usable.
type Config struct {
	// MaxFileSize rejects larger files before they are opened.
	MaxFileSize int64
	// MaxStreamSize caps a single decompressed stream.
	MaxStreamSize int64
	// Workers bounds ExtractBatch concurrency. Zero means GOMAXPROCS.
	Workers int
	Tables  TableMode
	// Normalize applies Unicode NFC to the extracted text.
	Normalize bool
	// Logger receives debug and warning records. Nil means slog.Default()
	// at the time of each call.
	Logger *slog.Logger
}

func (c Config) defaults() Config {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
	if c.MaxStreamSize <= 0 {
		c.MaxStreamSize = container.DefaultMaxStreamSize
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	return c
}

// Extractor runs extraction calls with a fixed configuration. It keeps no
// state between calls and is safe for concurrent use.
type Extractor struct {
	cfg Config
}

// New returns an Extractor for cfg.
func New(cfg Config) *Extractor {
	return &Extractor{cfg: cfg.defaults()}
}

func (e *Extractor) logger() *slog.Logger {
	if e.cfg.Logger != nil {
		return e.cfg.Logger
	}
	return slog.Default()
}

// BatchResult is the outcome for one path of ExtractBatch. Exactly one of
// Text and Error is meaningful; Error is empty on success.
type BatchResult struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// Info describes a document without decoding its body.
type Info struct {
	Format  string   `json:"format"`
	Version string   `json:"version"`
	Flags   []string `json:"flags,omitempty"`
	// Protected is set when the body cannot be read without a password.
	Protected bool     `json:"protected"`
	Sections  []string `json:"sections"`
	Streams   []Stream `json:"streams"`
	Metadata  Metadata `json:"metadata"`
}

// withFile opens path under the size limit and passes the opened container to fn.
func (e *Extractor) withFile(path string, fn func(c container.Container) error) error {
	st, err := os.Stat(path)
	if err != nil {
		return hwperr.File(err)
	}
	if st.IsDir() {
		return hwperr.Wrap(hwperr.KindFile, path+" is a directory", nil)
	}
	if st.Size() > e.cfg.MaxFileSize {
		return hwperr.Wrap(hwperr.KindFile,
			fmt.Sprintf("file is %d bytes, limit is %d", st.Size(), e.cfg.MaxFileSize), nil)
	}

	f, err := os.Open(path)
	if err != nil {
		return hwperr.File(err)
	}
	defer f.Close()

	e.logger().Debug("document opened", "path", path, "size", st.Size())
	return e.withSource(io.NewSectionReader(f, 0, st.Size()), st.Size(), fn)
}

func (e *Extractor) withSource(ra io.ReaderAt, size int64, fn func(c container.Container) error) error {
	c, err := container.Open(ra, size, container.Limits{MaxStreamSize: e.cfg.MaxStreamSize})
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

// extractor is the part of a format reader ExtractText needs.
type extractor interface {
	Extract() (*document.Document, error)
}

func (e *Extractor) openReader(c container.Container) (extractor, error) {
	switch c.Format() {
	case container.FormatHWP:
		return hwpv5.Open(c, hwpv5.Options{MaxStreamSize: e.cfg.MaxStreamSize, Logger: e.logger()})
	case container.FormatHWPX:
		return hwpx.Open(c, hwpx.Options{Logger: e.logger()})
	}
	return nil, hwperr.InvalidSignature("unrecognized container")
}

func (e *Extractor) extract(c container.Container) (string, error) {
	r, err := e.openReader(c)
	if err != nil {
		return "", err
	}
	doc, err := r.Extract()
	if err != nil {
		return "", err
	}
	return render.Text(doc, render.Options{Tables: e.cfg.Tables, Normalize: e.cfg.Normalize}), nil
}

// ExtractText returns the plain text of the document at path. Paragraphs are
// separated by newlines and sections by blank lines.
func (e *Extractor) ExtractText(path string) (string, error) {
	var text string
	err := e.withFile(path, func(c container.Container) error {
		var err error
		text, err = e.extract(c)
		return err
	})
	if err != nil {
		e.logger().Debug("extraction failed", "path", path, "kind", hwperr.KindOf(err), "err", err)
		return "", err
	}
	return text, nil
}

// ExtractTextFrom is ExtractText for an in-memory or already opened source.
// ra is not closed.
func (e *Extractor) ExtractTextFrom(ra io.ReaderAt, size int64) (string, error) {
	var text string
	err := e.withSource(io.NewSectionReader(ra, 0, size), size, func(c container.Container) error {
		var err error
		text, err = e.extract(c)
		return err
	})
	return text, err
}

// ListStreams returns the stream names of the document at path in container
// order. The document body is not decoded, so protected documents list fine.
func (e *Extractor) ListStreams(path string) ([]string, error) {
	streams, err := e.Streams(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(streams))
	for i, s := range streams {
		names[i] = s.Name
	}
	return names, nil
}

// Streams is ListStreams with the stored size of each stream.
func (e *Extractor) Streams(path string) ([]Stream, error) {
	var streams []Stream
	err := e.withFile(path, func(c container.Container) error {
		streams = c.Streams()
		return nil
	})
	return streams, err
}

// Inspect reports the format, version, flags and streams of the document
// at path. Protection is reported, not returned as an error.
func (e *Extractor) Inspect(path string) (*Info, error) {
	var info *Info
	err := e.withFile(path, func(c container.Container) error {
		var err error
		switch c.Format() {
		case container.FormatHWP:
			info, err = e.inspectHWP(c)
		case container.FormatHWPX:
			info, err = e.inspectHWPX(c)
		default:
			err = hwperr.InvalidSignature("unrecognized container")
		}
		return err
	})
	return info, err
}

func (e *Extractor) inspectHWP(c container.Container) (*Info, error) {
	r, err := hwpv5.Open(c, hwpv5.Options{MaxStreamSize: e.cfg.MaxStreamSize, Logger: e.logger()})
	if err != nil {
		return nil, err
	}
	info := &Info{
		Format:    c.Format().String(),
		Version:   r.Header.Version.String(),
		Flags:     r.Header.Properties.Names(),
		Protected: r.CheckProtection() != nil,
		Sections:  r.SectionNames(),
		Streams:   r.Streams(),
	}
	if meta, err := r.Summary(); err != nil {
		e.logger().Warn("summary information ignored", "err", err)
	} else {
		info.Metadata = meta
	}
	return info, nil
}

func (e *Extractor) inspectHWPX(c container.Container) (*Info, error) {
	r, err := hwpx.Open(c, hwpx.Options{Logger: e.logger()})
	if err != nil {
		return nil, err
	}
	info := &Info{
		Format:   c.Format().String(),
		Version:  r.Version.String(),
		Sections: r.SectionNames(),
		Streams:  r.Streams(),
		Metadata: r.Metadata(),
	}
	if err := r.CheckProtection(); err != nil {
		if hwperr.KindOf(err) != hwperr.KindPasswordProtected {
			return nil, err
		}
		info.Protected = true
		info.Flags = append(info.Flags, "encrypted")
	}
	return info, nil
}

// ExtractBatch extracts every path independently on up to Config.Workers
// goroutines. A failing path never affects the others.
func (e *Extractor) ExtractBatch(paths []string) map[string]BatchResult {
	mapper := iter.Mapper[string, BatchResult]{MaxGoroutines: e.cfg.Workers}
	results := mapper.Map(paths, func(path *string) BatchResult {
		text, err := e.ExtractText(*path)
		if err != nil {
			return BatchResult{Error: err.Error()}
		}
		return BatchResult{Text: text}
	})

	out := make(map[string]BatchResult, len(paths))
	for i, path := range paths {
		out[path] = results[i]
	}
	e.logger().Debug("batch finished", "paths", len(paths))
	return out
}

// Read renders the text of an opened file to out followed by a newline.
// The file is not closed.
func (e *Extractor) Read(file *os.File, out io.Writer) error {
	st, err := file.Stat()
	if err != nil {
		return hwperr.File(err)
	}
	if st.Size() > e.cfg.MaxFileSize {
		return hwperr.Wrap(hwperr.KindFile,
			fmt.Sprintf("file is %d bytes, limit is %d", st.Size(), e.cfg.MaxFileSize), nil)
	}
	text, err := e.ExtractTextFrom(file, st.Size())
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file.Name(), err)
	}
	if text == "" {
		return nil
	}
	_, err = io.WriteString(out, text+"\n")
	return err
}

var std = New(Config{})

// ExtractText extracts the text of the document at path with the default configuration.
func ExtractText(path string) (string, error) { return std.ExtractText(path) }

// ListStreams lists the streams of the document at path in container order.
func ListStreams(path string) ([]string, error) { return std.ListStreams(path) }

// ExtractBatch extracts every path with the default configuration.
func ExtractBatch(paths []string) map[string]BatchResult { return std.ExtractBatch(paths) }

// Inspect describes the document at path with the default configuration.
func Inspect(path string) (*Info, error) { return std.Inspect(path) }

// Read automatically detects the file format and renders the document to plain text.
func Read(file *os.File, out io.Writer) error { return std.Read(file, out) }
