package hwpv5

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/hanpama/hwarang/internal/container"
	"github.com/hanpama/hwarang/internal/document"
	"github.com/hanpama/hwarang/internal/hwperr"
	"github.com/hanpama/hwarang/internal/hwptest"
)

// spyContainer records which streams were read.
type spyContainer struct {
	container.Container
	reads []string
}

func (s *spyContainer) ReadStream(name string) ([]byte, error) {
	s.reads = append(s.reads, name)
	return s.Container.ReadStream(name)
}

func openContainer(t *testing.T, file []byte) *spyContainer {
	t.Helper()
	c, err := container.Open(bytes.NewReader(file), int64(len(file)), container.Limits{})
	if err != nil {
		t.Fatalf("container.Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return &spyContainer{Container: c}
}

func extract(t *testing.T, file []byte) (*document.Document, error) {
	t.Helper()
	r, err := Open(openContainer(t, file), Options{})
	if err != nil {
		return nil, err
	}
	return r.Extract()
}

func allLines(doc *document.Document) []string {
	var lines []string
	for _, s := range doc.Sections {
		lines = append(lines, document.Lines(s.Blocks)...)
	}
	return lines
}

func TestExtractHello(t *testing.T) {
	for _, flags := range []uint32{0, hwptest.FlagCompressed} {
		file := hwptest.HWP{Flags: flags, Sections: [][]byte{hwptest.Paragraph(0, "Hello")}}.Bytes()
		doc, err := extract(t, file)
		if err != nil {
			t.Fatalf("flags %#x: %v", flags, err)
		}
		if got := allLines(doc); !reflect.DeepEqual(got, []string{"Hello"}) {
			t.Errorf("flags %#x: lines = %q", flags, got)
		}
	}
}

func TestExtractSectionOrder(t *testing.T) {
	file := hwptest.HWP{
		Sections: [][]byte{hwptest.Paragraph(0, "zero")},
		Extra: []hwptest.Stream{
			{Name: "BodyText/Section10", Data: hwptest.Paragraph(0, "ten")},
			{Name: "BodyText/Section2", Data: hwptest.Paragraph(0, "two")},
			{Name: "BodyText/Sectionx", Data: hwptest.Paragraph(0, "ignored")},
		},
	}.Bytes()
	doc, err := extract(t, file)
	if err != nil {
		t.Fatal(err)
	}
	if got := allLines(doc); !reflect.DeepEqual(got, []string{"zero", "two", "ten"}) {
		t.Errorf("lines = %q", got)
	}
	if doc.Sections[2].Name != "BodyText/Section10" {
		t.Errorf("last section = %q", doc.Sections[2].Name)
	}
}

func TestPasswordGateBeforeBody(t *testing.T) {
	file := hwptest.HWP{
		Flags:    hwptest.FlagCompressed | hwptest.FlagPassword,
		Sections: [][]byte{[]byte("not even deflate")},
	}.Bytes()
	c := openContainer(t, file)
	r, err := Open(c, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := r.Extract(); !errors.Is(err, hwperr.ErrPasswordProtected) {
		t.Fatalf("err = %v, want PasswordProtected", err)
	}
	if _, err := r.ReadSection("BodyText/Section0"); !errors.Is(err, hwperr.ErrPasswordProtected) {
		t.Fatalf("ReadSection err = %v, want PasswordProtected", err)
	}
	if !reflect.DeepEqual(c.reads, []string{"FileHeader"}) {
		t.Errorf("streams read = %q, want only FileHeader", c.reads)
	}
}

func TestOpenWithoutFileHeader(t *testing.T) {
	file := hwptest.CompoundFile(hwptest.Stream{Name: "DocInfo", Data: hwptest.DocInfo(1)})
	_, err := Open(openContainer(t, file), Options{})
	if !errors.Is(err, hwperr.ErrUnsupportedFormat) {
		t.Errorf("err = %v, want UnsupportedFormat", err)
	}
}

func TestOpenUnsupportedVersion(t *testing.T) {
	file := hwptest.HWP{Version: 0x03000000, Sections: [][]byte{hwptest.Paragraph(0, "x")}}.Bytes()
	_, err := Open(openContainer(t, file), Options{})
	if !errors.Is(err, hwperr.ErrUnsupportedVersion) {
		t.Errorf("err = %v, want UnsupportedVersion", err)
	}
}

func TestExtractNoSections(t *testing.T) {
	file := hwptest.HWP{}.Bytes()
	_, err := extract(t, file)
	if !errors.Is(err, hwperr.ErrUnsupportedFormat) {
		t.Errorf("err = %v, want UnsupportedFormat", err)
	}
}

func TestExtractTruncatedSection(t *testing.T) {
	good := hwptest.Deflate(bytes.Repeat(hwptest.Paragraph(0, "long paragraph text"), 40))
	file := hwptest.CompoundFile(
		hwptest.Stream{Name: "FileHeader", Data: hwptest.FileHeader(hwptest.Version5030, hwptest.FlagCompressed)},
		hwptest.Stream{Name: "BodyText/Section0", Data: good[:len(good)/2]},
	)
	_, err := extract(t, file)
	if !errors.Is(err, hwperr.ErrDecompressFailed) {
		t.Fatalf("err = %v, want DecompressFailed", err)
	}
	var e *hwperr.Error
	if errors.As(err, &e) && e.Stream != "BodyText/Section0" {
		t.Errorf("stream = %q", e.Stream)
	}
}

func TestExtractBadRecord(t *testing.T) {
	section := append(hwptest.Paragraph(0, "ok"), 0x43, 0x00, 0x00, 0xF0)
	file := hwptest.HWP{Sections: [][]byte{section}}.Bytes()
	_, err := extract(t, file)
	if !errors.Is(err, hwperr.ErrInvalidRecordHeader) {
		t.Fatalf("err = %v, want InvalidRecordHeader", err)
	}
	if !strings.Contains(err.Error(), "BodyText/Section0") {
		t.Errorf("error %q does not name the stream", err)
	}
}

func TestExtractDistribution(t *testing.T) {
	body := hwptest.Deflate(hwptest.Paragraph(0, "배포용"))
	file := hwptest.HWP{
		Flags: hwptest.FlagCompressed | hwptest.FlagDistribution,
		Extra: []hwptest.Stream{
			{Name: "BodyText/Section0", Data: hwptest.Deflate(hwptest.Paragraph(0, "decoy"))},
			{Name: "ViewText/Section0", Data: distributedStream(t, 0xCAFE, body)},
		},
	}.Bytes()
	doc, err := extract(t, file)
	if err != nil {
		t.Fatal(err)
	}
	if got := allLines(doc); !reflect.DeepEqual(got, []string{"배포용"}) {
		t.Errorf("lines = %q", got)
	}
}

func TestExtractSummary(t *testing.T) {
	file := hwptest.HWP{
		Sections: [][]byte{hwptest.Paragraph(0, "body")},
		Extra: []hwptest.Stream{{
			Name: hwptest.SummaryStream,
			Data: hwptest.SummaryInformation(hwptest.Property{ID: hwptest.PIDTitle, Value: "제목"}),
		}},
	}.Bytes()
	doc, err := extract(t, file)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Metadata.Title != "제목" {
		t.Errorf("title = %q", doc.Metadata.Title)
	}
}

func TestExtractIgnoresBrokenSummary(t *testing.T) {
	file := hwptest.HWP{
		Sections: [][]byte{hwptest.Paragraph(0, "body")},
		Extra:    []hwptest.Stream{{Name: hwptest.SummaryStream, Data: []byte("junk")}},
	}.Bytes()
	doc, err := extract(t, file)
	if err != nil {
		t.Fatalf("broken summary failed extraction: %v", err)
	}
	if got := allLines(doc); !reflect.DeepEqual(got, []string{"body"}) {
		t.Errorf("lines = %q", got)
	}
}

func TestReaderStreams(t *testing.T) {
	file := hwptest.HWP{
		Flags:    hwptest.FlagCompressed,
		Sections: [][]byte{hwptest.Paragraph(0, "x")},
		Extra:    []hwptest.Stream{{Name: "PrvText", Data: hwptest.UTF16("x")}},
	}.Bytes()
	r, err := Open(openContainer(t, file), Options{})
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]bool{}
	for _, s := range r.Streams() {
		got[s.Name] = s.Compressed
	}
	want := map[string]bool{
		"FileHeader":        false,
		"DocInfo":           true,
		"BodyText/Section0": true,
		"PrvText":           false,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("streams = %v, want %v", got, want)
	}
}
