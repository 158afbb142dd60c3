package hwpx

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/hanpama/hwarang/internal/container"
	"github.com/hanpama/hwarang/internal/document"
	"github.com/hanpama/hwarang/internal/hwperr"
	"github.com/hanpama/hwarang/internal/hwptest"
)

type spyContainer struct {
	container.Container
	reads []string
}

func (s *spyContainer) ReadStream(name string) ([]byte, error) {
	s.reads = append(s.reads, name)
	return s.Container.ReadStream(name)
}

func openArchive(t *testing.T, file []byte) *spyContainer {
	t.Helper()
	c, err := container.Open(bytes.NewReader(file), int64(len(file)), container.Limits{})
	if err != nil {
		t.Fatalf("container.Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return &spyContainer{Container: c}
}

func extract(t *testing.T, x hwptest.HWPX) (*document.Document, error) {
	t.Helper()
	r, err := Open(openArchive(t, x.Bytes()), Options{})
	if err != nil {
		return nil, err
	}
	return r.Extract()
}

func lines(doc *document.Document) []string {
	var out []string
	for _, s := range doc.Sections {
		out = append(out, document.Lines(s.Blocks)...)
	}
	return out
}

func TestExtract(t *testing.T) {
	doc, err := extract(t, hwptest.HWPX{Sections: []string{
		hwptest.Section(hwptest.P("Hello, ", "world") + hwptest.P("둘째 문단")),
		hwptest.Section(hwptest.P("section two")),
	}})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Hello, world", "둘째 문단", "section two"}
	if got := lines(doc); !reflect.DeepEqual(got, want) {
		t.Errorf("lines = %q, want %q", got, want)
	}
	if doc.Metadata.Title != "Test Document" || doc.Metadata.Author != "hwptest" {
		t.Errorf("metadata = %+v", doc.Metadata)
	}
	if doc.Sections[1].Name != "Contents/section1.xml" {
		t.Errorf("section name = %q", doc.Sections[1].Name)
	}
}

func TestExtractSpineOrder(t *testing.T) {
	doc, err := extract(t, hwptest.HWPX{
		Sections: []string{
			hwptest.Section(hwptest.P("first part")),
			hwptest.Section(hwptest.P("second part")),
		},
		SpineOrder: []int{1, 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := lines(doc); !reflect.DeepEqual(got, []string{"second part", "first part"}) {
		t.Errorf("lines = %q", got)
	}
}

func TestExtractWithoutManifestSections(t *testing.T) {
	hpf := `<?xml version="1.0"?><opf:package xmlns:opf="http://www.idpf.org/2007/opf/"><opf:manifest/></opf:package>`
	doc, err := extract(t, hwptest.HWPX{
		ContentHPF: hpf,
		Sections:   []string{hwptest.Section(hwptest.P("found by name"))},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := lines(doc); !reflect.DeepEqual(got, []string{"found by name"}) {
		t.Errorf("lines = %q", got)
	}
}

func TestOpenErrors(t *testing.T) {
	badVersion := `<?xml version="1.0"?><hv:HCFVersion xmlns:hv="http://www.hancom.co.kr/hwpml/2011/version" major="4" minor="0" micro="0" buildNumber="0"/>`
	sections := []string{hwptest.Section(hwptest.P("x"))}

	tests := []struct {
		name string
		x    hwptest.HWPX
		want error
	}{
		{"wrong mimetype", hwptest.HWPX{Mimetype: "application/epub+zip", Sections: sections}, hwperr.ErrInvalidSignature},
		{"no mimetype", hwptest.HWPX{OmitMimetype: true, Sections: sections}, hwperr.ErrUnsupportedFormat},
		{"old version", hwptest.HWPX{Version: badVersion, Sections: sections}, hwperr.ErrUnsupportedVersion},
		{"malformed version", hwptest.HWPX{Version: "<HCFVersion", Sections: sections}, hwperr.ErrHwpx},
		{"no package", hwptest.HWPX{OmitHPF: true, Sections: sections}, hwperr.ErrUnsupportedFormat},
		{"missing section part", hwptest.HWPX{ContentHPF: hwptest.ContentHPF(2, nil), Sections: sections}, hwperr.ErrUnsupportedFormat},
		{"no sections", hwptest.HWPX{}, hwperr.ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(openArchive(t, tt.x.Bytes()), Options{})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, hwperr.KindOf(tt.want))
			}
		})
	}
}

func TestEncryptedManifest(t *testing.T) {
	c := openArchive(t, hwptest.HWPX{
		Manifest: hwptest.EncryptedManifest(),
		Sections: []string{"not even xml"},
	}.Bytes())
	r, err := Open(c, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := r.Extract(); !errors.Is(err, hwperr.ErrPasswordProtected) {
		t.Fatalf("err = %v, want PasswordProtected", err)
	}
	for _, name := range c.reads {
		if name == "Contents/section0.xml" {
			t.Error("section part read before the protection check")
		}
	}
}

func TestPlainManifest(t *testing.T) {
	manifest := `<?xml version="1.0"?><odf:manifest xmlns:odf="urn:oasis:names:tc:opendocument:xmlns:manifest:1.0">` +
		`<odf:file-entry odf:full-path="/" odf:media-type="application/hwp+zip"/></odf:manifest>`
	doc, err := extract(t, hwptest.HWPX{Manifest: manifest, Sections: []string{hwptest.Section(hwptest.P("open"))}})
	if err != nil {
		t.Fatal(err)
	}
	if got := lines(doc); !reflect.DeepEqual(got, []string{"open"}) {
		t.Errorf("lines = %q", got)
	}
}

func TestMalformedSection(t *testing.T) {
	_, err := extract(t, hwptest.HWPX{Sections: []string{hwptest.Section(hwptest.P("x")) + "</oops>"}})
	if !errors.Is(err, hwperr.ErrHwpx) {
		t.Fatalf("err = %v, want Hwpx", err)
	}
	var e *hwperr.Error
	if errors.As(err, &e) && e.Stream != "Contents/section0.xml" {
		t.Errorf("stream = %q", e.Stream)
	}
}

func TestPackageMetadata(t *testing.T) {
	hpf := `<?xml version="1.0"?><opf:package xmlns:opf="http://www.idpf.org/2007/opf/">` +
		`<opf:metadata><opf:title>보고서</opf:title>` +
		`<opf:meta name="creator" content="text">작성자</opf:meta>` +
		`<opf:meta name="lastsaveby" content="text">수정자</opf:meta>` +
		`<opf:meta name="CreatedDate" content="text">2020-01-02T03:04:05Z</opf:meta>` +
		`<opf:meta name="keyword" content="text"></opf:meta>` +
		`</opf:metadata><opf:manifest><opf:item id="section0" href="Contents/section0.xml"/></opf:manifest>` +
		`<opf:spine><opf:itemref idref="section0"/></opf:spine></opf:package>`
	r, err := Open(openArchive(t, hwptest.HWPX{ContentHPF: hpf, Sections: []string{hwptest.Section("")}}.Bytes()), Options{})
	if err != nil {
		t.Fatal(err)
	}
	meta := r.Metadata()
	if meta.Title != "보고서" || meta.Author != "작성자" || meta.LastAuthor != "수정자" {
		t.Errorf("metadata = %+v", meta)
	}
	if meta.Created.Year() != 2020 || meta.Keywords != "" {
		t.Errorf("created = %v, keywords = %q", meta.Created, meta.Keywords)
	}
	if r.Version.String() != "5.1.0.1" {
		t.Errorf("version = %s", r.Version)
	}
}
