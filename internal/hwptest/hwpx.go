package hwptest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"strings"
)

const (
	MimeHWPX = "application/hwp+zip"

	sectionNS = `xmlns:hs="http://www.hancom.co.kr/hwpml/2011/section" xmlns:hp="http://www.hancom.co.kr/hwpml/2011/paragraph"`
)

// HWPX describes an archive document to build. Empty fields get defaults;
// the Omit flags drop the corresponding part.
type HWPX struct {
	Mimetype   string
	Version    string
	ContentHPF string
	Manifest   string
	Sections   []string
	// SpineOrder lists section indexes in reading order; nil keeps the given order.
	SpineOrder []int
	Extra      []Stream

	OmitMimetype bool
	OmitHPF      bool
}

// Bytes writes the archive. The mimetype entry is stored first, uncompressed.
func (x HWPX) Bytes() []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	put := func(name string, data string, method uint16) {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
		if err != nil {
			panic(err)
		}
		w.Write([]byte(data))
	}

	if !x.OmitMimetype {
		mime := x.Mimetype
		if mime == "" {
			mime = MimeHWPX
		}
		put("mimetype", mime, zip.Store)
	}

	version := x.Version
	if version == "" {
		version = `<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>` +
			`<hv:HCFVersion xmlns:hv="http://www.hancom.co.kr/hwpml/2011/version" tagetApplication="WORDPROCESSOR" major="5" minor="1" micro="0" buildNumber="1" os="1" xmlVersion="1.4" application="Hancom Office Hangul" appVersion="11, 0, 0, 0"/>`
	}
	put("version.xml", version, zip.Deflate)

	if x.Manifest != "" {
		put("META-INF/manifest.xml", x.Manifest, zip.Deflate)
	}

	if !x.OmitHPF {
		hpf := x.ContentHPF
		if hpf == "" {
			hpf = ContentHPF(len(x.Sections), x.SpineOrder)
		}
		put("Contents/content.hpf", hpf, zip.Deflate)
	}

	for i, sec := range x.Sections {
		put(fmt.Sprintf("Contents/section%d.xml", i), sec, zip.Deflate)
	}
	for _, s := range x.Extra {
		put(s.Name, string(s.Data), zip.Deflate)
	}

	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// ContentHPF returns an OPF package listing n sections, spine in order.
func ContentHPF(n int, order []int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>`)
	b.WriteString(`<opf:package xmlns:opf="http://www.idpf.org/2007/opf/" xmlns:dc="http://purl.org/dc/elements/1.1/" version="" unique-identifier="" id="">`)
	b.WriteString(`<opf:metadata><opf:title>Test Document</opf:title><dc:creator>hwptest</dc:creator><opf:language>ko</opf:language></opf:metadata>`)
	b.WriteString(`<opf:manifest><opf:item id="header" href="Contents/header.xml" media-type="application/xml"/>`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<opf:item id="section%d" href="Contents/section%d.xml" media-type="application/xml"/>`, i, i)
	}
	b.WriteString(`</opf:manifest><opf:spine><opf:itemref idref="header" linear="no"/>`)
	if order == nil {
		for i := 0; i < n; i++ {
			order = append(order, i)
		}
	}
	for _, i := range order {
		fmt.Fprintf(&b, `<opf:itemref idref="section%d" linear="yes"/>`, i)
	}
	b.WriteString(`</opf:spine></opf:package>`)
	return b.String()
}

// Section wraps body XML in a section root element.
func Section(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes" ?><hs:sec ` + sectionNS + `>` + body + `</hs:sec>`
}

// P returns a paragraph with one run per text.
func P(texts ...string) string {
	var b strings.Builder
	b.WriteString(`<hp:p id="0" paraPrIDRef="0" styleIDRef="0" pageBreak="0" columnBreak="0" merged="0">`)
	for _, t := range texts {
		fmt.Fprintf(&b, `<hp:run charPrIDRef="0"><hp:t>%s</hp:t></hp:run>`, html.EscapeString(t))
	}
	b.WriteString(`</hp:p>`)
	return b.String()
}

// Tbl returns a paragraph holding a rows x cols table with texts in row-major order.
func Tbl(rows, cols int, texts ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<hp:p id="0" paraPrIDRef="0" styleIDRef="0"><hp:run charPrIDRef="0"><hp:tbl id="1" rowCnt="%d" colCnt="%d">`, rows, cols)
	for r := 0; r < rows; r++ {
		b.WriteString(`<hp:tr>`)
		for c := 0; c < cols; c++ {
			text := ""
			if i := r*cols + c; i < len(texts) {
				text = texts[i]
			}
			fmt.Fprintf(&b, `<hp:tc name="" header="0"><hp:subList id="" textDirection="HORIZONTAL">%s</hp:subList>`+
				`<hp:cellAddr colAddr="%d" rowAddr="%d"/><hp:cellSpan colSpan="1" rowSpan="1"/></hp:tc>`, P(text), c, r)
		}
		b.WriteString(`</hp:tr>`)
	}
	b.WriteString(`</hp:tbl><hp:t/></hp:run></hp:p>`)
	return b.String()
}

// EncryptedManifest returns a META-INF/manifest.xml declaring encrypted sections.
func EncryptedManifest() string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>` +
		`<odf:manifest xmlns:odf="urn:oasis:names:tc:opendocument:xmlns:manifest:1.0">` +
		`<odf:file-entry odf:full-path="Contents/section0.xml" odf:media-type="application/xml" odf:size="1024">` +
		`<odf:encryption-data odf:checksum-type="urn:oasis:names:tc:opendocument:xmlns:manifest:1.0#sha256-1k" odf:checksum="AAAA">` +
		`<odf:algorithm odf:algorithm-name="http://www.w3.org/2001/04/xmlenc#aes256-cbc" odf:initialisation-vector="AAAA"/>` +
		`</odf:encryption-data></odf:file-entry></odf:manifest>`
}
