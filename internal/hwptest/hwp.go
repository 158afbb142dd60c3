package hwptest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf16"

	"github.com/klauspost/compress/flate"
)

// Record tags and control IDs used by the builders.
const (
	TagDocumentProperties = 0x10
	TagParaHeader         = 0x42
	TagParaText           = 0x43
	TagParaCharShape      = 0x44
	TagParaLineSeg        = 0x45
	TagCtrlHeader         = 0x47
	TagListHeader         = 0x48
	TagShapeComponent     = 0x4C
	TagTable              = 0x4D
	TagShapePicture       = 0x55
	TagEqEdit             = 0x58

	CtrlTable    = 0x74626c20 // "tbl "
	CtrlGso      = 0x67736f20 // "gso "
	CtrlFootnote = 0x666e2020 // "fn  "
	CtrlEquation = 0x65716564 // "eqed"

	FlagCompressed   = 1 << 0
	FlagPassword     = 1 << 1
	FlagDistribution = 1 << 2
	FlagDRM          = 1 << 4

	// Version5030 is 5.0.3.0.
	Version5030 = 0x05000300
)

// FileHeader returns a 256-byte FileHeader stream.
func FileHeader(version, flags uint32) []byte {
	b := make([]byte, 256)
	copy(b, "HWP Document File")
	binary.LittleEndian.PutUint32(b[32:], version)
	binary.LittleEndian.PutUint32(b[36:], flags)
	return b
}

// Record encodes one record, using the extended size form when needed.
func Record(tag, level uint16, payload []byte) []byte {
	var buf bytes.Buffer
	size := len(payload)
	if size >= 0xFFF {
		binary.Write(&buf, binary.LittleEndian, uint32(tag)|uint32(level)<<10|0xFFF<<20)
		binary.Write(&buf, binary.LittleEndian, uint32(size))
	} else {
		binary.Write(&buf, binary.LittleEndian, uint32(tag)|uint32(level)<<10|uint32(size)<<20)
	}
	buf.Write(payload)
	return buf.Bytes()
}

// UTF16 encodes s as UTF-16LE.
func UTF16(s string) []byte {
	units := utf16.Encode([]rune(s))
	b := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[i*2:], u)
	}
	return b
}

// Control encodes an 8 code unit extended control character carrying id.
func Control(code uint16, id uint32) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint16(b[0:], code)
	binary.LittleEndian.PutUint32(b[2:], id)
	binary.LittleEndian.PutUint16(b[14:], code)
	return b
}

// ParaText returns a PARA_TEXT payload for s followed by a paragraph end.
func ParaText(s string) []byte {
	return append(UTF16(s), 0x0D, 0x00)
}

// Paragraph returns the records of a plain paragraph at level.
func Paragraph(level uint16, text string) []byte {
	var b []byte
	b = append(b, Record(TagParaHeader, level, make([]byte, 22))...)
	b = append(b, Record(TagParaText, level+1, ParaText(text))...)
	b = append(b, Record(TagParaCharShape, level+1, make([]byte, 8))...)
	b = append(b, Record(TagParaLineSeg, level+1, make([]byte, 36))...)
	return b
}

// CtrlHeader returns a CTRL_HEADER record for id.
func CtrlHeader(level uint16, id uint32) []byte {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, id)
	return Record(TagCtrlHeader, level, payload)
}

// CellListHeader returns a LIST_HEADER for a table cell.
func CellListHeader(level uint16, row, col, rowSpan, colSpan, paraCount int) []byte {
	p := make([]byte, 34)
	binary.LittleEndian.PutUint16(p[0:], uint16(paraCount))
	binary.LittleEndian.PutUint16(p[8:], uint16(col))
	binary.LittleEndian.PutUint16(p[10:], uint16(row))
	binary.LittleEndian.PutUint16(p[12:], uint16(colSpan))
	binary.LittleEndian.PutUint16(p[14:], uint16(rowSpan))
	return Record(TagListHeader, level, p)
}

// ListHeader returns a LIST_HEADER for a non-cell paragraph list.
func ListHeader(level uint16, paraCount int) []byte {
	p := make([]byte, 8)
	binary.LittleEndian.PutUint16(p[0:], uint16(paraCount))
	return Record(TagListHeader, level, p)
}

// TableRecord returns a TABLE record with the given dimensions.
func TableRecord(level uint16, rows, cols int) []byte {
	p := make([]byte, 8+rows*2)
	binary.LittleEndian.PutUint16(p[4:], uint16(rows))
	binary.LittleEndian.PutUint16(p[6:], uint16(cols))
	return Record(TagTable, level, p)
}

// Table returns a paragraph at level holding a rows x cols table whose
// cells contain texts in row-major order.
func Table(level uint16, rows, cols int, texts ...string) []byte {
	var b []byte
	b = append(b, Record(TagParaHeader, level, make([]byte, 22))...)
	b = append(b, Record(TagParaText, level+1, append(Control(11, CtrlTable), 0x0D, 0x00))...)
	b = append(b, CtrlHeader(level+1, CtrlTable)...)
	b = append(b, TableRecord(level+2, rows, cols)...)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			b = append(b, CellListHeader(level+2, r, c, 1, 1, 1)...)
			text := ""
			if i := r*cols + c; i < len(texts) {
				text = texts[i]
			}
			b = append(b, Paragraph(level+2, text)...)
		}
	}
	return b
}

// DocInfo returns DocInfo records declaring sections.
func DocInfo(sections int) []byte {
	p := make([]byte, 26)
	binary.LittleEndian.PutUint16(p, uint16(sections))
	return Record(TagDocumentProperties, 0, p)
}

// Deflate compresses b as raw deflate.
func Deflate(b []byte) []byte {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		panic(err)
	}
	w.Write(b)
	w.Close()
	return buf.Bytes()
}

// HWP describes a legacy document to build.
type HWP struct {
	Version  uint32
	Flags    uint32
	Sections [][]byte
	// Extra streams are appended after the body streams.
	Extra     []Stream
	NoDocInfo bool
}

// Bytes writes the document as a compound file. DocInfo and sections are
// deflated when the compressed flag is set.
func (h HWP) Bytes() []byte {
	version := h.Version
	if version == 0 {
		version = Version5030
	}
	enc := func(b []byte) []byte {
		if h.Flags&FlagCompressed != 0 {
			return Deflate(b)
		}
		return b
	}

	streams := []Stream{{Name: "FileHeader", Data: FileHeader(version, h.Flags)}}
	if !h.NoDocInfo {
		streams = append(streams, Stream{Name: "DocInfo", Data: enc(DocInfo(len(h.Sections)))})
	}
	for i, sec := range h.Sections {
		streams = append(streams, Stream{Name: fmt.Sprintf("BodyText/Section%d", i), Data: enc(sec)})
	}
	streams = append(streams, h.Extra...)
	return CompoundFile(streams...)
}
