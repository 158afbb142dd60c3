package hwpv5

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hanpama/hwarang/internal/hwperr"
)

const (
	recTagBegin = 0x10

	// DocInfo
	recTagDocumentProperties = recTagBegin
	recTagDistributeDocData  = recTagBegin + 12

	// BodyText
	recTagParaHeader            = recTagBegin + 50
	recTagParaText              = recTagBegin + 51
	recTagParaCharShape         = recTagBegin + 52
	recTagParaLineSeg           = recTagBegin + 53
	recTagCtrlHeader            = recTagBegin + 55
	recTagListHeader            = recTagBegin + 56
	recTagShapeComponent        = recTagBegin + 60
	recTagTable                 = recTagBegin + 61
	recTagShapeComponentOLE     = recTagBegin + 68
	recTagShapeComponentPicture = recTagBegin + 69
	recTagEqEdit                = recTagBegin + 72
	recTagChartData             = recTagBegin + 79
	recTagVideoData             = recTagBegin + 82
)

// ctrlTable is the control ID of a table, MAKE_4CHID('t', 'b', 'l', ' ')
// read as a little endian uint32. Every other control only scopes the
// records nested under it.
const ctrlTable = 0x74626c20

const extendedSize = 0xfff

// recHeader holds the common metadata shared by all concrete record nodes.
type recHeader struct {
	TagID  uint16
	Level  uint16
	Size   uint32
	Offset int64
}

// Rec represents a typed record.
type Rec interface {
	Tag() uint16
	Lvl() uint16
	Len() uint32
	// Off is the byte offset of the record header within its stream.
	Off() int64
}

func (b recHeader) Tag() uint16 { return b.TagID }
func (b recHeader) Lvl() uint16 { return b.Level }
func (b recHeader) Len() uint32 { return b.Size }
func (b recHeader) Off() int64  { return b.Offset }

type (
	RecDocumentProperties struct {
		recHeader
		SectionCount uint16
	}
	RecDistributeDocData struct {
		recHeader
		Data []byte
	}
	RecParaHeader struct {
		recHeader
		CharCount uint32
		CtrlMask  uint32
	}
	RecParaText struct {
		recHeader
		Els []ParaTextElement
	}
	RecParaCharShape struct{ recHeader }
	RecParaLineSeg   struct{ recHeader }
	RecCtrlHeader    struct {
		recHeader
		CtrlID uint32
		Data   []byte
	}
	RecListHeader struct {
		recHeader
		ParaCount int16
		Property  uint32
		// Cell fields, valid when HasCell is set.
		HasCell  bool
		ColIndex uint16
		RowIndex uint16
		ColSpan  uint16
		RowSpan  uint16
	}
	RecTable struct {
		recHeader
		RowCount uint16
		ColCount uint16
	}
	RecShapeComponent        struct{ recHeader }
	RecShapeComponentOLE     struct{ recHeader }
	RecShapeComponentPicture struct{ recHeader }
	RecEqEdit                struct {
		recHeader
		Script string
	}
	RecChartData struct{ recHeader }
	RecVideoData struct{ recHeader }

	// RecUnknown keeps the raw payload when no concrete type is defined.
	RecUnknown struct {
		recHeader
		Data []byte
	}
)

// RecScanner walks a stream buffer record by record. It never reads past
// the end of the buffer.
type RecScanner struct {
	data []byte
	off  int
}

func NewRecScanner(data []byte) *RecScanner {
	return &RecScanner{data: data}
}

// ScanNext returns the next record, or io.EOF at the end of the buffer.
func (s *RecScanner) ScanNext() (Rec, error) {
	remaining := len(s.data) - s.off
	if remaining == 0 {
		return nil, io.EOF
	}
	start := int64(s.off)
	if remaining < 4 {
		return nil, hwperr.InvalidRecordHeader(start, fmt.Sprintf("truncated record header (%d bytes)", remaining))
	}

	headerRaw := binary.LittleEndian.Uint32(s.data[s.off:])
	s.off += 4

	base := recHeader{
		TagID:  uint16(headerRaw & 0x3ff),
		Level:  uint16((headerRaw >> 10) & 0x3ff),
		Size:   (headerRaw >> 20) & 0xfff,
		Offset: start,
	}
	if base.Size == extendedSize {
		if len(s.data)-s.off < 4 {
			return nil, hwperr.InvalidRecordHeader(start, "truncated extended size")
		}
		base.Size = binary.LittleEndian.Uint32(s.data[s.off:])
		s.off += 4
	}

	if uint64(base.Size) > uint64(len(s.data)-s.off) {
		return nil, hwperr.InvalidRecordHeader(start,
			fmt.Sprintf("record size %d exceeds %d remaining bytes", base.Size, len(s.data)-s.off))
	}
	data := s.data[s.off : s.off+int(base.Size)]
	s.off += int(base.Size)

	return decodeRecord(base, data), nil
}

// ParseRecords decodes a whole stream in one linear pass.
func ParseRecords(data []byte) ([]Rec, error) {
	s := NewRecScanner(data)
	var recs []Rec
	for {
		rec, err := s.ScanNext()
		if err == io.EOF {
			return recs, nil
		}
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
}

func decodeRecord(b recHeader, data []byte) Rec {
	switch b.TagID {
	case recTagDocumentProperties:
		rec := RecDocumentProperties{recHeader: b}
		if len(data) >= 2 {
			rec.SectionCount = binary.LittleEndian.Uint16(data)
		}
		return rec
	case recTagDistributeDocData:
		return RecDistributeDocData{recHeader: b, Data: data}
	case recTagParaHeader:
		rec := RecParaHeader{recHeader: b}
		if len(data) >= 8 {
			rec.CharCount = binary.LittleEndian.Uint32(data[0:]) & 0x7fffffff
			rec.CtrlMask = binary.LittleEndian.Uint32(data[4:])
		}
		return rec
	case recTagParaText:
		return RecParaText{recHeader: b, Els: decodeParaText(data)}
	case recTagParaCharShape:
		return RecParaCharShape{b}
	case recTagParaLineSeg:
		return RecParaLineSeg{b}
	case recTagCtrlHeader:
		rec := RecCtrlHeader{recHeader: b, Data: data}
		if len(data) >= 4 {
			rec.CtrlID = binary.LittleEndian.Uint32(data[:4])
		}
		return rec
	case recTagListHeader:
		return decodeListHeader(b, data)
	case recTagTable:
		rec := RecTable{recHeader: b}
		if len(data) >= 8 {
			rec.RowCount = binary.LittleEndian.Uint16(data[4:])
			rec.ColCount = binary.LittleEndian.Uint16(data[6:])
		}
		return rec
	case recTagShapeComponent:
		return RecShapeComponent{b}
	case recTagShapeComponentOLE:
		return RecShapeComponentOLE{b}
	case recTagShapeComponentPicture:
		return RecShapeComponentPicture{b}
	case recTagEqEdit:
		return RecEqEdit{recHeader: b, Script: decodeEqScript(data)}
	case recTagChartData:
		return RecChartData{b}
	case recTagVideoData:
		return RecVideoData{b}
	}
	return RecUnknown{recHeader: b, Data: data}
}

// decodeListHeader reads the paragraph list header. Table cells append
// column, row and span fields after an 8-byte list header.
func decodeListHeader(b recHeader, data []byte) Rec {
	rec := RecListHeader{recHeader: b}
	if len(data) >= 2 {
		rec.ParaCount = int16(binary.LittleEndian.Uint16(data[0:]))
	}
	if len(data) >= 8 {
		rec.Property = binary.LittleEndian.Uint32(data[4:])
	}
	if len(data) >= 16 {
		rec.HasCell = true
		rec.ColIndex = binary.LittleEndian.Uint16(data[8:])
		rec.RowIndex = binary.LittleEndian.Uint16(data[10:])
		rec.ColSpan = max(binary.LittleEndian.Uint16(data[12:]), 1)
		rec.RowSpan = max(binary.LittleEndian.Uint16(data[14:]), 1)
	}
	return rec
}

// decodeEqScript reads the script of an EQEDIT record: a property word,
// then a length-prefixed UTF-16 string.
func decodeEqScript(data []byte) string {
	if len(data) < 6 {
		return ""
	}
	n := int(binary.LittleEndian.Uint16(data[4:]))
	body := data[6:]
	if n*2 < len(body) {
		body = body[:n*2]
	}
	return decodeUTF16(body)
}
