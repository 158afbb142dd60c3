package hwptest

import (
	"encoding/binary"
	"time"
	"unicode/utf16"
)

// Summary property IDs.
const (
	PIDTitle        = 2
	PIDSubject      = 3
	PIDAuthor       = 4
	PIDKeywords     = 5
	PIDComments     = 6
	PIDLastAuthor   = 8
	PIDCreateTime   = 12
	PIDLastSaveTime = 13
)

// SummaryStream is the stream name of the summary property set.
const SummaryStream = "\x05HwpSummaryInformation"

// hwpSummaryFMTID is {9FA2B660-1061-11D4-B4C6-006097C09D8C} in stored order.
var hwpSummaryFMTID = []byte{
	0x60, 0xB6, 0xA2, 0x9F, 0x61, 0x10, 0xD4, 0x11,
	0xB4, 0xC6, 0x00, 0x60, 0x97, 0xC0, 0x9D, 0x8C,
}

// Property is one summary value: a string or a time.Time.
type Property struct {
	ID    uint32
	Value any
}

// SummaryInformation encodes a single-section property set stream.
func SummaryInformation(props ...Property) []byte {
	var values [][]byte
	for _, p := range props {
		values = append(values, encodeProperty(p.Value))
	}

	table := 8 + len(props)*8
	set := make([]byte, table)
	binary.LittleEndian.PutUint32(set[4:], uint32(len(props)))
	off := table
	for i, p := range props {
		binary.LittleEndian.PutUint32(set[8+i*8:], p.ID)
		binary.LittleEndian.PutUint32(set[12+i*8:], uint32(off))
		set = append(set, values[i]...)
		off += len(values[i])
	}
	binary.LittleEndian.PutUint32(set[0:], uint32(len(set)))

	head := make([]byte, 48)
	binary.LittleEndian.PutUint16(head[0:], 0xFFFE)
	binary.LittleEndian.PutUint32(head[24:], 1)
	copy(head[28:44], hwpSummaryFMTID)
	binary.LittleEndian.PutUint32(head[44:], 48)
	return append(head, set...)
}

func encodeProperty(v any) []byte {
	switch v := v.(type) {
	case string:
		units := append(utf16.Encode([]rune(v)), 0)
		b := make([]byte, 8+len(units)*2)
		binary.LittleEndian.PutUint16(b[0:], 0x1F) // VT_LPWSTR
		binary.LittleEndian.PutUint32(b[4:], uint32(len(units)))
		for i, u := range units {
			binary.LittleEndian.PutUint16(b[8+i*2:], u)
		}
		for len(b)%4 != 0 {
			b = append(b, 0)
		}
		return b
	case time.Time:
		b := make([]byte, 12)
		binary.LittleEndian.PutUint16(b[0:], 0x40) // VT_FILETIME
		ft := uint64(v.Unix()+11644473600) * 10000000
		binary.LittleEndian.PutUint64(b[4:], ft)
		return b
	}
	panic("hwptest: unsupported property value")
}
