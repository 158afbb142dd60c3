package hwpv5

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"github.com/hanpama/hwarang/internal/hwperr"
	"github.com/hanpama/hwarang/internal/hwptest"
)

func TestParseRecords(t *testing.T) {
	var data []byte
	data = append(data, hwptest.Paragraph(0, "Hi")...)
	data = append(data, hwptest.Record(0x3FE, 2, []byte{1, 2, 3})...)
	data = append(data, hwptest.Record(hwptest.TagParaText, 1, bytes.Repeat([]byte{'a', 0}, 3000))...)

	recs, err := ParseRecords(data)
	if err != nil {
		t.Fatalf("ParseRecords: %v", err)
	}
	if len(recs) != 6 {
		t.Fatalf("got %d records, want 6", len(recs))
	}

	if _, ok := recs[0].(RecParaHeader); !ok {
		t.Errorf("record 0 is %T", recs[0])
	}
	text, ok := recs[1].(RecParaText)
	if !ok {
		t.Fatalf("record 1 is %T", recs[1])
	}
	if s, _ := paraTextString(text.Els); s != "Hi" {
		t.Errorf("text = %q", s)
	}
	if recs[1].Lvl() != 1 || recs[1].Off() != 4+22 {
		t.Errorf("record 1 level/offset = %d/%d", recs[1].Lvl(), recs[1].Off())
	}

	unk, ok := recs[4].(RecUnknown)
	if !ok {
		t.Fatalf("record 4 is %T", recs[4])
	}
	if unk.Tag() != 0x3FE || !bytes.Equal(unk.Data, []byte{1, 2, 3}) {
		t.Errorf("unknown record = %#x %v", unk.Tag(), unk.Data)
	}

	long := recs[5].(RecParaText)
	if long.Len() != 6000 {
		t.Errorf("extended size = %d, want 6000", long.Len())
	}
}

func TestParseRecordsIdempotent(t *testing.T) {
	data := hwptest.Table(0, 2, 2, "a", "b", "c", "d")
	first, err := ParseRecords(data)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ParseRecords(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("parsing the same bytes twice gave different records")
	}
}

func TestParseRecordsZeroSize(t *testing.T) {
	recs, err := ParseRecords(hwptest.Record(hwptest.TagCtrlHeader, 0, nil))
	if err != nil {
		t.Fatal(err)
	}
	ctrl := recs[0].(RecCtrlHeader)
	if ctrl.CtrlID != 0 || ctrl.Len() != 0 {
		t.Errorf("zero sized ctrl header = %+v", ctrl)
	}
}

func TestParseRecordsInvalidHeader(t *testing.T) {
	good := hwptest.Paragraph(0, "ok")

	oversize := make([]byte, 4)
	binary.LittleEndian.PutUint32(oversize, hwptest.TagParaText|100<<20)
	oversize = append(oversize, 1, 2, 3)

	extended := make([]byte, 6)
	binary.LittleEndian.PutUint32(extended, hwptest.TagParaText|0xFFF<<20)

	tests := []struct {
		name string
		tail []byte
	}{
		{"truncated header", []byte{0x42, 0x00}},
		{"size past end", oversize},
		{"truncated extended size", extended},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := append(bytes.Clone(good), tt.tail...)
			recs, err := ParseRecords(data)
			if !errors.Is(err, hwperr.ErrInvalidRecordHeader) {
				t.Fatalf("err = %v, want InvalidRecordHeader", err)
			}
			var e *hwperr.Error
			errors.As(err, &e)
			if e.Offset != int64(len(good)) {
				t.Errorf("offset = %d, want %d", e.Offset, len(good))
			}
			if len(recs) != 4 {
				t.Errorf("got %d records before the failure, want 4", len(recs))
			}
		})
	}
}

func TestDecodeListHeader(t *testing.T) {
	recs, err := ParseRecords(hwptest.CellListHeader(2, 1, 3, 0, 2, 1))
	if err != nil {
		t.Fatal(err)
	}
	lh := recs[0].(RecListHeader)
	if !lh.HasCell || lh.RowIndex != 1 || lh.ColIndex != 3 {
		t.Errorf("cell address = %+v", lh)
	}
	if lh.RowSpan != 1 || lh.ColSpan != 2 {
		t.Errorf("spans = %d/%d, want 1/2", lh.RowSpan, lh.ColSpan)
	}

	recs, _ = ParseRecords(hwptest.ListHeader(3, 2))
	if lh := recs[0].(RecListHeader); lh.HasCell || lh.ParaCount != 2 {
		t.Errorf("plain list header = %+v", lh)
	}
}

func TestDecodeEqScript(t *testing.T) {
	script := hwptest.UTF16("a over b")
	p := make([]byte, 6, 6+len(script)+8)
	binary.LittleEndian.PutUint16(p[4:], uint16(len(script)/2))
	p = append(p, script...)
	p = append(p, make([]byte, 8)...)

	recs, err := ParseRecords(hwptest.Record(hwptest.TagEqEdit, 2, p))
	if err != nil {
		t.Fatal(err)
	}
	if got := recs[0].(RecEqEdit).Script; got != "a over b" {
		t.Errorf("script = %q", got)
	}
}
