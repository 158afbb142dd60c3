package hwpv5

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/richardlehane/msoleps"
	"github.com/richardlehane/msoleps/types"

	"github.com/hanpama/hwarang/internal/document"
	"github.com/hanpama/hwarang/internal/hwperr"
)

const summaryStream = "\x05HwpSummaryInformation"

// fmtidSummaryInformation is {F29F85E0-4FF9-1068-AB91-08002B27B3D9} in
// stored byte order. HWP writes its own FMTID over the same property IDs,
// so the stream is relabelled before decoding to get named properties.
var fmtidSummaryInformation = []byte{
	0xE0, 0x85, 0x9F, 0xF2, 0xF9, 0x4F, 0x68, 0x10,
	0xAB, 0x91, 0x08, 0x00, 0x2B, 0x27, 0xB3, 0xD9,
}

// parseSummary decodes the HwpSummaryInformation property set.
func parseSummary(data []byte) (meta document.Metadata, err error) {
	if len(data) < 48 {
		return meta, hwperr.Parsef("summary stream is %d bytes", len(data))
	}
	buf := bytes.Clone(data)
	copy(buf[28:44], fmtidSummaryInformation)

	defer func() {
		if r := recover(); r != nil {
			meta = document.Metadata{}
			err = hwperr.Parsef("malformed summary property set: %v", r)
		}
	}()

	props, perr := msoleps.NewFrom(bytes.NewReader(buf))
	if perr != nil {
		return meta, hwperr.Wrap(hwperr.KindParse, "summary property set", perr)
	}
	for _, p := range props.Property {
		if p == nil || p.T == nil {
			continue
		}
		switch p.Name {
		case "Title":
			meta.Title = propString(p.T)
		case "Subject":
			meta.Subject = propString(p.T)
		case "Author":
			meta.Author = propString(p.T)
		case "Keywords":
			meta.Keywords = propString(p.T)
		case "Comments":
			meta.Comments = propString(p.T)
		case "LastAuthor":
			meta.LastAuthor = propString(p.T)
		case "CreateTime":
			meta.Created = propTime(p.T)
		case "LastSaveTime":
			meta.Modified = propTime(p.T)
		}
	}
	return meta, nil
}

func propString(t types.Type) string {
	switch v := t.(type) {
	case types.UnicodeString:
		s := string(utf16.Decode(v))
		if i := strings.IndexByte(s, 0); i >= 0 {
			s = s[:i]
		}
		return s
	case *types.CodeString:
		if bytes.IndexByte(v.Chars, 0) < 0 {
			return string(v.Chars)
		}
		return v.String()
	}
	return fmt.Sprint(t)
}

func propTime(t types.Type) time.Time {
	ft, ok := t.(types.FileTime)
	if !ok || (ft.Low == 0 && ft.High == 0) {
		return time.Time{}
	}
	return ft.Time().UTC()
}
