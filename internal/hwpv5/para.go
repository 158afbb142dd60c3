package hwpv5

import (
	"encoding/binary"

	"golang.org/x/text/encoding/unicode"
)

const (
	// Char controls occupy one code unit.
	paraTextCodeUnusable  uint16 = 0
	paraTextCodeLineBreak uint16 = 10 // 한 줄 끝 (Line break)
	paraTextCodeParaBreak uint16 = 13 // 문단 끝 (Para break)
	paraTextCodeHyphen    uint16 = 24 // 하이픈
	paraTextCodeBundle    uint16 = 30 // 묶음 빈칸
	paraTextCodeFixed     uint16 = 31 // 고정폭 빈칸

	// Inline and extended controls occupy eight code units.
	paraTextCodeReserved1 uint16 = 1
	paraTextCodeTab       uint16 = 9 // 탭

	controlWidth = 8
)

type ParaTextElement interface {
	isParaTextElement()
}

type paraTextBase struct {
	Code uint16
}

func (p paraTextBase) isParaTextElement() {}

type (
	ParaTextString struct {
		paraTextBase
		Value string
	}
	ParaTextTab       struct{ paraTextBase }
	ParaTextLineBreak struct{ paraTextBase }
	ParaTextParaBreak struct{ paraTextBase }
	ParaTextHyphen    struct{ paraTextBase }
	ParaTextSpace     struct{ paraTextBase }
	// ParaTextControl marks an inline or extended control. The object
	// it anchors arrives as nested records.
	ParaTextControl struct {
		paraTextBase
		CtrlID uint32
	}
)

// wideControl reports whether code takes eight code units.
func wideControl(code uint16) bool {
	switch code {
	case paraTextCodeUnusable, paraTextCodeLineBreak, paraTextCodeParaBreak,
		paraTextCodeHyphen, 25, 26, 27, 28, 29, paraTextCodeBundle, paraTextCodeFixed:
		return false
	}
	return code < 32
}

var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// decodeUTF16 decodes UTF-16LE, substituting U+FFFD for unpaired surrogates
// and a dangling odd byte.
func decodeUTF16(b []byte) string {
	out, err := utf16LE.NewDecoder().Bytes(b)
	if err != nil {
		return string([]rune{0xFFFD})
	}
	return string(out)
}

// decodeParaText splits a PARA_TEXT payload into text runs and controls.
func decodeParaText(data []byte) []ParaTextElement {
	var elements []ParaTextElement
	textStart := -1

	flush := func(end int) {
		if textStart >= 0 {
			elements = append(elements, ParaTextString{Value: decodeUTF16(data[textStart:end])})
			textStart = -1
		}
	}

	i := 0
	for i+2 <= len(data) {
		code := binary.LittleEndian.Uint16(data[i:])
		if code >= 32 {
			if textStart < 0 {
				textStart = i
			}
			i += 2
			continue
		}
		flush(i)

		if wideControl(code) {
			el := ParaTextControl{paraTextBase: paraTextBase{code}}
			if i+6 <= len(data) {
				el.CtrlID = binary.LittleEndian.Uint32(data[i+2:])
			}
			switch code {
			case paraTextCodeTab:
				elements = append(elements, ParaTextTab{paraTextBase{code}})
			case paraTextCodeReserved1:
			default:
				elements = append(elements, el)
			}
			i += controlWidth * 2
			continue
		}

		switch code {
		case paraTextCodeLineBreak:
			elements = append(elements, ParaTextLineBreak{paraTextBase{code}})
		case paraTextCodeParaBreak:
			elements = append(elements, ParaTextParaBreak{paraTextBase{code}})
		case paraTextCodeHyphen:
			elements = append(elements, ParaTextHyphen{paraTextBase{code}})
		case paraTextCodeBundle, paraTextCodeFixed:
			elements = append(elements, ParaTextSpace{paraTextBase{code}})
		}
		i += 2
	}
	flush(min(i, len(data)))

	if len(data)%2 == 1 {
		elements = append(elements, ParaTextString{Value: "\uFFFD"})
	}
	return elements
}

// paraTextString renders elements as plain text. It reports whether the
// paragraph anchors any control.
func paraTextString(els []ParaTextElement) (string, bool) {
	var buf []byte
	var hasControl bool
	for _, el := range els {
		switch e := el.(type) {
		case ParaTextString:
			buf = append(buf, e.Value...)
		case ParaTextTab:
			buf = append(buf, '\t')
		case ParaTextLineBreak:
			buf = append(buf, '\n')
		case ParaTextHyphen:
			buf = append(buf, '-')
		case ParaTextSpace:
			buf = append(buf, ' ')
		case ParaTextControl:
			hasControl = true
		}
	}
	return string(buf), hasControl
}
