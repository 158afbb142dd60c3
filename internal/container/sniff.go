package container

import (
	"bytes"
	"strings"

	"github.com/hanpama/hwarang/internal/hwperr"
)

// Format identifies the document container.
type Format int

const (
	FormatUnknown Format = iota
	FormatHWP
	FormatHWPX
)

func (f Format) String() string {
	switch f {
	case FormatHWP:
		return "hwp"
	case FormatHWPX:
		return "hwpx"
	}
	return "unknown"
}

// SniffLen is the number of leading bytes Sniff needs.
const SniffLen = 32

var (
	cfbMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	zipMagic = []byte("PK\x03\x04")

	// HWP 2.x/3.x files are flat and start with a text signature.
	legacySignature = []byte("HWP Document File V")
)

// Sniff identifies the container from its leading bytes.
func Sniff(prefix []byte) (Format, error) {
	switch {
	case bytes.HasPrefix(prefix, cfbMagic):
		return FormatHWP, nil
	case bytes.HasPrefix(prefix, zipMagic):
		return FormatHWPX, nil
	case bytes.HasPrefix(prefix, legacySignature):
		return FormatUnknown, hwperr.UnsupportedVersion(legacyVersion(prefix[len(legacySignature):]))
	}
	return FormatUnknown, hwperr.InvalidSignature("unknown leading magic")
}

// legacyVersion turns "3.00 ..." into "3.0.0.0".
func legacyVersion(b []byte) string {
	major, _, _ := strings.Cut(string(b), ".")
	if len(major) != 1 || major[0] < '0' || major[0] > '9' {
		return "unknown"
	}
	return major + ".0.0.0"
}
