package hwpv5

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/hanpama/hwarang/internal/hwperr"
)

const (
	signatureText = "HWP Document File"

	// SupportedMajor is the only FileHeader major version this package decodes.
	SupportedMajor = 5

	fileHeaderMinLen = 40
)

// Version stores the four-part HWP version number (MM.nn.PP.rr).
type Version struct {
	Major byte
	Minor byte
	Patch byte
	Rev   byte
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Rev)
}

// Uint32 packs the version the way it is stored.
func (v Version) Uint32() uint32 {
	return uint32(v.Major)<<24 | uint32(v.Minor)<<16 | uint32(v.Patch)<<8 | uint32(v.Rev)
}

// Compare orders versions; it returns -1, 0 or 1.
func (v Version) Compare(o Version) int {
	a, b := v.Uint32(), o.Uint32()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// FileProperties exposes the flag bits of the FileHeader stream.
type FileProperties struct {
	Raw uint32
}

func (p FileProperties) Compressed() bool    { return p.Raw&(1<<0) != 0 }
func (p FileProperties) Encrypted() bool     { return p.Raw&(1<<1) != 0 }
func (p FileProperties) Distribution() bool  { return p.Raw&(1<<2) != 0 }
func (p FileProperties) Script() bool        { return p.Raw&(1<<3) != 0 }
func (p FileProperties) DRM() bool           { return p.Raw&(1<<4) != 0 }
func (p FileProperties) XMLTemplate() bool   { return p.Raw&(1<<5) != 0 }
func (p FileProperties) History() bool       { return p.Raw&(1<<6) != 0 }
func (p FileProperties) Signed() bool        { return p.Raw&(1<<7) != 0 }
func (p FileProperties) CertEncrypted() bool { return p.Raw&(1<<8) != 0 }
func (p FileProperties) CertDRM() bool       { return p.Raw&(1<<10) != 0 }
func (p FileProperties) CCL() bool           { return p.Raw&(1<<11) != 0 }
func (p FileProperties) Mobile() bool        { return p.Raw&(1<<12) != 0 }

// Names lists the set flags, for diagnostics.
func (p FileProperties) Names() []string {
	flags := []struct {
		set  bool
		name string
	}{
		{p.Compressed(), "compressed"},
		{p.Encrypted(), "password"},
		{p.Distribution(), "distribution"},
		{p.Script(), "script"},
		{p.DRM(), "drm"},
		{p.XMLTemplate(), "xml-template"},
		{p.History(), "history"},
		{p.Signed(), "signed"},
		{p.CertEncrypted(), "cert-encrypted"},
		{p.CertDRM(), "cert-drm"},
		{p.CCL(), "ccl"},
		{p.Mobile(), "mobile"},
	}
	var names []string
	for _, f := range flags {
		if f.set {
			names = append(names, f.name)
		}
	}
	return names
}

// FileHeader mirrors the 256-byte FileHeader stream.
type FileHeader struct {
	Signature       string
	Version         Version
	Properties      FileProperties
	SecondFlags     uint32
	EncryptVersion  uint32
	KoglLicenseCode byte
}

// ParseFileHeader validates the signature and version of a FileHeader stream.
// Fields past the flags are optional; older writers emit short headers.
func ParseFileHeader(data []byte) (FileHeader, error) {
	var hdr FileHeader

	sig := data
	if len(sig) > 32 {
		sig = sig[:32]
	}
	hdr.Signature = string(bytes.TrimRight(sig, "\x00"))
	if hdr.Signature != signatureText {
		return hdr, hwperr.InvalidSignature(fmt.Sprintf("unexpected signature %q", hdr.Signature))
	}
	if len(data) < fileHeaderMinLen {
		return hdr, hwperr.Parsef("FileHeader is %d bytes, need at least %d", len(data), fileHeaderMinLen)
	}

	ver := binary.LittleEndian.Uint32(data[32:36])
	hdr.Version = Version{
		Major: byte(ver >> 24),
		Minor: byte(ver >> 16),
		Patch: byte(ver >> 8),
		Rev:   byte(ver),
	}
	hdr.Properties.Raw = binary.LittleEndian.Uint32(data[36:40])

	if len(data) >= 44 {
		hdr.SecondFlags = binary.LittleEndian.Uint32(data[40:44])
	}
	if len(data) >= 48 {
		hdr.EncryptVersion = binary.LittleEndian.Uint32(data[44:48])
	}
	if len(data) >= 49 {
		hdr.KoglLicenseCode = data[48]
	}

	if hdr.Version.Major != SupportedMajor {
		return hdr, hwperr.UnsupportedVersion(hdr.Version.String())
	}
	return hdr, nil
}
