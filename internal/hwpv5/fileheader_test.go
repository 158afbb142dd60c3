package hwpv5

import (
	"errors"
	"testing"

	"github.com/hanpama/hwarang/internal/hwperr"
	"github.com/hanpama/hwarang/internal/hwptest"
)

func TestParseFileHeader(t *testing.T) {
	flags := uint32(hwptest.FlagCompressed | hwptest.FlagDistribution | 1<<11)
	data := hwptest.FileHeader(0x05010203, flags)
	data[48] = 6

	hdr, err := ParseFileHeader(data)
	if err != nil {
		t.Fatalf("ParseFileHeader: %v", err)
	}
	if hdr.Signature != "HWP Document File" {
		t.Errorf("signature = %q", hdr.Signature)
	}
	if got := hdr.Version.String(); got != "5.1.2.3" {
		t.Errorf("version = %s, want 5.1.2.3", got)
	}
	if hdr.Properties.Raw != flags {
		t.Errorf("flags = %#x, want %#x", hdr.Properties.Raw, flags)
	}
	if !hdr.Properties.Compressed() || !hdr.Properties.Distribution() || !hdr.Properties.CCL() {
		t.Errorf("flag predicates wrong: %v", hdr.Properties.Names())
	}
	if hdr.Properties.Encrypted() {
		t.Error("password flag reported but not set")
	}
	if hdr.KoglLicenseCode != 6 {
		t.Errorf("kogl = %d, want 6", hdr.KoglLicenseCode)
	}
}

func TestParseFileHeaderErrors(t *testing.T) {
	short := hwptest.FileHeader(hwptest.Version5030, 0)[:36]
	badSig := hwptest.FileHeader(hwptest.Version5030, 0)
	copy(badSig, "HWP Document Fill")

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"bad signature", badSig, hwperr.ErrInvalidSignature},
		{"empty", nil, hwperr.ErrInvalidSignature},
		{"short", short, hwperr.ErrParse},
		{"version 3", hwptest.FileHeader(0x03000000, 0), hwperr.ErrUnsupportedVersion},
		{"version 6", hwptest.FileHeader(0x06000000, 0), hwperr.ErrUnsupportedVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFileHeader(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want kind %v", err, hwperr.KindOf(tt.want))
			}
		})
	}
}

func TestUnsupportedVersionCarriesVersion(t *testing.T) {
	_, err := ParseFileHeader(hwptest.FileHeader(0x04020100, 0))
	var e *hwperr.Error
	if !errors.As(err, &e) {
		t.Fatalf("err = %v, want *hwperr.Error", err)
	}
	if e.Version != "4.2.1.0" {
		t.Errorf("version = %q, want 4.2.1.0", e.Version)
	}
}

func TestVersionCompare(t *testing.T) {
	a := Version{Major: 5, Minor: 0, Patch: 3, Rev: 0}
	b := Version{Major: 5, Minor: 1}
	if a.Compare(b) != -1 || b.Compare(a) != 1 || a.Compare(a) != 0 {
		t.Errorf("compare order wrong")
	}
	if a.Uint32() != hwptest.Version5030 {
		t.Errorf("Uint32 = %#x", a.Uint32())
	}
}

func TestCheckProtection(t *testing.T) {
	tests := []struct {
		flags uint32
		want  error
	}{
		{0, nil},
		{hwptest.FlagCompressed, nil},
		{hwptest.FlagPassword, hwperr.ErrPasswordProtected},
		{hwptest.FlagPassword | hwptest.FlagDRM, hwperr.ErrPasswordProtected},
		{hwptest.FlagDRM, hwperr.ErrDecryptFailed},
		{1 << 8, hwperr.ErrDecryptFailed},
		{hwptest.FlagDistribution, nil},
	}
	for _, tt := range tests {
		err := CheckProtection(FileHeader{Properties: FileProperties{Raw: tt.flags}})
		if tt.want == nil {
			if err != nil {
				t.Errorf("flags %#x: unexpected error %v", tt.flags, err)
			}
			continue
		}
		if !errors.Is(err, tt.want) {
			t.Errorf("flags %#x: err = %v, want %v", tt.flags, err, tt.want)
		}
	}
}
