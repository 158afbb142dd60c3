package hwpv5

import (
	"bytes"
	"errors"
	"testing"

	"github.com/klauspost/compress/zlib"

	"github.com/hanpama/hwarang/internal/hwperr"
	"github.com/hanpama/hwarang/internal/hwptest"
)

func TestInflate(t *testing.T) {
	plain := bytes.Repeat(hwptest.Paragraph(0, "압축된 문단"), 50)
	out, err := Inflate(hwptest.Deflate(plain), len(plain), 1<<20)
	if err != nil {
		t.Fatalf("Inflate: %v", err)
	}
	if !bytes.Equal(out, plain) {
		t.Error("round trip mismatch")
	}
}

func TestInflateZlibWrapped(t *testing.T) {
	plain := []byte("zlib wrapped section body")
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(plain)
	w.Close()

	out, err := Inflate(buf.Bytes(), 0, 1<<20)
	if err != nil {
		t.Fatalf("Inflate: %v", err)
	}
	if !bytes.Equal(out, plain) {
		t.Errorf("got %q", out)
	}
}

func TestInflateEmpty(t *testing.T) {
	out, err := Inflate(nil, 0, 1<<20)
	if err != nil || len(out) != 0 {
		t.Errorf("Inflate(nil) = %v, %v", out, err)
	}
}

func TestInflateFailures(t *testing.T) {
	compressed := hwptest.Deflate(bytes.Repeat([]byte("0123456789"), 1000))

	tests := []struct {
		name  string
		data  []byte
		limit int64
	}{
		{"truncated", compressed[:len(compressed)/2], 1 << 20},
		{"garbage", []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, 1 << 20},
		{"over limit", compressed, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Inflate(tt.data, 0, tt.limit)
			if !errors.Is(err, hwperr.ErrDecompressFailed) {
				t.Errorf("err = %v, want DecompressFailed", err)
			}
		})
	}
}
