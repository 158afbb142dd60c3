package hwpv5

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"

	"github.com/hanpama/hwarang/internal/hwperr"
)

// Inflate decompresses a raw deflate stream. Some writers emit a zlib
// wrapper instead, so a failed raw inflate is retried as zlib when the
// payload starts with a zlib header. Output is capped at limit bytes.
func Inflate(data []byte, sizeHint int, limit int64) ([]byte, error) {
	if len(data) == 0 {
		return []byte{}, nil
	}

	out, err := inflateWith(flate.NewReader(bytes.NewReader(data)), sizeHint, limit)
	if err == nil {
		return out, nil
	}
	if hasZlibHeader(data) {
		if zr, zerr := zlib.NewReader(bytes.NewReader(data)); zerr == nil {
			if out, zerr := inflateWith(zr, sizeHint, limit); zerr == nil {
				return out, nil
			}
		}
	}
	return nil, hwperr.DecompressFailed(err)
}

func inflateWith(r io.ReadCloser, sizeHint int, limit int64) ([]byte, error) {
	defer r.Close()

	var buf bytes.Buffer
	if sizeHint > 0 && int64(sizeHint) <= limit {
		buf.Grow(sizeHint)
	}
	n, err := buf.ReadFrom(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if n > limit {
		return nil, fmt.Errorf("inflated size exceeds %d bytes", limit)
	}
	return buf.Bytes(), nil
}

func hasZlibHeader(b []byte) bool {
	if len(b) < 2 {
		return false
	}
	return b[0]&0x0F == 8 && (uint16(b[0])<<8|uint16(b[1]))%31 == 0
}
