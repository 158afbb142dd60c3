package hwarang

import "github.com/hanpama/hwarang/internal/hwperr"

// Error is the error type returned by every extraction call. Use errors.Is
// with the Err sentinels to test its kind, or errors.As to read the stream
// and offset it refers to.
type Error = hwperr.Error

// Kind classifies an Error.
type Kind = hwperr.Kind

const (
	KindFile                = hwperr.KindFile
	KindInvalidSignature    = hwperr.KindInvalidSignature
	KindUnsupportedVersion  = hwperr.KindUnsupportedVersion
	KindPasswordProtected   = hwperr.KindPasswordProtected
	KindStreamNotFound      = hwperr.KindStreamNotFound
	KindInvalidRecordHeader = hwperr.KindInvalidRecordHeader
	KindDecompressFailed    = hwperr.KindDecompressFailed
	KindDecryptFailed       = hwperr.KindDecryptFailed
	KindParse               = hwperr.KindParse
	KindUnsupportedFormat   = hwperr.KindUnsupportedFormat
	KindHwpx                = hwperr.KindHwpx
)

// Sentinels matching any Error of the same kind.
var (
	ErrFile                = hwperr.ErrFile
	ErrInvalidSignature    = hwperr.ErrInvalidSignature
	ErrUnsupportedVersion  = hwperr.ErrUnsupportedVersion
	ErrPasswordProtected   = hwperr.ErrPasswordProtected
	ErrStreamNotFound      = hwperr.ErrStreamNotFound
	ErrInvalidRecordHeader = hwperr.ErrInvalidRecordHeader
	ErrDecompressFailed    = hwperr.ErrDecompressFailed
	ErrDecryptFailed       = hwperr.ErrDecryptFailed
	ErrParse               = hwperr.ErrParse
	ErrUnsupportedFormat   = hwperr.ErrUnsupportedFormat
	ErrHwpx                = hwperr.ErrHwpx
)

// KindOf returns the kind of err, or zero when err is not an Error.
func KindOf(err error) Kind { return hwperr.KindOf(err) }
