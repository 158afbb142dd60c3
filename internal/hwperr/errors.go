// Package hwperr defines the error kinds reported while decoding HWP and HWPX documents.
package hwperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a decoding failure. Kinds never overlap.
type Kind int

const (
	KindUnknown Kind = iota
	KindFile
	KindInvalidSignature
	KindUnsupportedVersion
	KindPasswordProtected
	KindStreamNotFound
	KindInvalidRecordHeader
	KindDecompressFailed
	KindDecryptFailed
	KindParse
	KindUnsupportedFormat
	KindHwpx
)

var kindNames = [...]string{
	KindUnknown:             "Unknown",
	KindFile:                "FileError",
	KindInvalidSignature:    "InvalidSignature",
	KindUnsupportedVersion:  "UnsupportedVersion",
	KindPasswordProtected:   "PasswordProtected",
	KindStreamNotFound:      "StreamNotFound",
	KindInvalidRecordHeader: "InvalidRecordHeader",
	KindDecompressFailed:    "DecompressFailed",
	KindDecryptFailed:       "DecryptFailed",
	KindParse:               "Parse",
	KindUnsupportedFormat:   "UnsupportedFormat",
	KindHwpx:                "Hwpx",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Error is the single error type returned by the decoder packages.
// Stream and Offset locate the failure when known; Offset is -1 otherwise.
type Error struct {
	Kind    Kind
	Stream  string
	Offset  int64
	Version string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	switch e.Kind {
	case KindFile:
		b.WriteString("file error")
	case KindInvalidSignature:
		b.WriteString("invalid signature")
	case KindUnsupportedVersion:
		b.WriteString("unsupported version")
		if e.Version != "" {
			b.WriteString(" ")
			b.WriteString(e.Version)
		}
	case KindPasswordProtected:
		b.WriteString("document is password protected")
	case KindStreamNotFound:
		b.WriteString("stream not found: ")
		b.WriteString(e.Stream)
	case KindInvalidRecordHeader:
		b.WriteString("invalid record header")
	case KindDecompressFailed:
		b.WriteString("decompress failed")
	case KindDecryptFailed:
		b.WriteString("decrypt failed")
	case KindParse:
		b.WriteString("parse error")
	case KindUnsupportedFormat:
		b.WriteString("unsupported format")
	case KindHwpx:
		b.WriteString("hwpx error")
	default:
		b.WriteString("hwp error")
	}
	if e.Stream != "" && e.Kind != KindStreamNotFound {
		fmt.Fprintf(&b, " in %s", e.Stream)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind, so sentinels
// such as ErrPasswordProtected match any error of that kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrFile                = &Error{Kind: KindFile, Offset: -1}
	ErrInvalidSignature    = &Error{Kind: KindInvalidSignature, Offset: -1}
	ErrUnsupportedVersion  = &Error{Kind: KindUnsupportedVersion, Offset: -1}
	ErrPasswordProtected   = &Error{Kind: KindPasswordProtected, Offset: -1}
	ErrStreamNotFound      = &Error{Kind: KindStreamNotFound, Offset: -1}
	ErrInvalidRecordHeader = &Error{Kind: KindInvalidRecordHeader, Offset: -1}
	ErrDecompressFailed    = &Error{Kind: KindDecompressFailed, Offset: -1}
	ErrDecryptFailed       = &Error{Kind: KindDecryptFailed, Offset: -1}
	ErrParse               = &Error{Kind: KindParse, Offset: -1}
	ErrUnsupportedFormat   = &Error{Kind: KindUnsupportedFormat, Offset: -1}
	ErrHwpx                = &Error{Kind: KindHwpx, Offset: -1}
)

func newErr(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Offset: -1, Detail: detail}
}

// File wraps an I/O failure on the source.
func File(err error) *Error {
	return &Error{Kind: KindFile, Offset: -1, Err: err}
}

func InvalidSignature(detail string) *Error {
	return newErr(KindInvalidSignature, detail)
}

func UnsupportedVersion(version string) *Error {
	return &Error{Kind: KindUnsupportedVersion, Offset: -1, Version: version}
}

func PasswordProtected() *Error {
	return newErr(KindPasswordProtected, "")
}

func StreamNotFound(name string) *Error {
	return &Error{Kind: KindStreamNotFound, Offset: -1, Stream: name}
}

func InvalidRecordHeader(offset int64, detail string) *Error {
	return &Error{Kind: KindInvalidRecordHeader, Offset: offset, Detail: detail}
}

func DecompressFailed(err error) *Error {
	return &Error{Kind: KindDecompressFailed, Offset: -1, Err: err}
}

func DecryptFailed(detail string) *Error {
	return newErr(KindDecryptFailed, detail)
}

func Parse(detail string) *Error {
	return newErr(KindParse, detail)
}

func Parsef(format string, args ...any) *Error {
	return newErr(KindParse, fmt.Sprintf(format, args...))
}

func UnsupportedFormat(detail string) *Error {
	return newErr(KindUnsupportedFormat, detail)
}

func Hwpx(detail string, err error) *Error {
	return &Error{Kind: KindHwpx, Offset: -1, Detail: detail, Err: err}
}

// InStream records the stream an error came from, unless one is already set.
// Errors that are not *Error are returned unchanged.
func InStream(err error, stream string) error {
	var e *Error
	if !errors.As(err, &e) {
		return err
	}
	if e.Stream == "" {
		e.Stream = stream
	}
	return err
}

// KindOf returns the kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Wrap builds an error of any kind around a cause.
func Wrap(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Offset: -1, Detail: detail, Err: err}
}
