// Package ferr defines the error kinds returned by the flac decoder.
//
// The decoder distinguishes a handful of failure kinds so that callers can
// tell a malformed bitstream (DataFormat, CrcMismatch) apart from a caller
// bug (IllegalArgument, IllegalState) and from a failure of the underlying
// byte source (IoFailure). Clean end of stream is reported as io.EOF, per
// the io.Reader convention, and is not a Kind.
package ferr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies the cause of an Error.
type Kind int

// Error kinds returned by the decoder.
const (
	// DataFormat indicates that the bitstream violates the FLAC format, e.g.
	// a reserved field was set or a value fell outside its legal range.
	DataFormat Kind = iota
	// CrcMismatch indicates that a CRC-8 frame header checksum or CRC-16
	// frame footer checksum did not match the computed checksum.
	CrcMismatch
	// UnexpectedEof indicates that the byte source ran out of data in the
	// middle of a structure that had already started being read.
	UnexpectedEof
	// IllegalArgument indicates that a caller supplied an invalid argument,
	// such as an out-of-range bit width or Rice parameter.
	IllegalArgument
	// IllegalState indicates that an API was called in a state that does not
	// support it, such as reading bytes or requesting a CRC while not
	// byte-aligned, or seeking a source that cannot seek. Concurrent or
	// reentrant frame decoding on one decoder is not detected.
	IllegalState
	// IoFailure indicates that the underlying byte source returned an error
	// other than a clean or unexpected end of stream.
	IoFailure
)

func (k Kind) String() string {
	switch k {
	case DataFormat:
		return "data format"
	case CrcMismatch:
		return "crc mismatch"
	case UnexpectedEof:
		return "unexpected eof"
	case IllegalArgument:
		return "illegal argument"
	case IllegalState:
		return "illegal state"
	case IoFailure:
		return "io failure"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned for every non-io.EOF failure.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("flac: %s: %s: %v", e.Kind, e.msg, e.err)
	}
	return fmt.Sprintf("flac: %s: %s", e.Kind, e.msg)
}

// Unwrap exposes the wrapped error, if any, to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.err
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

func newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// DataFormatf returns a DataFormat error.
func DataFormatf(format string, args ...interface{}) error {
	return newf(DataFormat, format, args...)
}

// CrcMismatchf returns a CrcMismatch error.
func CrcMismatchf(format string, args ...interface{}) error {
	return newf(CrcMismatch, format, args...)
}

// IllegalArgumentf returns an IllegalArgument error.
func IllegalArgumentf(format string, args ...interface{}) error {
	return newf(IllegalArgument, format, args...)
}

// IllegalStatef returns an IllegalState error.
func IllegalStatef(format string, args ...interface{}) error {
	return newf(IllegalState, format, args...)
}

// NewUnexpectedEof wraps err, which terminated a structure partway through
// being read, as an UnexpectedEof error.
func NewUnexpectedEof(err error) error {
	return &Error{Kind: UnexpectedEof, msg: "unexpected end of stream", err: err}
}

// IoFailuref wraps err, an error returned by the underlying byte source, as
// an IoFailure error.
func IoFailuref(err error, format string, args ...interface{}) error {
	return &Error{Kind: IoFailure, msg: fmt.Sprintf(format, args...), err: err}
}
