package propbag

import (
	"fmt"

	"github.com/pkg/errors"
)

// Encoding errors. These indicate a programming mistake in a WriteProperties
// hook and abort Marshal.
var (
	ErrNameTooLong     = errors.New("propbag: property name longer than 10 bytes")
	ErrPayloadTooLong  = errors.New("propbag: property payload longer than 999 bytes")
	ErrInvalidName     = errors.New("propbag: property name is empty or contains '='")
	ErrUnsupportedType = errors.New("propbag: unsupported property value type")
)

// Decoding errors. A document that fails with one of these is never handed to
// a ReadProperties hook.
var (
	ErrMalformed        = errors.New("propbag: malformed document")
	ErrChecksumMismatch = errors.New("propbag: checksum mismatch")
)

// ParseError describes a malformed document.
type ParseError struct {
	Reason string
	Offset int   // byte offset into the document, or -1
	Err    error // underlying error, if any
}

func (e *ParseError) Error() string {
	msg := "propbag: " + e.Reason
	if e.Offset >= 0 {
		msg = fmt.Sprintf("%s at offset %d", msg, e.Offset)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap lets errors.Is match ErrMalformed and, when set, the underlying
// error.
func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformed}
	}
	return []error{ErrMalformed, e.Err}
}

// Cause returns the underlying error, for github.com/pkg/errors.Cause.
func (e *ParseError) Cause() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrMalformed
}

// ChecksumMismatchError is returned when the trailer does not match the
// checksum recomputed from the tokens.
type ChecksumMismatchError struct {
	Claimed  string   // trailer as found in the document
	Computed Checksum // sum over the payloads actually read
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("propbag: checksum mismatch: document has %s, computed %s", e.Claimed, e.Computed)
}

// Unwrap lets errors.Is match ErrChecksumMismatch.
func (e *ChecksumMismatchError) Unwrap() error {
	return ErrChecksumMismatch
}

// IsCorrupt reports whether err means a document was refused as malformed or
// tampered with, as opposed to an encoding error.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrMalformed) || errors.Is(err, ErrChecksumMismatch)
}
