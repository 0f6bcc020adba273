// Package stream frames propbag documents for transport.
//
// A frame is a one-line text header followed by the payload:
//
//	@frame{v=1 sid=N seq=N kind=doc len=N [crc=XXXXXXXX] [flags=XX] [final=true]}\n
//	<payload bytes>\n
//
// Frames provide message boundaries, per-stream sequencing and optional
// CRC-32 integrity on top of the document's own checksum. Payloads may be
// zstd-compressed; compressed payloads are base64 so frames stay text.
//
// Frame headers are not part of the document: the payload of a doc frame is
// passed to propbag unchanged.
package stream

import (
	"fmt"
	"hash/crc32"
)

// Version is the frame protocol version.
const Version uint8 = 1

// FrameKind indicates what a frame's payload holds.
type FrameKind uint8

const (
	KindDoc FrameKind = 0 // a propbag document
	KindAck FrameKind = 1 // acknowledgement, no payload
	KindErr FrameKind = 2 // error text
)

// String returns the kind name.
func (k FrameKind) String() string {
	switch k {
	case KindDoc:
		return "doc"
	case KindAck:
		return "ack"
	case KindErr:
		return "err"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// ParseKind parses a kind name or its numeric value.
func ParseKind(s string) (FrameKind, bool) {
	switch s {
	case "doc", "0":
		return KindDoc, true
	case "ack", "1":
		return KindAck, true
	case "err", "2":
		return KindErr, true
	default:
		return 0, false
	}
}

// Flags for frames.
type Flags uint8

const (
	FlagFinal      Flags = 0x04 // end of stream for this SID
	FlagCompressed Flags = 0x08 // payload is base64 zstd
)

// Frame is a single frame. Payload always holds the decoded bytes; the
// compressed wire form exists only between Writer and Reader.
type Frame struct {
	Version uint8
	SID     uint64
	Seq     uint64
	Kind    FrameKind
	Payload []byte

	CRC   *uint32 // CRC-32 of the wire payload, nil if absent
	Flags Flags
	Final bool
}

// IsFinal reports whether this is the last frame for its SID.
func (f *Frame) IsFinal() bool {
	return f.Final || f.Flags&FlagFinal != 0
}

// Document returns the payload of a doc frame as a document string.
func (f *Frame) Document() (string, bool) {
	if f.Kind != KindDoc {
		return "", false
	}
	return string(f.Payload), true
}

// MaxPayloadSize is the default maximum wire payload size (1 MiB).
const MaxPayloadSize = 1 << 20

var crcTable = crc32.MakeTable(crc32.IEEE)

// ComputeCRC computes the IEEE CRC-32 of data.
func ComputeCRC(data []byte) uint32 {
	return crc32.Checksum(data, crcTable)
}

// ParseError describes a malformed frame.
type ParseError struct {
	Reason string
	Offset int
}

func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("stream: %s at offset %d", e.Reason, e.Offset)
	}
	return fmt.Sprintf("stream: %s", e.Reason)
}

// CRCMismatchError is returned when CRC verification fails.
type CRCMismatchError struct {
	Expected uint32
	Got      uint32
}

func (e *CRCMismatchError) Error() string {
	return fmt.Sprintf("stream: CRC mismatch: expected %08x, got %08x", e.Expected, e.Got)
}

// SequenceError is returned by a Cursor for duplicate or missing frames.
type SequenceError struct {
	SID      uint64
	Expected uint64
	Got      uint64
}

func (e *SequenceError) Error() string {
	if e.Got < e.Expected {
		return fmt.Sprintf("stream: sid %d: duplicate or reordered seq %d, expected %d", e.SID, e.Got, e.Expected)
	}
	return fmt.Sprintf("stream: sid %d: sequence gap, expected %d, got %d", e.SID, e.Expected, e.Got)
}
