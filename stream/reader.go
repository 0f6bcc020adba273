package stream

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/Neumenon/propbag/propbag"
	"github.com/pkg/errors"
)

// Reader reads frames from an io.Reader.
type Reader struct {
	r          *bufio.Reader
	maxPayload int
	verifyCRC  bool
	verifyDocs bool
	offset     int
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxPayload sets the maximum payload size (default: 1 MiB). It applies
// to both the wire payload and the decompressed payload.
func WithMaxPayload(max int) ReaderOption {
	return func(r *Reader) {
		r.maxPayload = max
	}
}

// WithoutCRCVerification skips CRC checks. CRCs are verified by default.
func WithoutCRCVerification() ReaderOption {
	return func(r *Reader) {
		r.verifyCRC = false
	}
}

// WithDocumentVerification runs propbag.Verify on every doc frame, so a
// damaged document is reported by Next instead of by a later Unmarshal.
func WithDocumentVerification() ReaderOption {
	return func(r *Reader) {
		r.verifyDocs = true
	}
}

// NewReader creates a frame reader.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	reader := &Reader{
		r:          bufio.NewReader(r),
		maxPayload: MaxPayloadSize,
		verifyCRC:  true,
	}
	for _, opt := range opts {
		opt(reader)
	}
	return reader
}

// Next reads and returns the next frame.
// Returns io.EOF when no more frames are available.
func (r *Reader) Next() (*Frame, error) {
	headerLine, err := r.r.ReadString('\n')
	if err != nil {
		if err == io.EOF && strings.TrimSpace(headerLine) == "" {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, "read header")
	}
	start := r.offset
	r.offset += len(headerLine)

	frame, payloadLen, err := parseHeader(headerLine, start)
	if err != nil {
		return nil, err
	}
	if payloadLen > r.maxPayload {
		return nil, &ParseError{Reason: "payload too large: " + strconv.Itoa(payloadLen) + " > " + strconv.Itoa(r.maxPayload), Offset: start}
	}

	var wire []byte
	if payloadLen > 0 {
		wire = make([]byte, payloadLen)
		if _, err := io.ReadFull(r.r, wire); err != nil {
			return nil, errors.Wrap(err, "read payload")
		}
		r.offset += payloadLen
	}

	// Trailing newline is optional at EOF.
	if b, err := r.r.ReadByte(); err == nil {
		if b != '\n' {
			r.r.UnreadByte()
		} else {
			r.offset++
		}
	}

	if r.verifyCRC && frame.CRC != nil {
		if computed := ComputeCRC(wire); computed != *frame.CRC {
			return nil, &CRCMismatchError{Expected: *frame.CRC, Got: computed}
		}
	}

	frame.Payload = wire
	if frame.Flags&FlagCompressed != 0 && len(wire) > 0 {
		if frame.Payload, err = decompress(wire, r.maxPayload); err != nil {
			return nil, errors.Wrapf(err, "sid %d seq %d", frame.SID, frame.Seq)
		}
	}

	if r.verifyDocs && frame.Kind == KindDoc {
		if _, err := propbag.Verify(string(frame.Payload)); err != nil {
			return nil, errors.Wrapf(err, "sid %d seq %d", frame.SID, frame.Seq)
		}
	}

	return frame, nil
}

// ReadAll reads all frames until EOF.
func (r *Reader) ReadAll() ([]*Frame, error) {
	var frames []*Frame
	for {
		frame, err := r.Next()
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, frame)
	}
}

// parseHeader parses the @frame{...} line and returns the wire payload length.
func parseHeader(line string, offset int) (*Frame, int, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "@frame{") {
		return nil, 0, &ParseError{Reason: "expected @frame{", Offset: offset}
	}
	end := strings.LastIndex(line, "}")
	if end < 0 {
		return nil, 0, &ParseError{Reason: "missing closing }", Offset: offset + len(line)}
	}

	frame := &Frame{Version: Version}
	payloadLen := 0
	for _, pair := range splitPairs(line[len("@frame{"):end]) {
		eq := strings.IndexByte(pair, '=')
		if eq < 0 {
			continue
		}
		key, val := pair[:eq], pair[eq+1:]

		switch key {
		case "v":
			v, err := strconv.ParseUint(val, 10, 8)
			if err != nil || uint8(v) != Version {
				return nil, 0, &ParseError{Reason: "unsupported version " + strconv.Quote(val), Offset: offset}
			}
			frame.Version = uint8(v)
		case "sid":
			sid, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return nil, 0, &ParseError{Reason: "invalid sid", Offset: offset}
			}
			frame.SID = sid
		case "seq":
			seq, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return nil, 0, &ParseError{Reason: "invalid seq", Offset: offset}
			}
			frame.Seq = seq
		case "kind":
			kind, ok := ParseKind(val)
			if !ok {
				return nil, 0, &ParseError{Reason: "invalid kind: " + val, Offset: offset}
			}
			frame.Kind = kind
		case "len":
			l, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return nil, 0, &ParseError{Reason: "invalid len", Offset: offset}
			}
			payloadLen = int(l)
		case "crc":
			crc, err := strconv.ParseUint(strings.TrimPrefix(val, "crc32:"), 16, 32)
			if err != nil || len(strings.TrimPrefix(val, "crc32:")) != 8 {
				return nil, 0, &ParseError{Reason: "invalid crc: " + val, Offset: offset}
			}
			c := uint32(crc)
			frame.CRC = &c
		case "flags":
			flags, err := strconv.ParseUint(val, 16, 8)
			if err != nil {
				return nil, 0, &ParseError{Reason: "invalid flags: " + val, Offset: offset}
			}
			frame.Flags = Flags(flags)
		case "final":
			frame.Final = val == "true" || val == "1"
		}
	}
	return frame, payloadLen, nil
}

// splitPairs splits key=value pairs separated by spaces, tabs or commas.
func splitPairs(s string) []string {
	var pairs []string
	var current bytes.Buffer
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case ' ', ',', '\t':
			if current.Len() > 0 {
				pairs = append(pairs, current.String())
				current.Reset()
			}
		default:
			current.WriteByte(c)
		}
	}
	if current.Len() > 0 {
		pairs = append(pairs, current.String())
	}
	return pairs
}
