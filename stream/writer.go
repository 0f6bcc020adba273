package stream

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Writer writes frames to an io.Writer.
type Writer struct {
	w           io.Writer
	withCRC     bool
	compressMin int // compress payloads at least this long; 0 disables
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCRC computes and writes a CRC for every non-empty payload.
func WithCRC() WriterOption {
	return func(w *Writer) {
		w.withCRC = true
	}
}

// WithCompression compresses payloads of at least minSize bytes.
func WithCompression(minSize int) WriterOption {
	return func(w *Writer) {
		if minSize < 1 {
			minSize = 1
		}
		w.compressMin = minSize
	}
}

// NewWriter creates a frame writer.
func NewWriter(w io.Writer, opts ...WriterOption) *Writer {
	writer := &Writer{w: w}
	for _, opt := range opts {
		opt(writer)
	}
	return writer
}

// WriteFrame writes a single frame.
func (w *Writer) WriteFrame(f *Frame) error {
	payload := f.Payload
	flags := f.Flags &^ FlagFinal
	if w.compressMin > 0 && len(payload) >= w.compressMin {
		packed, err := compress(payload)
		if err != nil {
			return err
		}
		payload = packed
		flags |= FlagCompressed
	}

	var header strings.Builder
	header.WriteString("@frame{v=")
	if f.Version == 0 {
		header.WriteString(strconv.Itoa(int(Version)))
	} else {
		header.WriteString(strconv.Itoa(int(f.Version)))
	}
	header.WriteString(" sid=")
	header.WriteString(strconv.FormatUint(f.SID, 10))
	header.WriteString(" seq=")
	header.WriteString(strconv.FormatUint(f.Seq, 10))
	header.WriteString(" kind=")
	header.WriteString(f.Kind.String())
	header.WriteString(" len=")
	header.WriteString(strconv.Itoa(len(payload)))

	// The CRC always covers the wire payload.
	crc := f.CRC
	if (crc == nil && w.withCRC && len(payload) > 0) || (crc != nil && flags&FlagCompressed != 0) {
		computed := ComputeCRC(payload)
		crc = &computed
	}
	if crc != nil {
		header.WriteString(fmt.Sprintf(" crc=%08x", *crc))
	}
	if flags != 0 {
		header.WriteString(fmt.Sprintf(" flags=%02x", uint8(flags)))
	}
	if f.IsFinal() {
		header.WriteString(" final=true")
	}
	header.WriteString("}\n")

	if _, err := io.WriteString(w.w, header.String()); err != nil {
		return errors.Wrap(err, "write header")
	}
	if len(payload) > 0 {
		if _, err := w.w.Write(payload); err != nil {
			return errors.Wrap(err, "write payload")
		}
	}
	if _, err := io.WriteString(w.w, "\n"); err != nil {
		return errors.Wrap(err, "write trailing newline")
	}
	return nil
}

// WriteDocument writes a doc frame carrying doc.
func (w *Writer) WriteDocument(sid, seq uint64, doc string) error {
	return w.WriteFrame(&Frame{
		Version: Version,
		SID:     sid,
		Seq:     seq,
		Kind:    KindDoc,
		Payload: []byte(doc),
	})
}

// WriteAck writes an acknowledgement frame.
func (w *Writer) WriteAck(sid, seq uint64) error {
	return w.WriteFrame(&Frame{
		Version: Version,
		SID:     sid,
		Seq:     seq,
		Kind:    KindAck,
	})
}

// WriteErr writes an error frame.
func (w *Writer) WriteErr(sid, seq uint64, msg string) error {
	return w.WriteFrame(&Frame{
		Version: Version,
		SID:     sid,
		Seq:     seq,
		Kind:    KindErr,
		Payload: []byte(msg),
	})
}

// WriteFinal writes the last frame of a stream.
func (w *Writer) WriteFinal(sid, seq uint64, kind FrameKind, payload []byte) error {
	return w.WriteFrame(&Frame{
		Version: Version,
		SID:     sid,
		Seq:     seq,
		Kind:    kind,
		Payload: payload,
		Final:   true,
	})
}
