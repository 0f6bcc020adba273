package stream

import (
	"encoding/base64"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
	zstdErr  error
)

// codecs lazily builds the shared zstd encoder and decoder. Both are safe for
// concurrent EncodeAll/DecodeAll calls.
func codecs() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEnc, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if zstdErr != nil {
			return
		}
		zstdDec, zstdErr = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	})
	return zstdEnc, zstdDec, zstdErr
}

// compress returns base64(zstd(payload)).
func compress(payload []byte) ([]byte, error) {
	enc, _, err := codecs()
	if err != nil {
		return nil, errors.Wrap(err, "zstd init")
	}
	packed := enc.EncodeAll(payload, nil)
	out := make([]byte, base64.StdEncoding.EncodedLen(len(packed)))
	base64.StdEncoding.Encode(out, packed)
	return out, nil
}

// decompress reverses compress, refusing output larger than max.
func decompress(wire []byte, max int) ([]byte, error) {
	_, dec, err := codecs()
	if err != nil {
		return nil, errors.Wrap(err, "zstd init")
	}
	packed := make([]byte, base64.StdEncoding.DecodedLen(len(wire)))
	n, err := base64.StdEncoding.Decode(packed, wire)
	if err != nil {
		return nil, errors.Wrap(err, "decode base64 payload")
	}
	out, err := dec.DecodeAll(packed[:n], nil)
	if err != nil {
		return nil, errors.Wrap(err, "zstd decode")
	}
	if len(out) > max {
		return nil, &ParseError{Reason: "decompressed payload too large", Offset: -1}
	}
	return out, nil
}
