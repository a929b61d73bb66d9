// Package zstd exposes Zstandard behind the same whole-buffer call shape
// as the pure codecs, delegating to github.com/klauspost/compress/zstd.
package zstd

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/NerdMeNot/press"
)

// Shared encoder and decoder. EncodeAll and DecodeAll on them are
// documented as safe for concurrent use.
var (
	encoderOnce sync.Once
	encoder     *zstd.Encoder

	decoderOnce sync.Once
	decoder     *zstd.Decoder
)

// Encode compresses src, appending to dst[:0].
func Encode(dst, src []byte) []byte {
	encoderOnce.Do(func() {
		encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	return encoder.EncodeAll(src, dst[:0])
}

// Decode decompresses src. When maxOutputSize is positive, content larger
// than it fails with press.ErrOutputTooLarge; malformed input fails with
// press.ErrInvalidData.
func Decode(src []byte, maxOutputSize int) ([]byte, error) {
	if maxOutputSize > 0 {
		dec, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(uint64(maxOutputSize)))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return decodeAll(dec, src)
	}
	decoderOnce.Do(func() {
		decoder, _ = zstd.NewReader(nil)
	})
	return decodeAll(decoder, src)
}

func decodeAll(dec *zstd.Decoder, src []byte) ([]byte, error) {
	out, err := dec.DecodeAll(src, nil)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, zstd.ErrDecoderSizeExceeded):
		return nil, fmt.Errorf("zstd: %w", press.ErrOutputTooLarge)
	default:
		return nil, fmt.Errorf("zstd: %v: %w", err, press.ErrInvalidData)
	}
}
