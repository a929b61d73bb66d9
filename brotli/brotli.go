// Package brotli exposes Brotli behind the same whole-buffer call shape as
// the pure codecs, delegating to github.com/andybalholm/brotli.
package brotli

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"

	"github.com/NerdMeNot/press"
)

// Encode compresses src as a Brotli stream, appending to dst[:0].
func Encode(dst, src []byte) ([]byte, error) {
	buf := bytes.NewBuffer(dst[:0])
	w := brotli.NewWriterLevel(buf, brotli.DefaultCompression)
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("brotli: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("brotli: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode decompresses a Brotli stream. When maxOutputSize is positive,
// content larger than it fails with press.ErrOutputTooLarge; malformed
// input fails with press.ErrInvalidData (the format carries no content
// checksum to distinguish).
func Decode(src []byte, maxOutputSize int) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(src))
	if maxOutputSize <= 0 {
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, mapErr(err)
		}
		return out, nil
	}
	out, err := io.ReadAll(io.LimitReader(r, int64(maxOutputSize)+1))
	if err != nil {
		return nil, mapErr(err)
	}
	if len(out) > maxOutputSize {
		return nil, fmt.Errorf("brotli: %w", press.ErrOutputTooLarge)
	}
	return out, nil
}

func mapErr(err error) error {
	kind := press.ErrInvalidData
	if errors.Is(err, io.ErrUnexpectedEOF) {
		kind = press.ErrUnexpectedEOF
	}
	return fmt.Errorf("brotli: %v: %w", err, kind)
}
