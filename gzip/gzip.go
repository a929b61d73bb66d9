// Package gzip exposes the gzip and zlib wire formats behind the same
// whole-buffer call shape as the pure codecs, delegating to
// github.com/klauspost/compress.
package gzip

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/NerdMeNot/press"
)

// Encode compresses src as a gzip stream, appending to dst[:0].
func Encode(dst, src []byte) ([]byte, error) {
	buf := bytes.NewBuffer(dst[:0])
	w := gzip.NewWriter(buf)
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode decompresses a gzip stream. When maxOutputSize is positive,
// content larger than it fails with press.ErrOutputTooLarge.
func Decode(src []byte, maxOutputSize int) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, mapErr("gzip", err)
	}
	defer r.Close()
	return readLimited("gzip", r, maxOutputSize)
}

// EncodeZlib compresses src as a zlib stream, appending to dst[:0].
func EncodeZlib(dst, src []byte) ([]byte, error) {
	buf := bytes.NewBuffer(dst[:0])
	w := zlib.NewWriter(buf)
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeZlib decompresses a zlib stream with the same limit behavior as
// Decode.
func DecodeZlib(src []byte, maxOutputSize int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, mapErr("zlib", err)
	}
	defer r.Close()
	return readLimited("zlib", r, maxOutputSize)
}

func readLimited(name string, r io.Reader, maxOutputSize int) ([]byte, error) {
	if maxOutputSize <= 0 {
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, mapErr(name, err)
		}
		return out, nil
	}
	out, err := io.ReadAll(io.LimitReader(r, int64(maxOutputSize)+1))
	if err != nil {
		return nil, mapErr(name, err)
	}
	if len(out) > maxOutputSize {
		return nil, fmt.Errorf("%s: %w", name, press.ErrOutputTooLarge)
	}
	return out, nil
}

// mapErr folds the underlying library's errors into the shared taxonomy.
func mapErr(name string, err error) error {
	var kind error
	switch {
	case errors.Is(err, gzip.ErrChecksum) || errors.Is(err, zlib.ErrChecksum):
		kind = press.ErrChecksumMismatch
	case errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF):
		kind = press.ErrUnexpectedEOF
	default:
		kind = press.ErrInvalidData
	}
	return fmt.Errorf("%s: %v: %w", name, err, kind)
}
