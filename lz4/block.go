// Package lz4 implements the LZ4 block and frame formats in pure Go.
//
// CompressBlock and DecompressBlock operate on the raw token stream with no
// header; CompressFrame and DecompressFrame wrap blocks in the
// self-describing LZ4 frame format with xxHash32 checksums. All operations
// work on whole in-memory buffers. Errors are classified with the sentinel
// errors in the press package.
package lz4

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/NerdMeNot/press"
	"github.com/NerdMeNot/press/internal/bytematch"
)

// MaxCompressedSize returns the worst-case compressed size for an n-byte
// input: one token-overhead byte per 255 literal bytes, plus slack. The
// arithmetic saturates to math.MaxInt instead of overflowing for sizes
// near it.
func MaxCompressedSize(n int) int {
	if n < 0 {
		return 0
	}
	bound := n + n/255 + 16
	if bound < n {
		return math.MaxInt
	}
	return bound
}

// CompressBlock compresses src in the LZ4 block format, returning the
// compressed bytes. dst is scratch space: it is reused when its capacity
// is at least MaxCompressedSize(len(src)) and reallocated otherwise.
//
// CompressBlock cannot fail. Compressing an empty input produces a single
// zero token byte.
func CompressBlock(dst, src []byte) []byte {
	if bound := MaxCompressedSize(len(src)); cap(dst) < bound {
		dst = make([]byte, 0, bound)
	} else {
		dst = dst[:0]
	}

	if len(src) < minNonLiteralBlockSize {
		return appendLiteralRun(dst, src)
	}

	pos := 0
	for _, m := range findMatches(nil, src) {
		if m.length == 0 {
			// Trailing literal run; emitted below.
			break
		}

		token := byte(0)
		if m.unmatched > 14 {
			token |= 0xf0
		} else {
			token |= byte(m.unmatched << 4)
		}
		if m.length > 18 {
			token |= 0x0f
		} else {
			token |= byte(m.length - minMatch)
		}
		dst = append(dst, token)

		if m.unmatched > 14 {
			dst = appendLengthExt(dst, m.unmatched-15)
		}
		dst = append(dst, src[pos:pos+m.unmatched]...)

		dst = binary.LittleEndian.AppendUint16(dst, uint16(m.distance))
		if m.length > 18 {
			dst = appendLengthExt(dst, m.length-19)
		}

		pos += m.unmatched + m.length
	}

	// The final sequence is always literals only.
	return appendLiteralRun(dst, src[pos:])
}

// appendLiteralRun appends a literals-only token followed by the literal
// bytes themselves.
func appendLiteralRun(dst, lit []byte) []byte {
	if len(lit) > 14 {
		dst = append(dst, 0xf0)
		dst = appendLengthExt(dst, len(lit)-15)
	} else {
		dst = append(dst, byte(len(lit)<<4))
	}
	return append(dst, lit...)
}

// appendLengthExt appends n in LZ4's length extension format: 255 repeated
// while the remainder is at least 255, then the final remainder byte.
func appendLengthExt(dst []byte, n int) []byte {
	for n >= 255 {
		dst = append(dst, 255)
		n -= 255
	}
	return append(dst, byte(n))
}

// DecompressBlock decompresses an LZ4 block from src into dst, which must
// be sized by the caller, and returns the number of bytes written.
//
// Truncated tokens, extensions, offsets, or literals fail with
// press.ErrUnexpectedEOF; a zero or out-of-range copy offset fails with
// press.ErrInvalidData; a dst too small for the decoded content fails with
// press.ErrOutputTooSmall.
func DecompressBlock(dst, src []byte) (int, error) {
	var d, s int
	for s < len(src) {
		token := src[s]
		s++

		litLen := int(token >> 4)
		if litLen == 15 {
			var err error
			litLen, s, err = readLengthExt(src, s, litLen)
			if err != nil {
				return 0, err
			}
		}
		if litLen > 0 {
			if litLen > len(src)-s {
				return 0, fmt.Errorf("lz4: truncated literals: %w", press.ErrUnexpectedEOF)
			}
			if litLen > len(dst)-d {
				return 0, fmt.Errorf("lz4: %w", press.ErrOutputTooSmall)
			}
			copy(dst[d:], src[s:s+litLen])
			s += litLen
			d += litLen
		}

		if s == len(src) {
			// A block always ends with a literals-only token.
			return d, nil
		}

		if len(src)-s < 2 {
			return 0, fmt.Errorf("lz4: truncated match offset: %w", press.ErrUnexpectedEOF)
		}
		offset := int(binary.LittleEndian.Uint16(src[s:]))
		s += 2
		if offset == 0 || offset > d {
			return 0, fmt.Errorf("lz4: match offset %d out of range: %w", offset, press.ErrInvalidData)
		}

		matchLen := int(token & 0x0f)
		if matchLen == 15 {
			var err error
			matchLen, s, err = readLengthExt(src, s, matchLen)
			if err != nil {
				return 0, err
			}
		}
		matchLen += minMatch

		if matchLen > len(dst)-d {
			return 0, fmt.Errorf("lz4: %w", press.ErrOutputTooSmall)
		}
		bytematch.CopyMatch(dst, d, offset, matchLen)
		d += matchLen
	}
	return d, nil
}

// readLengthExt reads a 255-run length extension starting at src[s] and
// adds it to base.
func readLengthExt(src []byte, s, base int) (int, int, error) {
	n := base
	for {
		if s >= len(src) {
			return 0, 0, fmt.Errorf("lz4: truncated length extension: %w", press.ErrUnexpectedEOF)
		}
		b := src[s]
		s++
		n += int(b)
		if b != 255 {
			return n, s, nil
		}
		if n > math.MaxInt-255 {
			return 0, 0, fmt.Errorf("lz4: length extension overflow: %w", press.ErrInvalidData)
		}
	}
}
