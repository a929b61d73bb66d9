// Package snappy implements the Snappy block format in pure Go.
//
// An encoded block is the uvarint length of the decoded data followed by a
// stream of literal and copy tokens; the format carries no checksum, the
// length preamble is its only self-description. Output is bit-compatible
// with the reference implementation. Errors are classified with the
// sentinel errors in the press package.
package snappy

import (
	"math"
)

// Tag values in the low 2 bits of each token's first byte.
const (
	tagLiteral = 0x00
	tagCopy1   = 0x01
	tagCopy2   = 0x02
	tagCopy4   = 0x03
)

// MaxEncodedLen returns the worst-case encoded size for an n-byte input,
// saturating to math.MaxInt instead of overflowing for sizes near it.
func MaxEncodedLen(n int) int {
	if n < 0 {
		return 0
	}
	bound := 32 + n + n/6
	if bound < n {
		return math.MaxInt
	}
	return bound
}

// Encode compresses src in the Snappy block format, returning the encoded
// bytes. dst is scratch space: it is reused when its capacity is at least
// MaxEncodedLen(len(src)) and reallocated otherwise.
//
// Encode cannot fail. Encoding an empty input produces the single byte
// 0x00 (a varint length of zero).
func Encode(dst, src []byte) []byte {
	if bound := MaxEncodedLen(len(src)); cap(dst) < bound {
		dst = make([]byte, 0, bound)
	} else {
		dst = dst[:0]
	}

	dst = appendUvarint(dst, uint64(len(src)))

	// Long inputs are encoded 64 KiB at a time so copy offsets stay within
	// the match finder's position width. Copies never cross the seams,
	// which the format permits.
	for len(src) > 0 {
		block := src
		if len(block) > maxBlockSize {
			block = block[:maxBlockSize]
		}
		src = src[len(block):]
		dst = encodeBlock(dst, block)
	}
	return dst
}

func encodeBlock(dst, src []byte) []byte {
	if len(src) < minNonLiteralBlockSize {
		return appendLiteral(dst, src)
	}

	pos := 0
	for _, m := range findMatches(nil, src) {
		if m.unmatched > 0 {
			dst = appendLiteral(dst, src[pos:pos+m.unmatched])
			pos += m.unmatched
		}
		if m.length > 0 {
			dst = appendCopy(dst, m.length, m.distance)
			pos += m.length
		}
	}
	return dst
}

// appendLiteral appends a literal token. The length class in the upper 6
// bits of the tag byte selects 0, 1, or 2 explicit length bytes.
func appendLiteral(dst, lit []byte) []byte {
	n := len(lit) - 1
	switch {
	case n < 60:
		dst = append(dst, byte(n)<<2|tagLiteral)
	case n < 1<<8:
		dst = append(dst, 60<<2|tagLiteral, byte(n))
	default:
		dst = append(dst, 61<<2|tagLiteral, byte(n), byte(n>>8))
	}
	return append(dst, lit...)
}

// appendCopy appends one or more copy tokens covering length bytes at the
// given offset.
//
// The maximum length of a single tagCopy1 or tagCopy2 token is 64 bytes.
// The loop threshold is a little higher (68 = 64 + 4) and the chunk length
// emitted below it a little lower (60 = 64 - 4) because a length-67 copy
// is shorter as a length-60 tagCopy2 plus a length-7 tagCopy1 (3+2 bytes)
// than as a length-64 tagCopy2 plus a length-3 tagCopy2 (3+3 bytes); the
// minimum tagCopy1 length is 4, so a length-3 remainder would need the
// 3-byte form.
func appendCopy(dst []byte, length, offset int) []byte {
	for length >= 68 {
		dst = append(dst,
			63<<2|tagCopy2,
			byte(offset),
			byte(offset>>8),
		)
		length -= 64
	}
	if length > 64 {
		dst = append(dst,
			59<<2|tagCopy2,
			byte(offset),
			byte(offset>>8),
		)
		length -= 60
	}
	if length >= 12 || offset >= 2048 {
		return append(dst,
			byte(length-1)<<2|tagCopy2,
			byte(offset),
			byte(offset>>8),
		)
	}
	// Short copy with a close offset packs into 2 bytes: the offset's bits
	// 8-10 ride in the tag byte.
	return append(dst,
		byte(offset>>8)<<5|byte(length-4)<<2|tagCopy1,
		byte(offset),
	)
}

// appendUvarint appends x in base-128 varint format: 7 data bits per byte,
// high bit set on all but the last.
func appendUvarint(dst []byte, x uint64) []byte {
	for x >= 0x80 {
		dst = append(dst, byte(x)|0x80)
		x >>= 7
	}
	return append(dst, byte(x))
}
