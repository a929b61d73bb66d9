// Package bytematch holds the match-extension and match-copy primitives
// shared by the lz4 and snappy codecs.
package bytematch

import (
	"encoding/binary"
	"math/bits"
)

// Extend returns the largest k such that k <= len(src) and that
// src[i:i+k-j] and src[j:k] have the same contents.
//
// It assumes that:
//
//	0 <= i && i < j && j <= len(src)
func Extend(src []byte, i, j int) int {
	// As long as we are 8 or more bytes before the end of src, we can load
	// and compare 8 bytes at a time. If those 8 bytes are equal, repeat.
	for j+8 < len(src) {
		iBytes := binary.LittleEndian.Uint64(src[i:])
		jBytes := binary.LittleEndian.Uint64(src[j:])
		if iBytes != jBytes {
			// XOR the two 8-byte values and count trailing zeros to find
			// the index of the first byte that differs. Little-endian, so
			// the shift by 3 converts a bit index to a byte index.
			return j + bits.TrailingZeros64(iBytes^jBytes)>>3
		}
		i, j = i+8, j+8
	}
	for ; j < len(src) && src[i] == src[j]; i, j = i+1, j+1 {
	}
	return j
}

// CopyMatch copies n bytes within dst from pos-dist to pos. When dist < n
// the regions overlap and the copy must proceed byte by byte so that
// repeated runs reproduce correctly; the built-in copy does not handle a
// source that precedes an overlapping destination.
//
// The caller has already validated that 0 < dist <= pos and that
// pos+n <= len(dst).
func CopyMatch(dst []byte, pos, dist, n int) {
	if dist >= n {
		copy(dst[pos:pos+n], dst[pos-dist:])
		return
	}
	for i := 0; i < n; i++ {
		dst[pos+i] = dst[pos-dist+i]
	}
}
