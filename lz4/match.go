package lz4

import (
	"encoding/binary"

	"github.com/NerdMeNot/press/internal/bytematch"
)

const (
	minMatch    = 4
	maxDistance = 65535

	hashLog   = 14
	tableSize = 1 << hashLog
	hashShift = 32 - hashLog

	// The format requires the last match to start at least 12 bytes before
	// the end of a block, and the last 5 bytes to be literals.
	mfLimit      = 12
	lastLiterals = 5

	inputMargin = 16 - 1

	// Inputs shorter than this are emitted as a single literal run;
	// matching overhead is not worth it.
	minNonLiteralBlockSize = 15
)

// hash4 maps the 4 bytes at a scan position, read as a little-endian
// 32-bit value, to a table slot.
func hash4(u uint32) uint32 {
	return (u * 2654435761) >> hashShift
}

// A match is one step of the greedy parse: a run of literal bytes followed
// by a copy. The trailing literal run has length 0.
type match struct {
	unmatched int // literal bytes since the previous match
	length    int // bytes in the matched string
	distance  int // how far back to copy from
}

// findMatches scans src in a single forward pass, consulting a
// direct-mapped table of previous positions. A slot value of 0 means
// empty; the scan starts at position 1, so every stored position is
// nonzero. The table is probed and then overwritten at every scanned
// position, so it always holds the most recent occurrence of each hash.
func findMatches(dst []match, src []byte) []match {
	var table [tableSize]uint32

	sLimit := len(src) - inputMargin
	matchLimit := len(src) - lastLiterals
	nextEmit := 0
	s := 1
	nextHash := hash4(binary.LittleEndian.Uint32(src[s:]))

	for {
		nextS := s
		candidate := 0
		for {
			s = nextS
			nextS = s + 1
			if nextS > sLimit {
				goto emitRemainder
			}
			candidate = int(table[nextHash])
			table[nextHash] = uint32(s)
			nextHash = hash4(binary.LittleEndian.Uint32(src[nextS:]))
			// The table proposes a candidate; a direct 4-byte compare
			// weeds out hash collisions and over-distance references.
			if candidate > 0 && s-candidate <= maxDistance &&
				binary.LittleEndian.Uint32(src[s:]) == binary.LittleEndian.Uint32(src[candidate:]) {
				break
			}
		}

		// We have a 4-byte match at s. Keep emitting copies as long as the
		// position right after each copy matches too; otherwise fall back
		// to the outer literal scan.
		for {
			base := s
			s = bytematch.Extend(src[:matchLimit], candidate+minMatch, s+minMatch)

			dst = append(dst, match{
				unmatched: base - nextEmit,
				length:    s - base,
				distance:  base - candidate,
			})
			nextEmit = s
			if s >= sLimit {
				goto emitRemainder
			}

			// Update the hash table at s-1 and s before deciding whether
			// another copy is the next move. One 8-byte load feeds all
			// three hash calculations.
			x := binary.LittleEndian.Uint64(src[s-1:])
			prevHash := hash4(uint32(x))
			table[prevHash] = uint32(s - 1)
			currHash := hash4(uint32(x >> 8))
			candidate = int(table[currHash])
			table[currHash] = uint32(s)
			if candidate == 0 || s-candidate > maxDistance ||
				uint32(x>>8) != binary.LittleEndian.Uint32(src[candidate:]) {
				nextHash = hash4(uint32(x >> 16))
				s++
				break
			}
		}
	}

emitRemainder:
	if nextEmit < len(src) {
		dst = append(dst, match{unmatched: len(src) - nextEmit})
	}
	return dst
}
