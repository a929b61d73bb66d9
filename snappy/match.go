package snappy

import (
	"encoding/binary"

	"github.com/NerdMeNot/press/internal/bytematch"
)

const (
	inputMargin = 16 - 1

	// Inputs shorter than this are emitted as a single literal run.
	minNonLiteralBlockSize = 1 + 1 + inputMargin

	// The largest block the match finder handles; Encode splits longer
	// inputs so copy offsets always fit the table's uint16 positions.
	maxBlockSize = 65536

	hashLog   = 14
	tableSize = 1 << hashLog
	hashShift = 32 - hashLog
)

// hash maps the 4 bytes at a scan position, read as a little-endian 32-bit
// value, to a table slot.
func hash(u uint32) uint32 {
	return (u * 0x1e35a7bd) >> hashShift
}

// A match is one step of the greedy parse. The trailing literal run has
// length 0.
type match struct {
	unmatched int
	length    int
	distance  int
}

// findMatches scans src in a single pass, proposing copies from a
// direct-mapped table of previous positions. The encoded form must start
// with a literal, so the scan starts at s == 1. The caller guarantees
// minNonLiteralBlockSize <= len(src) <= maxBlockSize.
func findMatches(dst []match, src []byte) []match {
	var table [tableSize]uint16

	// sLimit is when to stop looking for copies; the input margin leaves
	// room for the 8-byte loads below.
	sLimit := len(src) - inputMargin
	nextEmit := 0
	s := 1
	nextHash := hash(binary.LittleEndian.Uint32(src[s:]))

	for {
		// Heuristic match skipping, from the C++ snappy implementation:
		// after 32 scan steps with no match, probe every other byte, then
		// every third, and so on, so incompressible data moves through
		// quickly. A match resets the stride to one.
		skip := 32

		nextS := s
		candidate := 0
		for {
			s = nextS
			bytesBetweenHashLookups := skip >> 5
			nextS = s + bytesBetweenHashLookups
			skip += bytesBetweenHashLookups
			if nextS > sLimit {
				goto emitRemainder
			}
			candidate = int(table[nextHash])
			table[nextHash] = uint16(s)
			nextHash = hash(binary.LittleEndian.Uint32(src[nextS:]))
			if binary.LittleEndian.Uint32(src[s:]) == binary.LittleEndian.Uint32(src[candidate:]) {
				break
			}
		}

		// A 4-byte match at s. Keep emitting copies as long as the input
		// right after each copy matches too.
		for {
			base := s
			s = bytematch.Extend(src, candidate+4, s+4)

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
			// another copy is the next move; one 8-byte load feeds all
			// three hash calculations.
			x := binary.LittleEndian.Uint64(src[s-1:])
			prevHash := hash(uint32(x))
			table[prevHash] = uint16(s - 1)
			currHash := hash(uint32(x >> 8))
			candidate = int(table[currHash])
			table[currHash] = uint16(s)
			if uint32(x>>8) != binary.LittleEndian.Uint32(src[candidate:]) {
				nextHash = hash(uint32(x >> 16))
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
