package snappy

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/NerdMeNot/press"
	"github.com/NerdMeNot/press/internal/bytematch"
)

// DecodedLen returns the decoded length declared by an encoded block's
// varint preamble, without decoding the rest.
//
// An empty input or a preamble that overflows 32 bits fails with
// press.ErrInvalidData; a preamble cut off mid-varint fails with
// press.ErrUnexpectedEOF.
func DecodedLen(src []byte) (int, error) {
	n, _, err := decodedLen(src)
	return n, err
}

// decodedLen also returns the number of preamble bytes.
func decodedLen(src []byte) (dLen, headerLen int, err error) {
	if len(src) == 0 {
		return 0, 0, fmt.Errorf("snappy: missing length preamble: %w", press.ErrInvalidData)
	}
	v, n := binary.Uvarint(src)
	if n == 0 {
		return 0, 0, fmt.Errorf("snappy: truncated length preamble: %w", press.ErrUnexpectedEOF)
	}
	if n < 0 || v > math.MaxUint32 || v > uint64(math.MaxInt) {
		return 0, 0, fmt.Errorf("snappy: length preamble overflows 32 bits: %w", press.ErrInvalidData)
	}
	return int(v), n, nil
}

// Decode decompresses a Snappy block from src, returning the decoded
// bytes. The returned slice aliases dst when dst is large enough to hold
// the declared length; otherwise a new buffer is allocated.
//
// A zero or out-of-range copy offset, an unknown tag, or a stream that
// disagrees with its declared length fails with press.ErrInvalidData;
// truncated fields fail with press.ErrUnexpectedEOF.
func Decode(dst, src []byte) ([]byte, error) {
	dLen, headerLen, err := decodedLen(src)
	if err != nil {
		return nil, err
	}
	if dLen <= len(dst) {
		dst = dst[:dLen]
	} else {
		dst = make([]byte, dLen)
	}
	if err := decode(dst, src[headerLen:]); err != nil {
		return nil, err
	}
	return dst, nil
}

// DecodeInto decompresses a Snappy block from src into the fixed buffer
// dst and returns the number of bytes written. A dst shorter than the
// declared length fails with press.ErrOutputTooSmall.
func DecodeInto(dst, src []byte) (int, error) {
	dLen, headerLen, err := decodedLen(src)
	if err != nil {
		return 0, err
	}
	if dLen > len(dst) {
		return 0, fmt.Errorf("snappy: need %d bytes: %w", dLen, press.ErrOutputTooSmall)
	}
	if err := decode(dst[:dLen], src[headerLen:]); err != nil {
		return 0, err
	}
	return dLen, nil
}

// DecodeLimit is Decode with a decompression-bomb guard: a declared length
// exceeding maxOutputSize fails with press.ErrOutputTooLarge before any
// decoding happens. maxOutputSize <= 0 means no limit.
func DecodeLimit(src []byte, maxOutputSize int) ([]byte, error) {
	dLen, headerLen, err := decodedLen(src)
	if err != nil {
		return nil, err
	}
	if maxOutputSize > 0 && dLen > maxOutputSize {
		return nil, fmt.Errorf("snappy: declared length %d: %w", dLen, press.ErrOutputTooLarge)
	}
	dst := make([]byte, dLen)
	if err := decode(dst, src[headerLen:]); err != nil {
		return nil, err
	}
	return dst, nil
}

// decode parses the token stream in src into dst, which is sized to
// exactly the declared length.
func decode(dst, src []byte) error {
	var d, s int
	for s < len(src) {
		var length, offset int
		switch src[s] & 0x03 {
		case tagLiteral:
			x := int(src[s] >> 2)
			switch {
			case x < 60:
				s++
			case x == 60:
				s += 2
				if s > len(src) {
					return fmt.Errorf("snappy: truncated literal length: %w", press.ErrUnexpectedEOF)
				}
				x = int(src[s-1])
			case x == 61:
				s += 3
				if s > len(src) {
					return fmt.Errorf("snappy: truncated literal length: %w", press.ErrUnexpectedEOF)
				}
				x = int(binary.LittleEndian.Uint16(src[s-2:]))
			case x == 62:
				s += 4
				if s > len(src) {
					return fmt.Errorf("snappy: truncated literal length: %w", press.ErrUnexpectedEOF)
				}
				x = int(src[s-3]) | int(src[s-2])<<8 | int(src[s-1])<<16
			default: // x == 63
				s += 5
				if s > len(src) {
					return fmt.Errorf("snappy: truncated literal length: %w", press.ErrUnexpectedEOF)
				}
				x = int(binary.LittleEndian.Uint32(src[s-4:]))
			}
			length = x + 1
			if length <= 0 {
				return fmt.Errorf("snappy: literal length overflow: %w", press.ErrInvalidData)
			}
			if length > len(dst)-d {
				return fmt.Errorf("snappy: literal exceeds declared length: %w", press.ErrInvalidData)
			}
			if length > len(src)-s {
				return fmt.Errorf("snappy: truncated literal: %w", press.ErrUnexpectedEOF)
			}
			copy(dst[d:], src[s:s+length])
			d += length
			s += length
			continue

		case tagCopy1:
			s += 2
			if s > len(src) {
				return fmt.Errorf("snappy: truncated copy: %w", press.ErrUnexpectedEOF)
			}
			length = 4 + int(src[s-2])>>2&0x7
			offset = int(src[s-2])&0xe0<<3 | int(src[s-1])

		case tagCopy2:
			s += 3
			if s > len(src) {
				return fmt.Errorf("snappy: truncated copy: %w", press.ErrUnexpectedEOF)
			}
			length = 1 + int(src[s-3])>>2
			offset = int(binary.LittleEndian.Uint16(src[s-2:]))

		default: // tagCopy4
			s += 5
			if s > len(src) {
				return fmt.Errorf("snappy: truncated copy: %w", press.ErrUnexpectedEOF)
			}
			length = 1 + int(src[s-5])>>2
			o := binary.LittleEndian.Uint32(src[s-4:])
			if uint64(o) > uint64(math.MaxInt) {
				return fmt.Errorf("snappy: copy offset overflow: %w", press.ErrInvalidData)
			}
			offset = int(o)
		}

		if offset <= 0 || offset > d {
			return fmt.Errorf("snappy: copy offset %d out of range: %w", offset, press.ErrInvalidData)
		}
		if length > len(dst)-d {
			return fmt.Errorf("snappy: copy exceeds declared length: %w", press.ErrInvalidData)
		}
		bytematch.CopyMatch(dst, d, offset, length)
		d += length
	}
	if d != len(dst) {
		return fmt.Errorf("snappy: stream ends %d bytes short of declared length: %w",
			len(dst)-d, press.ErrUnexpectedEOF)
	}
	return nil
}
