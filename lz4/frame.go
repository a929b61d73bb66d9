package lz4

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/pierrec/xxHash/xxHash32"

	"github.com/NerdMeNot/press"
)

const frameMagic = 0x184D2204

// Frame descriptor flag bits (FLG byte).
const (
	flgVersion         = 1 << 6
	flgBlockIndep      = 1 << 5
	flgBlockChecksum   = 1 << 4
	flgContentSize     = 1 << 3
	flgContentChecksum = 1 << 2
	flgDictID          = 1 << 0
)

// frameBlockMax is the block size class this encoder declares (BD byte
// code 7, 4 MiB); input is split into blocks no larger than this.
const frameBlockMax = 4 << 20

// uncompressedBit marks a stored (not compressed) block in its size word.
const uncompressedBit = 1 << 31

// FrameOptions configures frame compression.
type FrameOptions struct {
	// ContentChecksum appends a 4-byte xxHash32 checksum of the
	// uncompressed content after the end marker.
	ContentChecksum bool
	// ContentSize records the uncompressed size in the frame header.
	ContentSize bool
}

// DefaultFrameOptions returns the options used when CompressFrame is
// called with nil options: content checksum on, content size omitted.
func DefaultFrameOptions() *FrameOptions {
	return &FrameOptions{ContentChecksum: true}
}

// DecompressOptions configures frame decompression.
type DecompressOptions struct {
	// MaxOutputSize fails decompression with press.ErrOutputTooLarge when
	// the decompressed content would exceed it. Zero means no limit.
	MaxOutputSize int
}

// blockMaxSize maps a BD block size code to its byte count, or 0 for a
// reserved code.
func blockMaxSize(code byte) int {
	switch code {
	case 4:
		return 64 << 10
	case 5:
		return 256 << 10
	case 6:
		return 1 << 20
	case 7:
		return 4 << 20
	}
	return 0
}

// CompressFrame compresses src in the LZ4 frame format. dst is scratch
// space, reused when large enough. opts may be nil (DefaultFrameOptions).
//
// The frame is written with independent blocks of at most 4 MiB, each with
// a 4-byte little-endian length prefix. A block that does not shrink under
// compression is stored raw with the high bit of its length word set.
func CompressFrame(dst, src []byte, opts *FrameOptions) []byte {
	if opts == nil {
		opts = DefaultFrameOptions()
	}
	dst = dst[:0]

	dst = binary.LittleEndian.AppendUint32(dst, frameMagic)
	flg := byte(flgVersion | flgBlockIndep)
	if opts.ContentChecksum {
		flg |= flgContentChecksum
	}
	if opts.ContentSize {
		flg |= flgContentSize
	}
	descStart := len(dst)
	dst = append(dst, flg, byte(7<<4))
	if opts.ContentSize {
		dst = binary.LittleEndian.AppendUint64(dst, uint64(len(src)))
	}
	// The header checksum is the second byte of the xxHash32 of the
	// descriptor bytes.
	dst = append(dst, byte(xxHash32.Checksum(dst[descStart:], 0)>>8))

	var block []byte
	for off := 0; off < len(src); off += frameBlockMax {
		chunk := src[off:]
		if len(chunk) > frameBlockMax {
			chunk = chunk[:frameBlockMax]
		}
		block = CompressBlock(block, chunk)
		if len(block) >= len(chunk) {
			dst = binary.LittleEndian.AppendUint32(dst, uint32(len(chunk))|uncompressedBit)
			dst = append(dst, chunk...)
		} else {
			dst = binary.LittleEndian.AppendUint32(dst, uint32(len(block)))
			dst = append(dst, block...)
		}
	}

	dst = binary.LittleEndian.AppendUint32(dst, 0)
	if opts.ContentChecksum {
		dst = binary.LittleEndian.AppendUint32(dst, xxHash32.Checksum(src, 0))
	}
	return dst
}

// DecompressFrame decompresses an LZ4 frame. opts may be nil.
//
// A bad magic number, unsupported version, reserved block size code, or
// failed header checksum fails with press.ErrInvalidData; a truncated
// header, block, or footer fails with press.ErrUnexpectedEOF; a content or
// block checksum disagreement fails with press.ErrChecksumMismatch; and
// content exceeding opts.MaxOutputSize fails with press.ErrOutputTooLarge.
func DecompressFrame(src []byte, opts *DecompressOptions) ([]byte, error) {
	maxOut := 0
	if opts != nil {
		maxOut = opts.MaxOutputSize
	}

	if len(src) < 4 {
		return nil, fmt.Errorf("lz4: truncated frame header: %w", press.ErrUnexpectedEOF)
	}
	if binary.LittleEndian.Uint32(src) != frameMagic {
		return nil, fmt.Errorf("lz4: bad magic number: %w", press.ErrInvalidData)
	}
	if len(src) < 7 {
		return nil, fmt.Errorf("lz4: truncated frame descriptor: %w", press.ErrUnexpectedEOF)
	}

	flg, bd := src[4], src[5]
	if flg>>6 != 1 {
		return nil, fmt.Errorf("lz4: unsupported frame version %d: %w", flg>>6, press.ErrInvalidData)
	}
	blockMax := blockMaxSize(bd >> 4 & 7)
	if blockMax == 0 {
		return nil, fmt.Errorf("lz4: reserved block size code: %w", press.ErrInvalidData)
	}

	pos := 6
	var contentSize uint64
	hasContentSize := flg&flgContentSize != 0
	if hasContentSize {
		if len(src)-pos < 8 {
			return nil, fmt.Errorf("lz4: truncated content size: %w", press.ErrUnexpectedEOF)
		}
		contentSize = binary.LittleEndian.Uint64(src[pos:])
		pos += 8
	}
	if flg&flgDictID != 0 {
		// Dictionary ID; this decoder has no dictionary support, but the
		// field is part of the descriptor and must be skipped and hashed.
		if len(src)-pos < 4 {
			return nil, fmt.Errorf("lz4: truncated dictionary ID: %w", press.ErrUnexpectedEOF)
		}
		pos += 4
	}
	if pos >= len(src) {
		return nil, fmt.Errorf("lz4: truncated header checksum: %w", press.ErrUnexpectedEOF)
	}
	if src[pos] != byte(xxHash32.Checksum(src[4:pos], 0)>>8) {
		return nil, fmt.Errorf("lz4: header checksum mismatch: %w", press.ErrInvalidData)
	}
	pos++

	if maxOut > 0 && hasContentSize && contentSize > uint64(maxOut) {
		return nil, fmt.Errorf("lz4: declared content size %d: %w", contentSize, press.ErrOutputTooLarge)
	}

	// The declared content size is an allocation hint only; bound it so a
	// forged header cannot force an enormous allocation up front.
	hint := uint64(0)
	if hasContentSize {
		hint = contentSize
		if lim := uint64(len(src)) * 255; hint > lim {
			hint = lim
		}
		if maxOut > 0 && hint > uint64(maxOut) {
			hint = uint64(maxOut)
		}
		if hint > math.MaxInt {
			hint = math.MaxInt
		}
	}
	out := make([]byte, 0, int(hint))

	blockSum := flg&flgBlockChecksum != 0
	for {
		if len(src)-pos < 4 {
			return nil, fmt.Errorf("lz4: truncated block size: %w", press.ErrUnexpectedEOF)
		}
		word := binary.LittleEndian.Uint32(src[pos:])
		pos += 4
		if word == 0 {
			break
		}

		raw := word&uncompressedBit != 0
		n := int(word &^ uncompressedBit)
		if n > blockMax {
			return nil, fmt.Errorf("lz4: block size %d exceeds declared maximum: %w", n, press.ErrInvalidData)
		}
		if len(src)-pos < n {
			return nil, fmt.Errorf("lz4: truncated block: %w", press.ErrUnexpectedEOF)
		}
		blockData := src[pos : pos+n]
		pos += n

		if blockSum {
			if len(src)-pos < 4 {
				return nil, fmt.Errorf("lz4: truncated block checksum: %w", press.ErrUnexpectedEOF)
			}
			if binary.LittleEndian.Uint32(src[pos:]) != xxHash32.Checksum(blockData, 0) {
				return nil, fmt.Errorf("lz4: block checksum mismatch: %w", press.ErrChecksumMismatch)
			}
			pos += 4
		}

		if raw {
			if maxOut > 0 && len(out)+n > maxOut {
				return nil, fmt.Errorf("lz4: %w", press.ErrOutputTooLarge)
			}
			out = append(out, blockData...)
			continue
		}

		if cap(out)-len(out) < blockMax {
			grown := make([]byte, len(out), 2*cap(out)+blockMax)
			copy(grown, out)
			out = grown
		}
		n2, err := DecompressBlock(out[len(out):len(out)+blockMax], blockData)
		if err != nil {
			if errors.Is(err, press.ErrOutputTooSmall) {
				// The block decodes to more than its size class allows.
				return nil, fmt.Errorf("lz4: block exceeds declared maximum: %w", press.ErrInvalidData)
			}
			return nil, err
		}
		if maxOut > 0 && len(out)+n2 > maxOut {
			return nil, fmt.Errorf("lz4: %w", press.ErrOutputTooLarge)
		}
		out = out[:len(out)+n2]
	}

	if flg&flgContentChecksum != 0 {
		if len(src)-pos < 4 {
			return nil, fmt.Errorf("lz4: truncated content checksum: %w", press.ErrUnexpectedEOF)
		}
		if binary.LittleEndian.Uint32(src[pos:]) != xxHash32.Checksum(out, 0) {
			return nil, fmt.Errorf("lz4: content checksum mismatch: %w", press.ErrChecksumMismatch)
		}
	}
	if hasContentSize && uint64(len(out)) != contentSize {
		return nil, fmt.Errorf("lz4: content size %d disagrees with decoded length %d: %w",
			contentSize, len(out), press.ErrInvalidData)
	}
	return out, nil
}
