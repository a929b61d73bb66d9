package press

import "errors"

// Sentinel errors shared by all codec packages. Codecs wrap these with
// context, so callers should match them with errors.Is.
//
// The boundary between ErrInvalidData and ErrUnexpectedEOF is: if the input
// does not contain enough remaining bytes to parse a fully-formed field, the
// error is ErrUnexpectedEOF; if a fully-parsed field has a semantically
// invalid value, the error is ErrInvalidData.
var (
	// ErrInvalidData is returned for structurally malformed input: a bad
	// magic number, an unknown tag, an out-of-range copy offset, a failed
	// header checksum, or a declared length the stream does not honor.
	ErrInvalidData = errors.New("invalid data")

	// ErrChecksumMismatch is returned when a stream parses correctly but
	// its content integrity checksum disagrees with the decoded bytes.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrUnexpectedEOF is returned when the input ends in the middle of a
	// token, header, or other field.
	ErrUnexpectedEOF = errors.New("unexpected end of input")

	// ErrOutputTooSmall is returned when a caller-provided fixed buffer
	// cannot hold the output.
	ErrOutputTooSmall = errors.New("output buffer too small")

	// ErrOutputTooLarge is returned when the decompressed content would
	// exceed a caller-imposed size limit. It is the decompression-bomb
	// guard, distinct from ErrInvalidData: the input may be well-formed.
	ErrOutputTooLarge = errors.New("output exceeds size limit")
)
