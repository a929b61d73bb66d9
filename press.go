// Package press provides buffer-oriented compression codecs.
//
// The lz4 and snappy subpackages are pure Go implementations of the LZ4
// block/frame formats and the Snappy block format, built from hash-table
// match finding, greedy LZ77 parsing, and each format's token encoding.
// They operate on whole in-memory buffers and produce output that is
// bit-compatible with the reference implementations.
//
// The zstd, gzip, and brotli subpackages delegate to hardened external
// implementations behind the same whole-buffer call shape, and the archive
// subpackage layers TAR and ZIP containers on top of the codecs.
//
// All subpackages classify failures with the sentinel errors defined here;
// match them with errors.Is.
package press
