package lz4

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/pierrec/lz4/v4"

	"github.com/NerdMeNot/press"
)

func testInputSet() []struct {
	name string
	data []byte
} {
	rnd := rand.New(rand.NewSource(1))
	random := make([]byte, 1<<20)
	rnd.Read(random)
	block := make([]byte, 512)
	rnd.Read(block)

	return []struct {
		name string
		data []byte
	}{
		{name: "nil", data: nil},
		{name: "empty", data: []byte{}},
		{name: "single-byte", data: []byte("X")},
		{name: "short-text", data: []byte("hello world, lz4 test")},
		{name: "below-match-threshold", data: []byte("12345678901234")},
		{name: "repeated-pattern", data: bytes.Repeat([]byte("abc123"), 2000)},
		{name: "long-run", data: bytes.Repeat([]byte{0xFF}, 12000)},
		{name: "zero-run", data: make([]byte, 12000)},
		{name: "byte-cycle", data: bytes.Repeat([]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, 1200)},
		{name: "random-1mb", data: random},
		{name: "repeated-random-blocks", data: bytes.Repeat(block, 2048)},
	}
}

func TestBlockRoundTrip(t *testing.T) {
	for _, in := range testInputSet() {
		t.Run(in.name, func(t *testing.T) {
			compressed := CompressBlock(nil, in.data)
			if len(compressed) > MaxCompressedSize(len(in.data)) {
				t.Fatalf("compressed to %d bytes, above the worst-case bound %d",
					len(compressed), MaxCompressedSize(len(in.data)))
			}

			dst := make([]byte, len(in.data))
			n, err := DecompressBlock(dst, compressed)
			if err != nil {
				t.Fatalf("DecompressBlock failed: %v", err)
			}
			if n != len(in.data) {
				t.Fatalf("got %d bytes, wanted %d", n, len(in.data))
			}
			if !bytes.Equal(dst[:n], in.data) {
				t.Fatal("round-trip mismatch")
			}
		})
	}
}

// The compressed output must be readable by the reference implementation.
func TestBlockInteropDecode(t *testing.T) {
	for _, in := range testInputSet() {
		if len(in.data) == 0 {
			continue
		}
		t.Run(in.name, func(t *testing.T) {
			compressed := CompressBlock(nil, in.data)

			decompressed := make([]byte, len(in.data))
			n, err := lz4.UncompressBlock(compressed, decompressed)
			if err != nil {
				t.Fatal(err)
			}
			if n != len(in.data) {
				t.Fatalf("got %d bytes, wanted %d", n, len(in.data))
			}
			if !bytes.Equal(decompressed, in.data) {
				t.Fatal("decompressed output does not match")
			}
		})
	}
}

// The decoder must accept blocks produced by the reference implementation.
func TestBlockInteropEncode(t *testing.T) {
	for _, in := range testInputSet() {
		if len(in.data) == 0 {
			continue
		}
		t.Run(in.name, func(t *testing.T) {
			buf := make([]byte, lz4.CompressBlockBound(len(in.data)))
			n, err := lz4.CompressBlock(in.data, buf, nil)
			if err != nil {
				t.Fatal(err)
			}
			if n == 0 {
				t.Skip("reference encoder found the input incompressible")
			}

			dst := make([]byte, len(in.data))
			got, err := DecompressBlock(dst, buf[:n])
			if err != nil {
				t.Fatalf("DecompressBlock failed: %v", err)
			}
			if !bytes.Equal(dst[:got], in.data) {
				t.Fatal("round-trip through reference encoder mismatch")
			}
		})
	}
}

func TestBlockSingleLiteralToken(t *testing.T) {
	compressed := CompressBlock(nil, []byte("X"))
	if !bytes.Equal(compressed, []byte{0x10, 'X'}) {
		t.Fatalf("got % x, wanted 10 58", compressed)
	}

	dst := make([]byte, 1)
	n, err := DecompressBlock(dst, compressed)
	if err != nil || n != 1 || dst[0] != 'X' {
		t.Fatalf("got %q (n=%d, err=%v), wanted X", dst[:n], n, err)
	}
}

func TestMaxCompressedSizeSaturates(t *testing.T) {
	if got := MaxCompressedSize(math.MaxInt - 100); got != math.MaxInt {
		t.Fatalf("MaxCompressedSize(MaxInt-100) = %d, wanted MaxInt", got)
	}
	if got := MaxCompressedSize(math.MaxInt); got != math.MaxInt {
		t.Fatalf("MaxCompressedSize(MaxInt) = %d, wanted MaxInt", got)
	}
	if got := MaxCompressedSize(-1); got != 0 {
		t.Fatalf("MaxCompressedSize(-1) = %d, wanted 0", got)
	}
	if got := MaxCompressedSize(0); got != 16 {
		t.Fatalf("MaxCompressedSize(0) = %d, wanted 16", got)
	}
}

func TestDecompressBlockErrors(t *testing.T) {
	longMatch := CompressBlock(nil, bytes.Repeat([]byte("a"), 100))

	cases := []struct {
		name string
		src  []byte
		dst  int
		want error
	}{
		{name: "zero-offset", src: []byte{0x10, 'A', 0x00, 0x00}, dst: 100, want: press.ErrInvalidData},
		{name: "offset-too-far", src: []byte{0x10, 'A', 0x05, 0x00}, dst: 100, want: press.ErrInvalidData},
		{name: "truncated-literals", src: []byte{0x20, 'A'}, dst: 100, want: press.ErrUnexpectedEOF},
		{name: "truncated-offset", src: []byte{0x10, 'A', 0x05}, dst: 100, want: press.ErrUnexpectedEOF},
		{name: "truncated-extension", src: []byte{0xf0}, dst: 100, want: press.ErrUnexpectedEOF},
		{name: "output-too-small", src: longMatch, dst: 10, want: press.ErrOutputTooSmall},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecompressBlock(make([]byte, tc.dst), tc.src)
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, wanted %v", err, tc.want)
			}
		})
	}
}

// Decoding any prefix of a valid block must fail cleanly or succeed with a
// shorter output; it must never panic or read out of bounds.
func TestDecompressBlockTruncated(t *testing.T) {
	data := bytes.Repeat([]byte("the quick brown fox "), 50)
	compressed := CompressBlock(nil, data)
	dst := make([]byte, len(data))

	for i := 0; i < len(compressed); i++ {
		_, err := DecompressBlock(dst, compressed[:i])
		if err == nil {
			continue
		}
		if !errors.Is(err, press.ErrInvalidData) &&
			!errors.Is(err, press.ErrUnexpectedEOF) &&
			!errors.Is(err, press.ErrOutputTooSmall) {
			t.Fatalf("prefix %d: unexpected error kind: %v", i, err)
		}
	}
}

func BenchmarkCompressBlock(b *testing.B) {
	b.ReportAllocs()
	data := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 20000)
	b.SetBytes(int64(len(data)))

	compressed := CompressBlock(nil, data)
	b.ReportMetric(float64(len(data))/float64(len(compressed)), "ratio")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		compressed = CompressBlock(compressed, data)
	}
}

func BenchmarkDecompressBlock(b *testing.B) {
	b.ReportAllocs()
	data := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 20000)
	compressed := CompressBlock(nil, data)
	dst := make([]byte, len(data))
	b.SetBytes(int64(len(data)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := DecompressBlock(dst, compressed); err != nil {
			b.Fatal(err)
		}
	}
}
