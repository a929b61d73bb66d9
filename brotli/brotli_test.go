package brotli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/NerdMeNot/press"
)

func TestRoundTrip(t *testing.T) {
	inputs := []struct {
		name string
		data []byte
	}{
		{name: "nil", data: nil},
		{name: "short-text", data: []byte("hello world, brotli test")},
		{name: "repeated-pattern", data: bytes.Repeat([]byte("abc123"), 2000)},
	}
	for _, in := range inputs {
		t.Run(in.name, func(t *testing.T) {
			compressed, err := Encode(nil, in.data)
			if err != nil {
				t.Fatal(err)
			}
			out, err := Decode(compressed, 0)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !bytes.Equal(out, in.data) {
				t.Fatal("round-trip mismatch")
			}
		})
	}
}

// Brotli has no end-of-stream checksum, but a truncated stream leaves the
// decoder mid-metablock and must still fail with a classified error.
func TestDecodeTruncated(t *testing.T) {
	compressed, err := Encode(nil, bytes.Repeat([]byte("truncate me "), 100))
	if err != nil {
		t.Fatal(err)
	}

	_, err = Decode(compressed[:len(compressed)/2], 0)
	if err == nil {
		t.Fatal("decoding a truncated stream succeeded")
	}
	if !errors.Is(err, press.ErrInvalidData) && !errors.Is(err, press.ErrUnexpectedEOF) {
		t.Fatalf("unexpected error kind: %v", err)
	}
}

func TestDecodeLimit(t *testing.T) {
	data := bytes.Repeat([]byte("A"), 4096)
	compressed, err := Encode(nil, data)
	if err != nil {
		t.Fatal(err)
	}

	_, err = Decode(compressed, len(data)-1)
	if !errors.Is(err, press.ErrOutputTooLarge) {
		t.Fatalf("got %v, wanted ErrOutputTooLarge", err)
	}

	out, err := Decode(compressed, len(data))
	if err != nil {
		t.Fatalf("decode at the exact limit failed: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatal("round-trip mismatch")
	}
}
