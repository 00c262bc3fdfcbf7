package codec

import (
	"errors"
	"strings"
	"testing"
)

type payload struct {
	CategoryID int64    `msgpack:"category_id"`
	Names      []string `msgpack:"names"`
}

func TestDecodeEmpty(t *testing.T) {
	var p payload
	if err := Decode(nil, &p); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}

func TestDecodeGarbage(t *testing.T) {
	var p payload
	if err := Decode([]byte{0xc1}, &p); err == nil {
		t.Error("expected error for invalid MessagePack")
	}
}

func TestCompressedRoundTrip(t *testing.T) {
	c, err := NewCompressor()
	if err != nil {
		t.Fatalf("NewCompressor failed: %v", err)
	}
	defer c.Close()

	in := payload{CategoryID: 2, Names: []string{strings.Repeat("screen_size", 50), "RAM"}}
	data, err := c.EncodeCompressed(in)
	if err != nil {
		t.Fatalf("EncodeCompressed failed: %v", err)
	}

	// The wire form is a two element array: [length, frame].
	var wrapped []any
	if err := Decode(data, &wrapped); err != nil {
		t.Fatalf("Decode wrapper failed: %v", err)
	}
	if len(wrapped) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(wrapped))
	}

	var out payload
	if err := c.DecodeCompressed(data, &out); err != nil {
		t.Fatalf("DecodeCompressed failed: %v", err)
	}
	if out.CategoryID != 2 || len(out.Names) != 2 || out.Names[1] != "RAM" {
		t.Errorf("unexpected payload: %+v", out)
	}
}
