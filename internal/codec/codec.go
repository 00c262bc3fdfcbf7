// Package codec provides the MessagePack and ZStandard encodings used by the
// Flight transport for tickets, descriptors and action payloads.
package codec

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrEmpty is returned when decoding empty input.
var ErrEmpty = errors.New("empty MessagePack data")

// Decode deserializes MessagePack data into v, which must be a pointer.
//
// Example:
//
//	var req search.Request
//	err := codec.Decode(ticket.GetTicket(), &req)
func Decode(data []byte, v any) error {
	if len(data) == 0 {
		return ErrEmpty
	}
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode MessagePack: %w", err)
	}
	return nil
}

// Encode serializes v into MessagePack.
func Encode(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode MessagePack: %w", err)
	}
	return data, nil
}

// Compressed is the wire form of a compressed payload: a two element
// MessagePack array holding the uncompressed length and the zstd frame.
type Compressed struct {
	_msgpack struct{} `msgpack:",as_array"`

	Length uint32
	Data   []byte
}

// Compressor encodes values as MessagePack and compresses them with ZStandard.
// Create once and reuse; it is safe for concurrent use.
type Compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCompressor creates a reusable compressor at the default zstd level.
// Call Close when done to release resources.
func NewCompressor() (*Compressor, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Compressor{encoder: encoder, decoder: decoder}, nil
}

// EncodeCompressed serializes v and wraps the compressed bytes in Compressed.
func (c *Compressor) EncodeCompressed(v any) ([]byte, error) {
	raw, err := Encode(v)
	if err != nil {
		return nil, err
	}
	wrapped := Compressed{
		Length: uint32(len(raw)),
		Data:   c.encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2)),
	}
	return Encode(wrapped)
}

// DecodeCompressed reverses EncodeCompressed into v.
func (c *Compressor) DecodeCompressed(data []byte, v any) error {
	var wrapped Compressed
	if err := Decode(data, &wrapped); err != nil {
		return err
	}
	raw, err := c.decoder.DecodeAll(wrapped.Data, make([]byte, 0, wrapped.Length))
	if err != nil {
		return fmt.Errorf("failed to decompress: %w", err)
	}
	if uint32(len(raw)) != wrapped.Length {
		return fmt.Errorf("decompressed %d bytes, expected %d", len(raw), wrapped.Length)
	}
	return Decode(raw, v)
}

// Close releases encoder and decoder resources.
func (c *Compressor) Close() error {
	c.decoder.Close()
	return c.encoder.Close()
}
