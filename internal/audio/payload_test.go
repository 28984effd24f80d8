package audio

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestDecodeHex_RoundTrip(t *testing.T) {
	raw := make([]byte, 257)
	for i := range raw {
		raw[i] = byte(i % 256)
	}

	decoded, err := DecodeHex(hex.EncodeToString(raw))
	if err != nil {
		t.Fatalf("DecodeHex() failed: %v", err)
	}
	if len(decoded) != len(raw) {
		t.Fatalf("Expected %d bytes, got %d", len(raw), len(decoded))
	}
	if !bytes.Equal(decoded, raw) {
		t.Error("Decoded bytes do not match original")
	}
}

func TestDecodeHex_Invalid(t *testing.T) {
	if _, err := DecodeHex("abc"); err == nil {
		t.Error("Expected error for odd-length hex")
	}
	if _, err := DecodeHex("zz"); err == nil {
		t.Error("Expected error for non-hex characters")
	}
}

func TestDecodePayload_Hex(t *testing.T) {
	data, err := DecodePayload([]byte("fff3a1b2"))
	if err != nil {
		t.Fatalf("DecodePayload() failed: %v", err)
	}
	expected := []byte{0xFF, 0xF3, 0xA1, 0xB2}
	if !bytes.Equal(data, expected) {
		t.Errorf("Expected %v, got %v", expected, data)
	}
}

func TestDecodePayload_Binary(t *testing.T) {
	raw := []byte{0xFF, 0xFB, 0x90, 0x00, 0x12, 0x34}
	data, err := DecodePayload(raw)
	if err != nil {
		t.Fatalf("DecodePayload() failed: %v", err)
	}
	if !bytes.Equal(data, raw) {
		t.Error("Binary payload should pass through unchanged")
	}
}

func TestDecodePayload_Empty(t *testing.T) {
	if _, err := DecodePayload(nil); err == nil {
		t.Error("Expected error for empty payload")
	}
}

func TestDetectEncoding(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected Encoding
	}{
		{"id3 tag", []byte{'I', 'D', '3', 0x04, 0x00}, EncodingMP3},
		{"mpeg frame sync", []byte{0xFF, 0xFB, 0x90, 0x00}, EncodingMP3},
		{"riff wav", []byte{'R', 'I', 'F', 'F', 0x24, 0x00}, EncodingWAV},
		{"too short", []byte{0xFF}, EncodingUnknown},
		{"unknown", []byte{0x00, 0x01, 0x02, 0x03}, EncodingUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectEncoding(tt.data); got != tt.expected {
				t.Errorf("DetectEncoding() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestNewChunk_SniffsEncoding(t *testing.T) {
	c := NewChunk([]byte{0xFF, 0xFB, 0x90, 0x00}, 0, SequenceUnknown, StatusPartial, EncodingUnknown)
	if c.Encoding != EncodingMP3 {
		t.Errorf("Expected sniffed encoding %q, got %q", EncodingMP3, c.Encoding)
	}
	if c.Final() {
		t.Error("Partial chunk should not be final")
	}

	final := NewChunk([]byte{0x00, 0x01, 0x02, 0x03}, 1, 2, StatusFinal, EncodingPCM)
	if final.Encoding != EncodingPCM {
		t.Errorf("Explicit hint should win, got %q", final.Encoding)
	}
	if !final.Final() {
		t.Error("Final chunk should report Final()")
	}
}
