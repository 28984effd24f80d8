package speaker

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/voicebridge/voicebridge/internal/audio"
)

// buildWAV assembles a minimal RIFF/WAVE container around the given samples.
func buildWAV(rate, channels, bits int, pcm []byte) []byte {
	var buf []byte
	u32 := func(v int) []byte {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(v))
		return b
	}
	u16 := func(v int) []byte {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(v))
		return b
	}

	buf = append(buf, "RIFF"...)
	buf = append(buf, u32(36+len(pcm))...)
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = append(buf, u32(16)...)
	buf = append(buf, u16(1)...) // PCM format tag
	buf = append(buf, u16(channels)...)
	buf = append(buf, u32(rate)...)
	buf = append(buf, u32(rate*channels*bits/8)...)
	buf = append(buf, u16(channels*bits/8)...)
	buf = append(buf, u16(bits)...)
	buf = append(buf, "data"...)
	buf = append(buf, u32(len(pcm))...)
	buf = append(buf, pcm...)
	return buf
}

func TestDecodeWAV(t *testing.T) {
	pcm := []byte{0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04, 0x00}
	wav := buildWAV(16000, 1, 16, pcm)

	got, rate, channels, err := decodeWAV(wav)
	if err != nil {
		t.Fatalf("decodeWAV error: %v", err)
	}
	if rate != 16000 {
		t.Errorf("Expected rate 16000, got %d", rate)
	}
	if channels != 1 {
		t.Errorf("Expected 1 channel, got %d", channels)
	}
	if len(got) != len(pcm) {
		t.Errorf("Expected %d PCM bytes, got %d", len(pcm), len(got))
	}
}

func TestDecodeWAVRejectsNonRIFF(t *testing.T) {
	if _, _, _, err := decodeWAV([]byte("definitely not audio")); err == nil {
		t.Error("Expected error for non-RIFF payload")
	}
}

func TestDecodeWAVRejectsUnsupportedBitDepth(t *testing.T) {
	wav := buildWAV(16000, 1, 8, []byte{0x01, 0x02})
	if _, _, _, err := decodeWAV(wav); err == nil {
		t.Error("Expected error for 8-bit WAV")
	}
}

func TestDecodeWAVTruncatedData(t *testing.T) {
	wav := buildWAV(16000, 1, 16, []byte{0x01, 0x00, 0x02, 0x00})
	wav = wav[:len(wav)-2]
	if _, _, _, err := decodeWAV(wav); err == nil {
		t.Error("Expected error for truncated data chunk")
	}
}

func TestDecodeRawPCMPassthrough(t *testing.T) {
	s := &Speaker{cfg: DefaultConfig()}
	data := []byte{0x01, 0x00, 0x02, 0x00}

	pcm, rate, channels, err := s.decode(data, audio.EncodingPCM)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if rate != s.cfg.PCMSampleRate {
		t.Errorf("Expected configured PCM rate %d, got %d", s.cfg.PCMSampleRate, rate)
	}
	if channels != 1 {
		t.Errorf("Expected mono, got %d channels", channels)
	}
	if len(pcm) != len(data) {
		t.Errorf("Expected passthrough, got %d bytes", len(pcm))
	}
}

func TestDecodeRejectsOddPCM(t *testing.T) {
	s := &Speaker{cfg: DefaultConfig()}
	if _, _, _, err := s.decode([]byte{0x01, 0x00, 0x02}, audio.EncodingPCM); err == nil {
		t.Error("Expected error for odd-length PCM")
	}
}

func TestDecodeRejectsGarbageMP3(t *testing.T) {
	s := &Speaker{cfg: DefaultConfig()}
	garbage := []byte{0xFF, 0xFB, 0x01, 0x02, 0x03}
	if _, _, _, err := s.decode(garbage, audio.EncodingMP3); err == nil {
		t.Error("Expected error for undecodable MP3 bytes")
	}
}

func TestRingReaderDrainsToEOF(t *testing.T) {
	ring := audio.NewRingBuffer(8)
	ring.Write([]byte{1, 2, 3, 4})
	r := &ringReader{ring: ring}

	buf := make([]byte, 16)
	n, err := r.Read(buf)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if n != 4 {
		t.Errorf("Expected 4 bytes, got %d", n)
	}

	if _, err := r.Read(buf); err != io.EOF {
		t.Errorf("Expected EOF on drained ring, got %v", err)
	}
}
