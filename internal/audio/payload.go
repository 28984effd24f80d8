package audio

import (
	"encoding/hex"
	"fmt"
)

// DecodeHex converts a hex-encoded audio payload to raw bytes. Servers that
// stream through JSON text frames encode binary audio this way; the decoded
// output is byte-for-byte the original audio.
func DecodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("hex payload has odd length %d", len(s))
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload: %w", err)
	}
	return data, nil
}

// DecodePayload normalizes a wire audio payload to raw bytes. The payload is
// either hex-encoded binary or a self-describing container; hex is detected
// by inspecting the bytes rather than trusting any declared field, since
// servers have shipped both representations under the same message shape.
func DecodePayload(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty audio payload")
	}
	if looksHex(raw) {
		return DecodeHex(string(raw))
	}
	return raw, nil
}

// DetectEncoding sniffs the container format from the leading bytes.
func DetectEncoding(data []byte) Encoding {
	if len(data) < 4 {
		return EncodingUnknown
	}
	// ID3 tag or MPEG frame sync
	if data[0] == 'I' && data[1] == 'D' && data[2] == '3' {
		return EncodingMP3
	}
	if data[0] == 0xFF && data[1]&0xE0 == 0xE0 {
		return EncodingMP3
	}
	if data[0] == 'R' && data[1] == 'I' && data[2] == 'F' && data[3] == 'F' {
		return EncodingWAV
	}
	return EncodingUnknown
}

// looksHex reports whether the whole payload is plausible hex text. A raw
// MP3 or WAV payload fails this on its first non-hex byte.
func looksHex(data []byte) bool {
	if len(data) == 0 || len(data)%2 != 0 {
		return false
	}
	for _, b := range data {
		switch {
		case b >= '0' && b <= '9':
		case b >= 'a' && b <= 'f':
		case b >= 'A' && b <= 'F':
		default:
			return false
		}
	}
	return true
}
