package audio

// Status marks a chunk's position in its stream.
type Status int

const (
	StatusPartial Status = iota + 1 // more chunks follow
	StatusFinal                     // no more chunks follow
)

// SequenceUnknown is used when the server did not number a chunk.
const SequenceUnknown = -1

// Encoding identifies the container format of a chunk's bytes.
type Encoding string

const (
	EncodingUnknown Encoding = ""
	EncodingMP3     Encoding = "mp3"
	EncodingWAV     Encoding = "wav"
	EncodingPCM     Encoding = "pcm"
)

// Chunk is one discrete delivery of encoded audio bytes, part of a larger
// logical response. Data is never mutated after the chunk is built; the
// playback engine decodes it and discards the chunk.
type Chunk struct {
	Data     []byte
	Sequence int // SequenceUnknown when absent
	Total    int // expected chunk count, zero when absent
	Status   Status
	Encoding Encoding
}

// Final reports whether this chunk closes its stream.
func (c Chunk) Final() bool {
	return c.Status == StatusFinal
}

// NewChunk builds a chunk and sniffs the encoding when no hint is given.
func NewChunk(data []byte, sequence, total int, status Status, hint Encoding) Chunk {
	if hint == EncodingUnknown {
		hint = DetectEncoding(data)
	}
	return Chunk{
		Data:     data,
		Sequence: sequence,
		Total:    total,
		Status:   status,
		Encoding: hint,
	}
}
