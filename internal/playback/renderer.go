package playback

import (
	"github.com/voicebridge/voicebridge/internal/audio"
)

// Renderer is the decode/play primitive the engine drives. Implementations
// own the audio device; the engine guarantees it never calls Play while a
// previous Playback is still live.
type Renderer interface {
	// Play decodes and starts rendering the given bytes. It returns a
	// handle for the in-flight playback, or an error if the bytes could
	// not be decoded. Play must not block for the duration of playback.
	Play(data []byte, encoding audio.Encoding) (Playback, error)
}

// Playback is one actively rendering chunk.
type Playback interface {
	// Done is closed when rendering finishes naturally.
	Done() <-chan struct{}

	// Stop aborts rendering and releases the underlying device unit.
	// Safe to call after completion.
	Stop()
}
