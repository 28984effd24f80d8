package playback

import (
	"github.com/google/uuid"
)

// StreamSession groups the chunks of one logical response. A new session
// always preempts an unfinished one; leftover audio from the old response
// is discarded, never played.
type StreamSession struct {
	ID       string
	Expected int // expected chunk count, 0 when the server never said
	Received int
	Played   int
	Dropped  int
}

func newStreamSession() *StreamSession {
	return &StreamSession{ID: uuid.New().String()}
}

// Progress returns the fraction of the stream played, or -1 when the
// expected total is unknown (indeterminate).
func (s *StreamSession) Progress() float64 {
	if s == nil || s.Expected <= 0 {
		return -1
	}
	p := float64(s.Played) / float64(s.Expected)
	if p > 1 {
		p = 1
	}
	return p
}

// snapshot returns a copy safe to hand to the UI collaborator.
func (s *StreamSession) snapshot() StreamSession {
	return *s
}
