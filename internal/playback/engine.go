package playback

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/voicebridge/voicebridge/internal/audio"
	"github.com/voicebridge/voicebridge/internal/observability"
)

// State is the engine's playback state.
type State int

const (
	StateIdle State = iota
	StatePlaying
)

func (s State) String() string {
	if s == StatePlaying {
		return "playing"
	}
	return "idle"
}

// Config holds playback engine configuration.
type Config struct {
	// CompleteChunkThreshold is the size in bytes at which a single chunk
	// is treated as a whole response: the pending queue is discarded and
	// the chunk plays alone. Some server modes return one complete audio
	// payload instead of a stream.
	CompleteChunkThreshold int

	// FinalChunkAudible decides whether a final chunk's bytes are queued
	// as audio or treated as a bare end-of-stream marker. Servers differ.
	FinalChunkAudible bool
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() Config {
	return Config{
		CompleteChunkThreshold: 128 * 1024,
		FinalChunkAudible:      true,
	}
}

// Callbacks are invoked by the engine while it holds its state lock; they
// must not call back into the engine. Nil callbacks are skipped.
type Callbacks struct {
	OnStateChange func(State)
	OnProgress    func(float64)       // fraction played, -1 when indeterminate
	OnComplete    func(StreamSession) // stream finished and queue drained
	OnDecodeError func(error)         // non-fatal; the bad chunk was skipped
}

// Engine turns an arbitrarily-timed sequence of chunks into gapless audio.
// Chunks play in submission order through a single renderer unit; playback
// of the first chunk starts immediately rather than waiting for a buffer,
// since time-to-first-audio dominates perceived responsiveness. An underrun
// just leaves the engine idle until the next chunk arrives.
type Engine struct {
	cfg      Config
	renderer Renderer
	cb       Callbacks
	logger   zerolog.Logger

	mu         sync.Mutex
	queue      []audio.Chunk
	state      State
	session    *StreamSession
	active     Playback
	finishing  bool
	generation uint64
	metrics    *observability.StreamMetrics
}

// NewEngine creates a playback engine driving the given renderer
func NewEngine(cfg Config, renderer Renderer, cb Callbacks) *Engine {
	if cfg.CompleteChunkThreshold <= 0 {
		cfg.CompleteChunkThreshold = DefaultConfig().CompleteChunkThreshold
	}
	return &Engine{
		cfg:      cfg,
		renderer: renderer,
		cb:       cb,
		logger:   observability.ComponentLogger("playback"),
	}
}

// SubmitChunk appends a chunk to the playback queue and starts playback if
// the engine is idle. It never blocks the caller; decoding and rendering
// happen asynchronously.
func (e *Engine) SubmitChunk(c audio.Chunk) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		e.beginSessionLocked()
	}
	e.session.Received++
	if c.Total > 0 {
		e.session.Expected = c.Total
	}
	e.metrics.RecordChunkReceived(len(c.Data))

	if c.Final() {
		e.finishing = true
	}

	audible := len(c.Data) > 0 && (!c.Final() || e.cfg.FinalChunkAudible)
	if audible {
		if len(c.Data) >= e.cfg.CompleteChunkThreshold {
			// One complete payload, not a stream fragment. Playing the
			// partial queue in front of it would duplicate its opening.
			e.dropQueueLocked("preempted")
			e.logger.Debug().
				Int("bytes", len(c.Data)).
				Msg("Chunk exceeds complete-response threshold, playing alone")
		}
		e.queue = append(e.queue, c)
	}

	if e.state == StateIdle {
		e.playNextLocked()
	}
}

// FinishStream signals that no more chunks will arrive for the current
// stream. Queued and in-flight audio drains naturally; if the engine is
// already idle with an empty queue the stream completes immediately.
func (e *Engine) FinishStream() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return
	}
	e.finishing = true
	if e.state == StateIdle && len(e.queue) == 0 {
		e.completeLocked()
	}
}

// Reset clears the queue, stops any active playback, and discards the
// current stream session. Completion callbacks from the stopped playback
// are ignored: the generation counter makes cancellation idempotent, so
// nothing can repopulate state after a reset.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

func (e *Engine) resetLocked() {
	e.generation++
	if e.active != nil {
		e.active.Stop()
		e.active = nil
	}
	e.dropQueueLocked("preempted")
	if e.session != nil {
		e.metrics.RecordStreamEnd()
		e.session = nil
		e.metrics = nil
	}
	e.finishing = false
	e.setStateLocked(StateIdle)
}

// State returns the engine's current playback state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Session returns a read-only copy of the current stream session for
// progress display, and false when no stream is in flight.
func (e *Engine) Session() (StreamSession, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return StreamSession{}, false
	}
	return e.session.snapshot(), true
}

// QueueLen returns the number of chunks pending playback
func (e *Engine) QueueLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

func (e *Engine) beginSessionLocked() {
	e.session = newStreamSession()
	e.metrics = observability.NewStreamMetrics()
	e.logger.Info().Str("stream_id", e.session.ID).Msg("Stream session started")
}

// playNextLocked dequeues and plays the head chunk. A chunk that fails to
// decode is dropped, never retried, and the next chunk is attempted right
// away so one corrupt fragment cannot stall the stream.
func (e *Engine) playNextLocked() {
	for {
		if len(e.queue) == 0 {
			e.active = nil
			wasPlaying := e.state == StatePlaying
			e.setStateLocked(StateIdle)
			if e.finishing {
				e.completeLocked()
			} else if wasPlaying && e.session != nil {
				// More chunks expected but none buffered.
				observability.RecordUnderrun()
				e.logger.Debug().Str("stream_id", e.session.ID).Msg("Playback queue underrun")
			}
			return
		}

		c := e.queue[0]
		e.queue = e.queue[1:]

		pb, err := e.renderer.Play(c.Data, c.Encoding)
		if err != nil {
			e.session.Dropped++
			e.metrics.RecordChunkDropped("decode_error")
			e.logger.Warn().Err(err).
				Int("sequence", c.Sequence).
				Msg("Dropping undecodable chunk")
			if e.cb.OnDecodeError != nil {
				e.cb.OnDecodeError(err)
			}
			continue
		}

		e.active = pb
		e.setStateLocked(StatePlaying)
		go e.awaitCompletion(e.generation, pb)
		return
	}
}

// awaitCompletion chains to the next queued chunk once the active one
// finishes rendering. This handoff is what produces continuous playback
// across chunk boundaries.
func (e *Engine) awaitCompletion(generation uint64, pb Playback) {
	<-pb.Done()

	e.mu.Lock()
	defer e.mu.Unlock()

	if generation != e.generation {
		// The engine was reset while this chunk rendered; its completion
		// must not touch current state.
		return
	}

	e.active = nil
	if e.session != nil {
		e.session.Played++
		e.metrics.RecordChunkPlayed()
		if e.cb.OnProgress != nil {
			e.cb.OnProgress(e.session.Progress())
		}
	}
	e.playNextLocked()
}

func (e *Engine) completeLocked() {
	if e.session == nil {
		return
	}
	done := e.session.snapshot()
	e.metrics.RecordStreamEnd()
	e.logger.Info().
		Str("stream_id", done.ID).
		Int("played", done.Played).
		Int("dropped", done.Dropped).
		Msg("Stream complete")
	e.session = nil
	e.metrics = nil
	e.finishing = false
	if e.cb.OnComplete != nil {
		e.cb.OnComplete(done)
	}
}

func (e *Engine) dropQueueLocked(reason string) {
	if len(e.queue) == 0 {
		return
	}
	if e.session != nil {
		e.session.Dropped += len(e.queue)
		for range e.queue {
			e.metrics.RecordChunkDropped(reason)
		}
	}
	e.queue = nil
}

func (e *Engine) setStateLocked(s State) {
	if e.state == s {
		return
	}
	e.state = s
	if e.cb.OnStateChange != nil {
		e.cb.OnStateChange(s)
	}
}
