package session

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/voicebridge/voicebridge/internal/observability"
	"github.com/voicebridge/voicebridge/internal/playback"
	"github.com/voicebridge/voicebridge/internal/resilience"
)

// State is the connection state, owned exclusively by the Session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Config holds connection session configuration
type Config struct {
	URL     string // WebSocket endpoint
	APIKey  string // optional bearer token
	VoiceID string // default voice for speech requests

	AutoSpeak         bool          // issue a speech request for each text response
	HeartbeatInterval time.Duration // ping cadence; zero disables the heartbeat
	ConnectTimeout    time.Duration // websocket handshake timeout
	DuplicateWindow   time.Duration // outbound duplicate suppression; zero disables

	Reconnect resilience.ReconnectPolicy
}

// Callbacks are how the session reports to its collaborator (the UI layer).
// OnStatus and OnError may be invoked while the session holds its state
// lock and must not call back into the session; OnText and OnUnknown run on
// the receive loop. Nil callbacks are skipped.
type Callbacks struct {
	OnStatus  func(State)
	OnText    func(text, voiceID string)
	OnError   func(msg string)
	OnUnknown func(msgType string, raw []byte)
}

// Session owns exactly one logical connection to the remote service. It
// serializes outbound requests, receives inbound messages strictly in wire
// order, and routes audio-bearing ones to the playback engine. Construct one
// explicitly and hand it to whoever needs it; there is no shared global.
type Session struct {
	cfg    Config
	engine *playback.Engine
	cb     Callbacks
	logger zerolog.Logger
	sched  *resilience.Scheduler

	mu       sync.Mutex
	conn     *websocket.Conn
	state    State
	manual   bool // last disconnect was user-initiated; suppresses reconnects
	attempts int
	hbStop   chan struct{}

	writeMu sync.Mutex

	dupMu  sync.Mutex
	recent map[string]time.Time
}

// New creates a session routing audio to the given playback engine
func New(cfg Config, engine *playback.Engine, cb Callbacks) *Session {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.Reconnect.Delay <= 0 {
		cfg.Reconnect = resilience.DefaultReconnectPolicy()
	}
	return &Session{
		cfg:    cfg,
		engine: engine,
		cb:     cb,
		logger: observability.ComponentLogger("session"),
		sched:  resilience.NewScheduler(),
		recent: make(map[string]time.Time),
	}
}

// Connect establishes the connection. Idempotent: a redundant call while
// already connecting or connected is a no-op, so concurrent triggers cannot
// open duplicate sockets. An explicit Connect re-enables automatic
// reconnection after a manual disconnect.
func (s *Session) Connect() error {
	s.mu.Lock()
	if s.state == StateConnected || s.state == StateConnecting {
		s.mu.Unlock()
		return nil
	}
	s.manual = false
	s.attempts = 0
	s.mu.Unlock()

	return s.dial()
}

// dial performs one transport-level connection attempt. Used by both
// Connect and the reconnect timer; it does not reset the attempt counter.
func (s *Session) dial() error {
	s.mu.Lock()
	if s.state == StateConnected || s.state == StateConnecting {
		s.mu.Unlock()
		return nil
	}
	s.setStateLocked(StateConnecting)
	s.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: s.cfg.ConnectTimeout}
	var header http.Header
	if s.cfg.APIKey != "" {
		header = http.Header{}
		header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	conn, resp, err := dialer.Dial(s.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		s.mu.Lock()
		s.setStateLocked(StateDisconnected)
		s.scheduleReconnectLocked()
		s.mu.Unlock()
		return fmt.Errorf("dial %s: %w", s.cfg.URL, err)
	}

	s.mu.Lock()
	if s.manual {
		// Disconnected while the dial was in flight.
		s.mu.Unlock()
		conn.Close()
		return nil
	}
	s.conn = conn
	s.attempts = 0
	s.hbStop = make(chan struct{})
	hbStop := s.hbStop
	// The transport confirming open is one accepted confirmation; a server
	// ack or pong is the other, handled in dispatch.
	s.setStateLocked(StateConnected)
	s.mu.Unlock()

	// Each physical connection gets its own correlation ID so its log
	// lines remain distinguishable across reconnects.
	connLog := observability.WithCorrelationID(observability.NewCorrelationID()).
		With().Str("component", "session").Logger()
	connLog.Info().Str("url", s.cfg.URL).Msg("Connected")

	go s.readLoop(conn, connLog)
	if s.cfg.HeartbeatInterval > 0 {
		go s.heartbeat(hbStop)
	}
	return nil
}

// Disconnect closes the transport. When manual, automatic reconnection is
// suppressed until the next explicit Connect.
func (s *Session) Disconnect(manual bool) {
	s.mu.Lock()
	if manual {
		s.manual = true
		s.sched.Cancel()
	}
	conn := s.conn
	s.conn = nil
	s.stopHeartbeatLocked()
	s.setStateLocked(StateDisconnected)
	s.mu.Unlock()

	if conn != nil {
		s.writeMu.Lock()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		conn.Close()
	}
}

// Close shuts the session down for good
func (s *Session) Close() {
	s.Disconnect(true)
	s.sched.Stop()
}

// State returns the current connection state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Send serializes and writes one request to the wire. It fails with
// ErrNotConnected when no transport exists and does not retry on transport
// failure; retrying is the caller's decision.
func (s *Session) Send(req Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return &SerializationError{Err: err}
	}
	if s.isDuplicate(data) {
		s.logger.Debug().Str("type", req.metricType()).Msg("Suppressing duplicate outbound message")
		return ErrDuplicateMessage
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	s.writeMu.Unlock()
	if err != nil {
		terr := classifyTransport(err)
		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
			s.stopHeartbeatLocked()
			s.setStateLocked(StateDisconnected)
			if !terr.Benign {
				observability.RecordError("transport", "session")
				s.scheduleReconnectLocked()
			}
		}
		s.mu.Unlock()
		conn.Close()
		return terr
	}

	observability.RecordMessageSent(req.metricType())
	return nil
}

// Speak requests synthesis of the given text with the session's voice
func (s *Session) Speak(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("nothing to speak")
	}
	return s.Send(SpeakRequest(text, s.cfg.VoiceID))
}

// readLoop receives inbound messages strictly sequentially, in wire arrival
// order. Handling an audio chunk only enqueues it; playback proceeds
// independently, so a long-playing chunk never stalls the next receive.
func (s *Session) readLoop(conn *websocket.Conn, logger zerolog.Logger) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.handleReadError(conn, err)
			return
		}
		s.dispatch(data, logger)
	}
}

func (s *Session) dispatch(data []byte, logger zerolog.Logger) {
	msg, err := DecodeMessage(data)
	if err != nil {
		logger.Warn().Err(err).Msg("Dropping undecodable inbound message")
		observability.RecordError("decode", "session")
		return
	}

	switch m := msg.(type) {
	case Ack:
		observability.RecordMessageReceived("ack")
		s.confirmConnected()

	case Pong:
		observability.RecordMessageReceived("pong")
		s.confirmConnected()

	case AudioChunkMessage:
		observability.RecordMessageReceived("audio_chunk")
		s.engine.SubmitChunk(m.Chunk)

	case StreamComplete:
		observability.RecordMessageReceived("stream_complete")
		s.engine.FinishStream()

	case TextResponse:
		observability.RecordMessageReceived("response")
		// A new response always preempts leftover audio from the old one.
		s.engine.Reset()
		if s.cb.OnText != nil {
			s.cb.OnText(m.Text, m.VoiceID)
		}
		if s.cfg.AutoSpeak && m.Text != "" {
			voice := m.VoiceID
			if voice == "" {
				voice = s.cfg.VoiceID
			}
			if err := s.Send(SpeakRequest(m.Text, voice)); err != nil && !errors.Is(err, ErrDuplicateMessage) {
				logger.Warn().Err(err).Msg("Auto-speak request failed")
			}
		}

	case ServerError:
		observability.RecordMessageReceived("error")
		observability.RecordError("server_reported", "session")
		logger.Warn().Int("code", m.Code).Str("message", m.Message).Msg("Server reported error")
		if s.cb.OnError != nil {
			s.cb.OnError(m.Message)
		}

	case Unknown:
		observability.RecordMessageReceived("unknown")
		if s.cb.OnUnknown != nil {
			s.cb.OnUnknown(m.Type, m.Raw)
		}
	}
}

// confirmConnected applies a server-side liveness confirmation. Covers
// servers whose transport-open signal was missed or that confirm only at
// the application level.
func (s *Session) confirmConnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil && s.state != StateConnected {
		s.setStateLocked(StateConnected)
	}
}

func (s *Session) handleReadError(conn *websocket.Conn, err error) {
	terr := classifyTransport(err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != conn {
		// A stale read loop from a connection we already replaced or closed.
		return
	}
	s.conn = nil
	s.stopHeartbeatLocked()
	s.setStateLocked(StateDisconnected)

	if terr.Benign || s.manual {
		s.logger.Debug().Err(terr.Err).Msg("Connection closed")
		return
	}

	s.logger.Warn().Err(terr.Err).Msg("Connection lost")
	observability.RecordError("transport", "session")
	if s.cb.OnError != nil {
		s.cb.OnError(terr.Error())
	}
	s.scheduleReconnectLocked()
}

// scheduleReconnectLocked arranges one reconnect attempt after the policy
// delay. The scheduler guarantees at most one live timer; scheduling again
// replaces any pending attempt.
func (s *Session) scheduleReconnectLocked() {
	if s.manual {
		return
	}
	if s.cfg.Reconnect.Exhausted(s.attempts) {
		s.logger.Error().Int("attempts", s.attempts).Msg("Giving up on reconnection")
		return
	}
	s.attempts++
	observability.RecordReconnect()
	s.setStateLocked(StateReconnecting)
	s.logger.Info().
		Dur("delay", s.cfg.Reconnect.Delay).
		Int("attempt", s.attempts).
		Msg("Scheduling reconnect")

	s.sched.Schedule(s.cfg.Reconnect.Delay, func() {
		s.mu.Lock()
		skip := s.manual || s.state == StateConnected || s.state == StateConnecting
		s.mu.Unlock()
		if skip {
			return
		}
		if err := s.dial(); err != nil {
			s.logger.Warn().Err(err).Msg("Reconnect attempt failed")
		}
	})
}

func (s *Session) heartbeat(stop chan struct{}) {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := s.Send(PingRequest())
			if errors.Is(err, ErrNotConnected) {
				return
			}
			if err != nil && !errors.Is(err, ErrDuplicateMessage) {
				s.logger.Debug().Err(err).Msg("Heartbeat send failed")
			}
		case <-stop:
			return
		}
	}
}

func (s *Session) stopHeartbeatLocked() {
	if s.hbStop != nil {
		close(s.hbStop)
		s.hbStop = nil
	}
}

func (s *Session) setStateLocked(next State) {
	if s.state == next {
		return
	}
	s.state = next
	observability.SetConnectionState(int(next))
	if s.cb.OnStatus != nil {
		s.cb.OnStatus(next)
	}
}

// isDuplicate reports whether an identical payload was sent within the
// suppression window. Guards against double-tap style duplicate requests
// from the collaborator.
func (s *Session) isDuplicate(data []byte) bool {
	if s.cfg.DuplicateWindow <= 0 {
		return false
	}

	sum := md5.Sum(data)
	key := hex.EncodeToString(sum[:])
	now := time.Now()

	s.dupMu.Lock()
	defer s.dupMu.Unlock()

	if last, ok := s.recent[key]; ok && now.Sub(last) < s.cfg.DuplicateWindow {
		return true
	}
	s.recent[key] = now

	if len(s.recent) > 128 {
		for k, at := range s.recent {
			if now.Sub(at) >= s.cfg.DuplicateWindow {
				delete(s.recent, k)
			}
		}
	}
	return false
}
