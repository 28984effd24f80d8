package session

import (
	"encoding/json"
	"fmt"

	"github.com/voicebridge/voicebridge/internal/audio"
)

// Inbound wire messages are a JSON envelope with a "type" discriminator
// (some server builds use "event" instead). The envelope is decoded exactly
// once, here, into a tagged Message variant; handlers never re-sniff raw
// maps.

// Message is one decoded inbound message.
type Message interface {
	isMessage()
}

// Ack confirms the connection at the application level.
type Ack struct {
	SessionID string
}

// Pong answers a heartbeat ping. Also accepted as a secondary confirmation
// that the connection is live.
type Pong struct{}

// AudioChunkMessage carries one audio chunk of an in-flight stream.
type AudioChunkMessage struct {
	Chunk audio.Chunk
}

// StreamComplete marks the end of the current audio stream without carrying
// audio of its own.
type StreamComplete struct{}

// TextResponse is a decoded text reply; it preempts any in-flight audio.
type TextResponse struct {
	Text    string
	VoiceID string
}

// ServerError is an explicit error message from the service. Informational;
// it never changes connection state by itself.
type ServerError struct {
	Code    int
	Message string
}

// Unknown wraps a message this client does not consume; it is forwarded to
// the collaborator unmodified.
type Unknown struct {
	Type string
	Raw  []byte
}

func (Ack) isMessage()               {}
func (Pong) isMessage()              {}
func (AudioChunkMessage) isMessage() {}
func (StreamComplete) isMessage()    {}
func (TextResponse) isMessage()      {}
func (ServerError) isMessage()       {}
func (Unknown) isMessage()           {}

// statusFinal is the wire value marking a stream's last chunk.
const statusFinal = 2

type envelope struct {
	Type  string `json:"type,omitempty"`
	Event string `json:"event,omitempty"`

	SessionID string `json:"session_id,omitempty"`

	// Audio chunk fields. Audio payloads appear either at the top level or
	// nested under data, depending on the server build.
	Audio    string        `json:"audio,omitempty"`
	Data     *envelopeData `json:"data,omitempty"`
	Sequence *int          `json:"sequence,omitempty"`
	Total    *int          `json:"total_chunks,omitempty"`
	Status   *int          `json:"status,omitempty"`
	Format   string        `json:"format,omitempty"`
	IsFinal  *bool         `json:"is_final,omitempty"`

	// Text response fields
	Text     string `json:"text,omitempty"`
	Response string `json:"response,omitempty"`
	VoiceID  string `json:"voice_id,omitempty"`

	// Error fields
	Message  string    `json:"message,omitempty"`
	Error    string    `json:"error,omitempty"`
	BaseResp *baseResp `json:"base_resp,omitempty"`
}

type envelopeData struct {
	Audio  string `json:"audio,omitempty"`
	Status *int   `json:"status,omitempty"`
}

type baseResp struct {
	StatusCode int    `json:"status_code"`
	StatusMsg  string `json:"status_msg,omitempty"`
}

// DecodeMessage parses one inbound frame into its Message variant.
func DecodeMessage(raw []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed inbound message: %w", err)
	}

	tag := env.Type
	if tag == "" {
		tag = env.Event
	}

	switch tag {
	case "connection_ack", "connected", "connected_success", "task_started":
		return Ack{SessionID: env.SessionID}, nil
	case "pong":
		return Pong{}, nil
	case "error", "task_failed":
		return decodeServerError(env), nil
	case "speech_complete", "stream_complete", "task_finished":
		return StreamComplete{}, nil
	case "response", "text", "chat_response":
		return TextResponse{Text: responseText(env), VoiceID: env.VoiceID}, nil
	case "audio", "audio_chunk":
		return decodeAudioChunk(env)
	}

	// No recognized tag: fall back to shape. A failing base_resp wins over
	// everything else, then a payload carrying audio bytes is an audio chunk
	// whatever it calls itself; the MiniMax dialect tags its chunks
	// "task_continued".
	if env.BaseResp != nil && env.BaseResp.StatusCode != 0 {
		return decodeServerError(env), nil
	}
	if tag == "task_continued" || hasAudio(env) {
		if !hasAudio(env) {
			// Final frame of the dialect with no audio attached.
			if env.IsFinal != nil && *env.IsFinal {
				return StreamComplete{}, nil
			}
			return Unknown{Type: tag, Raw: raw}, nil
		}
		return decodeAudioChunk(env)
	}
	if env.IsFinal != nil && *env.IsFinal {
		return StreamComplete{}, nil
	}

	return Unknown{Type: tag, Raw: raw}, nil
}

func hasAudio(env envelope) bool {
	return env.Audio != "" || (env.Data != nil && env.Data.Audio != "")
}

func decodeAudioChunk(env envelope) (Message, error) {
	payload := env.Audio
	if payload == "" && env.Data != nil {
		payload = env.Data.Audio
	}
	if payload == "" {
		return nil, fmt.Errorf("audio message without payload")
	}

	data, err := audio.DecodePayload([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("audio payload: %w", err)
	}

	status := audio.StatusPartial
	if env.IsFinal != nil && *env.IsFinal {
		status = audio.StatusFinal
	}
	wireStatus := env.Status
	if wireStatus == nil && env.Data != nil {
		wireStatus = env.Data.Status
	}
	if wireStatus != nil && *wireStatus == statusFinal {
		status = audio.StatusFinal
	}

	sequence := audio.SequenceUnknown
	if env.Sequence != nil {
		sequence = *env.Sequence
	}
	total := 0
	if env.Total != nil {
		total = *env.Total
	}

	chunk := audio.NewChunk(data, sequence, total, status, audio.Encoding(env.Format))
	return AudioChunkMessage{Chunk: chunk}, nil
}

func decodeServerError(env envelope) ServerError {
	msg := env.Message
	if msg == "" {
		msg = env.Error
	}
	code := 0
	if env.BaseResp != nil {
		code = env.BaseResp.StatusCode
		if msg == "" {
			msg = env.BaseResp.StatusMsg
		}
	}
	return ServerError{Code: code, Message: msg}
}

func responseText(env envelope) string {
	if env.Text != "" {
		return env.Text
	}
	return env.Response
}
