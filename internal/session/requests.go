package session

// Outbound requests share one struct; zero fields are omitted from the wire.
type Request struct {
	Type  string `json:"type,omitempty"`
	Event string `json:"event,omitempty"`

	Text    string `json:"text,omitempty"`
	VoiceID string `json:"voice_id,omitempty"`

	Model        string        `json:"model,omitempty"`
	VoiceSetting *VoiceSetting `json:"voice_setting,omitempty"`
	AudioSetting *AudioSetting `json:"audio_setting,omitempty"`
}

// VoiceSetting configures the synthesis voice for a task_start request
type VoiceSetting struct {
	VoiceID string  `json:"voice_id"`
	Speed   float64 `json:"speed,omitempty"`
	Volume  float64 `json:"vol,omitempty"`
	Pitch   int     `json:"pitch"`
}

// AudioSetting configures the audio stream for a task_start request
type AudioSetting struct {
	SampleRate int    `json:"sample_rate,omitempty"`
	Bitrate    int    `json:"bitrate,omitempty"`
	Format     string `json:"format,omitempty"`
	Channel    int    `json:"channel,omitempty"`
}

// metricType returns the label used for outbound message metrics
func (r Request) metricType() string {
	if r.Type != "" {
		return r.Type
	}
	if r.Event != "" {
		return r.Event
	}
	return "unknown"
}

// PingRequest builds a heartbeat probe
func PingRequest() Request {
	return Request{Type: "ping"}
}

// SpeakRequest asks the service to synthesize text with the given voice
func SpeakRequest(text, voiceID string) Request {
	return Request{Type: "speak", Text: text, VoiceID: voiceID}
}

// TaskStartRequest opens a synthesis task in the task-event dialect
func TaskStartRequest(model, voiceID string, sampleRate int) Request {
	return Request{
		Event: "task_start",
		Model: model,
		VoiceSetting: &VoiceSetting{
			VoiceID: voiceID,
			Speed:   1,
			Volume:  1,
		},
		AudioSetting: &AudioSetting{
			SampleRate: sampleRate,
			Bitrate:    128000,
			Format:     "mp3",
			Channel:    1,
		},
	}
}

// TaskContinueRequest streams a piece of text into an open synthesis task
func TaskContinueRequest(text string) Request {
	return Request{Event: "task_continue", Text: text}
}

// TaskFinishRequest closes an open synthesis task
func TaskFinishRequest() Request {
	return Request{Event: "task_finish"}
}
