// Package speaker renders decoded audio chunks on the local output device.
package speaker

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/go-mp3"
	"github.com/rs/zerolog"

	"github.com/voicebridge/voicebridge/internal/audio"
	"github.com/voicebridge/voicebridge/internal/observability"
	"github.com/voicebridge/voicebridge/internal/playback"
)

const deviceChannels = 2

// Config holds audio device configuration
type Config struct {
	DeviceSampleRate int           // output device rate
	PCMSampleRate    int           // rate assumed for headerless PCM payloads
	BufferSize       int           // minimum PCM staging capacity in bytes
	PollInterval     time.Duration // device completion poll cadence
}

// DefaultConfig returns device settings suitable for speech playback
func DefaultConfig() Config {
	return Config{
		DeviceSampleRate: 48000,
		PCMSampleRate:    32000,
		BufferSize:       64 * 1024,
		PollInterval:     10 * time.Millisecond,
	}
}

// Speaker owns the OS audio device and implements playback.Renderer. The
// device context is created once; each chunk gets its own player so a stop
// never tears the context down.
type Speaker struct {
	cfg    Config
	ctx    *oto.Context
	logger zerolog.Logger
}

// New opens the audio device and blocks until it is ready.
func New(cfg Config) (*Speaker, error) {
	if cfg.DeviceSampleRate <= 0 {
		cfg.DeviceSampleRate = 48000
	}
	if cfg.PCMSampleRate <= 0 {
		cfg.PCMSampleRate = 32000
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Millisecond
	}

	op := &oto.NewContextOptions{
		SampleRate:   cfg.DeviceSampleRate,
		ChannelCount: deviceChannels,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio device: %w", err)
	}
	<-readyChan

	logger := observability.ComponentLogger("speaker")
	logger.Info().
		Int("sample_rate", cfg.DeviceSampleRate).
		Int("channels", deviceChannels).
		Msg("Audio device ready")

	return &Speaker{cfg: cfg, ctx: ctx, logger: logger}, nil
}

// Play decodes one chunk's bytes to device-rate stereo PCM and starts an
// independent player for it. Decode failures are returned before anything
// reaches the device.
func (s *Speaker) Play(data []byte, encoding audio.Encoding) (playback.Playback, error) {
	pcm, rate, channels, err := s.decode(data, encoding)
	if err != nil {
		return nil, err
	}
	if channels == 1 {
		if pcm, err = audio.MonoToStereo16(pcm); err != nil {
			return nil, err
		}
	}
	pcm, err = audio.ResampleInterleaved16(pcm, deviceChannels, rate, s.cfg.DeviceSampleRate)
	if err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("decoded to empty PCM")
	}

	capacity := len(pcm)
	if capacity < s.cfg.BufferSize {
		capacity = s.cfg.BufferSize
	}
	ring := audio.NewRingBuffer(capacity)
	ring.Write(pcm)

	player := s.ctx.NewPlayer(&ringReader{ring: ring})
	player.Play()

	pb := &devicePlayback{
		player: player,
		ring:   ring,
		done:   make(chan struct{}),
	}
	go pb.watch(s.cfg.PollInterval)
	return pb, nil
}

// decode turns a chunk's bytes into 16-bit LE PCM plus its rate and channel
// count. Unknown payloads are sniffed; headerless bytes are treated as raw
// PCM at the configured rate.
func (s *Speaker) decode(data []byte, encoding audio.Encoding) ([]byte, int, int, error) {
	if encoding == audio.EncodingUnknown {
		encoding = audio.DetectEncoding(data)
	}

	switch encoding {
	case audio.EncodingMP3:
		dec, err := mp3.NewDecoder(bytes.NewReader(data))
		if err != nil {
			return nil, 0, 0, fmt.Errorf("mp3 decode: %w", err)
		}
		pcm, err := io.ReadAll(dec)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("mp3 decode: %w", err)
		}
		// go-mp3 always emits 16-bit stereo.
		return pcm, dec.SampleRate(), 2, nil

	case audio.EncodingWAV:
		return decodeWAV(data)

	default:
		if len(data)%2 != 0 {
			return nil, 0, 0, fmt.Errorf("PCM payload has odd length %d", len(data))
		}
		return data, s.cfg.PCMSampleRate, 1, nil
	}
}

// ringReader adapts the staging ring buffer to the reader the device player
// consumes. All audio is written before playback starts, so an empty ring
// means the chunk is fully delivered.
type ringReader struct {
	ring *audio.RingBuffer
}

func (r *ringReader) Read(p []byte) (int, error) {
	n := r.ring.Read(p)
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// devicePlayback is one chunk rendering on the device.
type devicePlayback struct {
	player *oto.Player
	ring   *audio.RingBuffer
	done   chan struct{}

	mu      sync.Mutex
	stopped bool
	once    sync.Once
}

func (p *devicePlayback) Done() <-chan struct{} { return p.done }

// Stop aborts rendering. The ring is drained so the player's reader hits
// EOF even if the device asks for more bytes during teardown.
func (p *devicePlayback) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.ring.Clear()
	p.player.Close()
	p.once.Do(func() { close(p.done) })
}

// watch polls the device until rendering finishes, then releases the player
// and signals completion. A Stop ends the poll without a second close.
func (p *devicePlayback) watch(interval time.Duration) {
	for p.player.IsPlaying() {
		p.mu.Lock()
		stopped := p.stopped
		p.mu.Unlock()
		if stopped {
			return
		}
		time.Sleep(interval)
	}

	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if stopped {
		return
	}
	p.player.Close()
	p.once.Do(func() { close(p.done) })
}

// decodeWAV parses a minimal RIFF/WAVE container with 16-bit PCM samples.
func decodeWAV(data []byte) ([]byte, int, int, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, 0, fmt.Errorf("not a RIFF/WAVE payload")
	}

	var (
		rate     int
		channels int
		bits     int
		pcm      []byte
	)

	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(uint32(data[off+4]) | uint32(data[off+5])<<8 | uint32(data[off+6])<<16 | uint32(data[off+7])<<24)
		body := off + 8
		if body+size > len(data) {
			return nil, 0, 0, fmt.Errorf("truncated WAV chunk %q", id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, 0, fmt.Errorf("short fmt chunk")
			}
			channels = int(uint16(data[body+2]) | uint16(data[body+3])<<8)
			rate = int(uint32(data[body+4]) | uint32(data[body+5])<<8 | uint32(data[body+6])<<16 | uint32(data[body+7])<<24)
			bits = int(uint16(data[body+14]) | uint16(data[body+15])<<8)
		case "data":
			pcm = data[body : body+size]
		}

		// Chunks are word-aligned.
		off = body + size + size%2
	}

	if pcm == nil || rate == 0 || channels == 0 {
		return nil, 0, 0, fmt.Errorf("WAV payload missing fmt or data chunk")
	}
	if bits != 16 {
		return nil, 0, 0, fmt.Errorf("unsupported WAV bit depth %d", bits)
	}
	if channels > 2 {
		return nil, 0, 0, fmt.Errorf("unsupported WAV channel count %d", channels)
	}
	return pcm, rate, channels, nil
}
