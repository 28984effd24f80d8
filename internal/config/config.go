package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the voicebridge client
type Config struct {
	// Remote service configuration
	ServerURL string `envconfig:"SERVER_URL" required:"true"` // WebSocket endpoint, e.g. wss://host/ws/v1/t2a_v2
	APIKey    string `envconfig:"API_KEY" default:""`         // Bearer token sent on connect, if the service requires one
	VoiceID   string `envconfig:"VOICE_ID" default:""`        // Default voice for speech requests

	// Connection behaviour
	AutoSpeak           bool `envconfig:"AUTO_SPEAK" default:"true"`            // Speak text responses automatically
	ReconnectDelay      int  `envconfig:"RECONNECT_DELAY" default:"3000"`       // Delay before reconnecting in milliseconds
	ReconnectMaxRetries int  `envconfig:"RECONNECT_MAX_RETRIES" default:"0"`    // 0 means retry indefinitely
	HeartbeatInterval   int  `envconfig:"HEARTBEAT_INTERVAL" default:"30"`      // Ping interval in seconds
	DuplicateWindow     int  `envconfig:"DUPLICATE_WINDOW" default:"1000"`      // Outbound duplicate suppression window in milliseconds
	ConnectTimeout      int  `envconfig:"CONNECT_TIMEOUT" default:"10"`         // Dial timeout in seconds

	// Playback configuration
	CompleteChunkThreshold int  `envconfig:"COMPLETE_CHUNK_THRESHOLD" default:"131072"` // Bytes; a single chunk at or above this is treated as a whole response
	FinalChunkAudible      bool `envconfig:"FINAL_CHUNK_AUDIBLE" default:"true"`        // Whether a final chunk's bytes are queued as audio or treated as a bare end marker
	SampleRate             int  `envconfig:"SAMPLE_RATE" default:"32000"`               // Expected PCM sample rate when the stream carries raw PCM
	DeviceSampleRate       int  `envconfig:"DEVICE_SAMPLE_RATE" default:"48000"`        // Output device sample rate
	PCMBufferSize          int  `envconfig:"PCM_BUFFER_SIZE" default:"65536"`           // Decoded PCM staging buffer in bytes

	// Observability configuration
	Port           string `envconfig:"PORT" default:"9090"`            // Health and metrics HTTP port
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables. It first attempts to
// load from a .env file if one exists, then from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load a .env file (useful for containerized deployments).
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("VOICEBRIDGE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("VOICEBRIDGE_SERVER_URL is required")
	}
	if cfg.ReconnectDelay <= 0 {
		return nil, fmt.Errorf("VOICEBRIDGE_RECONNECT_DELAY must be positive")
	}
	if cfg.CompleteChunkThreshold <= 0 {
		return nil, fmt.Errorf("VOICEBRIDGE_COMPLETE_CHUNK_THRESHOLD must be positive")
	}

	return &cfg, nil
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
