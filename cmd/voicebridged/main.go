package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/voicebridge/voicebridge/internal/config"
	"github.com/voicebridge/voicebridge/internal/observability"
	"github.com/voicebridge/voicebridge/internal/playback"
	"github.com/voicebridge/voicebridge/internal/resilience"
	"github.com/voicebridge/voicebridge/internal/session"
	"github.com/voicebridge/voicebridge/internal/speaker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("server_url", cfg.ServerURL).
		Str("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Voicebridge client starting")

	// Open the audio device
	spk, err := speaker.New(speaker.Config{
		DeviceSampleRate: cfg.DeviceSampleRate,
		PCMSampleRate:    cfg.SampleRate,
		BufferSize:       cfg.PCMBufferSize,
		PollInterval:     10 * time.Millisecond,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open audio device")
	}

	// Build the playback engine on top of the device
	engine := playback.NewEngine(playback.Config{
		CompleteChunkThreshold: cfg.CompleteChunkThreshold,
		FinalChunkAudible:      cfg.FinalChunkAudible,
	}, spk, playback.Callbacks{
		OnComplete: func(s playback.StreamSession) {
			logger.Info().
				Str("stream_id", s.ID).
				Int("played", s.Played).
				Int("dropped", s.Dropped).
				Msg("Stream finished")
		},
		OnDecodeError: func(err error) {
			logger.Warn().Err(err).Msg("Skipping undecodable chunk")
		},
	})

	// Build the connection session routing audio into the engine
	sess := session.New(session.Config{
		URL:               cfg.ServerURL,
		APIKey:            cfg.APIKey,
		VoiceID:           cfg.VoiceID,
		AutoSpeak:         cfg.AutoSpeak,
		HeartbeatInterval: time.Duration(cfg.HeartbeatInterval) * time.Second,
		ConnectTimeout:    time.Duration(cfg.ConnectTimeout) * time.Second,
		DuplicateWindow:   time.Duration(cfg.DuplicateWindow) * time.Millisecond,
		Reconnect: resilience.ReconnectPolicy{
			Delay:      time.Duration(cfg.ReconnectDelay) * time.Millisecond,
			MaxRetries: cfg.ReconnectMaxRetries,
		},
	}, engine, session.Callbacks{
		OnStatus: func(state session.State) {
			logger.Info().Str("state", state.String()).Msg("Connection state changed")
		},
		OnText: func(text, voiceID string) {
			fmt.Printf("<< %s\n", text)
		},
		OnError: func(msg string) {
			logger.Error().Str("message", msg).Msg("Session error")
		},
	})

	// Create HTTP server for health and metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/health", observability.HealthCheckHandler(func() string {
		return sess.State().String()
	}))
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Health endpoint listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server failed to start")
		}
	}()

	if err := sess.Connect(); err != nil {
		// Not fatal: the session keeps retrying on its own schedule.
		logger.Warn().Err(err).Msg("Initial connection failed, will retry")
	}

	// Read lines from stdin and speak them
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			if err := sess.Speak(text); err != nil {
				logger.Warn().Err(err).Msg("Speech request failed")
			}
		}
	}()

	// Wait for interrupt signal to shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down...")

	sess.Close()
	engine.Reset()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("HTTP server forced to shutdown")
	}

	logger.Info().Msg("Exited gracefully")
}
