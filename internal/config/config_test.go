package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	os.Setenv("VOICEBRIDGE_SERVER_URL", "wss://example.com/ws")
	defer os.Unsetenv("VOICEBRIDGE_SERVER_URL")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.ServerURL != "wss://example.com/ws" {
		t.Errorf("Expected ServerURL 'wss://example.com/ws', got '%s'", cfg.ServerURL)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("VOICEBRIDGE_SERVER_URL")

	_, err := LoadFromEnv()
	if err == nil {
		t.Error("Expected error when server URL is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("VOICEBRIDGE_SERVER_URL", "wss://example.com/ws")
	defer os.Unsetenv("VOICEBRIDGE_SERVER_URL")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if !cfg.AutoSpeak {
		t.Error("Expected AutoSpeak to default to true")
	}
	if cfg.ReconnectDelay != 3000 {
		t.Errorf("Expected ReconnectDelay 3000, got %d", cfg.ReconnectDelay)
	}
	if cfg.CompleteChunkThreshold != 131072 {
		t.Errorf("Expected CompleteChunkThreshold 131072, got %d", cfg.CompleteChunkThreshold)
	}
	if !cfg.FinalChunkAudible {
		t.Error("Expected FinalChunkAudible to default to true")
	}
	if cfg.HeartbeatInterval != 30 {
		t.Errorf("Expected HeartbeatInterval 30, got %d", cfg.HeartbeatInterval)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected LogLevel 'info', got '%s'", cfg.LogLevel)
	}
}

func TestLoad_Overrides(t *testing.T) {
	os.Setenv("VOICEBRIDGE_SERVER_URL", "wss://example.com/ws")
	os.Setenv("VOICEBRIDGE_AUTO_SPEAK", "false")
	os.Setenv("VOICEBRIDGE_RECONNECT_DELAY", "500")
	defer func() {
		os.Unsetenv("VOICEBRIDGE_SERVER_URL")
		os.Unsetenv("VOICEBRIDGE_AUTO_SPEAK")
		os.Unsetenv("VOICEBRIDGE_RECONNECT_DELAY")
	}()

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}
	if cfg.AutoSpeak {
		t.Error("Expected AutoSpeak override to false")
	}
	if cfg.ReconnectDelay != 500 {
		t.Errorf("Expected ReconnectDelay 500, got %d", cfg.ReconnectDelay)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	os.Setenv("VOICEBRIDGE_SERVER_URL", "wss://example.com/ws")
	os.Setenv("VOICEBRIDGE_RECONNECT_DELAY", "-1")
	defer func() {
		os.Unsetenv("VOICEBRIDGE_SERVER_URL")
		os.Unsetenv("VOICEBRIDGE_RECONNECT_DELAY")
	}()

	if _, err := LoadFromEnv(); err == nil {
		t.Error("Expected error for negative reconnect delay")
	}
}
