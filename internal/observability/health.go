package observability

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthStatus represents the health of the client process
type HealthStatus struct {
	Status     string `json:"status"`
	Service    string `json:"service"`
	Version    string `json:"version"`
	Timestamp  string `json:"timestamp"`
	Connection string `json:"connection,omitempty"`
}

// ConnectionStateFunc reports the current connection state as a string.
// Injected by the caller to avoid an import cycle with the session package.
type ConnectionStateFunc func() string

// HealthCheckHandler handles health check requests
func HealthCheckHandler(connState ConnectionStateFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := HealthStatus{
			Status:    "healthy",
			Service:   "voicebridge",
			Version:   "1.0.0",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		if connState != nil {
			status.Connection = connState()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(status)
	}
}
