package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection metrics
	connectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voicebridge_connection_state",
		Help: "Connection state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting)",
	})

	reconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicebridge_reconnects_total",
		Help: "Total number of reconnection attempts scheduled",
	})

	messagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicebridge_messages_received_total",
		Help: "Total inbound messages by declared type",
	}, []string{"type"})

	messagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicebridge_messages_sent_total",
		Help: "Total outbound messages by type",
	}, []string{"type"})

	// Stream metrics
	activeStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voicebridge_active_streams",
		Help: "Number of audio streams currently in flight (0 or 1)",
	})

	streamsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicebridge_streams_total",
		Help: "Total number of audio streams started",
	})

	streamDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voicebridge_stream_duration_seconds",
		Help:    "Duration of audio streams from first chunk to drain",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	timeToFirstAudio = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voicebridge_time_to_first_audio_seconds",
		Help:    "Latency from stream start to first audible chunk",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})

	// Chunk metrics
	chunksReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicebridge_chunks_received_total",
		Help: "Total audio chunks received",
	})

	chunksPlayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicebridge_chunks_played_total",
		Help: "Total audio chunks played to completion",
	})

	chunksDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicebridge_chunks_dropped_total",
		Help: "Total audio chunks dropped",
	}, []string{"reason"}) // reason: "decode_error", "preempted"

	audioBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicebridge_audio_bytes_total",
		Help: "Total audio payload bytes received",
	})

	underruns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicebridge_underruns_total",
		Help: "Times the playback queue emptied while more chunks were expected",
	})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicebridge_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})
)

// SetConnectionState updates the connection state gauge
func SetConnectionState(state int) {
	connectionState.Set(float64(state))
}

// RecordReconnect records a scheduled reconnection attempt
func RecordReconnect() {
	reconnectsTotal.Inc()
}

// RecordMessageReceived records an inbound message by type
func RecordMessageReceived(msgType string) {
	messagesReceived.WithLabelValues(msgType).Inc()
}

// RecordMessageSent records an outbound message by type
func RecordMessageSent(msgType string) {
	messagesSent.WithLabelValues(msgType).Inc()
}

// RecordError records an error
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordUnderrun records a playback queue underrun
func RecordUnderrun() {
	underruns.Inc()
}

// StreamMetrics tracks metrics for a single audio stream
type StreamMetrics struct {
	startTime  time.Time
	firstAudio bool
	mu         sync.Mutex
}

// NewStreamMetrics creates a metrics tracker for one stream and records
// its start
func NewStreamMetrics() *StreamMetrics {
	activeStreams.Inc()
	streamsTotal.Inc()
	return &StreamMetrics{startTime: time.Now()}
}

// RecordChunkReceived records one received chunk and its payload size
func (m *StreamMetrics) RecordChunkReceived(bytes int) {
	chunksReceived.Inc()
	audioBytes.Add(float64(bytes))
}

// RecordChunkPlayed records one chunk played to completion
func (m *StreamMetrics) RecordChunkPlayed() {
	m.mu.Lock()
	if !m.firstAudio {
		m.firstAudio = true
		timeToFirstAudio.Observe(time.Since(m.startTime).Seconds())
	}
	m.mu.Unlock()
	chunksPlayed.Inc()
}

// RecordChunkDropped records a dropped chunk with a reason
func (m *StreamMetrics) RecordChunkDropped(reason string) {
	chunksDropped.WithLabelValues(reason).Inc()
}

// RecordStreamEnd records the end of a stream
func (m *StreamMetrics) RecordStreamEnd() {
	activeStreams.Dec()
	streamDuration.Observe(time.Since(m.startTime).Seconds())
}
