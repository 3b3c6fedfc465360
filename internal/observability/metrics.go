package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "interview_gateway_active_sessions",
		Help: "Number of active interview sessions",
	})

	totalSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_sessions_total",
		Help: "Total number of interview sessions by voice mode",
	}, []string{"mode"}) // mode: "managed" or "local"

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "interview_gateway_session_duration_seconds",
		Help:    "Duration of interview sessions in seconds",
		Buckets: []float64{60, 300, 600, 900, 1800, 2700, 3600},
	})

	fallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_gateway_fallbacks_total",
		Help: "Number of sessions that fell back from the managed to the local provider",
	})

	// Provider metrics
	providerStartLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "interview_gateway_provider_start_seconds",
		Help:    "Time from start request to provider connected",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"provider"})

	// Question generation metrics
	generationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_generation_requests_total",
		Help: "Total question/follow-up generation requests",
	}, []string{"kind", "status"}) // kind: "plan" or "followup"

	generationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "interview_gateway_generation_latency_seconds",
		Help:    "Text generation latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	// Transcript metrics
	transcriptEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_transcript_entries_total",
		Help: "Total finalized transcript entries by speaker",
	}, []string{"speaker"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "interview_gateway_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	// Audio metrics
	audioBytesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_audio_bytes_total",
		Help: "Total audio bytes processed",
	}, []string{"direction"}) // direction: "in" or "out"
)

// SessionMetrics tracks metrics for a single interview session
type SessionMetrics struct {
	sessionID string
	startTime time.Time

	mu           sync.Mutex
	connectStart time.Time
}

// NewSessionMetrics creates a metrics tracker for one session
func NewSessionMetrics(sessionID string) *SessionMetrics {
	return &SessionMetrics{
		sessionID: sessionID,
		startTime: time.Now(),
	}
}

// RecordSessionStart records the start of a session in the given voice mode
func (m *SessionMetrics) RecordSessionStart(mode string) {
	activeSessions.Inc()
	totalSessions.WithLabelValues(mode).Inc()

	m.mu.Lock()
	m.connectStart = time.Now()
	m.mu.Unlock()
}

// RecordSessionEnd records the end of a session
func (m *SessionMetrics) RecordSessionEnd() {
	activeSessions.Dec()
	sessionDuration.Observe(time.Since(m.startTime).Seconds())
}

// RecordProviderConnected records the time taken for a provider to reach connected
func (m *SessionMetrics) RecordProviderConnected(provider string) {
	m.mu.Lock()
	start := m.connectStart
	m.mu.Unlock()

	if !start.IsZero() {
		providerStartLatency.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	}
}

// RecordFallback records a managed-to-local provider fallback
func (m *SessionMetrics) RecordFallback() {
	fallbacksTotal.Inc()
}

// RecordTranscriptEntry records one finalized transcript entry
func (m *SessionMetrics) RecordTranscriptEntry(speaker string) {
	transcriptEntries.WithLabelValues(speaker).Inc()
}

// RecordError records an error
func (m *SessionMetrics) RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordAudioBytes records audio bytes processed
func (m *SessionMetrics) RecordAudioBytes(direction string, bytes int64) {
	audioBytesProcessed.WithLabelValues(direction).Add(float64(bytes))
}

// UpdateCircuitBreakerState updates the circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// RecordComponentError records an error outside any session scope
func RecordComponentError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordGeneration records one text generation request. kind is "plan" or
// "followup"; a request that degraded to fallback content counts as
// "fallback", anything else as "success".
func RecordGeneration(kind string, success bool, latency time.Duration) {
	generationLatency.Observe(latency.Seconds())

	status := "success"
	if !success {
		status = "fallback"
	}
	generationRequests.WithLabelValues(kind, status).Inc()
}
