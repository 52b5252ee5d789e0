package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	ChatRequests       prometheus.Counter
	ChatRequestLatency prometheus.Histogram
	ChatErrors         *prometheus.CounterVec
	QuickActions       prometheus.Counter
	TrimmedMessages    prometheus.Counter
}

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		// Chat requests counter
		ChatRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fitcoach_chat_requests_total",
			Help: "Total number of chat requests processed",
		}),

		// Chat request latency histogram
		ChatRequestLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fitcoach_chat_request_duration_seconds",
			Help:    "Chat request latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}, // up to 2 minutes for LLM responses
		}),

		// Chat errors by type
		ChatErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fitcoach_chat_errors_total",
			Help: "Total number of chat errors by type",
		}, []string{"error_type"}),

		// Quick actions extracted from model replies
		QuickActions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fitcoach_quick_actions_total",
			Help: "Total number of quick-action suggestions extracted from replies",
		}),

		// Messages deleted by retention trims (per-request and nightly sweep)
		TrimmedMessages: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fitcoach_trimmed_messages_total",
			Help: "Total number of messages deleted by history retention",
		}),
	}

	return metrics
}

// RecordChatRequest records a chat request
func (m *Metrics) RecordChatRequest() {
	m.ChatRequests.Inc()
}

// RecordChatLatency records chat request latency
func (m *Metrics) RecordChatLatency(seconds float64) {
	m.ChatRequestLatency.Observe(seconds)
}

// RecordChatError records a chat error
func (m *Metrics) RecordChatError(errorType string) {
	m.ChatErrors.WithLabelValues(errorType).Inc()
}

// RecordQuickActions records extracted quick-action suggestions
func (m *Metrics) RecordQuickActions(count int) {
	if count > 0 {
		m.QuickActions.Add(float64(count))
	}
}

// RecordTrimmedMessages records messages removed by a retention trim
func (m *Metrics) RecordTrimmedMessages(count int64) {
	if count > 0 {
		m.TrimmedMessages.Add(float64(count))
	}
}
