package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Capability tokens issued, by action
	TokensIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "whisperbox",
			Subsystem: "tokens",
			Name:      "issued_total",
			Help:      "Total capability tokens issued",
		},
		[]string{"action"},
	)

	// Token string collisions seen at issue time
	TokenCollisionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "whisperbox",
			Subsystem: "tokens",
			Name:      "collisions_total",
			Help:      "Total generated token strings that were already taken",
		},
	)

	// Consume outcomes: hit, miss, expired
	TokensConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "whisperbox",
			Subsystem: "tokens",
			Name:      "consumed_total",
			Help:      "Total token consume attempts by result",
		},
		[]string{"result"},
	)

	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "whisperbox",
			Subsystem: "dialog",
			Name:      "turns_total",
			Help:      "Total dialog turns by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "whisperbox",
			Subsystem: "dialog",
			Name:      "turn_duration_seconds",
			Help:      "Dialog turn duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"kind"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "whisperbox",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Total notification pushes by sink and status",
		},
		[]string{"sink", "status"},
	)

	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "whisperbox",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
)

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordIssued(action string) {
	TokensIssuedTotal.WithLabelValues(action).Inc()
}

func RecordCollision() {
	TokenCollisionsTotal.Inc()
}

// RecordConsume records a consume attempt; result is "hit", "miss" or "expired".
func RecordConsume(result string) {
	TokensConsumedTotal.WithLabelValues(result).Inc()
}

func RecordTurn(kind, outcome string, durationSec float64) {
	TurnsTotal.WithLabelValues(kind, outcome).Inc()
	TurnDuration.WithLabelValues(kind).Observe(durationSec)
}

func RecordNotification(sink, status string) {
	NotificationsTotal.WithLabelValues(sink, status).Inc()
}

func RecordRequest(method, endpoint, status string) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
}
