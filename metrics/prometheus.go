package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics to track
var (
	FriendOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "friendship_operations_total",
			Help: "Friendship coordinator operations by outcome",
		},
		[]string{"op", "outcome"}, // outcome: ok or the error code
	)
	Reconciliations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "friendship_accept_reconciliations_total",
			Help: "Accepts whose store transaction failed and were reconciled afterwards",
		},
		[]string{"result"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"method", "route", "code"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	NATSRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_requests_total",
			Help: "NATS request/reply messages handled",
		},
		[]string{"subject", "success"},
	)
)

var once sync.Once

// InitMetrics registers the metrics with the default registry. Safe to call
// more than once.
func InitMetrics() {
	once.Do(func() {
		prometheus.MustRegister(FriendOps, Reconciliations, HTTPRequests, HTTPDuration, NATSRequests)
	})
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
