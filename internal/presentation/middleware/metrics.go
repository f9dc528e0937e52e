package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// Metrics returns a middleware that collects Prometheus metrics
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.status)

			// Normalize path to avoid high cardinality
			path := normalizePath(r.URL.Path)

			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
		})
	}
}

// normalizePath collapses the high-cardinality path segments into
// placeholders so the method/path label set stays bounded.
func normalizePath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if !strings.HasPrefix(part, "0x") {
			continue
		}
		switch len(part) {
		case 42:
			parts[i] = "{address}"
		case 66:
			parts[i] = "{hash}"
		}
	}
	return strings.Join(parts, "/")
}

// WalletMetrics holds Prometheus metrics for the wallet dashboard
type WalletMetrics struct {
	SessionsConnected  prometheus.Gauge
	ConnectAttempts    prometheus.Counter
	ConnectFailures    prometheus.Counter
	TransfersSubmitted prometheus.Counter
	TransfersRejected  prometheus.Counter
	BalanceRefreshes   prometheus.Counter
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	ExplorerErrors     prometheus.Counter
}

// NewWalletMetrics creates new wallet dashboard metrics
func NewWalletMetrics() *WalletMetrics {
	return &WalletMetrics{
		SessionsConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "wallet_sessions_connected",
			Help: "Whether a wallet session is currently connected",
		}),
		ConnectAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wallet_connect_attempts_total",
			Help: "Total number of wallet connect attempts",
		}),
		ConnectFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wallet_connect_failures_total",
			Help: "Total number of failed wallet connect attempts",
		}),
		TransfersSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wallet_transfers_submitted_total",
			Help: "Total number of token transfers submitted",
		}),
		TransfersRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wallet_transfers_rejected_total",
			Help: "Total number of token transfers rejected or failed",
		}),
		BalanceRefreshes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wallet_balance_refreshes_total",
			Help: "Total number of balance refresh requests",
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transfer_cache_hits_total",
			Help: "Total number of transfer history reads served from cache",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transfer_cache_misses_total",
			Help: "Total number of transfer history reads that hit the explorer",
		}),
		ExplorerErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "explorer_request_errors_total",
			Help: "Total number of failed block-explorer requests",
		}),
	}
}
