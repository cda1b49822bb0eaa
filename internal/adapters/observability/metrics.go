package observability

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "bookhub", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bookhub", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	BackendOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "bookhub", Name: "backend_ops_total", Help: "Review store operations."},
		[]string{"op", "status"},
	)
	BackendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bookhub", Name: "backend_op_duration_seconds",
			Help:    "Review store operation duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "bookhub", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
	FeedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "bookhub", Name: "feed_events_total", Help: "Live feed snapshots and faults."},
		[]string{"event"}, // event: snapshot|error|open_error
	)
	FeedsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "bookhub", Name: "feeds_active", Help: "Open live review feeds."},
	)
	Submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "bookhub", Name: "submissions_total", Help: "Review submission outcomes."},
		[]string{"result"},
	)
)

func Serve() {
	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, BackendOps, BackendLatency,
		CacheEvents, FeedEvents, FeedsActive, Submissions)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveBackend(op string, err error, dur time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	BackendOps.WithLabelValues(op, status).Inc()
	BackendLatency.WithLabelValues(op).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObserveFeed(event string) {
	FeedEvents.WithLabelValues(event).Inc()
}

func ObserveSubmission(result string) {
	Submissions.WithLabelValues(result).Inc()
}
