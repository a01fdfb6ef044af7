// Package metrics exposes Prometheus metrics for the bridge.
//
// Metrics are optional: when Init is not called every record function is a
// no-op with zero overhead, and no /metrics listener is started.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	operationsPosted    *prometheus.CounterVec
	operationResponses  *prometheus.CounterVec
	operationsFinalized *prometheus.CounterVec
	filesServed         prometheus.Counter
	bytesServed         prometheus.Counter
)

// Init creates the metrics registry and registers all collectors. Safe to
// call once; subsequent calls are ignored.
func Init() {
	mu.Lock()
	defer mu.Unlock()
	if registry != nil {
		return
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	httpRequests = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "rgbbridge_http_requests_total",
			Help: "Total number of HTTP requests by path, method and status code",
		},
		[]string{"path", "method", "status"},
	)
	httpDuration = promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "rgbbridge_http_request_duration_milliseconds",
			Help: "Duration of HTTP requests in milliseconds",
			Buckets: []float64{
				1,     // 1ms - reads
				5,     // 5ms
				10,    // 10ms
				50,    // 50ms
				100,   // 100ms
				500,   // 500ms
				1000,  // 1s - large uploads
				5000,  // 5s
				10000, // 10s
			},
		},
		[]string{"path"},
	)
	operationsPosted = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "rgbbridge_operations_posted_total",
			Help: "Total number of operations posted by operation type",
		},
		[]string{"type"},
	)
	operationResponses = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "rgbbridge_operation_responses_total",
			Help: "Total number of cosigner responses by outcome",
		},
		[]string{"ack"}, // "true", "false"
	)
	operationsFinalized = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "rgbbridge_operations_finalized_total",
			Help: "Total number of operations that reached a final status",
		},
		[]string{"status"}, // "Approved", "Discarded"
	)
	filesServed = promauto.With(reg).NewCounter(
		prometheus.CounterOpts{
			Name: "rgbbridge_files_served_total",
			Help: "Total number of files served via getfile",
		},
	)
	bytesServed = promauto.With(reg).NewCounter(
		prometheus.CounterOpts{
			Name: "rgbbridge_files_served_bytes_total",
			Help: "Total bytes served via getfile",
		},
	)

	registry = reg
}

// IsEnabled reports whether Init has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// Handler returns the /metrics HTTP handler, or nil when disabled.
func Handler() http.Handler {
	mu.RLock()
	defer mu.RUnlock()
	if registry == nil {
		return nil
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records a completed API request.
func ObserveHTTPRequest(path, method string, status int, duration time.Duration) {
	if !IsEnabled() {
		return
	}
	httpRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(path).Observe(float64(duration.Microseconds()) / 1000.0)
}

// RecordOperationPosted records a successfully posted operation.
func RecordOperationPosted(opType string) {
	if !IsEnabled() {
		return
	}
	operationsPosted.WithLabelValues(opType).Inc()
}

// RecordOperationResponse records a successfully stored ACK or NACK.
func RecordOperationResponse(ack bool) {
	if !IsEnabled() {
		return
	}
	operationResponses.WithLabelValues(strconv.FormatBool(ack)).Inc()
}

// RecordOperationFinalized records an operation reaching Approved or
// Discarded status.
func RecordOperationFinalized(status string) {
	if !IsEnabled() {
		return
	}
	operationsFinalized.WithLabelValues(status).Inc()
}

// RecordFileServed records a getfile download.
func RecordFileServed(bytes int64) {
	if !IsEnabled() {
		return
	}
	filesServed.Inc()
	bytesServed.Add(float64(bytes))
}
