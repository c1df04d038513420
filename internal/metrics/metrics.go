// Package metrics collects Prometheus metrics for the loan workflow and HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements borrow.Metrics and records HTTP traffic.
type Collector struct {
	borrowed     prometheus.Counter
	returned     prometheus.Counter
	rejected     *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpLatency  prometheus.Histogram
}

// NewCollector registers all metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		borrowed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "library_loans_borrowed_total",
			Help: "Books lent out.",
		}),
		returned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "library_loans_returned_total",
			Help: "Books returned.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "library_loan_operations_rejected_total",
			Help: "Borrow and return operations rejected by a failed precondition.",
		}, []string{"operation", "reason"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "library_http_requests_total",
			Help: "HTTP responses by method and status code.",
		}, []string{"method", "status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "library_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.borrowed,
		c.returned,
		c.rejected,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

func (c *Collector) RecordBorrowed() {
	c.borrowed.Inc()
}

func (c *Collector) RecordReturned() {
	c.returned.Inc()
}

// RecordRejected counts a refused operation; reason is "not_found" or "conflict".
func (c *Collector) RecordRejected(operation, reason string) {
	c.rejected.WithLabelValues(operation, reason).Inc()
}

// ObserveHTTP matches httpx.RequestObserver.
func (c *Collector) ObserveHTTP(method string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.httpLatency.Observe(d.Seconds())
}

// Handler serves the Prometheus scrape endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
