package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Transfer outcomes used as the "result" label.
const (
	ResultSuccess             = "success"
	ResultValidation          = "validation_error"
	ResultInvalidAccount      = "invalid_account_id"
	ResultSameAccount         = "same_account"
	ResultInsufficientBalance = "insufficient_balance"
	ResultError               = "error"
)

// Collector owns a private registry so tests can build as many as they need.
type Collector struct {
	registry         *prometheus.Registry
	transfers        *prometheus.CounterVec
	transferDuration prometheus.Histogram
	transferAmount   prometheus.Histogram
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		transfers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_transfers_total",
			Help: "Transfers attempted, by result",
		}, []string{"result"}),
		transferDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bank_transfer_duration_seconds",
			Help:    "Time taken to execute a transfer",
			Buckets: prometheus.DefBuckets,
		}),
		transferAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bank_transfer_amount",
			Help:    "Amount moved by successful transfers",
			Buckets: prometheus.ExponentialBuckets(1, 10, 8),
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served, by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordTransfer counts one transfer attempt. amount is only observed for
// successful transfers.
func (c *Collector) RecordTransfer(result string, duration time.Duration, amount float64) {
	if c == nil {
		return
	}
	c.transfers.WithLabelValues(result).Inc()
	c.transferDuration.Observe(duration.Seconds())
	if result == ResultSuccess {
		c.transferAmount.Observe(amount)
	}
}

func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
