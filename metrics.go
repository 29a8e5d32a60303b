package eventstore

import (
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// Metrics records client request counts and latencies in Prometheus.
// A nil *Metrics records nothing.
type Metrics struct {
	requests  *prom.CounterVec
	duration  *prom.HistogramVec
	cacheHits prom.Counter
}

// NewMetrics creates and registers the client metrics on reg.
// A nil reg uses a private registry.
func NewMetrics(reg prom.Registerer) *Metrics {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	m := &Metrics{
		requests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "eventstore",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Requests sent to the event store by operation and status code (0 for transport failures)",
		}, []string{"op", "code"}),
		duration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "eventstore",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Duration of requests to the event store",
			Buckets:   prom.DefBuckets,
		}, []string{"op"}),
		cacheHits: prom.NewCounter(prom.CounterOpts{
			Namespace: "eventstore",
			Subsystem: "client",
			Name:      "feed_cache_hits_total",
			Help:      "Feed pages served from the feed cache",
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.cacheHits)
	return m
}

func (m *Metrics) observeRequest(op string, statusCode int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(op, strconv.Itoa(statusCode)).Inc()
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) observeCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}
