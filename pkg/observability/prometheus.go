package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromHooks records every hook event as Prometheus metrics.
type PromHooks struct {
	transforms      *prometheus.CounterVec
	transformTime   prometheus.Histogram
	lines           prometheus.Counter
	moves           prometheus.Counter
	subMoves        *prometheus.CounterVec
	resyncs         prometheus.Counter
	cacheEvents     *prometheus.CounterVec
	cacheBytes      prometheus.Counter
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

// NewPromHooks creates the collectors and registers them with reg.
func NewPromHooks(reg prometheus.Registerer) *PromHooks {
	h := &PromHooks{
		transforms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vtp",
			Name:      "transforms_total",
			Help:      "Transforms by outcome (ok, cached, error).",
		}, []string{"outcome"}),
		transformTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vtp",
			Name:      "transform_duration_seconds",
			Help:      "Time spent transforming a program.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		lines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vtp",
			Name:      "lines_total",
			Help:      "G-code lines read.",
		}),
		moves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vtp",
			Name:      "moves_transformed_total",
			Help:      "Extruding moves rewritten.",
		}),
		subMoves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vtp",
			Name:      "sub_moves_total",
			Help:      "Sub-moves written, by region.",
		}, []string{"region"}),
		resyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vtp",
			Name:      "resyncs_total",
			Help:      "Extrusion counter resync lines written.",
		}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vtp",
			Name:      "cache_events_total",
			Help:      "Cache lookups and writes.",
		}, []string{"key_type", "event"}),
		cacheBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vtp",
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vtp",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vtp",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vtp",
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests being served.",
		}),
	}
	reg.MustRegister(
		h.transforms, h.transformTime, h.lines, h.moves, h.subMoves, h.resyncs,
		h.cacheEvents, h.cacheBytes,
		h.requests, h.requestDuration, h.inFlight,
	)
	return h
}

func (h *PromHooks) OnTransformStart(context.Context, int) {}

func (h *PromHooks) OnTransformComplete(_ context.Context, s TransformSummary, d time.Duration, err error) {
	switch {
	case err != nil:
		h.transforms.WithLabelValues("error").Inc()
		return
	case s.CacheHit:
		h.transforms.WithLabelValues("cached").Inc()
	default:
		h.transforms.WithLabelValues("ok").Inc()
	}
	h.transformTime.Observe(d.Seconds())
	h.lines.Add(float64(s.Lines))
	h.moves.Add(float64(s.Moves))
	h.resyncs.Add(float64(s.Resyncs))
	for name, n := range s.SubMovesByRegion {
		h.subMoves.WithLabelValues(name).Add(float64(n))
	}
}

func (h *PromHooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (h *PromHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (h *PromHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.cacheEvents.WithLabelValues(keyType, "set").Inc()
	h.cacheBytes.Add(float64(size))
}

func (h *PromHooks) OnRequest(context.Context, string, string) {
	h.inFlight.Inc()
}

func (h *PromHooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	h.inFlight.Dec()
	h.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	h.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ TransformHooks = (*PromHooks)(nil)
	_ CacheHooks     = (*PromHooks)(nil)
	_ HTTPHooks      = (*PromHooks)(nil)
)
