package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/fastygo/storefront/domain"
)

// Collector owns a private registry with the storefront metrics.
type Collector struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	aggregateSaves *prometheus.CounterVec
	saveDuration   *prometheus.HistogramVec
	events         *prometheus.CounterVec

	outboxPublished prometheus.Counter
	outboxFailures  prometheus.Counter
	outboxDropped   prometheus.Counter
	outboxBacklog   prometheus.Gauge

	sweeps *prometheus.CounterVec
}

func New(namespace string) (*Collector, error) {
	if namespace == "" {
		namespace = "storefront"
	}
	c := &Collector{registry: prometheus.NewRegistry()}

	c.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "route", "status_code"})

	c.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	c.aggregateSaves = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "aggregate",
		Name:      "saves_total",
		Help:      "Aggregate save attempts by kind and outcome",
	}, []string{"kind", "outcome"})

	c.saveDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "aggregate",
		Name:      "save_duration_seconds",
		Help:      "Aggregate compare-and-swap latency",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"kind"})

	c.events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "aggregate",
		Name:      "events_total",
		Help:      "Committed domain events",
	}, []string{"kind", "event"})

	c.outboxPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "published_total",
		Help:      "Events delivered to the broker",
	})
	c.outboxFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "publish_failures_total",
		Help:      "Failed publish attempts",
	})
	c.outboxDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "dropped_total",
		Help:      "Events abandoned after the retry limit",
	})
	c.outboxBacklog = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "backlog",
		Help:      "Events waiting in the outbox",
	})

	c.sweeps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "subscription",
		Name:      "sweep_actions_total",
		Help:      "Subscriptions renewed, expired or failed by the sweeper",
	}, []string{"action"})

	for _, collector := range []prometheus.Collector{
		c.httpRequests, c.httpDuration,
		c.aggregateSaves, c.saveDuration, c.events,
		c.outboxPublished, c.outboxFailures, c.outboxDropped, c.outboxBacklog,
		c.sweeps,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := c.registry.Register(collector); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return c, nil
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// ObserveSave implements aggregate.Observer.
func (c *Collector) ObserveSave(kind, outcome string, elapsed time.Duration) {
	c.aggregateSaves.WithLabelValues(kind, outcome).Inc()
	c.saveDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveEvents implements aggregate.Observer.
func (c *Collector) ObserveEvents(records []domain.EventRecord) {
	for _, r := range records {
		c.events.WithLabelValues(r.AggregateKind, r.Name).Inc()
	}
}

func (c *Collector) ObservePublished(n int) { c.outboxPublished.Add(float64(n)) }
func (c *Collector) ObservePublishFailure() { c.outboxFailures.Inc() }
func (c *Collector) ObserveDropped()        { c.outboxDropped.Inc() }
func (c *Collector) SetBacklog(n int)       { c.outboxBacklog.Set(float64(n)) }

func (c *Collector) ObserveSweep(renewed, expired, failed int) {
	c.sweeps.WithLabelValues("renewed").Add(float64(renewed))
	c.sweeps.WithLabelValues("expired").Add(float64(expired))
	c.sweeps.WithLabelValues("failed").Add(float64(failed))
}

// Middleware records request counts and latency per matched route.
// The router must run with SaveMatchedRoutePath enabled.
func (c *Collector) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)

		route, _ := ctx.UserValue(router.MatchedRoutePathParam).(string)
		if route == "" {
			route = "unmatched"
		}
		method := string(ctx.Method())
		c.httpRequests.WithLabelValues(method, route, strconv.Itoa(ctx.Response.StatusCode())).Inc()
		c.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
}
