// Package metrics exports Prometheus collectors fed by the event bus.
package metrics

import (
	"context"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/hanpama/graphkit/internal/eventbus"
	"github.com/hanpama/graphkit/internal/events"
)

const namespace = "graphkit"

// Collectors holds the graphkit metrics.
type Collectors struct {
	operations    *prometheus.CounterVec
	operationTime *prometheus.HistogramVec
	fetches       *prometheus.CounterVec
	fetchKeys     *prometheus.HistogramVec
	fetchTime     *prometheus.HistogramVec
	denials       *prometheus.CounterVec
	compiles      *prometheus.CounterVec
	compileTime   prometheus.Histogram
	compiledTypes prometheus.Gauge
	unsubscribers []func()
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Executed GraphQL operations",
			},
			[]string{"type", "status"}, // "ok", "error"
		),
		operationTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of GraphQL operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batch_fetches_total",
				Help:      "Batch fetches issued by the loader",
			},
			[]string{"loader", "status"},
		),
		fetchKeys: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "batch_fetch_keys",
				Help:      "Keys per batch fetch",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10), // 1 to 512
			},
			[]string{"loader"},
		),
		fetchTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "batch_fetch_duration_seconds",
				Help:      "Duration of batch fetches in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"loader"},
		),
		denials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "authorization_denied_total",
				Help:      "Fields a guard refused to resolve",
			},
			[]string{"type", "field"},
		),
		compiles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_compilations_total",
				Help:      "Schema compilations",
			},
			[]string{"status"},
		),
		compileTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "schema_compile_duration_seconds",
				Help:      "Duration of schema compilations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
		),
		compiledTypes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "schema_types",
				Help:      "Types in the most recently compiled schema",
			},
		),
	}
	for _, col := range []prometheus.Collector{
		c.operations, c.operationTime, c.fetches, c.fetchKeys, c.fetchTime,
		c.denials, c.compiles, c.compileTime, c.compiledTypes,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Subscribe feeds the collectors from bus until Close is called.
func (c *Collectors) Subscribe(bus *eventbus.Bus) {
	c.unsubscribers = append(c.unsubscribers,
		eventbus.On(bus, func(_ context.Context, e events.OperationFinish) {
			c.operations.WithLabelValues(e.OperationType, status(len(e.Errors) == 0)).Inc()
			c.operationTime.WithLabelValues(e.OperationType).Observe(e.Duration.Seconds())
		}),
		eventbus.On(bus, func(_ context.Context, e events.BatchFetchFinish) {
			c.fetches.WithLabelValues(e.Loader, status(e.Err == nil)).Inc()
			c.fetchKeys.WithLabelValues(e.Loader).Observe(float64(e.Keys))
			c.fetchTime.WithLabelValues(e.Loader).Observe(e.Duration.Seconds())
		}),
		eventbus.On(bus, func(_ context.Context, e events.AuthorizationDenied) {
			c.denials.WithLabelValues(e.Type, e.Field).Inc()
		}),
		eventbus.On(bus, func(_ context.Context, e events.CompileFinish) {
			c.compiles.WithLabelValues(status(e.Err == nil)).Inc()
			c.compileTime.Observe(e.Duration.Seconds())
			if e.Err == nil {
				c.compiledTypes.Set(float64(e.Types))
			}
		}),
	)
}

// Close detaches the collectors from the bus.
func (c *Collectors) Close() {
	for _, unsubscribe := range c.unsubscribers {
		unsubscribe()
	}
	c.unsubscribers = nil
}

// Write encodes everything g gathers in the Prometheus text format.
func Write(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
