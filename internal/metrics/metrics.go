// Package metrics exports store and engine activity as Prometheus metrics.
//
// A Collector is a state.Observer: attach it with state.WithObserver or
// engine.WithObserver, and pass Collector.Applied to engine.OnApplied to
// count engine failures.
package metrics

import (
	"fmt"
	"io"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/roach88/statebox/internal/engine"
	"github.com/roach88/statebox/internal/state"
)

// Config configures a Collector.
type Config struct {
	// Namespace prefixes every metric name (default: "statebox").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels
}

// Option configures a Collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// Collector counts dispatches, slice changes, notifications, subscriber
// panics and engine errors.
type Collector struct {
	dispatches    *prometheus.CounterVec
	sliceChanges  *prometheus.CounterVec
	notifications prometheus.Counter
	panics        *prometheus.CounterVec
	engineErrors  *prometheus.CounterVec
}

// New creates a Collector and registers its metrics on reg.
// Registering two collectors with the same namespace on one registry panics.
func New(reg prometheus.Registerer, opts ...Option) *Collector {
	cfg := Config{Namespace: "statebox"}
	for _, opt := range opts {
		opt(&cfg)
	}
	factory := promauto.With(reg)

	return &Collector{
		dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "dispatch_total",
			Help:        "Total number of actions dispatched, by tag and whether any slice changed",
			ConstLabels: cfg.ConstLabels,
		}, []string{"action", "changed"}),

		sliceChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "slice_changes_total",
			Help:        "Total number of dispatches that replaced a slice value",
			ConstLabels: cfg.ConstLabels,
		}, []string{"slice"}),

		notifications: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "notifications_total",
			Help:        "Total number of subscriber callbacks invoked after a change",
			ConstLabels: cfg.ConstLabels,
		}),

		panics: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "subscriber_panics_total",
			Help:        "Total number of recovered subscriber panics",
			ConstLabels: cfg.ConstLabels,
		}, []string{"subscriber"}),

		engineErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "engine_errors_total",
			Help:        "Total number of actions the engine failed to apply or journal",
			ConstLabels: cfg.ConstLabels,
		}, []string{"code"}),
	}
}

// Dispatched implements state.Observer.
func (c *Collector) Dispatched(r state.Report) {
	tag := ""
	if r.Action != nil {
		tag = r.Action.Type()
	}
	c.dispatches.WithLabelValues(tag, strconv.FormatBool(len(r.Changed) > 0)).Inc()
	for _, name := range r.Changed {
		c.sliceChanges.WithLabelValues(name).Inc()
	}
	c.notifications.Add(float64(r.Notified))
}

// SubscriberPanicked implements state.Observer.
func (c *Collector) SubscriberPanicked(label string, _ any) {
	c.panics.WithLabelValues(label).Inc()
}

// Applied counts engine failures. Pass it to engine.OnApplied.
func (c *Collector) Applied(a engine.Applied) {
	if a.Err == nil {
		return
	}
	code := "UNKNOWN"
	if re, ok := a.Err.(*engine.RuntimeError); ok {
		code = string(re.Code)
	}
	c.engineErrors.WithLabelValues(code).Inc()
}

// WriteText writes every metric family g gathers in the Prometheus text
// exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
