package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/testctx/pkg/domain"
	"github.com/aretw0/testctx/pkg/injector"
	"github.com/aretw0/testctx/pkg/lifecycle"
	"github.com/aretw0/testctx/pkg/reload"
)

const namespace = "testctx"

// unknownGroup labels firings whose context cannot be resolved.
const unknownGroup = "unknown"

// Collector counts gate and context activity per group.
// It owns its registry, so several collectors never collide.
type Collector struct {
	reload.BaseListener

	registry   *prometheus.Registry
	lockEvents *prometheus.CounterVec
	skips      *prometheus.CounterVec
	lifecycle  *prometheus.CounterVec
	boundaries *prometheus.CounterVec
	restarts   *prometheus.CounterVec
	failures   *prometheus.CounterVec
	started    *prometheus.GaugeVec
}

// NewCollector creates a collector with a fresh registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		lockEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_events_total",
			Help:      "Reload gate transitions by group and phase.",
		}, []string{"group", "phase"}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reload_skips_total",
			Help:      "Restarts skipped because another caller already reloaded, by boundary.",
		}, []string{"group", "boundary"}),
		lifecycle: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_events_total",
			Help:      "Completed context starts and stops.",
		}, []string{"group", "event"}),
		boundaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boundary_events_total",
			Help:      "Boundary phases fired by group and event.",
		}, []string{"group", "event"}),
		restarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restarts_total",
			Help:      "Completed context restarts.",
		}, []string{"group"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocation_failures_total",
			Help:      "Intercepted invocations that returned an error, by handle event.",
		}, []string{"group", "event"}),
		started: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "context_started",
			Help:      "1 while the group's context is started.",
		}, []string{"group"}),
	}
	c.registry.MustRegister(c.lockEvents, c.skips, c.lifecycle, c.boundaries, c.restarts, c.failures, c.started)
	return c
}

// Registry exposes the collector registry, e.g. to gather in tests.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the collector registry in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// OnLockEvent implements ports.LockObserver.
func (c *Collector) OnLockEvent(e domain.LockEvent) {
	c.lockEvents.WithLabelValues(e.Group, string(e.Phase)).Inc()
	if e.Phase == domain.LockSkipped {
		c.skips.WithLabelValues(e.Group, e.Boundary).Inc()
	}
}

func (c *Collector) AfterStartContext(inj *injector.Injector) error {
	g := groupOf(inj)
	c.lifecycle.WithLabelValues(g, domain.EventAfterStartContext).Inc()
	c.started.WithLabelValues(g).Set(1)
	return nil
}

func (c *Collector) AfterStopContext(inj *injector.Injector) error {
	g := groupOf(inj)
	c.lifecycle.WithLabelValues(g, domain.EventAfterStopContext).Inc()
	c.started.WithLabelValues(g).Set(0)
	return nil
}

func (c *Collector) AfterRestartStartContext(inj *injector.Injector, _ *reload.Hold, _ domain.Unit, _ []domain.Unit) error {
	c.restarts.WithLabelValues(groupOf(inj)).Inc()
	return nil
}

func (c *Collector) BeforeAll(inj *injector.Injector, _ *reload.Hold, _ domain.Unit) error {
	return c.boundary(inj, domain.EventBeforeAll)
}

func (c *Collector) BeforeEach(inj *injector.Injector, _ *reload.Hold, _ domain.Unit) error {
	return c.boundary(inj, domain.EventBeforeEach)
}

func (c *Collector) AfterEach(inj *injector.Injector, _ *reload.Hold, _ domain.Unit) error {
	return c.boundary(inj, domain.EventAfterEach)
}

func (c *Collector) AfterAll(inj *injector.Injector, _ *reload.Hold, _ domain.Unit) error {
	return c.boundary(inj, domain.EventAfterAll)
}

func (c *Collector) BeforeAllHandle(inj *injector.Injector, _ *reload.Hold, _ domain.Unit, cause error) error {
	return c.handle(inj, domain.EventBeforeAllHandle, cause)
}

func (c *Collector) BeforeEachHandle(inj *injector.Injector, _ *reload.Hold, _ domain.Unit, cause error) error {
	return c.handle(inj, domain.EventBeforeEachHandle, cause)
}

func (c *Collector) TestMethodHandle(inj *injector.Injector, _ *reload.Hold, _ domain.Unit, cause error) error {
	return c.handle(inj, domain.EventTestMethodHandle, cause)
}

func (c *Collector) AfterEachHandle(inj *injector.Injector, _ *reload.Hold, _ domain.Unit, cause error) error {
	return c.handle(inj, domain.EventAfterEachHandle, cause)
}

func (c *Collector) AfterAllHandle(inj *injector.Injector, _ *reload.Hold, _ domain.Unit, cause error) error {
	return c.handle(inj, domain.EventAfterAllHandle, cause)
}

func (c *Collector) boundary(inj *injector.Injector, event string) error {
	c.boundaries.WithLabelValues(groupOf(inj), event).Inc()
	return nil
}

func (c *Collector) handle(inj *injector.Injector, event string, cause error) error {
	if cause != nil {
		c.failures.WithLabelValues(groupOf(inj), event).Inc()
	}
	return nil
}

func groupOf(inj *injector.Injector) string {
	if inj == nil {
		return unknownGroup
	}
	ctx, err := injector.Get[*lifecycle.Context](inj)
	if err != nil || ctx.Group() == "" {
		return unknownGroup
	}
	return ctx.Group()
}
