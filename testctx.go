package testctx

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"strings"
	"testing"

	"github.com/aretw0/testctx/internal/logging"
	"github.com/aretw0/testctx/pkg/adapters/file"
	httpadapter "github.com/aretw0/testctx/pkg/adapters/http"
	"github.com/aretw0/testctx/pkg/config"
	"github.com/aretw0/testctx/pkg/domain"
	"github.com/aretw0/testctx/pkg/injector"
	"github.com/aretw0/testctx/pkg/manager"
	"github.com/aretw0/testctx/pkg/observability"
	"github.com/aretw0/testctx/pkg/ports"
	"github.com/aretw0/testctx/pkg/registry"
	"github.com/aretw0/testctx/pkg/reload"
)

// Engine is the high-level entry point of the library.
// It owns one manager per group and bridges test executions to them.
type Engine struct {
	managers *manager.Registry
	scanner  ports.MetadataScanner
	catalog  *registry.Registry
	cfg      config.Config

	cfgSet       bool
	props        map[string]any
	metadataPath string
	listeners    []any
	observers    []ports.LockObserver
	store        ports.SnapshotStore
	collector    *observability.Collector
	streams      *httpadapter.StreamManager
	logger       *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithCatalog sets the listener catalog used for discovery and include declarations.
func WithCatalog(c *registry.Registry) Option {
	return func(e *Engine) { e.catalog = c }
}

// WithScanner sets the metadata source. It takes precedence over WithMetadataFile.
func WithScanner(s ports.MetadataScanner) Option {
	return func(e *Engine) { e.scanner = s }
}

// WithMetadataFile loads groups, units, declarations, orders and properties from a
// YAML, TOML or JSON file.
func WithMetadataFile(path string) Option {
	return func(e *Engine) { e.metadataPath = path }
}

// WithConfig sets the configuration, ignoring any property.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
		e.cfgSet = true
	}
}

// WithProperties overlays props on the metadata file properties.
func WithProperties(props map[string]any) Option {
	return func(e *Engine) {
		if e.props == nil {
			e.props = make(map[string]any, len(props))
		}
		maps.Copy(e.props, props)
	}
}

// WithListeners registers listener instances in every group's pipeline.
func WithListeners(listeners ...any) Option {
	return func(e *Engine) { e.listeners = append(e.listeners, listeners...) }
}

// WithLockObserver receives every reload gate transition.
func WithLockObserver(obs ...ports.LockObserver) Option {
	return func(e *Engine) { e.observers = append(e.observers, obs...) }
}

// WithRecorder persists group snapshots to store as contexts change state.
func WithRecorder(store ports.SnapshotStore) Option {
	return func(e *Engine) { e.store = store }
}

// WithCollector exports prometheus metrics through c.
func WithCollector(c *observability.Collector) Option {
	return func(e *Engine) { e.collector = c }
}

// WithEventStream publishes lock events to sm for the /events route.
func WithEventStream(sm *httpadapter.StreamManager) Option {
	return func(e *Engine) { e.streams = sm }
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New initializes an Engine.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.OrNop(e.logger)

	props := map[string]any{}
	if e.metadataPath != "" {
		doc, err := file.Load(e.metadataPath)
		if err != nil {
			return nil, err
		}
		if err := doc.Validate(); err != nil {
			return nil, fmt.Errorf("invalid metadata %s: %w", e.metadataPath, err)
		}
		if e.scanner == nil {
			e.scanner = doc.Scanner()
		}
		maps.Copy(props, doc.Properties)
		e.logger.Debug("metadata loaded", "path", e.metadataPath, "groups", len(doc.Groups))
	}
	maps.Copy(props, e.props)

	if !e.cfgSet {
		cfg, err := config.Decode(props)
		if err != nil {
			return nil, err
		}
		e.cfg = cfg
	} else if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	listeners := append([]any(nil), e.listeners...)
	observers := append([]ports.LockObserver(nil), e.observers...)
	if e.collector != nil {
		listeners = append(listeners, e.collector)
		observers = append(observers, e.collector)
	}
	if e.streams != nil {
		observers = append(observers, e.streams)
	}
	if e.store != nil {
		listeners = append(listeners, observability.NewRecorder(e.store, observability.WithLogger(e.logger)))
	}

	mopts := []manager.Option{
		manager.WithConfig(e.cfg),
		manager.WithScanner(e.scanner),
		manager.WithListeners(listeners...),
		manager.WithLogger(e.logger),
	}
	if e.catalog != nil {
		mopts = append(mopts, manager.WithCatalog(e.catalog))
	}
	switch len(observers) {
	case 0:
	case 1:
		mopts = append(mopts, manager.WithObserver(observers[0]))
	default:
		mopts = append(mopts, manager.WithObserver(ports.MultiObserver(observers)))
	}
	e.managers = manager.NewRegistry(mopts...)
	return e, nil
}

// Config returns the resolved configuration.
func (e *Engine) Config() config.Config { return e.cfg }

// Managers returns the per-group manager registry.
func (e *Engine) Managers() *manager.Registry { return e.managers }

// Manager returns the manager responsible for a unit.
func (e *Engine) Manager(u domain.Unit) *manager.Manager { return e.managers.For(u.ID) }

// Runner returns a bridge for test-runner callbacks.
func (e *Engine) Runner() *Runner {
	return &Runner{managers: e.managers, logger: e.logger}
}

// Snapshots reports every group created so far.
func (e *Engine) Snapshots() []domain.Snapshot { return e.managers.Snapshots() }

// Handler serves the engine's groups, with /metrics and /events when a collector
// or an event stream is configured.
func (e *Engine) Handler() http.Handler {
	opts := []httpadapter.Option{
		httpadapter.WithVersion("testctx", strings.TrimSpace(Version)),
		httpadapter.WithLogger(e.logger),
	}
	if e.collector != nil {
		opts = append(opts, httpadapter.WithMetrics(e.collector.Handler()))
	}
	if e.streams != nil {
		opts = append(opts, httpadapter.WithStreams(e.streams))
	}
	return httpadapter.NewHandler(httpadapter.SourceFunc(e.managers.Snapshots), opts...)
}

// Close stops every shared context.
func (e *Engine) Close() error { return e.managers.Close() }

var errTestFailed = errors.New("test failed")

// Run executes fn as unit u against the shared context of its group. It tracks
// the execution, crosses the before-each boundary (restarting the context when
// the unit's policy asks for it), reports the outcome to the handle listeners
// and crosses the after-each boundary. Errors fail t.
func (e *Engine) Run(t testing.TB, u domain.Unit, fn func(t testing.TB, inj *injector.Injector)) {
	t.Helper()
	r := e.Runner()
	defer func() {
		if _, err := r.Finished(u, nil); err != nil {
			t.Errorf("testctx: %v", err)
		}
	}()

	c, err := r.Started(u)
	if err != nil {
		t.Fatalf("testctx: %v", err)
	}
	h := reload.NewHold(u.ID)
	if err := c.BeforeEach(h, u); err != nil {
		t.Fatalf("testctx: %v", err)
	}
	defer func() {
		if err := c.AfterEach(h, u); err != nil {
			t.Errorf("testctx: %v", err)
		}
	}()

	err = c.InterceptTest(h, u, func() error {
		fn(t, c.Injector())
		if t.Failed() {
			return errTestFailed
		}
		return nil
	})
	if err != nil && !errors.Is(err, errTestFailed) {
		t.Errorf("testctx: %v", err)
	}
}
