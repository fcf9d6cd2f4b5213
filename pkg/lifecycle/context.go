// Package lifecycle implements the shared context a group of test executions reuses.
//
// A Context starts stopped. Start and Stop fire the six lifecycle events through
// the pipeline and roll the state back if any listener fails, so a failed start
// leaves the context stopped and a failed stop leaves it started.
package lifecycle

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aretw0/testctx/internal/logging"
	"github.com/aretw0/testctx/pkg/domain"
	"github.com/aretw0/testctx/pkg/injector"
	"github.com/aretw0/testctx/pkg/pipeline"
)

// Listener observes the shared context lifecycle.
type Listener interface {
	BeforeStartContext(inj *injector.Injector) error
	StartContext(inj *injector.Injector) error
	AfterStartContext(inj *injector.Injector) error
	BeforeStopContext(inj *injector.Injector) error
	StopContext(inj *injector.Injector) error
	AfterStopContext(inj *injector.Injector) error
}

// Family groups lifecycle listeners.
var Family = domain.NewFamily[Listener]("context", domain.LifecycleEvents...)

// BaseListener provides no-op lifecycle methods for embedding.
type BaseListener struct{}

func (BaseListener) BeforeStartContext(*injector.Injector) error { return nil }
func (BaseListener) StartContext(*injector.Injector) error       { return nil }
func (BaseListener) AfterStartContext(*injector.Injector) error  { return nil }
func (BaseListener) BeforeStopContext(*injector.Injector) error  { return nil }
func (BaseListener) StopContext(*injector.Injector) error        { return nil }
func (BaseListener) AfterStopContext(*injector.Injector) error   { return nil }

// Hook extends the internal start or stop step of a Context.
type Hook func() error

// Context is the shared, lazily started runtime of one group.
type Context struct {
	group   string
	pipe    *pipeline.Pipeline
	inj     *injector.Injector
	logger  *slog.Logger
	onStart Hook
	onStop  Hook
	mu      sync.Mutex
	stopped atomic.Bool
	starts  atomic.Uint64
	phase   atomic.Value
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) { c.logger = l }
}

// WithGroup names the group the context belongs to, for logs.
func WithGroup(group string) Option {
	return func(c *Context) { c.group = group }
}

// WithStartHook runs h after the startContext event.
func WithStartHook(h Hook) Option {
	return func(c *Context) { c.onStart = h }
}

// WithStopHook runs h after the stopContext event.
func WithStopHook(h Hook) Option {
	return func(c *Context) { c.onStop = h }
}

// New creates a stopped context and loads lifecycle listeners into the pipeline.
func New(p *pipeline.Pipeline, inj *injector.Injector, opts ...Option) (*Context, error) {
	c := &Context{pipe: p, inj: inj}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrNop(c.logger).With("group", c.group)
	c.stopped.Store(true)
	if err := p.Load(Family); err != nil {
		return nil, fmt.Errorf("failed to load context listeners: %w", err)
	}
	return c, nil
}

// Group returns the group id.
func (c *Context) Group() string { return c.group }

// Injector returns the injector handed to listeners.
func (c *Context) Injector() *injector.Injector { return c.inj }

// Pipeline returns the pipeline events are fired through.
func (c *Context) Pipeline() *pipeline.Pipeline { return c.pipe }

// Logger returns the context logger.
func (c *Context) Logger() *slog.Logger { return c.logger }

// Stopped reports whether the context is stopped.
func (c *Context) Stopped() bool { return c.stopped.Load() }

// Starts returns how many times the context started successfully.
func (c *Context) Starts() uint64 { return c.starts.Load() }

// Phase returns the last event fired on the context.
func (c *Context) Phase() string {
	if v, ok := c.phase.Load().(string); ok {
		return v
	}
	return ""
}

// Start starts a stopped context. It is a no-op when already started.
func (c *Context) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.stopped.Load() {
		return nil
	}

	err := func() error {
		if err := c.fire(domain.EventBeforeStartContext, Listener.BeforeStartContext); err != nil {
			return err
		}
		c.stopped.Store(false)
		if err := c.fire(domain.EventStartContext, Listener.StartContext); err != nil {
			return err
		}
		if c.onStart != nil {
			if err := c.onStart(); err != nil {
				return err
			}
		}
		return c.fire(domain.EventAfterStartContext, Listener.AfterStartContext)
	}()
	if err != nil {
		c.stopped.Store(true)
		c.logger.Error("failed to start context", "err", err)
		return fmt.Errorf("failed to start context: %w", err)
	}
	c.starts.Add(1)
	c.logger.Debug("context started")
	return nil
}

// Stop stops a started context and reports whether it did.
func (c *Context) Stop() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped.Load() {
		return false, nil
	}

	err := func() error {
		if err := c.fire(domain.EventBeforeStopContext, Listener.BeforeStopContext); err != nil {
			return err
		}
		if err := c.fire(domain.EventStopContext, Listener.StopContext); err != nil {
			return err
		}
		if c.onStop != nil {
			if err := c.onStop(); err != nil {
				return err
			}
		}
		c.stopped.Store(true)
		return c.fire(domain.EventAfterStopContext, Listener.AfterStopContext)
	}()
	if err != nil {
		c.stopped.Store(false)
		c.logger.Error("failed to stop context", "err", err)
		return false, fmt.Errorf("failed to stop context: %w", err)
	}
	c.logger.Debug("context stopped")
	return true, nil
}

// Mark records event as the last phase the context went through.
func (c *Context) Mark(event string) {
	c.phase.Store(event)
}

func (c *Context) fire(event string, call func(Listener, *injector.Injector) error) error {
	c.Mark(event)
	return pipeline.Fire(c.pipe, Family, event, func(l Listener) error {
		return call(l, c.inj)
	})
}
