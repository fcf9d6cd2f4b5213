package reload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/testctx/internal/logging"
	"github.com/aretw0/testctx/pkg/domain"
	"github.com/aretw0/testctx/pkg/injector"
	"github.com/aretw0/testctx/pkg/lifecycle"
	"github.com/aretw0/testctx/pkg/pipeline"
	"github.com/aretw0/testctx/pkg/ports"
)

// Context is a shared context that can be restarted between units.
//
// Before-boundaries take the gate, perform a pending or requested restart and
// fire their phase. Intercepts run the caller's invocation, fire the matching
// handle phase with its error and release one level of the hold. After-boundaries
// take the gate, queue AFTER units and fire their phase.
type Context struct {
	*lifecycle.Context

	gate       *Gate
	scanner    ports.MetadataScanner
	reloadable bool
	logger     *slog.Logger
}

type settings struct {
	group      string
	scanner    ports.MetadataScanner
	observer   ports.LockObserver
	reloadable bool
	logger     *slog.Logger
}

// Option configures a Context.
type Option func(*settings)

// WithGroup names the group the context belongs to.
func WithGroup(group string) Option {
	return func(s *settings) { s.group = group }
}

// WithScanner sets where unit policies are looked up.
func WithScanner(scanner ports.MetadataScanner) Option {
	return func(s *settings) { s.scanner = scanner }
}

// WithObserver receives every gate transition.
func WithObserver(o ports.LockObserver) Option {
	return func(s *settings) { s.observer = o }
}

// WithReloadable toggles the reload protocol. A non-reloadable context runs
// intercepted invocations directly and never restarts.
func WithReloadable(enabled bool) Option {
	return func(s *settings) { s.reloadable = enabled }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// New creates a stopped reloadable context and loads its listeners.
func New(p *pipeline.Pipeline, inj *injector.Injector, opts ...Option) (*Context, error) {
	s := settings{reloadable: true}
	for _, opt := range opts {
		opt(&s)
	}
	s.logger = logging.OrNop(s.logger)

	c := &Context{
		gate:       NewGate(s.group, s.observer),
		scanner:    s.scanner,
		reloadable: s.reloadable,
	}
	lc, err := lifecycle.New(p, inj,
		lifecycle.WithGroup(s.group),
		lifecycle.WithLogger(s.logger),
		lifecycle.WithStopHook(c.internalStop),
	)
	if err != nil {
		return nil, err
	}
	c.Context = lc
	c.logger = lc.Logger()
	if err := p.Load(Family); err != nil {
		return nil, fmt.Errorf("failed to load reload listeners: %w", err)
	}
	return c, nil
}

// Gate exposes the context's gate.
func (c *Context) Gate() *Gate { return c.gate }

// Reloadable reports whether the reload protocol is active.
func (c *Context) Reloadable() bool { return c.reloadable }

// Restarts counts completed restarts.
func (c *Context) Restarts() uint64 { return c.gate.Generation() }

// PolicyOf returns the unit's own policy, or the one declared in metadata.
func (c *Context) PolicyOf(u domain.Unit) domain.ReloadPolicy {
	if u.Policy != domain.ReloadNone {
		return u.Policy
	}
	if c.scanner != nil {
		return c.scanner.Policy(u.ID)
	}
	return domain.ReloadNone
}

// BeforeAll is the container-level before boundary.
func (c *Context) BeforeAll(h *Hold, u domain.Unit) error {
	return c.before(h, u, domain.EventBeforeAll, Listener.BeforeAll)
}

// BeforeEach is the unit-level before boundary.
func (c *Context) BeforeEach(h *Hold, u domain.Unit) error {
	return c.before(h, u, domain.EventBeforeEach, Listener.BeforeEach)
}

// AfterEach is the unit-level after boundary.
func (c *Context) AfterEach(h *Hold, u domain.Unit) error {
	return c.after(h, u, domain.EventAfterEach, Listener.AfterEach)
}

// AfterAll is the container-level after boundary.
func (c *Context) AfterAll(h *Hold, u domain.Unit) error {
	return c.after(h, u, domain.EventAfterAll, Listener.AfterAll)
}

// InterceptBeforeAll runs a container setup invocation.
func (c *Context) InterceptBeforeAll(h *Hold, u domain.Unit, invocation func() error) error {
	return c.intercept(h, u, domain.EventBeforeAllHandle, false, invocation, Listener.BeforeAllHandle)
}

// InterceptBeforeEach runs a unit setup invocation.
func (c *Context) InterceptBeforeEach(h *Hold, u domain.Unit, invocation func() error) error {
	return c.intercept(h, u, domain.EventBeforeEachHandle, false, invocation, Listener.BeforeEachHandle)
}

// InterceptTest runs the unit body.
func (c *Context) InterceptTest(h *Hold, u domain.Unit, invocation func() error) error {
	return c.intercept(h, u, domain.EventTestMethodHandle, false, invocation, Listener.TestMethodHandle)
}

// InterceptAfterEach runs a unit teardown invocation while holding the gate.
func (c *Context) InterceptAfterEach(h *Hold, u domain.Unit, invocation func() error) error {
	return c.intercept(h, u, domain.EventAfterEachHandle, true, invocation, Listener.AfterEachHandle)
}

// InterceptAfterAll runs a container teardown invocation while holding the gate.
func (c *Context) InterceptAfterAll(h *Hold, u domain.Unit, invocation func() error) error {
	return c.intercept(h, u, domain.EventAfterAllHandle, true, invocation, Listener.AfterAllHandle)
}

type boundaryCall func(Listener, *injector.Injector, *Hold, domain.Unit) error

type handleCall func(Listener, *injector.Injector, *Hold, domain.Unit, error) error

type restartCall func(Listener, *injector.Injector, *Hold, domain.Unit, []domain.Unit) error

func (c *Context) before(h *Hold, u domain.Unit, event string, call boundaryCall) error {
	if !c.reloadable {
		return nil
	}
	seen := c.gate.Lock(h, event, u)
	defer c.gate.Unlock(h, event, u)

	if err := c.reloadBefore(h, u, event, seen); err != nil {
		return err
	}
	return c.fire(event, func(l Listener) error { return call(l, c.Injector(), h, u) })
}

func (c *Context) after(h *Hold, u domain.Unit, event string, call boundaryCall) error {
	if !c.reloadable {
		return nil
	}
	c.gate.Lock(h, event, u)
	defer c.gate.Unlock(h, event, u)

	c.reloadAfter(h, u, event)
	return c.fire(event, func(l Listener) error { return call(l, c.Injector(), h, u) })
}

func (c *Context) intercept(h *Hold, u domain.Unit, event string, lock bool, invocation func() error, call handleCall) error {
	if !c.reloadable {
		return invocation()
	}
	if lock {
		c.gate.Lock(h, event, u)
	}
	defer c.gate.Unlock(h, event, u)

	cause := invocation()
	if err := c.fire(event, func(l Listener) error { return call(l, c.Injector(), h, u, cause) }); err != nil {
		if cause != nil {
			return errors.Join(cause, err)
		}
		return err
	}
	return cause
}

func (c *Context) reloadBefore(h *Hold, u domain.Unit, boundary string, seen uint64) error {
	requested := c.PolicyOf(u) == domain.ReloadBefore
	pending := c.gate.PendingAfter()
	if !requested && !pending {
		return nil
	}
	if !pending && c.gate.Generation() != seen {
		c.skip(h, u, boundary, "restart completed while waiting")
		return nil
	}
	if !c.gate.enter() {
		c.skip(h, u, boundary, "restart already in progress")
		return nil
	}
	defer c.gate.Reset()
	return c.restart(h, u)
}

func (c *Context) reloadAfter(h *Hold, u domain.Unit, boundary string) {
	if c.PolicyOf(u) != domain.ReloadAfter {
		return
	}
	if c.gate.Reloading() {
		c.skip(h, u, boundary, "restart already in progress")
		return
	}
	c.gate.enqueue(u)
	c.logger.Debug("unit queued for restart", "unit", u.ID, "boundary", boundary)
}

// restart fires the five restart phases. Listeners receive h, which owns the
// gate, so a listener re-entering a boundary with it does not block.
func (c *Context) restart(h *Hold, u domain.Unit) error {
	waiting := c.gate.Waiting()
	c.logger.Info("restarting context", "unit", u.ID, "waiting", len(waiting))

	phases := []struct {
		event string
		call  restartCall
	}{
		{domain.EventBeforeRestartStopContext, Listener.BeforeRestartStopContext},
		{domain.EventRestartStopContext, Listener.RestartStopContext},
		{domain.EventAfterRestartStopContext, Listener.AfterRestartStopContext},
		{domain.EventRestartStartContext, Listener.RestartStartContext},
		{domain.EventAfterRestartStartContext, Listener.AfterRestartStartContext},
	}
	for _, ph := range phases {
		err := c.fire(ph.event, func(l Listener) error {
			return ph.call(l, c.Injector(), h, u, waiting)
		})
		if err != nil {
			c.logger.Error("context restart failed", "unit", u.ID, "event", ph.event, "err", err)
			return fmt.Errorf("failed to restart context: %w", err)
		}
	}
	c.gate.advance()
	return nil
}

// skip logs a reload request that lost its restart window.
func (c *Context) skip(h *Hold, u domain.Unit, boundary, reason string) {
	level := slog.LevelInfo
	if c.logger.Enabled(context.Background(), slog.LevelDebug) {
		level = slog.LevelWarn
	}
	c.logger.Log(context.Background(), level, "reload skipped",
		"unit", u.ID, "boundary", boundary, "hold", h.String(), "reason", reason)
	c.gate.emit(h, domain.LockSkipped, boundary, u, 0)
}

// internalStop clears pending reload state. It leaves gate ownership alone: a
// stop has no hold of its own, and a chain that stops the context from inside
// a boundary still releases the gate through that boundary's Unlock.
func (c *Context) internalStop() error {
	c.gate.Reset()
	return nil
}

func (c *Context) fire(event string, fn func(Listener) error) error {
	c.Mark(event)
	return pipeline.Fire(c.Pipeline(), Family, event, fn)
}
