// Package manager owns the shared context of each group.
//
// A Manager lazily builds the pipeline, the injector and the context of one
// group, tracks the executions using it and tears everything down once the
// last tracked execution finishes. A Registry hands out one Manager per group id.
package manager

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/testctx/pkg/config"
	"github.com/aretw0/testctx/pkg/domain"
	"github.com/aretw0/testctx/pkg/injector"
	"github.com/aretw0/testctx/pkg/pipeline"
	"github.com/aretw0/testctx/pkg/reload"
)

// Manager orchestrates the shared context of one group.
//
// Creation, start and teardown happen under a single lock, so a caller never
// receives a context that a concurrent teardown is about to stop. The resolver
// reads atomic pointers instead, so listeners fired while the lock is held can
// still resolve through the manager without deadlocking.
type Manager struct {
	id     string
	opts   options
	logger *slog.Logger

	mu      sync.Mutex // guards creation, teardown and the tracker check-and-clear
	pipe    atomic.Pointer[pipeline.Pipeline]
	inj     atomic.Pointer[injector.Injector]
	ctx     atomic.Pointer[reload.Context]
	created atomic.Uint64

	tracker *tracker
}

// New creates a manager for group id.
func New(id string, opts ...Option) *Manager {
	o := newOptions(opts)
	return &Manager{
		id:      id,
		opts:    o,
		logger:  o.logger.With("group", id),
		tracker: newTracker(),
	}
}

// ID returns the group id.
func (m *Manager) ID() string { return m.id }

// Config returns the manager configuration.
func (m *Manager) Config() config.Config { return m.opts.cfg }

// Created counts the contexts this manager has constructed.
func (m *Manager) Created() uint64 { return m.created.Load() }

// BeginExecution registers an execution as running. It is idempotent.
func (m *Manager) BeginExecution(id string) bool {
	added := m.tracker.begin(id)
	if added {
		m.logger.Debug("execution started", "unit", id)
	}
	return added
}

// EndExecution marks a registered execution as finished. When every tracked
// execution has finished the tracker is cleared and, if the manager is
// closable, the context is stopped and discarded. It reports whether a stop happened.
func (m *Manager) EndExecution(id string) (bool, error) {
	if !m.tracker.finish(id) {
		m.logger.Debug("execution not tracked", "unit", id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.tracker.drain() {
		return false, nil
	}
	if !m.opts.cfg.Closable {
		m.logger.Debug("all executions finished, context kept")
		return false, nil
	}
	m.logger.Debug("all executions finished, tearing down context")
	return m.teardownLocked()
}

// Close stops and discards the context regardless of tracked executions.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracker.reset()
	_, err := m.teardownLocked()
	return err
}

// Pipeline returns the group's pipeline, building it on first use.
func (m *Manager) Pipeline() (*pipeline.Pipeline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pipelineLocked()
}

// Injector returns the group's injector, building it on first use.
func (m *Manager) Injector() (*injector.Injector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.injectorLocked()
}

// Context returns the group's context, constructing it on first use. It never
// starts it. A call racing a teardown waits for it and gets a new context.
func (m *Manager) Context() (*reload.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contextLocked()
}

// StartContext returns the group's context, starting it if it is stopped.
// Before a start the pipeline is warmed and loaded listeners are notified.
// Listeners fired by the start must reach the manager through the injector.
func (m *Manager) StartContext() (*reload.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.contextLocked()
	if err != nil {
		return nil, err
	}
	if !c.Stopped() {
		return c, nil
	}
	if err := c.Injector().FireLoaded(); err != nil {
		return nil, fmt.Errorf("failed to notify loaded listeners: %w", err)
	}
	if err := c.Start(); err != nil {
		return nil, err
	}
	return c, nil
}

// Extension returns the context extension the group enables.
func (m *Manager) Extension() (string, error) {
	if m.opts.scanner != nil {
		if exts := m.opts.scanner.Extensions(m.id); len(exts) > 0 {
			return CheckExtensions(m.id, exts)
		}
	}
	return m.opts.cfg.Extension, nil
}

// Snapshot reports the current state of the group. It takes no manager lock.
func (m *Manager) Snapshot() domain.Snapshot {
	total, running := m.tracker.counts()
	s := domain.Snapshot{
		Group:      m.id,
		Stopped:    true,
		Executions: total,
		Running:    running,
		UpdatedAt:  time.Now().UTC(),
	}
	c := m.ctx.Load()
	if c == nil {
		return s
	}
	s.Created = true
	s.Stopped = c.Stopped()
	s.Restarts = c.Restarts()
	s.Phase = c.Phase()
	s.Extension = domain.ExtensionDefault
	if c.Reloadable() {
		s.Extension = domain.ExtensionReloadable
	}
	for _, u := range c.Gate().Waiting() {
		s.Waiting = append(s.Waiting, u.ID)
	}
	return s
}

func (m *Manager) pipelineLocked() (*pipeline.Pipeline, error) {
	if p := m.pipe.Load(); p != nil {
		return p, nil
	}
	p := pipeline.New(
		pipeline.WithDiscovery(m.opts.discovery),
		pipeline.WithFactory(m.opts.factory),
		pipeline.WithScanner(m.opts.scanner),
		pipeline.WithLogger(m.logger),
	)
	if err := p.Register(m); err != nil {
		return nil, err
	}
	if err := p.Register(m.opts.listeners...); err != nil {
		return nil, err
	}
	if err := p.Load(injector.LoadedFamily); err != nil {
		return nil, err
	}
	if m.opts.scanner != nil {
		if err := p.Declare(m.opts.scanner.Declarations(m.id)...); err != nil {
			return nil, fmt.Errorf("failed to apply listener declarations: %w", err)
		}
	}
	m.pipe.Store(p)
	return p, nil
}

func (m *Manager) injectorLocked() (*injector.Injector, error) {
	if i := m.inj.Load(); i != nil {
		return i, nil
	}
	p, err := m.pipelineLocked()
	if err != nil {
		return nil, err
	}
	i, err := injector.New(p, injector.WithLogger(m.logger))
	if err != nil {
		return nil, err
	}
	m.inj.Store(i)
	return i, nil
}

func (m *Manager) contextLocked() (*reload.Context, error) {
	if c := m.ctx.Load(); c != nil {
		return c, nil
	}
	ext, err := m.Extension()
	if err != nil {
		return nil, err
	}
	inj, err := m.injectorLocked()
	if err != nil {
		return nil, err
	}
	c, err := reload.New(inj.Pipeline(), inj,
		reload.WithGroup(m.id),
		reload.WithScanner(m.opts.scanner),
		reload.WithObserver(m.opts.observer),
		reload.WithReloadable(ext == domain.ExtensionReloadable),
		reload.WithLogger(m.opts.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	m.ctx.Store(c)
	m.created.Add(1)
	m.logger.Debug("context created", "extension", ext)
	return c, nil
}

func (m *Manager) teardownLocked() (bool, error) {
	stopped := false
	if c := m.ctx.Load(); c != nil {
		s, err := c.Stop()
		if err != nil {
			return false, err
		}
		stopped = s
	}
	m.ctx.Store(nil)
	m.inj.Store(nil)
	m.pipe.Store(nil)
	return stopped, nil
}
