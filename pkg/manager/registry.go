package manager

import (
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/aretw0/testctx/pkg/domain"
)

// Registry hands out one Manager per group id. Managers are created on first
// request and live until Close.
type Registry struct {
	opts     []Option
	resolved options
	logger   *slog.Logger

	mu       sync.Mutex
	managers map[string]*Manager
}

// NewRegistry creates a registry whose managers share opts.
func NewRegistry(opts ...Option) *Registry {
	o := newOptions(opts)
	return &Registry{
		opts:     opts,
		resolved: o,
		logger:   o.logger,
		managers: make(map[string]*Manager),
	}
}

// Manager returns the manager of group, creating it if needed.
// An empty group maps to the configured default group.
func (r *Registry) Manager(group string) *Manager {
	if group == "" {
		group = r.resolved.cfg.DefaultGroup
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.managers[group]
	if !ok {
		m = New(group, r.opts...)
		r.managers[group] = m
		r.logger.Debug("manager created", "group", group)
	}
	return m
}

// GroupOf returns the group metadata assigns to a unit, or the default group.
func (r *Registry) GroupOf(unitID string) string {
	if r.resolved.scanner != nil {
		if g, ok := r.resolved.scanner.GroupOf(unitID); ok && g != "" {
			return g
		}
	}
	return r.resolved.cfg.DefaultGroup
}

// For returns the manager responsible for a unit.
func (r *Registry) For(unitID string) *Manager {
	return r.Manager(r.GroupOf(unitID))
}

// Managers returns every manager created so far, sorted by group id.
func (r *Registry) Managers() []*Manager {
	r.mu.Lock()
	out := make([]*Manager, 0, len(r.managers))
	for _, m := range r.managers {
		out = append(out, m)
	}
	r.mu.Unlock()
	slices.SortFunc(out, func(a, b *Manager) int { return strings.Compare(a.id, b.id) })
	return out
}

// Snapshots returns the snapshot of every manager.
func (r *Registry) Snapshots() []domain.Snapshot {
	ms := r.Managers()
	out := make([]domain.Snapshot, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Snapshot())
	}
	return out
}

// Close stops every context and forgets the managers.
func (r *Registry) Close() error {
	var errs []error
	for _, m := range r.Managers() {
		if err := m.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.mu.Lock()
	clear(r.managers)
	r.mu.Unlock()
	return errors.Join(errs...)
}
