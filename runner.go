package testctx

import (
	"log/slog"

	"github.com/aretw0/testctx/pkg/domain"
	"github.com/aretw0/testctx/pkg/manager"
	"github.com/aretw0/testctx/pkg/reload"
)

// Runner translates test-runner callbacks into execution tracking.
//
// A runner announces the whole plan up front so that no group tears down its
// context between two units that share it, then reports each unit as it starts,
// is skipped or finishes. Units are routed to their group by metadata.
type Runner struct {
	managers *manager.Registry
	logger   *slog.Logger
}

// PlanStarted registers every planned unit and returns how many were registered.
func (r *Runner) PlanStarted(units []domain.Unit) int {
	n := 0
	for _, u := range units {
		if r.managers.For(u.ID).BeginExecution(u.ID) {
			n++
		}
	}
	r.logger.Info("test context executions started", "count", n)
	return n
}

// Registered tracks a unit discovered while the plan runs.
func (r *Runner) Registered(u domain.Unit) {
	r.managers.For(u.ID).BeginExecution(u.ID)
}

// Started tracks u and returns its group's context, started.
func (r *Runner) Started(u domain.Unit) (*reload.Context, error) {
	m := r.managers.For(u.ID)
	m.BeginExecution(u.ID)
	return m.StartContext()
}

// Skipped ends a unit that will not run.
func (r *Runner) Skipped(u domain.Unit, reason string) (bool, error) {
	r.logger.Debug("execution skipped", "unit", u.ID, "reason", reason)
	return r.managers.For(u.ID).EndExecution(u.ID)
}

// Finished ends a unit. The outcome does not affect tracking. It reports whether
// the group's context was stopped as a result.
func (r *Runner) Finished(u domain.Unit, outcome error) (bool, error) {
	if outcome != nil {
		r.logger.Debug("execution failed", "unit", u.ID, "err", outcome)
	}
	return r.managers.For(u.ID).EndExecution(u.ID)
}

// PlanFinished ends every planned unit and returns how many group stops it caused.
func (r *Runner) PlanFinished(units []domain.Unit) (int, error) {
	stopped := 0
	var firstErr error
	for _, u := range units {
		ok, err := r.managers.For(u.ID).EndExecution(u.ID)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if ok {
			stopped++
		}
	}
	r.logger.Info("test context executions stopped", "count", stopped)
	return stopped, firstErr
}
