package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/testctx/internal/logging"
	"github.com/aretw0/testctx/pkg/domain"
	"github.com/aretw0/testctx/pkg/injector"
	"github.com/aretw0/testctx/pkg/ports"
	"github.com/aretw0/testctx/pkg/reload"
)

// Recorder saves the group snapshot after every start, stop, restart and
// after-each boundary. Store failures are logged and never fail the test.
type Recorder struct {
	reload.BaseListener

	store   ports.SnapshotStore
	timeout time.Duration
	logger  *slog.Logger
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithTimeout bounds each save. The default is two seconds.
func WithTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) { r.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RecorderOption {
	return func(r *Recorder) { r.logger = l }
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store ports.SnapshotStore, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:   store,
		timeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNop(r.logger)
	return r
}

func (r *Recorder) AfterStartContext(inj *injector.Injector) error {
	return r.record(inj, domain.EventAfterStartContext)
}

func (r *Recorder) AfterStopContext(inj *injector.Injector) error {
	return r.record(inj, domain.EventAfterStopContext)
}

func (r *Recorder) AfterRestartStartContext(inj *injector.Injector, _ *reload.Hold, _ domain.Unit, _ []domain.Unit) error {
	return r.record(inj, domain.EventAfterRestartStartContext)
}

func (r *Recorder) AfterEach(inj *injector.Injector, _ *reload.Hold, _ domain.Unit) error {
	return r.record(inj, domain.EventAfterEach)
}

func (r *Recorder) record(inj *injector.Injector, event string) error {
	if inj == nil {
		return nil
	}
	src, err := injector.Get[ports.SnapshotSource](inj)
	if err != nil {
		r.logger.Debug("no snapshot source", "event", event, "err", err)
		return nil
	}
	snap := src.Snapshot()
	snap.Phase = event

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.store.Save(ctx, snap); err != nil {
		r.logger.Warn("failed to record snapshot", "group", snap.Group, "event", event, "err", err)
	}
	return nil
}
