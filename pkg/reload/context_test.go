package reload

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/testctx/pkg/domain"
	"github.com/aretw0/testctx/pkg/injector"
	"github.com/aretw0/testctx/pkg/pipeline"
	"github.com/aretw0/testctx/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type restartRecord struct {
	event   string
	unit    string
	waiting []string
}

type phaseLog struct {
	BaseListener
	mu       sync.Mutex
	restarts []restartRecord
	events   []string
	causes   map[string]error
	failOn   string
	onPhase  func(event string)
}

func newPhaseLog() *phaseLog {
	return &phaseLog{causes: make(map[string]error)}
}

func (p *phaseLog) restart(event string, u domain.Unit, waiting []domain.Unit) error {
	ids := make([]string, 0, len(waiting))
	for _, w := range waiting {
		ids = append(ids, w.ID)
	}
	p.mu.Lock()
	p.restarts = append(p.restarts, restartRecord{event: event, unit: u.ID, waiting: ids})
	onPhase := p.onPhase
	p.mu.Unlock()
	if onPhase != nil {
		onPhase(event)
	}
	if event == p.failOn {
		return errors.New("restart broke")
	}
	return nil
}

func (p *phaseLog) event(event string, u domain.Unit, cause error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event+":"+u.ID)
	if cause != nil {
		p.causes[event] = cause
	}
	return nil
}

func (p *phaseLog) restartEvents() []restartRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]restartRecord(nil), p.restarts...)
}

func (p *phaseLog) seen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func (p *phaseLog) BeforeRestartStopContext(_ *injector.Injector, _ *Hold, u domain.Unit, w []domain.Unit) error {
	return p.restart(domain.EventBeforeRestartStopContext, u, w)
}
func (p *phaseLog) RestartStopContext(_ *injector.Injector, _ *Hold, u domain.Unit, w []domain.Unit) error {
	return p.restart(domain.EventRestartStopContext, u, w)
}
func (p *phaseLog) AfterRestartStopContext(_ *injector.Injector, _ *Hold, u domain.Unit, w []domain.Unit) error {
	return p.restart(domain.EventAfterRestartStopContext, u, w)
}
func (p *phaseLog) RestartStartContext(_ *injector.Injector, _ *Hold, u domain.Unit, w []domain.Unit) error {
	return p.restart(domain.EventRestartStartContext, u, w)
}
func (p *phaseLog) AfterRestartStartContext(_ *injector.Injector, _ *Hold, u domain.Unit, w []domain.Unit) error {
	return p.restart(domain.EventAfterRestartStartContext, u, w)
}
func (p *phaseLog) BeforeEach(_ *injector.Injector, _ *Hold, u domain.Unit) error {
	return p.event(domain.EventBeforeEach, u, nil)
}
func (p *phaseLog) AfterEach(_ *injector.Injector, _ *Hold, u domain.Unit) error {
	return p.event(domain.EventAfterEach, u, nil)
}
func (p *phaseLog) TestMethodHandle(_ *injector.Injector, _ *Hold, u domain.Unit, cause error) error {
	return p.event(domain.EventTestMethodHandle, u, cause)
}
func (p *phaseLog) AfterEachHandle(_ *injector.Injector, _ *Hold, u domain.Unit, cause error) error {
	return p.event(domain.EventAfterEachHandle, u, cause)
}

type policyScanner map[string]domain.ReloadPolicy

func (s policyScanner) GroupOf(string) (string, bool)                    { return "", false }
func (s policyScanner) Policy(id string) domain.ReloadPolicy             { return s[id] }
func (s policyScanner) Declarations(string) []domain.ListenerDeclaration { return nil }
func (s policyScanner) Orders(string) []domain.Order                     { return nil }
func (s policyScanner) Extensions(string) []domain.Extension             { return nil }

func newReloadContext(t *testing.T, l Listener, opts ...Option) *Context {
	t.Helper()
	p := pipeline.New()
	require.NoError(t, p.Register(l))
	inj, err := injector.New(p)
	require.NoError(t, err)
	c, err := New(p, inj, append([]Option{WithGroup("g")}, opts...)...)
	require.NoError(t, err)
	require.NoError(t, c.Start())
	return c
}

// runUnit drives one unit through every boundary the way a test runner would.
func runUnit(c *Context, u domain.Unit, body func() error) error {
	h := NewHold(u.ID)
	if err := c.BeforeEach(h, u); err != nil {
		return err
	}
	if err := c.InterceptTest(h, u, body); err != nil {
		return err
	}
	if err := c.InterceptAfterEach(h, u, func() error { return nil }); err != nil {
		return err
	}
	return c.AfterEach(h, u)
}

func TestContext_NoPolicyNoRestart(t *testing.T) {
	p := newPhaseLog()
	c := newReloadContext(t, p)

	require.NoError(t, runUnit(c, domain.Unit{ID: "plain"}, func() error { return nil }))

	assert.Empty(t, p.restartEvents())
	assert.Equal(t, []string{
		"beforeEach:plain", "testMethodHandle:plain", "afterEachHandle:plain", "afterEach:plain",
	}, p.seen())
}

func TestContext_BeforePolicyRestartsOncePerUnit(t *testing.T) {
	p := newPhaseLog()
	c := newReloadContext(t, p)
	u := domain.Unit{ID: "fresh", Policy: domain.ReloadBefore}

	require.NoError(t, runUnit(c, u, func() error { return nil }))
	require.NoError(t, runUnit(c, u, func() error { return nil }))

	assert.Equal(t, uint64(2), c.Restarts(), "sequential BEFORE units each get their own window")
	calls := p.restartEvents()
	require.Len(t, calls, 10)
	for i, e := range domain.RestartEvents {
		assert.Equal(t, e, calls[i].event)
		assert.Equal(t, "fresh", calls[i].unit)
	}
}

func TestContext_ConcurrentBeforeRequestsShareOneRestart(t *testing.T) {
	const n = 8
	var arrivals atomic.Int32
	observer := ports.LockObserverFunc(func(e domain.LockEvent) {
		if e.Phase == domain.LockAcquiring {
			arrivals.Add(1)
		}
	})
	p := newPhaseLog()
	p.onPhase = func(event string) {
		if event != domain.EventBeforeRestartStopContext {
			return
		}
		deadline := time.Now().Add(2 * time.Second)
		for arrivals.Load() < n && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
	}
	c := newReloadContext(t, p, WithObserver(observer))

	var g errgroup.Group
	observed := make([]uint64, n)
	for i := range n {
		g.Go(func() error {
			u := domain.Unit{ID: "racer", Policy: domain.ReloadBefore}
			h := NewHold(u.ID)
			if err := c.BeforeEach(h, u); err != nil {
				return err
			}
			observed[i] = c.Restarts()
			return c.AfterEach(h, u)
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, uint64(1), c.Restarts())
	assert.Len(t, p.restartEvents(), len(domain.RestartEvents))
	for _, o := range observed {
		assert.Equal(t, uint64(1), o, "every racer sees the restarted context")
	}
}

func TestContext_AfterPolicyQueuesUntilNextBoundary(t *testing.T) {
	p := newPhaseLog()
	c := newReloadContext(t, p)

	require.NoError(t, runUnit(c, domain.Unit{ID: "dirty", Policy: domain.ReloadAfter}, func() error { return nil }))
	assert.True(t, c.Gate().PendingAfter())
	assert.Equal(t, []domain.Unit{{ID: "dirty", Policy: domain.ReloadAfter}}, c.Gate().Waiting())
	assert.Empty(t, p.restartEvents(), "the restart is deferred to the next boundary")

	require.NoError(t, runUnit(c, domain.Unit{ID: "next"}, func() error { return nil }))

	calls := p.restartEvents()
	require.Len(t, calls, len(domain.RestartEvents))
	for _, call := range calls {
		assert.Equal(t, "next", call.unit)
		assert.Equal(t, []string{"dirty"}, call.waiting)
	}
	assert.False(t, c.Gate().PendingAfter())
	assert.Empty(t, c.Gate().Waiting())
	assert.Equal(t, uint64(1), c.Restarts())
}

func TestContext_AfterDuringRestartIsSkipped(t *testing.T) {
	p := newPhaseLog()
	c := newReloadContext(t, p)
	h := NewHold("chain")
	dirty := domain.Unit{ID: "dirty", Policy: domain.ReloadAfter}
	p.onPhase = func(event string) {
		if event == domain.EventRestartStartContext {
			assert.NoError(t, c.AfterEach(h, dirty))
		}
	}

	require.NoError(t, c.BeforeEach(h, domain.Unit{ID: "trigger", Policy: domain.ReloadBefore}))

	assert.Equal(t, uint64(1), c.Restarts())
	assert.False(t, c.Gate().PendingAfter())
	assert.Empty(t, c.Gate().Waiting())
}

func TestContext_ConcurrentAfterUnitsShareOneRestart(t *testing.T) {
	const n = 8
	p := newPhaseLog()
	c := newReloadContext(t, p)

	units := make([]domain.Unit, n)
	holds := make([]*Hold, n)
	want := make([]string, n)
	for i := range n {
		want[i] = fmt.Sprintf("dirty-%d", i)
		units[i] = domain.Unit{ID: want[i], Policy: domain.ReloadAfter}
		holds[i] = NewHold(want[i])
		require.NoError(t, c.BeforeEach(holds[i], units[i]))
	}

	var g errgroup.Group
	for i := range n {
		g.Go(func() error { return c.AfterEach(holds[i], units[i]) })
	}
	require.NoError(t, g.Wait())
	require.Empty(t, p.restartEvents())
	assert.True(t, c.Gate().PendingAfter())

	for i := range n {
		g.Go(func() error {
			u := domain.Unit{ID: fmt.Sprintf("next-%d", i)}
			h := NewHold(u.ID)
			if err := c.BeforeEach(h, u); err != nil {
				return err
			}
			return c.AfterEach(h, u)
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, uint64(1), c.Restarts())
	calls := p.restartEvents()
	require.Len(t, calls, len(domain.RestartEvents))
	for i, call := range calls {
		assert.Equal(t, domain.RestartEvents[i], call.event)
		assert.ElementsMatch(t, want, call.waiting, call.event)
	}
	assert.False(t, c.Gate().PendingAfter())
	assert.Empty(t, c.Gate().Waiting())
}

// reentrantListener enters a boundary of its own context from a restart phase.
type reentrantListener struct {
	BaseListener
	c      *Context
	held   bool
	nested error
}

func (l *reentrantListener) RestartStartContext(_ *injector.Injector, h *Hold, _ domain.Unit, _ []domain.Unit) error {
	l.held = l.c.Gate().HeldBy(h)
	l.nested = l.c.AfterEach(h, domain.Unit{ID: "nested"})
	return nil
}

func TestContext_RestartListenerReentersWithChainHold(t *testing.T) {
	l := &reentrantListener{}
	c := newReloadContext(t, l)
	l.c = c
	h := NewHold("chain")

	done := make(chan error, 1)
	go func() {
		done <- c.BeforeEach(h, domain.Unit{ID: "trigger", Policy: domain.ReloadBefore})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("a restart listener re-entering the gate with the chain hold blocked")
	}
	assert.True(t, l.held, "restart listeners receive the hold that owns the gate")
	assert.NoError(t, l.nested)
	assert.Equal(t, uint64(1), c.Restarts())
	assert.False(t, c.Gate().HeldBy(h), "every nested level was released")
}

func TestContext_PolicyFromScanner(t *testing.T) {
	p := newPhaseLog()
	c := newReloadContext(t, p, WithScanner(policyScanner{"declared": domain.ReloadBefore}))

	assert.Equal(t, domain.ReloadBefore, c.PolicyOf(domain.Unit{ID: "declared"}))
	assert.Equal(t, domain.ReloadAfter, c.PolicyOf(domain.Unit{ID: "declared", Policy: domain.ReloadAfter}))

	require.NoError(t, runUnit(c, domain.Unit{ID: "declared"}, func() error { return nil }))
	assert.Equal(t, uint64(1), c.Restarts())
}

func TestContext_RestartFailureResetsFlags(t *testing.T) {
	p := newPhaseLog()
	p.failOn = domain.EventRestartStartContext
	c := newReloadContext(t, p)
	h := NewHold("chain")

	err := c.BeforeEach(h, domain.Unit{ID: "u", Policy: domain.ReloadBefore})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrListenerFailure)
	assert.False(t, c.Gate().Reloading())
	assert.Zero(t, c.Restarts())
	assert.False(t, c.Gate().HeldBy(h), "the gate is released even when the restart fails")
}

func TestContext_InterceptReportsCause(t *testing.T) {
	p := newPhaseLog()
	c := newReloadContext(t, p)
	h := NewHold("chain")
	u := domain.Unit{ID: "boom"}
	bodyErr := errors.New("assertion failed")

	err := c.InterceptTest(h, u, func() error { return bodyErr })

	assert.ErrorIs(t, err, bodyErr)
	assert.Equal(t, bodyErr, p.causes[domain.EventTestMethodHandle])
}

func TestContext_InterceptReleasesCarriedHold(t *testing.T) {
	p := newPhaseLog()
	c := newReloadContext(t, p)
	h := NewHold("chain")
	u := domain.Unit{ID: "carried"}

	c.Gate().Lock(h, domain.EventBeforeEach, u)
	require.NoError(t, c.InterceptTest(h, u, func() error {
		assert.True(t, c.Gate().HeldBy(h), "body runs while the carried hold is owned")
		return nil
	}))

	assert.False(t, c.Gate().HeldBy(h))
}

func TestContext_StopResetsGate(t *testing.T) {
	p := newPhaseLog()
	c := newReloadContext(t, p)
	require.NoError(t, runUnit(c, domain.Unit{ID: "dirty", Policy: domain.ReloadAfter}, func() error { return nil }))
	require.True(t, c.Gate().PendingAfter())

	stopped, err := c.Stop()

	require.NoError(t, err)
	assert.True(t, stopped)
	assert.False(t, c.Gate().PendingAfter())
	assert.Empty(t, c.Gate().Waiting())
}

type stoppingListener struct {
	BaseListener
	c *Context
}

func (l *stoppingListener) BeforeEach(*injector.Injector, *Hold, domain.Unit) error {
	_, err := l.c.Stop()
	return err
}

func TestContext_StopInsideBoundaryReleasesGate(t *testing.T) {
	l := &stoppingListener{}
	c := newReloadContext(t, l)
	l.c = c
	h := NewHold("chain")

	require.NoError(t, c.BeforeEach(h, domain.Unit{ID: "u"}))

	assert.True(t, c.Stopped())
	assert.False(t, c.Gate().HeldBy(h), "the boundary released its level after the stop")
	other := NewHold("other")
	c.Gate().Lock(other, domain.EventBeforeEach, domain.Unit{ID: "v"})
	assert.True(t, c.Gate().HeldBy(other))
	assert.True(t, c.Gate().Unlock(other, domain.EventBeforeEach, domain.Unit{ID: "v"}))
}

func TestContext_NotReloadable(t *testing.T) {
	p := newPhaseLog()
	c := newReloadContext(t, p, WithReloadable(false))
	ran := false

	require.NoError(t, runUnit(c, domain.Unit{ID: "u", Policy: domain.ReloadBefore}, func() error {
		ran = true
		return nil
	}))

	assert.True(t, ran)
	assert.False(t, c.Reloadable())
	assert.Zero(t, c.Restarts())
	assert.Empty(t, p.seen())
}
