package reload

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/testctx/pkg/domain"
	"github.com/aretw0/testctx/pkg/ports"
)

// Hold identifies one execution chain to the gate.
// Every boundary of the same chain must use the same Hold; acquiring a gate
// already owned by the hold only increases its depth.
type Hold struct {
	id   string
	name string
}

// NewHold creates a hold for the named execution chain.
func NewHold(name string) *Hold {
	return &Hold{id: uuid.NewString(), name: name}
}

// ID returns the unique hold id.
func (h *Hold) ID() string { return h.id }

func (h *Hold) String() string {
	if h == nil {
		return "<nil>"
	}
	return h.name + "#" + h.id[:8]
}

// Gate is the reentrant lock and reload bookkeeping of one shared context.
type Gate struct {
	group    string
	observer ports.LockObserver

	mu    sync.Mutex
	cond  *sync.Cond
	owner *Hold
	depth int

	enteredReload atomic.Bool
	pendingAfter  atomic.Bool
	generation    atomic.Uint64

	qmu   sync.Mutex
	queue []domain.Unit
}

// NewGate creates an unlocked gate. observer may be nil.
func NewGate(group string, observer ports.LockObserver) *Gate {
	g := &Gate{group: group, observer: observer}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Lock blocks until h owns the gate and returns the restart generation
// observed when the caller arrived, before any waiting.
func (g *Gate) Lock(h *Hold, boundary string, u domain.Unit) uint64 {
	seen := g.generation.Load()
	if !g.HeldBy(h) {
		g.emit(h, domain.LockAcquiring, boundary, u, 0)
	}

	g.mu.Lock()
	for g.owner != nil && g.owner != h {
		g.cond.Wait()
	}
	g.owner = h
	g.depth++
	depth := g.depth
	g.mu.Unlock()

	g.emit(h, domain.LockAcquired, boundary, u, depth)
	return seen
}

// Unlock releases one level of h's ownership. It does nothing and returns
// false when h does not own the gate.
func (g *Gate) Unlock(h *Hold, boundary string, u domain.Unit) bool {
	g.mu.Lock()
	if g.owner == nil || g.owner != h {
		g.mu.Unlock()
		return false
	}
	g.depth--
	depth := g.depth
	if depth == 0 {
		g.owner = nil
		g.cond.Broadcast()
	}
	g.mu.Unlock()

	g.emit(h, domain.LockReleased, boundary, u, depth)
	return true
}

// HeldBy reports whether h owns the gate.
func (g *Gate) HeldBy(h *Hold) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return h != nil && g.owner == h
}

// Reloading reports whether a restart is running.
func (g *Gate) Reloading() bool { return g.enteredReload.Load() }

// PendingAfter reports whether an AFTER unit is waiting for the next restart.
func (g *Gate) PendingAfter() bool { return g.pendingAfter.Load() }

// Generation counts completed restarts.
func (g *Gate) Generation() uint64 { return g.generation.Load() }

// Waiting returns a snapshot of the units queued for the next restart.
func (g *Gate) Waiting() []domain.Unit {
	g.qmu.Lock()
	defer g.qmu.Unlock()
	return slices.Clone(g.queue)
}

// Reset clears the queue and both reload flags.
func (g *Gate) Reset() {
	g.qmu.Lock()
	g.queue = nil
	g.qmu.Unlock()
	g.pendingAfter.Store(false)
	g.enteredReload.Store(false)
}

func (g *Gate) enter() bool {
	return g.enteredReload.CompareAndSwap(false, true)
}

func (g *Gate) enqueue(u domain.Unit) {
	g.qmu.Lock()
	g.queue = append(g.queue, u)
	g.qmu.Unlock()
	g.pendingAfter.Store(true)
}

func (g *Gate) advance() {
	g.generation.Add(1)
}

func (g *Gate) emit(h *Hold, phase domain.LockPhase, boundary string, u domain.Unit, depth int) {
	if g.observer == nil {
		return
	}
	g.observer.OnLockEvent(domain.LockEvent{
		Timestamp: time.Now(),
		Group:     g.group,
		Hold:      h.String(),
		Phase:     phase,
		Boundary:  boundary,
		Unit:      u.ID,
		Depth:     depth,
	})
}
