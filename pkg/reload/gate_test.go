package reload

import (
	"sync"
	"testing"
	"time"

	"github.com/aretw0/testctx/pkg/domain"
	"github.com/aretw0/testctx/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_Reentrant(t *testing.T) {
	g := NewGate("g", nil)
	h := NewHold("chain")
	u := domain.Unit{ID: "u"}

	g.Lock(h, domain.EventBeforeAll, u)
	g.Lock(h, domain.EventBeforeEach, u)
	assert.True(t, g.HeldBy(h))

	assert.True(t, g.Unlock(h, domain.EventBeforeEach, u))
	assert.True(t, g.HeldBy(h), "one level is still held")
	assert.True(t, g.Unlock(h, domain.EventAfterAll, u))
	assert.False(t, g.HeldBy(h))
	assert.False(t, g.Unlock(h, domain.EventAfterAll, u), "releasing an unowned gate is a no-op")
}

func TestGate_ForeignUnlockIsNoop(t *testing.T) {
	g := NewGate("g", nil)
	owner, other := NewHold("owner"), NewHold("other")

	g.Lock(owner, domain.EventBeforeEach, domain.Unit{})

	assert.False(t, g.Unlock(other, domain.EventAfterEach, domain.Unit{}))
	assert.True(t, g.HeldBy(owner))
}

func TestGate_BlocksOtherHolds(t *testing.T) {
	g := NewGate("g", nil)
	owner, other := NewHold("owner"), NewHold("other")
	g.Lock(owner, domain.EventBeforeEach, domain.Unit{})
	g.Lock(owner, domain.EventBeforeEach, domain.Unit{})

	acquired := make(chan struct{})
	go func() {
		g.Lock(other, domain.EventBeforeEach, domain.Unit{})
		close(acquired)
	}()

	g.Unlock(owner, domain.EventAfterEach, domain.Unit{})
	select {
	case <-acquired:
		t.Fatal("gate released while owner still held one level")
	case <-time.After(50 * time.Millisecond):
	}

	g.Unlock(owner, domain.EventAfterEach, domain.Unit{})
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the gate")
	}
	assert.True(t, g.HeldBy(other))
}

func TestGate_LockReturnsGenerationAtArrival(t *testing.T) {
	g := NewGate("g", nil)
	owner, waiter := NewHold("owner"), NewHold("waiter")
	g.Lock(owner, domain.EventBeforeEach, domain.Unit{})

	seen := make(chan uint64, 1)
	var arrived sync.WaitGroup
	arrived.Add(1)
	g.observer = ports.LockObserverFunc(func(e domain.LockEvent) {
		if e.Phase == domain.LockAcquiring && e.Hold == waiter.String() {
			arrived.Done()
		}
	})
	go func() { seen <- g.Lock(waiter, domain.EventBeforeEach, domain.Unit{}) }()
	arrived.Wait()

	g.advance()
	g.Unlock(owner, domain.EventAfterEach, domain.Unit{})

	assert.Equal(t, uint64(0), <-seen)
	assert.Equal(t, uint64(1), g.Generation())
}

func TestGate_QueueAndReset(t *testing.T) {
	g := NewGate("g", nil)
	g.enqueue(domain.Unit{ID: "a"})
	g.enqueue(domain.Unit{ID: "b"})
	require.True(t, g.PendingAfter())
	require.True(t, g.enter())
	assert.False(t, g.enter(), "only one caller enters a restart")

	waiting := g.Waiting()
	g.Reset()

	assert.Equal(t, []domain.Unit{{ID: "a"}, {ID: "b"}}, waiting)
	assert.Empty(t, g.Waiting())
	assert.False(t, g.PendingAfter())
	assert.False(t, g.Reloading())
}

func TestGate_EmitsLockEvents(t *testing.T) {
	var events []domain.LockEvent
	g := NewGate("grp", ports.LockObserverFunc(func(e domain.LockEvent) { events = append(events, e) }))
	h := NewHold("chain")
	u := domain.Unit{ID: "u1"}

	g.Lock(h, domain.EventBeforeEach, u)
	g.Lock(h, domain.EventBeforeEach, u)
	g.Unlock(h, domain.EventBeforeEach, u)
	g.Unlock(h, domain.EventBeforeEach, u)

	phases := make([]domain.LockPhase, 0, len(events))
	for _, e := range events {
		phases = append(phases, e.Phase)
		assert.Equal(t, "grp", e.Group)
		assert.Equal(t, "u1", e.Unit)
	}
	assert.Equal(t, []domain.LockPhase{
		domain.LockAcquiring, domain.LockAcquired,
		domain.LockAcquired,
		domain.LockReleased, domain.LockReleased,
	}, phases)
	assert.Equal(t, 2, events[2].Depth)
	assert.Equal(t, 0, events[4].Depth)
}
