package ports

import "github.com/aretw0/testctx/pkg/domain"

// LockObserver receives every reload gate transition.
// It is called synchronously on the goroutine that moved the gate and must not block.
type LockObserver interface {
	OnLockEvent(event domain.LockEvent)
}

// LockObserverFunc adapts a function to LockObserver.
type LockObserverFunc func(event domain.LockEvent)

func (f LockObserverFunc) OnLockEvent(event domain.LockEvent) { f(event) }

// MultiObserver forwards every event to each observer in order.
type MultiObserver []LockObserver

func (m MultiObserver) OnLockEvent(event domain.LockEvent) {
	for _, o := range m {
		o.OnLockEvent(event)
	}
}
