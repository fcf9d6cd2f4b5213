package reload

import (
	"slices"

	"github.com/aretw0/testctx/pkg/domain"
	"github.com/aretw0/testctx/pkg/injector"
	"github.com/aretw0/testctx/pkg/lifecycle"
)

// Listener observes a reloadable context: its lifecycle, restarts, boundaries
// and the outcome of every intercepted invocation.
//
// Restart phases receive the unit that triggered the restart and the units
// that completed with an AFTER policy since the previous restart.
//
// Every method receives the hold of the execution chain that fired it. A
// listener that enters a boundary of the same context must pass that hold,
// since the chain may already own the gate.
type Listener interface {
	lifecycle.Listener

	BeforeRestartStopContext(inj *injector.Injector, h *Hold, unit domain.Unit, waiting []domain.Unit) error
	RestartStopContext(inj *injector.Injector, h *Hold, unit domain.Unit, waiting []domain.Unit) error
	AfterRestartStopContext(inj *injector.Injector, h *Hold, unit domain.Unit, waiting []domain.Unit) error
	RestartStartContext(inj *injector.Injector, h *Hold, unit domain.Unit, waiting []domain.Unit) error
	AfterRestartStartContext(inj *injector.Injector, h *Hold, unit domain.Unit, waiting []domain.Unit) error

	BeforeAll(inj *injector.Injector, h *Hold, unit domain.Unit) error
	AfterAll(inj *injector.Injector, h *Hold, unit domain.Unit) error
	BeforeEach(inj *injector.Injector, h *Hold, unit domain.Unit) error
	AfterEach(inj *injector.Injector, h *Hold, unit domain.Unit) error

	BeforeAllHandle(inj *injector.Injector, h *Hold, unit domain.Unit, cause error) error
	BeforeEachHandle(inj *injector.Injector, h *Hold, unit domain.Unit, cause error) error
	TestMethodHandle(inj *injector.Injector, h *Hold, unit domain.Unit, cause error) error
	AfterEachHandle(inj *injector.Injector, h *Hold, unit domain.Unit, cause error) error
	AfterAllHandle(inj *injector.Injector, h *Hold, unit domain.Unit, cause error) error
}

// Family groups reloadable context listeners.
var Family = domain.NewFamily[Listener]("reloadable-context",
	slices.Concat(domain.LifecycleEvents, domain.ReloadEvents)...)

// BaseListener provides no-op methods for embedding.
type BaseListener struct {
	lifecycle.BaseListener
}

func (BaseListener) BeforeRestartStopContext(*injector.Injector, *Hold, domain.Unit, []domain.Unit) error {
	return nil
}
func (BaseListener) RestartStopContext(*injector.Injector, *Hold, domain.Unit, []domain.Unit) error {
	return nil
}
func (BaseListener) AfterRestartStopContext(*injector.Injector, *Hold, domain.Unit, []domain.Unit) error {
	return nil
}
func (BaseListener) RestartStartContext(*injector.Injector, *Hold, domain.Unit, []domain.Unit) error {
	return nil
}
func (BaseListener) AfterRestartStartContext(*injector.Injector, *Hold, domain.Unit, []domain.Unit) error {
	return nil
}

func (BaseListener) BeforeAll(*injector.Injector, *Hold, domain.Unit) error  { return nil }
func (BaseListener) AfterAll(*injector.Injector, *Hold, domain.Unit) error   { return nil }
func (BaseListener) BeforeEach(*injector.Injector, *Hold, domain.Unit) error { return nil }
func (BaseListener) AfterEach(*injector.Injector, *Hold, domain.Unit) error  { return nil }

func (BaseListener) BeforeAllHandle(*injector.Injector, *Hold, domain.Unit, error) error  { return nil }
func (BaseListener) BeforeEachHandle(*injector.Injector, *Hold, domain.Unit, error) error { return nil }
func (BaseListener) TestMethodHandle(*injector.Injector, *Hold, domain.Unit, error) error { return nil }
func (BaseListener) AfterEachHandle(*injector.Injector, *Hold, domain.Unit, error) error  { return nil }
func (BaseListener) AfterAllHandle(*injector.Injector, *Hold, domain.Unit, error) error   { return nil }
