package domain

import "time"

// Lifecycle events fired around the shared context.
const (
	EventBeforeStartContext = "beforeStartContext"
	EventStartContext       = "startContext"
	EventAfterStartContext  = "afterStartContext"
	EventBeforeStopContext  = "beforeStopContext"
	EventStopContext        = "stopContext"
	EventAfterStopContext   = "afterStopContext"
)

// Restart phases fired by the reload gate.
const (
	EventBeforeRestartStopContext = "beforeRestartStopContext"
	EventRestartStopContext       = "restartStopContext"
	EventAfterRestartStopContext  = "afterRestartStopContext"
	EventRestartStartContext      = "restartStartContext"
	EventAfterRestartStartContext = "afterRestartStartContext"
)

// Boundary phases.
const (
	EventBeforeAll  = "beforeAll"
	EventAfterAll   = "afterAll"
	EventBeforeEach = "beforeEach"
	EventAfterEach  = "afterEach"
)

// Handle phases fired after an intercepted invocation, with its error or nil.
const (
	EventBeforeAllHandle  = "beforeAllHandle"
	EventBeforeEachHandle = "beforeEachHandle"
	EventTestMethodHandle = "testMethodHandle"
	EventAfterEachHandle  = "afterEachHandle"
	EventAfterAllHandle   = "afterAllHandle"
)

const (
	// EventListenerLoaded is fired once the pipeline has finished loading.
	EventListenerLoaded = "listenerLoaded"
	// EventResolve orders resolvers consulted by the injector.
	EventResolve = "resolve"
)

// LifecycleEvents lists the six shared context events in firing order.
var LifecycleEvents = []string{
	EventBeforeStartContext,
	EventStartContext,
	EventAfterStartContext,
	EventBeforeStopContext,
	EventStopContext,
	EventAfterStopContext,
}

// RestartEvents lists the five restart phases in firing order.
var RestartEvents = []string{
	EventBeforeRestartStopContext,
	EventRestartStopContext,
	EventAfterRestartStopContext,
	EventRestartStartContext,
	EventAfterRestartStartContext,
}

// ReloadEvents lists the fourteen events owned by a reloadable context.
var ReloadEvents = append(append([]string{}, RestartEvents...),
	EventBeforeAll,
	EventAfterAll,
	EventBeforeEach,
	EventAfterEach,
	EventBeforeAllHandle,
	EventBeforeEachHandle,
	EventTestMethodHandle,
	EventAfterEachHandle,
	EventAfterAllHandle,
)

// LockPhase is the step of a gate operation reported to observers.
type LockPhase string

const (
	LockAcquiring LockPhase = "acquiring"
	LockAcquired  LockPhase = "acquired"
	LockReleased  LockPhase = "released"
	// LockSkipped marks a reload request that lost the race for a restart window.
	LockSkipped LockPhase = "skipped"
)

// LockEvent is emitted for every gate transition.
type LockEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Group     string    `json:"group"`
	Hold      string    `json:"hold"`
	Phase     LockPhase `json:"phase"`
	Boundary  string    `json:"boundary"`
	Unit      string    `json:"unit"`
	Depth     int       `json:"depth"`
}
