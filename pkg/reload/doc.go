/*
Package reload coordinates restarts of a shared context between interleaved test executions.

Every execution chain carries a *Hold. The Gate is a reentrant lock keyed by
that hold rather than by goroutine, so a chain may take it at one boundary and
release it further down its own call sequence, and a hold never releases a gate
it does not own.

Listeners receive the hold of the chain that fired them. A listener entering
a boundary of the same context passes that hold on, so it re-enters instead of
waiting on a gate its own chain owns.

# Policies

  - domain.ReloadBefore: the context restarts when the unit reaches a before-boundary.
    Callers that queued behind a restart which completed while they waited reuse it,
    so simultaneous BEFORE units share one restart.
  - domain.ReloadAfter: the unit is queued when it reaches an after-boundary; the next
    before-boundary of any unit restarts the context and hands the queue to the restart
    listeners.

A restart fires five phases (before-restart-stop, restart-stop, after-restart-stop,
restart-start, after-restart-start). Listeners perform the actual teardown and
bring-up; the gate only guarantees no boundary observes a half-restarted context.
*/
package reload
