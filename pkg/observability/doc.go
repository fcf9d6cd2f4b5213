/*
Package observability provides tools for monitoring shared test contexts.

Collector exports prometheus metrics for gate transitions, race skips, context
starts and stops, restarts and failed invocations. Recorder persists a group
snapshot to a ports.SnapshotStore whenever the context changes state, so a status
command or server in another process can follow a running suite.

Both are listeners: register them with manager.WithListeners. Collector is also a
ports.LockObserver and should be passed to manager.WithObserver as well.
*/
package observability
