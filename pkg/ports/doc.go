/*
Package ports defines the collaborators testctx consumes but does not own.

These interfaces decouple the coordinators (pipeline, reload gate, manager) from
the way listeners are discovered, how test metadata is declared and where
observability snapshots end up.

# Key Interfaces

  - Discovery / Factory: enumerate and instantiate listener implementations.
  - MetadataScanner: answers declarative questions about units and groups.
  - SnapshotStore: persists group snapshots for status reporting.
  - LockObserver: receives every reload gate transition.
*/
package ports
