package ports

import (
	"context"

	"github.com/aretw0/testctx/pkg/domain"
)

// SnapshotStore persists group snapshots for status reporting.
// It is an output only: nothing reads it back to coordinate executions.
type SnapshotStore interface {
	// Save persists the snapshot under its group.
	Save(ctx context.Context, snapshot domain.Snapshot) error

	// Load retrieves the snapshot for a group.
	// Returns domain.ErrSnapshotNotFound if the group has none.
	Load(ctx context.Context, group string) (domain.Snapshot, error)

	// List returns the groups with a stored snapshot.
	List(ctx context.Context) ([]string, error)

	// Delete removes the snapshot of a group.
	Delete(ctx context.Context, group string) error
}

// SnapshotSource produces the current snapshot of a group.
type SnapshotSource interface {
	Snapshot() domain.Snapshot
}
