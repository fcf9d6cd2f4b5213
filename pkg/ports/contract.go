package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/testctx/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore implementation
// adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	group := "contract-group-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		snap := domain.Snapshot{
			Group:      group,
			Extension:  domain.ExtensionReloadable,
			Created:    true,
			Executions: 3,
			Running:    1,
			Restarts:   2,
			Waiting:    []string{"unit-a"},
			Phase:      domain.EventAfterRestartStartContext,
			UpdatedAt:  time.Now().UTC().Truncate(time.Second),
		}

		require.NoError(t, store.Save(ctx, snap), "Save should not return error")

		loaded, err := store.Load(ctx, group)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, snap.Group, loaded.Group)
		assert.Equal(t, snap.Executions, loaded.Executions)
		assert.Equal(t, snap.Restarts, loaded.Restarts)
		assert.Equal(t, snap.Waiting, loaded.Waiting)
		assert.Equal(t, snap.Phase, loaded.Phase)
		assert.True(t, snap.UpdatedAt.Equal(loaded.UpdatedAt))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+group)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, domain.Snapshot{Group: group, Restarts: 1}))
		require.NoError(t, store.Save(ctx, domain.Snapshot{Group: group, Restarts: 5}))

		loaded, err := store.Load(ctx, group)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), loaded.Restarts)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, domain.Snapshot{Group: group}))

		require.NoError(t, store.Delete(ctx, group), "Delete should not return error")

		_, err := store.Load(ctx, group)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound, "Load after Delete should return ErrSnapshotNotFound")
	})

	t.Run("List", func(t *testing.T) {
		g1 := group + "-1"
		g2 := group + "-2"
		_ = store.Save(ctx, domain.Snapshot{Group: g1})
		_ = store.Save(ctx, domain.Snapshot{Group: g2})

		defer func() {
			_ = store.Delete(ctx, g1)
			_ = store.Delete(ctx, g2)
		}()

		groups, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, groups, g1)
		assert.Contains(t, groups, g2)
	})
}
