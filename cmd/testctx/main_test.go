package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/testctx/pkg/adapters/file"
	"github.com/aretw0/testctx/pkg/adapters/memory"
	"github.com/aretw0/testctx/pkg/adapters/redis"
	"github.com/aretw0/testctx/pkg/domain"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateCommand(t *testing.T) {
	valid := writeFile(t, "ok.yaml", "groups:\n  db:\n    units:\n      - id: TestA\n        policy: after\n")
	out, err := execute(t, "validate", valid)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid!")

	invalid := writeFile(t, "bad.toml", "[groups.db]\n[[groups.db.units]]\nid = \"\"\n")
	_, err = execute(t, "validate", invalid)
	assert.ErrorContains(t, err, "validation failed")
}

func TestGraphCommand(t *testing.T) {
	path := writeFile(t, "meta.json", `{"groups":{"db":{"units":[{"id":"TestA","policy":"before"}]}}}`)

	out, err := execute(t, "graph", path)

	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, `unit_TestA[/"TestA"/]`)
}

func TestStatusCommand_FileStore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, file.NewStore(dir).Save(context.Background(), domain.Snapshot{Group: "db", Created: true, Restarts: 4}))

	out, err := execute(t, "status", "--dir", dir)

	require.NoError(t, err)
	assert.Contains(t, out, "db")
	assert.Contains(t, out, "running")
}

func TestStatusCommand_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	store := redis.New(mr.Addr(), "", 0)
	defer store.Close()
	require.NoError(t, store.Save(context.Background(), domain.Snapshot{Group: "cache", Stopped: true}))

	out, err := execute(t, "status", "--redis", mr.Addr())
	rootCmd.PersistentFlags().Set("redis", "")

	require.NoError(t, err)
	assert.Contains(t, out, "cache")
	assert.Contains(t, out, "stopped")
}

func TestLoadSnapshots_SkipsVanishedGroups(t *testing.T) {
	store := &vanishing{Store: memory.NewStore()}
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domain.Snapshot{Group: "a"}))
	require.NoError(t, store.Save(ctx, domain.Snapshot{Group: "b"}))
	store.gone = "a"

	snaps, err := loadSnapshots(ctx, store)

	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "b", snaps[0].Group)
}

type vanishing struct {
	*memory.Store
	gone string
}

func (v *vanishing) Load(ctx context.Context, group string) (domain.Snapshot, error) {
	if group == v.gone {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	return v.Store.Load(ctx, group)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Regexp(t, `^testctx version \d+\.\d+\.\d+\n$`, out)
}
