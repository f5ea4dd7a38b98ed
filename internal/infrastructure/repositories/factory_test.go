package repositories

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"giftcast/internal/core/domain"
	"giftcast/internal/infrastructure/reliability"
	"giftcast/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRepositoryFactory_Memory(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Persistence.Backend = BackendMemory
	f, err := NewRepositoryFactory(context.Background(), cfg, nil, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	defer f.Close(context.Background())

	assert.Equal(t, BackendMemory, f.Backend())
	assert.NotNil(t, f.CreateGroupRepository())
	assert.NotNil(t, f.CreateWalletRepository())
	assert.NotNil(t, f.CreateSessionRepository())
	assert.NoError(t, f.Ping(context.Background()))

	_, wrapped := f.SnapshotStore().(*reliability.SnapshotStoreWrapper)
	assert.False(t, wrapped, "memory store needs no retries")
}

func TestRepositoryFactory_FileBackend(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Persistence.Dir = dir
	cfg.Persistence.Retry.Enabled = false
	f, err := NewRepositoryFactory(context.Background(), cfg, nil, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	defer f.Close(context.Background())

	assert.Equal(t, BackendFile, f.Backend())
	_, wrapped := f.SnapshotStore().(*reliability.SnapshotStoreWrapper)
	assert.True(t, wrapped)

	ctx := context.Background()
	snapshot := &domain.Snapshot{
		Version: domain.SnapshotVersion,
		SavedAt: time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC),
		Groups:  []*domain.Group{{ID: "grp_1", Name: "Book Club", OwnerID: "ana"}},
	}
	require.NoError(t, f.SnapshotStore().Save(ctx, snapshot))

	loaded, err := f.SnapshotStore().Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Groups, 1)
	assert.Equal(t, "Book Club", loaded.Groups[0].Name)
	assert.FileExists(t, filepath.Join(dir, "snapshot-latest.json"))

	archives, err := f.ArchiveStorage()
	require.NoError(t, err)
	require.NotNil(t, archives)
	info, err := os.Stat(filepath.Join(dir, "archive"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRepositoryFactory_RedisFallsBackToMemory(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Persistence.Backend = BackendRedis
	cfg.Redis.Address = "127.0.0.1:1"
	f, err := NewRepositoryFactory(context.Background(), cfg, nil, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	defer f.Close(context.Background())

	assert.Equal(t, BackendMemory, f.Backend())
	snapshot, err := f.SnapshotStore().Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestRepositoryFactory_UnknownBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Persistence.Backend = "tape"
	_, err := NewRepositoryFactory(context.Background(), cfg, nil, zaptest.NewLogger(t).Sugar())
	assert.Error(t, err)
}
