package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	Groups  []string       `json:"groups"`
	Wallets map[string]int `json:"wallets"`
}

func newService(t *testing.T) (*BackupService, *FileStorage, *clockwork.FakeClock, string) {
	t.Helper()
	dir := t.TempDir()
	storage, err := NewFileStorage(dir)
	require.NoError(t, err)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC))
	return NewBackupService(storage, "1", clock), storage, clock, dir
}

func TestBackupService_CreateAndRestore(t *testing.T) {
	service, _, _, dir := newService(t)
	ctx := context.Background()

	payload := samplePayload{Groups: []string{"book-club"}, Wallets: map[string]int{"leo": 925}}
	name, err := service.CreateBackup(ctx, payload, map[string]string{"reason": "scheduled"})
	require.NoError(t, err)
	assert.Equal(t, "backup-20260314-092653.json", name)

	_, err = os.Stat(filepath.Join(dir, name))
	require.NoError(t, err)

	data, err := service.RestoreBackup(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "1", data.Version)
	assert.Equal(t, "scheduled", data.Metadata["reason"])

	var restored samplePayload
	require.NoError(t, data.Decode(&restored))
	assert.Equal(t, payload, restored)
}

func TestBackupService_ListBackupsSortedAndFiltered(t *testing.T) {
	service, storage, clock, _ := newService(t)
	ctx := context.Background()

	first, err := service.CreateBackup(ctx, samplePayload{}, nil)
	require.NoError(t, err)
	clock.Advance(time.Hour)
	second, err := service.CreateBackup(ctx, samplePayload{}, nil)
	require.NoError(t, err)

	require.NoError(t, storage.Save(ctx, "backup-notes.txt", strings.NewReader("x")))
	require.NoError(t, storage.Save(ctx, "snapshot-latest.json", strings.NewReader("{}")))

	names, err := service.ListBackups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{first, second}, names)
}

func TestBackupService_DeleteBackup(t *testing.T) {
	service, _, _, _ := newService(t)
	ctx := context.Background()

	name, err := service.CreateBackup(ctx, samplePayload{}, nil)
	require.NoError(t, err)
	require.NoError(t, service.DeleteBackup(ctx, name))

	_, err = service.RestoreBackup(ctx, name)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseBackupTime(t *testing.T) {
	ts, ok := ParseBackupTime("backup-20260314-092653.json")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC), ts)

	for _, bad := range []string{"backup-latest.json", "snapshot-20260314-092653.json", "backup-20260314-092653.txt"} {
		_, ok := ParseBackupTime(bad)
		assert.False(t, ok, bad)
	}

	assert.Equal(t, "backup-20260314-092653.json", BackupName(ts))
}

func TestFileStorage_SaveOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewFileStorage(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, storage.Save(ctx, "snapshot-latest.json", strings.NewReader(`{"v":1}`)))
	require.NoError(t, storage.Save(ctx, "snapshot-latest.json", strings.NewReader(`{"v":2}`)))

	content, err := os.ReadFile(filepath.Join(dir, "snapshot-latest.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(content))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStorage_RejectsPathEscapes(t *testing.T) {
	storage, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, name := range []string{"", "../evil.json", "sub/dir.json", ".hidden"} {
		assert.Error(t, storage.Save(ctx, name, strings.NewReader("x")), name)
	}
}

func TestFileStorage_LoadMissing(t *testing.T) {
	storage, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	_, err = storage.Load(context.Background(), "nothing.json")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, storage.Delete(context.Background(), "nothing.json"))
}

func TestS3Storage_Key(t *testing.T) {
	assert.Equal(t, "name.json", NewS3Storage(nil, "b", "").key("name.json"))
	assert.Equal(t, "giftcast/snapshots/name.json", NewS3Storage(nil, "b", "/giftcast/snapshots/").key("name.json"))
}

func TestNewS3StorageFromOptions(t *testing.T) {
	_, err := NewS3StorageFromOptions(context.Background(), S3Options{})
	assert.Error(t, err)

	storage, err := NewS3StorageFromOptions(context.Background(), S3Options{
		Bucket:          "giftcast",
		Prefix:          "snapshots",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
	})
	require.NoError(t, err)
	assert.Equal(t, "giftcast", storage.bucket)
	assert.Equal(t, "snapshots/x.json", storage.key("x.json"))
}
