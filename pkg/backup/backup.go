package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	backupPrefix     = "backup-"
	backupSuffix     = ".json"
	backupTimeLayout = "20060102-150405"
)

// ErrNotFound is returned by Storage.Load when the object does not exist.
var ErrNotFound = errors.New("backup object not found")

// BackupData is the envelope written for every archive.
type BackupData struct {
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Decode unmarshals the payload into v.
func (d *BackupData) Decode(v interface{}) error {
	if len(d.Payload) == 0 {
		return fmt.Errorf("backup has no payload")
	}
	return json.Unmarshal(d.Payload, v)
}

// Storage defines interface for backup storage
type Storage interface {
	Save(ctx context.Context, name string, data io.Reader) error
	Load(ctx context.Context, name string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// BackupService writes timestamped archives to a Storage.
type BackupService struct {
	storage Storage
	version string
	clock   clockwork.Clock
}

func NewBackupService(storage Storage, version string, clock clockwork.Clock) *BackupService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &BackupService{
		storage: storage,
		version: version,
		clock:   clock,
	}
}

// CreateBackup archives payload under a name derived from the current time.
func (bs *BackupService) CreateBackup(ctx context.Context, payload interface{}, metadata map[string]string) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal backup payload: %w", err)
	}

	data := BackupData{
		Version:   bs.version,
		Timestamp: bs.clock.Now().UTC(),
		Payload:   raw,
		Metadata:  metadata,
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal backup data: %w", err)
	}

	name := BackupName(data.Timestamp)
	if err := bs.storage.Save(ctx, name, bytes.NewReader(encoded)); err != nil {
		return "", fmt.Errorf("failed to save backup: %w", err)
	}
	return name, nil
}

// RestoreBackup reads an archive back.
func (bs *BackupService) RestoreBackup(ctx context.Context, name string) (*BackupData, error) {
	reader, err := bs.storage.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load backup: %w", err)
	}
	defer reader.Close()

	var data BackupData
	if err := json.NewDecoder(reader).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode backup %s: %w", name, err)
	}
	return &data, nil
}

// ListBackups returns archive names, oldest first.
func (bs *BackupService) ListBackups(ctx context.Context) ([]string, error) {
	names, err := bs.storage.List(ctx, backupPrefix)
	if err != nil {
		return nil, err
	}

	out := names[:0]
	for _, name := range names {
		if _, ok := ParseBackupTime(name); ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (bs *BackupService) DeleteBackup(ctx context.Context, name string) error {
	return bs.storage.Delete(ctx, name)
}

// BackupName formats the archive name for t.
func BackupName(t time.Time) string {
	return backupPrefix + t.UTC().Format(backupTimeLayout) + backupSuffix
}

// ParseBackupTime extracts the timestamp encoded in an archive name.
func ParseBackupTime(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, backupSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, backupPrefix), backupSuffix)
	t, err := time.Parse(backupTimeLayout, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
