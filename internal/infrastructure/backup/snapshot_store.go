package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"giftcast/internal/core/domain"
	"giftcast/internal/core/ports"
	"giftcast/pkg/backup"
	"giftcast/pkg/optimize"
	"giftcast/pkg/tracing"
)

// LatestSnapshotName is the object the live snapshot is written to. It is
// not a timestamped archive, so archive listings never include it.
const LatestSnapshotName = "snapshot-latest.json"

// SnapshotStore keeps the live snapshot as a single object in a backup
// storage, either a local directory or an S3 bucket.
type SnapshotStore struct {
	storage backup.Storage
	backend string
}

var _ ports.SnapshotStore = (*SnapshotStore)(nil)

func NewSnapshotStore(storage backup.Storage, backend string) *SnapshotStore {
	return &SnapshotStore{storage: storage, backend: backend}
}

func (s *SnapshotStore) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	ctx, span := tracing.TraceSnapshotOperation(ctx, "save", s.backend)
	defer span.End()

	data, err := optimize.EncodeJSON(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := s.storage.Save(ctx, LatestSnapshotName, bytes.NewReader(data)); err != nil {
		tracing.RecordError(ctx, err)
		return err
	}
	return nil
}

func (s *SnapshotStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	ctx, span := tracing.TraceSnapshotOperation(ctx, "load", s.backend)
	defer span.End()

	reader, err := s.storage.Load(ctx, LatestSnapshotName)
	if errors.Is(err, backup.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	defer reader.Close()

	var snapshot domain.Snapshot
	if err := json.NewDecoder(reader).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snapshot, nil
}
