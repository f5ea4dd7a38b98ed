package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"giftcast/internal/core/domain"
	"giftcast/internal/core/ports"
	"giftcast/pkg/distributed"
	"giftcast/pkg/optimize"
	"giftcast/pkg/tracing"

	"github.com/redis/go-redis/v9"
)

const (
	SnapshotKey     = keyPrefix + "snapshot"
	SnapshotMetaKey = keyPrefix + "snapshot:meta"
	WriterLeaseKey  = keyPrefix + "snapshot:writer"
)

// ErrNotWriter is returned by Save when another instance holds the writer
// lease.
var ErrNotWriter = errors.New("another instance owns the snapshot")

// SnapshotStore keeps the whole snapshot as one JSON value. The metadata
// hash lets operators inspect the last save without decoding it.
type SnapshotStore struct {
	client redis.UniversalClient
	lease  *distributed.Lease
}

var _ ports.SnapshotStore = (*SnapshotStore)(nil)

// NewSnapshotStore returns a store. A non-nil lease restricts Save to the
// instance holding it.
func NewSnapshotStore(client redis.UniversalClient, lease *distributed.Lease) *SnapshotStore {
	return &SnapshotStore{client: client, lease: lease}
}

func (s *SnapshotStore) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	ctx, span := tracing.TraceSnapshotOperation(ctx, "save", "redis")
	defer span.End()

	if s.lease != nil {
		held, err := s.lease.TryAcquire(ctx)
		if err != nil {
			tracing.RecordError(ctx, err)
			return err
		}
		if !held {
			return ErrNotWriter
		}
	}

	data, err := optimize.EncodeJSON(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, SnapshotKey, data, 0)
		pipe.HSet(ctx, SnapshotMetaKey, snapshotMeta(snapshot, len(data)))
		return nil
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return fmt.Errorf("failed to write snapshot to Redis: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	ctx, span := tracing.TraceSnapshotOperation(ctx, "load", "redis")
	defer span.End()

	data, err := s.client.Get(ctx, SnapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("failed to read snapshot from Redis: %w", err)
	}
	return decodeSnapshot(data)
}

// Meta returns the metadata of the last save, or nil when nothing was saved.
func (s *SnapshotStore) Meta(ctx context.Context) (map[string]string, error) {
	meta, err := s.client.HGetAll(ctx, SnapshotMetaKey).Result()
	if err != nil {
		return nil, err
	}
	if len(meta) == 0 {
		return nil, nil
	}
	return meta, nil
}

// Ping reports whether Redis is reachable.
func (s *SnapshotStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close gives up the writer lease so another instance can take over.
func (s *SnapshotStore) Close(ctx context.Context) error {
	if s.lease == nil || !s.lease.Held() {
		return nil
	}
	return s.lease.Release(ctx)
}

func decodeSnapshot(data []byte) (*domain.Snapshot, error) {
	var snapshot domain.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}

func snapshotMeta(snapshot *domain.Snapshot, size int) map[string]interface{} {
	return map[string]interface{}{
		"version":  strconv.Itoa(snapshot.Version),
		"saved_at": snapshot.SavedAt.UTC().Format(time.RFC3339Nano),
		"groups":   strconv.Itoa(len(snapshot.Groups)),
		"wallets":  strconv.Itoa(len(snapshot.Wallets)),
		"bytes":    strconv.Itoa(size),
	}
}
