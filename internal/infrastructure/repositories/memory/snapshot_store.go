package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"giftcast/internal/core/domain"
	"giftcast/internal/core/ports"
)

// MemorySnapshotStore keeps the last snapshot encoded, so a load never
// aliases the repositories that produced it. Nothing survives a restart.
type MemorySnapshotStore struct {
	mu    sync.RWMutex
	data  []byte
	saves int
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{}
}

var _ ports.SnapshotStore = (*MemorySnapshotStore)(nil)

func (s *MemorySnapshotStore) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.saves++
	return nil
}

func (s *MemorySnapshotStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.RLock()
	data := s.data
	s.mu.RUnlock()

	if data == nil {
		return nil, nil
	}
	var snapshot domain.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}

// Saves is the number of successful saves.
func (s *MemorySnapshotStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
