package memory

import (
	"context"
	"sync"
	"time"

	"giftcast/internal/core/domain"
	"giftcast/internal/core/ports"
)

type MemorySessionRepository struct {
	sessions map[domain.SessionID]*domain.LiveSession
	active   map[domain.GroupID]domain.SessionID
	mu       sync.RWMutex
}

func NewMemorySessionRepository() ports.SessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[domain.SessionID]*domain.LiveSession),
		active:   make(map[domain.GroupID]domain.SessionID),
	}
}

func (r *MemorySessionRepository) Create(ctx context.Context, session *domain.LiveSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.active[session.GroupID]; exists {
		return domain.ErrSessionAlreadyActive
	}

	r.sessions[session.ID] = session
	r.active[session.GroupID] = session.ID
	return nil
}

func (r *MemorySessionRepository) GetByID(ctx context.Context, id domain.SessionID) (*domain.LiveSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (r *MemorySessionRepository) GetActive(ctx context.Context, groupID domain.GroupID) (*domain.LiveSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.active[groupID]
	if !exists {
		return nil, domain.ErrNoActiveSession
	}
	return r.sessions[id], nil
}

func (r *MemorySessionRepository) Deactivate(ctx context.Context, groupID domain.GroupID, id domain.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, exists := r.active[groupID]; !exists || current != id {
		return domain.ErrNoActiveSession
	}
	delete(r.active, groupID)
	return nil
}

func (r *MemorySessionRepository) ListActive(ctx context.Context) ([]*domain.LiveSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*domain.LiveSession, 0, len(r.active))
	for _, id := range r.active {
		sessions = append(sessions, r.sessions[id])
	}
	return sessions, nil
}

// PruneEnded forgets sessions that ended before the cutoff.
func (r *MemorySessionRepository) PruneEnded(ctx context.Context, endedBefore time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pruned := 0
	for id, session := range r.sessions {
		if r.active[session.GroupID] == id {
			continue
		}
		ended := session.EndedAt()
		if ended != nil && ended.Before(endedBefore) {
			delete(r.sessions, id)
			pruned++
		}
	}
	return pruned, nil
}
