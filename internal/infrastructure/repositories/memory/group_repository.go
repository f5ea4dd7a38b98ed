package memory

import (
	"context"
	"sort"
	"sync"

	"giftcast/internal/core/domain"
	"giftcast/internal/core/ports"
)

type MemoryGroupRepository struct {
	groups  map[domain.GroupID]*domain.Group
	invites map[string]domain.GroupID
	mu      sync.RWMutex
}

func NewMemoryGroupRepository() ports.GroupRepository {
	return &MemoryGroupRepository{
		groups:  make(map[domain.GroupID]*domain.Group),
		invites: make(map[string]domain.GroupID),
	}
}

func (r *MemoryGroupRepository) Create(ctx context.Context, group *domain.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.groups[group.ID]; exists {
		return domain.ErrGroupExists
	}
	if _, taken := r.invites[group.InviteCode]; taken {
		return domain.ErrInviteCodeTaken
	}

	r.groups[group.ID] = group.Clone()
	r.invites[group.InviteCode] = group.ID
	return nil
}

func (r *MemoryGroupRepository) GetByID(ctx context.Context, id domain.GroupID) (*domain.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	group, exists := r.groups[id]
	if !exists {
		return nil, domain.ErrGroupNotFound
	}
	return group.Clone(), nil
}

func (r *MemoryGroupRepository) GetByInviteCode(ctx context.Context, code string) (*domain.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.invites[code]
	if !exists {
		return nil, domain.ErrInviteNotFound
	}
	return r.groups[id].Clone(), nil
}

func (r *MemoryGroupRepository) Update(ctx context.Context, id domain.GroupID, fn func(*domain.Group) error) (*domain.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.groups[id]
	if !exists {
		return nil, domain.ErrGroupNotFound
	}

	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	working.ID = id

	if working.InviteCode != current.InviteCode {
		if owner, taken := r.invites[working.InviteCode]; taken && owner != id {
			return nil, domain.ErrInviteCodeTaken
		}
		delete(r.invites, current.InviteCode)
		r.invites[working.InviteCode] = id
	}

	r.groups[id] = working
	return working.Clone(), nil
}

func (r *MemoryGroupRepository) Delete(ctx context.Context, id domain.GroupID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, exists := r.groups[id]
	if !exists {
		return domain.ErrGroupNotFound
	}

	delete(r.invites, group.InviteCode)
	delete(r.groups, id)
	return nil
}

// List returns all groups, oldest first.
func (r *MemoryGroupRepository) List(ctx context.Context) ([]*domain.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	groups := make([]*domain.Group, 0, len(r.groups))
	for _, group := range r.groups {
		groups = append(groups, group.Clone())
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].CreatedAt.Equal(groups[j].CreatedAt) {
			return groups[i].ID < groups[j].ID
		}
		return groups[i].CreatedAt.Before(groups[j].CreatedAt)
	})
	return groups, nil
}

func (r *MemoryGroupRepository) ReplaceAll(ctx context.Context, groups []*domain.Group) error {
	byID := make(map[domain.GroupID]*domain.Group, len(groups))
	invites := make(map[string]domain.GroupID, len(groups))
	for _, group := range groups {
		if _, taken := invites[group.InviteCode]; taken {
			return domain.ErrInviteCodeTaken
		}
		byID[group.ID] = group.Clone()
		invites[group.InviteCode] = group.ID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups = byID
	r.invites = invites
	return nil
}
