package ports

import (
	"context"
	"time"

	"giftcast/internal/core/domain"
)

// GroupRepository stores groups and keeps the invite-code index consistent.
// Returned groups are copies; mutation goes through Update.
type GroupRepository interface {
	Create(ctx context.Context, group *domain.Group) error
	GetByID(ctx context.Context, id domain.GroupID) (*domain.Group, error)
	GetByInviteCode(ctx context.Context, code string) (*domain.Group, error)
	// Update applies fn to the stored group atomically. A changed invite code
	// is re-indexed; fn's error aborts the update.
	Update(ctx context.Context, id domain.GroupID, fn func(*domain.Group) error) (*domain.Group, error)
	Delete(ctx context.Context, id domain.GroupID) error
	List(ctx context.Context) ([]*domain.Group, error)
	ReplaceAll(ctx context.Context, groups []*domain.Group) error
}

// WalletRepository is the ledger store. Every mutation, single or paired,
// runs under one exclusive ledger lock against working copies that are
// committed only when the mutation function succeeds.
type WalletRepository interface {
	Get(ctx context.Context, userID domain.UserID) (*domain.Wallet, error)
	// GetOrCreate returns the wallet for userID, creating it with seed when
	// absent. created reports whether seed was used.
	GetOrCreate(ctx context.Context, userID domain.UserID, seed func() *domain.Wallet) (wallet *domain.Wallet, created bool, err error)
	Update(ctx context.Context, userID domain.UserID, seed func() *domain.Wallet, fn func(*domain.Wallet) error) (*domain.Wallet, error)
	Transfer(ctx context.Context, from, to domain.UserID, seed func(domain.UserID) *domain.Wallet, fn func(from, to *domain.Wallet) error) (*domain.Wallet, *domain.Wallet, error)
	List(ctx context.Context) ([]*domain.Wallet, error)
	ReplaceAll(ctx context.Context, wallets []*domain.Wallet) error
}

// SessionRepository tracks live sessions. At most one session per group is
// indexed as active; ended sessions stay addressable by id until pruned.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.LiveSession) error
	GetByID(ctx context.Context, id domain.SessionID) (*domain.LiveSession, error)
	GetActive(ctx context.Context, groupID domain.GroupID) (*domain.LiveSession, error)
	Deactivate(ctx context.Context, groupID domain.GroupID, id domain.SessionID) error
	ListActive(ctx context.Context) ([]*domain.LiveSession, error)
	PruneEnded(ctx context.Context, endedBefore time.Time) (int, error)
}

// SnapshotStore is the durable side of persistence. Load returns nil, nil
// when nothing has been saved yet.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot *domain.Snapshot) error
	Load(ctx context.Context) (*domain.Snapshot, error)
}
