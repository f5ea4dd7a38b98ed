package memory

import (
	"context"
	"sort"
	"sync"

	"giftcast/internal/core/domain"
	"giftcast/internal/core/ports"
)

// MemoryWalletRepository guards the whole ledger with one lock. Mutations
// operate on clones and swap them in only on success, so a failed or
// half-built transfer is never visible.
type MemoryWalletRepository struct {
	wallets map[domain.UserID]*domain.Wallet
	mu      sync.RWMutex
}

func NewMemoryWalletRepository() ports.WalletRepository {
	return &MemoryWalletRepository{
		wallets: make(map[domain.UserID]*domain.Wallet),
	}
}

func (r *MemoryWalletRepository) Get(ctx context.Context, userID domain.UserID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wallet, exists := r.wallets[userID]
	if !exists {
		return nil, domain.ErrWalletNotFound
	}
	return wallet.Clone(), nil
}

func (r *MemoryWalletRepository) GetOrCreate(ctx context.Context, userID domain.UserID, seed func() *domain.Wallet) (*domain.Wallet, bool, error) {
	r.mu.RLock()
	wallet, exists := r.wallets[userID]
	r.mu.RUnlock()
	if exists {
		return wallet.Clone(), false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// another caller may have created it between the locks
	if wallet, exists := r.wallets[userID]; exists {
		return wallet.Clone(), false, nil
	}
	wallet = seed()
	wallet.UserID = userID
	r.wallets[userID] = wallet
	return wallet.Clone(), true, nil
}

func (r *MemoryWalletRepository) Update(ctx context.Context, userID domain.UserID, seed func() *domain.Wallet, fn func(*domain.Wallet) error) (*domain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	working, err := r.workingCopy(userID, func(domain.UserID) *domain.Wallet {
		if seed == nil {
			return nil
		}
		return seed()
	})
	if err != nil {
		return nil, err
	}
	if err := fn(working); err != nil {
		return nil, err
	}

	r.wallets[userID] = working
	return working.Clone(), nil
}

func (r *MemoryWalletRepository) Transfer(ctx context.Context, from, to domain.UserID, seed func(domain.UserID) *domain.Wallet, fn func(from, to *domain.Wallet) error) (*domain.Wallet, *domain.Wallet, error) {
	if from == to {
		return nil, nil, domain.ErrSelfGift
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	fromWallet, err := r.workingCopy(from, seed)
	if err != nil {
		return nil, nil, err
	}
	toWallet, err := r.workingCopy(to, seed)
	if err != nil {
		return nil, nil, err
	}

	if err := fn(fromWallet, toWallet); err != nil {
		return nil, nil, err
	}

	r.wallets[from] = fromWallet
	r.wallets[to] = toWallet
	return fromWallet.Clone(), toWallet.Clone(), nil
}

// workingCopy must be called with the write lock held.
func (r *MemoryWalletRepository) workingCopy(userID domain.UserID, seed func(domain.UserID) *domain.Wallet) (*domain.Wallet, error) {
	if wallet, exists := r.wallets[userID]; exists {
		return wallet.Clone(), nil
	}
	if seed == nil {
		return nil, domain.ErrWalletNotFound
	}
	wallet := seed(userID)
	if wallet == nil {
		return nil, domain.ErrWalletNotFound
	}
	wallet.UserID = userID
	return wallet, nil
}

func (r *MemoryWalletRepository) List(ctx context.Context) ([]*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wallets := make([]*domain.Wallet, 0, len(r.wallets))
	for _, wallet := range r.wallets {
		wallets = append(wallets, wallet.Clone())
	}
	sort.Slice(wallets, func(i, j int) bool { return wallets[i].UserID < wallets[j].UserID })
	return wallets, nil
}

func (r *MemoryWalletRepository) ReplaceAll(ctx context.Context, wallets []*domain.Wallet) error {
	byUser := make(map[domain.UserID]*domain.Wallet, len(wallets))
	for _, wallet := range wallets {
		byUser[wallet.UserID] = wallet.Clone()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallets = byUser
	return nil
}
