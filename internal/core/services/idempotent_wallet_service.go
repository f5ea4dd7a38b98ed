package services

import (
	"context"
	"fmt"
	"time"

	"giftcast/internal/core/domain"
	"giftcast/internal/core/ports"
	"giftcast/pkg/cache"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

type idempotencyKey struct{}

// WithIdempotencyKey attaches a client-supplied retry key to ctx.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, idempotencyKey{}, key)
}

func IdempotencyKeyFrom(ctx context.Context) string {
	key, _ := ctx.Value(idempotencyKey{}).(string)
	return key
}

type idempotentResult struct {
	request string
	value   interface{}
}

// IdempotentWalletService replays the first successful result of a
// mutating wallet call for every retry that carries the same key. Calls
// without a key, and failed calls, pass straight through.
type IdempotentWalletService struct {
	ports.WalletService
	cache *cache.OnceCache
	ttl   time.Duration
}

func NewIdempotentWalletService(base ports.WalletService, ttl time.Duration, clock clockwork.Clock) *IdempotentWalletService {
	return &IdempotentWalletService{
		WalletService: base,
		cache:         cache.NewOnceCache(ttl, clock),
		ttl:           ttl,
	}
}

func (s *IdempotentWalletService) BuyCoins(ctx context.Context, userID domain.UserID, packageID string) (*domain.Wallet, error) {
	value, err := s.once(ctx, "buy_coins", userID, packageID, func(ctx context.Context) (interface{}, error) {
		return s.WalletService.BuyCoins(ctx, userID, packageID)
	})
	if err != nil {
		return nil, err
	}
	return value.(*domain.Wallet).Clone(), nil
}

func (s *IdempotentWalletService) SendGift(ctx context.Context, from, to domain.UserID, giftID string) (*domain.GiftReceipt, error) {
	value, err := s.once(ctx, "send_gift", from, fmt.Sprintf("%s|%s", to, giftID), func(ctx context.Context) (interface{}, error) {
		return s.WalletService.SendGift(ctx, from, to, giftID)
	})
	if err != nil {
		return nil, err
	}
	receipt := *value.(*domain.GiftReceipt)
	return &receipt, nil
}

func (s *IdempotentWalletService) Withdraw(ctx context.Context, userID domain.UserID, amount decimal.Decimal, method string) (*domain.Wallet, error) {
	value, err := s.once(ctx, "withdraw", userID, fmt.Sprintf("%s|%s", amount.String(), method), func(ctx context.Context) (interface{}, error) {
		return s.WalletService.Withdraw(ctx, userID, amount, method)
	})
	if err != nil {
		return nil, err
	}
	return value.(*domain.Wallet).Clone(), nil
}

// once runs call at most once per (operation, user, key). Reusing a key for
// a different request is rejected rather than silently replayed.
func (s *IdempotentWalletService) once(ctx context.Context, op string, userID domain.UserID, request string, call func(context.Context) (interface{}, error)) (interface{}, error) {
	key := IdempotencyKeyFrom(ctx)
	if key == "" {
		return call(ctx)
	}

	cacheKey := fmt.Sprintf("%s:%s:%s", op, userID, key)
	value, _, err := s.cache.GetOrSet(ctx, cacheKey, func(ctx context.Context) (interface{}, error) {
		result, err := call(ctx)
		if err != nil {
			return nil, err
		}
		return idempotentResult{request: request, value: result}, nil
	}, s.ttl)
	if err != nil {
		return nil, err
	}

	stored := value.(idempotentResult)
	if stored.request != request {
		return nil, fmt.Errorf("%w: idempotency key reused for a different request", domain.ErrInvalidInput)
	}
	return stored.value, nil
}

func (s *IdempotentWalletService) Stop() {
	s.cache.Stop()
}
