package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"giftcast/internal/core/domain"
	"giftcast/internal/core/ports"
	"giftcast/pkg/tracing"
	"giftcast/pkg/utils"
	"giftcast/pkg/validation"

	"github.com/shopspring/decimal"
)

type walletService struct {
	walletRepo ports.WalletRepository
	economy    EconomyConfig
	rt         Runtime
}

func NewWalletService(walletRepo ports.WalletRepository, economy EconomyConfig, rt Runtime) ports.WalletService {
	return &walletService{
		walletRepo: walletRepo,
		economy:    economy,
		rt:         rt.withDefaults(),
	}
}

type liveGiftKey struct{}

// withLiveGift marks a SendGift call as settling a gift inside a broadcast.
func withLiveGift(ctx context.Context) context.Context {
	return context.WithValue(ctx, liveGiftKey{}, true)
}

func isLiveGift(ctx context.Context) bool {
	live, _ := ctx.Value(liveGiftKey{}).(bool)
	return live
}

// seeder builds first-use wallets and remembers which users it seeded, so
// creation is only reported once the surrounding mutation commits.
type seeder struct {
	s      *walletService
	seeded []domain.UserID
}

func (sd *seeder) seed(userID domain.UserID) *domain.Wallet {
	sd.seeded = append(sd.seeded, userID)
	return sd.s.newWallet(userID)
}

func (sd *seeder) commit() {
	for _, userID := range sd.seeded {
		sd.s.rt.Metrics.RecordWalletCreated()
		sd.s.rt.Logger.Infow("Wallet created", "user_id", userID, "bonus_coins", sd.s.economy.WelcomeBonus)
	}
}

func (s *walletService) newWallet(userID domain.UserID) *domain.Wallet {
	now := s.rt.Clock.Now()
	wallet := &domain.Wallet{
		UserID:       userID,
		CoinsBalance: s.economy.WelcomeBonus,
		Transactions: []domain.Transaction{},
		CreatedAt:    now,
	}
	if s.economy.WelcomeBonus > 0 {
		wallet.Append(domain.Transaction{
			ID:          s.rt.IDs.NewID("tx"),
			Type:        domain.TransactionBonus,
			CoinsAmount: s.economy.WelcomeBonus,
			Description: "Welcome bonus",
			Status:      domain.StatusCompleted,
			CreatedAt:   now,
		})
	}
	return wallet
}

func (s *walletService) GetOrCreateWallet(ctx context.Context, userID domain.UserID) (*domain.Wallet, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}

	wallet, created, err := s.walletRepo.GetOrCreate(ctx, userID, func() *domain.Wallet {
		return s.newWallet(userID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	if created {
		s.rt.Metrics.RecordWalletCreated()
		s.rt.Logger.Infow("Wallet created", "user_id", userID, "bonus_coins", s.economy.WelcomeBonus)
		s.rt.Notifier.NotifyChanged("wallet_created")
	}
	return wallet, nil
}

// BuyCoins credits a coin package. There is no payment settlement; the
// purchase transaction records the package price for display.
func (s *walletService) BuyCoins(ctx context.Context, userID domain.UserID, packageID string) (*domain.Wallet, error) {
	ctx, span := tracing.TraceLedgerOperation(ctx, "buy_coins", string(userID))
	defer span.End()

	pkg, err := domain.FindCoinPackage(packageID)
	if err != nil {
		return nil, err
	}

	sd := &seeder{s: s}
	wallet, err := s.walletRepo.Update(ctx, userID, func() *domain.Wallet { return sd.seed(userID) }, func(w *domain.Wallet) error {
		price := pkg.Price
		w.CoinsBalance += pkg.Coins
		w.Append(domain.Transaction{
			ID:          s.rt.IDs.NewID("tx"),
			Type:        domain.TransactionPurchase,
			CoinsAmount: pkg.Coins,
			MoneyAmount: &price,
			Description: fmt.Sprintf("Purchased %d coins", pkg.Coins),
			Status:      domain.StatusCompleted,
			CreatedAt:   s.rt.Clock.Now(),
		})
		return nil
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("failed to buy coins: %w", err)
	}

	sd.commit()
	s.rt.Metrics.RecordCoinsPurchased(pkg.ID, pkg.Coins)
	s.rt.Logger.Infow("Coins purchased", "user_id", userID, "package_id", pkg.ID, "coins", pkg.Coins)
	s.rt.Notifier.NotifyChanged("coins_purchased")
	return wallet, nil
}

// SendGift moves gift.Coins from the sender and credits the receiver's
// share of their currency value. Both sides commit together or not at all.
func (s *walletService) SendGift(ctx context.Context, from, to domain.UserID, giftID string) (*domain.GiftReceipt, error) {
	ctx, span := tracing.TraceLedgerOperation(ctx, "send_gift", string(from))
	defer span.End()
	tracing.AddSpanAttributes(ctx, tracing.GiftIDKey.String(giftID))

	receipt, err := s.sendGift(ctx, from, to, giftID)
	if err != nil {
		tracing.RecordError(ctx, err)
		s.rt.Metrics.RecordGiftRejected(rejectionReason(err))
		return nil, err
	}
	tracing.AddSpanAttributes(ctx, tracing.CoinsKey.Int64(receipt.CoinsDebited))
	return receipt, nil
}

func (s *walletService) sendGift(ctx context.Context, from, to domain.UserID, giftID string) (*domain.GiftReceipt, error) {
	if from == "" || to == "" {
		return nil, fmt.Errorf("%w: sender and receiver are required", domain.ErrInvalidInput)
	}
	if from == to {
		return nil, domain.ErrSelfGift
	}
	gift, err := domain.FindGift(giftID)
	if err != nil {
		return nil, err
	}

	value := decimal.NewFromInt(gift.Coins).Mul(s.economy.CoinRate)
	credit := value.Mul(s.economy.RevenueShare).Round(2)

	sd := &seeder{s: s}
	sender, _, err := s.walletRepo.Transfer(ctx, from, to, sd.seed, func(fw, tw *domain.Wallet) error {
		if fw.CoinsBalance < gift.Coins {
			return domain.ErrInsufficientBalance
		}
		now := s.rt.Clock.Now()

		fw.CoinsBalance -= gift.Coins
		fw.Append(domain.Transaction{
			ID:          s.rt.IDs.NewID("tx"),
			Type:        domain.TransactionGiftSent,
			CoinsAmount: -gift.Coins,
			Description: fmt.Sprintf("Sent %s %s", gift.Emoji, gift.Name),
			Status:      domain.StatusCompleted,
			CreatedAt:   now,
		})

		earned := credit
		tw.EarningsBalance = tw.EarningsBalance.Add(credit)
		tw.TotalEarned = tw.TotalEarned.Add(credit)
		tw.Append(domain.Transaction{
			ID:          s.rt.IDs.NewID("tx"),
			Type:        domain.TransactionGiftReceived,
			MoneyAmount: &earned,
			Description: fmt.Sprintf("Received %s %s", gift.Emoji, gift.Name),
			Status:      domain.StatusCompleted,
			CreatedAt:   now,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sd.commit()
	s.rt.Metrics.RecordGiftSent(gift.ID, gift.Coins, isLiveGift(ctx))
	s.rt.Logger.Infow("Gift sent",
		"from_user_id", from,
		"to_user_id", to,
		"gift_id", gift.ID,
		"coins", gift.Coins,
		"earnings_credited", credit.StringFixed(2),
	)
	s.rt.Notifier.NotifyChanged("gift_sent")

	return &domain.GiftReceipt{
		Gift:             gift,
		FromUserID:       from,
		ToUserID:         to,
		CoinsDebited:     gift.Coins,
		MoneyValue:       value,
		EarningsCredited: credit,
		SenderBalance:    sender.CoinsBalance,
		Message:          fmt.Sprintf("%s %s sent!", gift.Emoji, gift.Name),
	}, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, domain.ErrSelfGift):
		return "self_gift"
	case errors.Is(err, domain.ErrGiftNotFound):
		return "unknown_gift"
	case errors.Is(err, domain.ErrSessionEnded), errors.Is(err, domain.ErrNoActiveSession):
		return "no_session"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}

// Withdraw moves earnings out of the wallet. The transaction stays pending
// because payouts are handled outside the ledger.
func (s *walletService) Withdraw(ctx context.Context, userID domain.UserID, amount decimal.Decimal, method string) (*domain.Wallet, error) {
	ctx, span := tracing.TraceLedgerOperation(ctx, "withdraw", string(userID))
	defer span.End()

	if strings.TrimSpace(method) == "" {
		return nil, domain.ErrMissingPayoutMethod
	}
	if err := validation.ValidatePayoutMethod(method); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: must be positive", domain.ErrInvalidAmount)
	}
	if err := validation.ValidateMoneyPrecision(amount); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAmount, err)
	}
	method = strings.TrimSpace(method)
	minimum := s.economy.MinWithdrawal

	sd := &seeder{s: s}
	wallet, err := s.walletRepo.Update(ctx, userID, func() *domain.Wallet { return sd.seed(userID) }, func(w *domain.Wallet) error {
		switch {
		case w.EarningsBalance.LessThan(minimum):
			return domain.ErrEarningsBelowMinimum
		case amount.LessThan(minimum):
			return domain.ErrWithdrawalBelowMinimum
		case amount.GreaterThan(w.EarningsBalance):
			return domain.ErrWithdrawalExceedsEarned
		}

		paid := amount
		w.EarningsBalance = w.EarningsBalance.Sub(amount)
		w.TotalWithdrawn = w.TotalWithdrawn.Add(amount)
		w.Append(domain.Transaction{
			ID:          s.rt.IDs.NewID("tx"),
			Type:        domain.TransactionWithdrawal,
			MoneyAmount: &paid,
			Description: fmt.Sprintf("Withdrawal to %s", utils.MaskSensitive(method, 4)),
			Status:      domain.StatusPending,
			CreatedAt:   s.rt.Clock.Now(),
		})
		return nil
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}

	sd.commit()
	s.rt.Metrics.RecordWithdrawal(amount)
	s.rt.Logger.Infow("Withdrawal requested", "user_id", userID, "amount", amount.StringFixed(2))
	s.rt.Notifier.NotifyChanged("withdrawal")
	return wallet, nil
}

func (s *walletService) ListGifts() []domain.Gift {
	return domain.Gifts()
}

func (s *walletService) ListPackages() []domain.CoinPackage {
	return domain.CoinPackages()
}

func (s *walletService) Stats(ctx context.Context) (*domain.LedgerStats, error) {
	wallets, err := s.walletRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}

	stats := &domain.LedgerStats{
		Wallets:   len(wallets),
		Timestamp: s.rt.Clock.Now(),
	}
	for _, w := range wallets {
		stats.CoinsInCirculation += w.CoinsBalance
		stats.EarningsOutstanding = stats.EarningsOutstanding.Add(w.EarningsBalance)
		stats.TotalEarned = stats.TotalEarned.Add(w.TotalEarned)
		stats.TotalWithdrawn = stats.TotalWithdrawn.Add(w.TotalWithdrawn)
		for _, tx := range w.Transactions {
			if tx.Type == domain.TransactionWithdrawal && tx.Status == domain.StatusPending {
				stats.PendingWithdrawals++
			}
		}
	}
	return stats, nil
}
