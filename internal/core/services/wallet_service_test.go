package services

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"giftcast/internal/core/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestWalletService_GetOrCreateSeedsBonusOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	wallet, err := f.wallets.GetOrCreateWallet(ctx, "leo")
	require.NoError(t, err)
	assert.Equal(t, int64(500), wallet.CoinsBalance)
	require.Len(t, wallet.Transactions, 1)
	assert.Equal(t, domain.TransactionBonus, wallet.Transactions[0].Type)
	assert.Equal(t, int64(500), wallet.Transactions[0].CoinsAmount)

	wallet, err = f.wallets.GetOrCreateWallet(ctx, "leo")
	require.NoError(t, err)
	assert.Equal(t, int64(500), wallet.CoinsBalance)
	assert.Len(t, wallet.Transactions, 1)

	assert.Equal(t, 1, f.metrics.Counters().WalletsCreated)
	assert.Equal(t, []string{"wallet_created"}, f.notifier.Reasons())
}

func TestWalletService_ZeroBonusHasNoBonusTransaction(t *testing.T) {
	f := newFixture(t, func(e *EconomyConfig) { e.WelcomeBonus = 0 })

	wallet, err := f.wallets.GetOrCreateWallet(context.Background(), "leo")
	require.NoError(t, err)
	assert.Zero(t, wallet.CoinsBalance)
	assert.Empty(t, wallet.Transactions)
}

func TestWalletService_BuyCoins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	wallet, err := f.wallets.BuyCoins(ctx, "leo", "coins_1425")
	require.NoError(t, err)
	assert.Equal(t, int64(1925), wallet.CoinsBalance, "bonus seeded on first use, then credited")
	require.Len(t, wallet.Transactions, 2)

	purchase := wallet.Transactions[1]
	assert.Equal(t, domain.TransactionPurchase, purchase.Type)
	assert.Equal(t, int64(1425), purchase.CoinsAmount)
	require.NotNil(t, purchase.MoneyAmount)
	assertMoney(t, "12.99", *purchase.MoneyAmount)

	counters := f.metrics.Counters()
	assert.Equal(t, 1, counters.WalletsCreated)
	assert.Equal(t, int64(1425), counters.CoinsPurchased)

	_, err = f.wallets.BuyCoins(ctx, "leo", "coins_1")
	assert.ErrorIs(t, err, domain.ErrPackageNotFound)
}

func TestWalletService_SendGift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.wallets.BuyCoins(ctx, "leo", "coins_1425")
	require.NoError(t, err)

	receipt, err := f.wallets.SendGift(ctx, "leo", "ana", "corona")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), receipt.CoinsDebited)
	assert.Equal(t, int64(925), receipt.SenderBalance)
	assertMoney(t, "10", receipt.MoneyValue)
	assertMoney(t, "5.00", receipt.EarningsCredited)
	assert.Contains(t, receipt.Message, "Corona")

	leo, err := f.wallets.GetOrCreateWallet(ctx, "leo")
	require.NoError(t, err)
	assert.Equal(t, int64(925), leo.CoinsBalance)
	last := leo.Transactions[len(leo.Transactions)-1]
	assert.Equal(t, domain.TransactionGiftSent, last.Type)
	assert.Equal(t, int64(-1000), last.CoinsAmount)

	ana, err := f.wallets.GetOrCreateWallet(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, int64(500), ana.CoinsBalance, "receiver coins are untouched")
	assertMoney(t, "5.00", ana.EarningsBalance)
	assertMoney(t, "5.00", ana.TotalEarned)
	received := ana.Transactions[len(ana.Transactions)-1]
	assert.Equal(t, domain.TransactionGiftReceived, received.Type)
	require.NotNil(t, received.MoneyAmount)
	assertMoney(t, "5.00", *received.MoneyAmount)

	counters := f.metrics.Counters()
	assert.Equal(t, 1, counters.GiftsSent)
	assert.Equal(t, 0, counters.LiveGiftsSent)
	assert.Equal(t, int64(1000), counters.CoinsGifted)
}

func TestWalletService_SendGiftRoundsCredit(t *testing.T) {
	f := newFixture(t, func(e *EconomyConfig) { e.CoinRate = dec("0.013") })
	ctx := context.Background()

	// 10 coins * 0.013 = 0.13, half of it is 0.065
	receipt, err := f.wallets.SendGift(ctx, "leo", "ana", "rosa")
	require.NoError(t, err)
	assertMoney(t, "0.07", receipt.EarningsCredited)
}

func TestWalletService_SendGiftRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.wallets.SendGift(ctx, "leo", "ana", "corona")
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	_, err = f.wallets.SendGift(ctx, "leo", "leo", "rosa")
	assert.ErrorIs(t, err, domain.ErrSelfGift)

	_, err = f.wallets.SendGift(ctx, "leo", "ana", "unicorn")
	assert.ErrorIs(t, err, domain.ErrGiftNotFound)

	// a rejected transfer creates nobody
	_, err = f.walletRepo.Get(ctx, "ana")
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)

	rejected := f.metrics.Counters().GiftsRejected
	assert.Equal(t, 1, rejected["insufficient_balance"])
	assert.Equal(t, 1, rejected["self_gift"])
	assert.Equal(t, 1, rejected["unknown_gift"])
	assert.Empty(t, f.notifier.Reasons())
}

// earnGift funds from and sends enough cohete gifts to credit to with
// amount earnings (10.00 per gift at default rates).
func earnGift(t *testing.T, f *fixture, from, to domain.UserID, gifts int) {
	t.Helper()
	ctx := context.Background()
	_, err := f.wallets.BuyCoins(ctx, from, "coins_7500")
	require.NoError(t, err)
	for i := 0; i < gifts; i++ {
		_, err := f.wallets.SendGift(ctx, from, to, "cohete")
		require.NoError(t, err)
	}
}

func TestWalletService_WithdrawBoundaries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	earnGift(t, f, "leo", "ana", 2)

	ana, err := f.wallets.GetOrCreateWallet(ctx, "ana")
	require.NoError(t, err)
	assertMoney(t, "20.00", ana.EarningsBalance)

	_, err = f.wallets.Withdraw(ctx, "ana", dec("19.99"), "bank ES12 3456")
	assert.ErrorIs(t, err, domain.ErrWithdrawalBelowMinimum)

	_, err = f.wallets.Withdraw(ctx, "ana", dec("20.01"), "bank ES12 3456")
	assert.ErrorIs(t, err, domain.ErrWithdrawalExceedsEarned)

	wallet, err := f.wallets.Withdraw(ctx, "ana", dec("20.00"), "bank ES12 3456")
	require.NoError(t, err)
	assert.True(t, wallet.EarningsBalance.IsZero())
	assertMoney(t, "20.00", wallet.TotalWithdrawn)
	assertMoney(t, "20.00", wallet.TotalEarned)

	tx := wallet.Transactions[len(wallet.Transactions)-1]
	assert.Equal(t, domain.TransactionWithdrawal, tx.Type)
	assert.Equal(t, domain.StatusPending, tx.Status)
	assert.NotContains(t, tx.Description, "3456", "payout details are masked")

	_, err = f.wallets.Withdraw(ctx, "ana", dec("20.00"), "bank ES12 3456")
	assert.ErrorIs(t, err, domain.ErrEarningsBelowMinimum)

	assert.Equal(t, 1, f.metrics.Counters().Withdrawals)
}

func TestWalletService_WithdrawValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	earnGift(t, f, "leo", "ana", 1)

	_, err := f.wallets.Withdraw(ctx, "ana", dec("20"), "  ")
	assert.ErrorIs(t, err, domain.ErrMissingPayoutMethod)

	_, err = f.wallets.Withdraw(ctx, "ana", decimal.Zero, "paypal")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.wallets.Withdraw(ctx, "ana", dec("10"), "paypal")
	assert.ErrorIs(t, err, domain.ErrEarningsBelowMinimum, "10.00 earned is below the 20.00 floor")
}

func TestWalletService_WithdrawRejectsSubCentAmounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	earnGift(t, f, "leo", "ana", 3)

	_, err := f.wallets.Withdraw(ctx, "ana", dec("20.001"), "paypal")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	ana, err := f.wallets.GetOrCreateWallet(ctx, "ana")
	require.NoError(t, err)
	assertMoney(t, "30.00", ana.EarningsBalance)
	assert.True(t, ana.TotalWithdrawn.IsZero())

	wallet, err := f.wallets.Withdraw(ctx, "ana", dec("20.10"), "paypal")
	require.NoError(t, err)
	assertMoney(t, "9.90", wallet.EarningsBalance)
}

func TestWalletService_Stats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	earnGift(t, f, "leo", "ana", 3)
	_, err := f.wallets.Withdraw(ctx, "ana", dec("25"), "paypal")
	require.NoError(t, err)

	stats, err := f.wallets.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Wallets)
	assert.Equal(t, int64(500+7500-6000+500), stats.CoinsInCirculation)
	assertMoney(t, "5", stats.EarningsOutstanding)
	assertMoney(t, "30", stats.TotalEarned)
	assertMoney(t, "25", stats.TotalWithdrawn)
	assert.Equal(t, 1, stats.PendingWithdrawals)
	assert.Equal(t, epoch, stats.Timestamp)
}

func TestWalletService_ConcurrentTradingConservesCoins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	users := []domain.UserID{"u0", "u1", "u2", "u3", "u4"}
	for _, u := range users {
		_, err := f.wallets.GetOrCreateWallet(ctx, u)
		require.NoError(t, err)
	}
	giftIDs := []string{"rosa", "corazon", "estrella", "fuego"}
	var packages []domain.CoinPackage
	for _, id := range []string{"coins_100", "coins_550"} {
		pkg, err := domain.FindCoinPackage(id)
		require.NoError(t, err)
		packages = append(packages, pkg)
	}

	done := make(chan struct{})
	var observations int
	var violations []string
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			wallets, err := f.walletRepo.List(ctx)
			if err != nil {
				violations = append(violations, err.Error())
				return
			}
			observations++
			violations = append(violations, auditLedger(wallets, 500)...)
			select {
			case <-done:
				return
			default:
			}
		}
	}()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var spent, purchased int64
	var credited decimal.Decimal
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			for i := 0; i < 100; i++ {
				from := users[rnd.Intn(len(users))]
				if rnd.Intn(4) == 0 {
					pkg := packages[rnd.Intn(len(packages))]
					if _, err := f.wallets.BuyCoins(ctx, from, pkg.ID); err != nil {
						continue
					}
					mu.Lock()
					purchased += pkg.Coins
					mu.Unlock()
					continue
				}
				to := users[rnd.Intn(len(users))]
				receipt, err := f.wallets.SendGift(ctx, from, to, giftIDs[rnd.Intn(len(giftIDs))])
				if err != nil {
					continue
				}
				mu.Lock()
				spent += receipt.CoinsDebited
				credited = credited.Add(receipt.EarningsCredited)
				mu.Unlock()
			}
		}(int64(w))
	}
	wg.Wait()
	close(done)
	<-readerDone

	assert.Positive(t, observations)
	assert.Empty(t, violations, "every ledger observation must be consistent")

	var coins int64
	var earned decimal.Decimal
	for _, u := range users {
		wallet, err := f.wallets.GetOrCreateWallet(ctx, u)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, wallet.CoinsBalance, int64(0), fmt.Sprintf("%s went negative", u))
		coins += wallet.CoinsBalance
		earned = earned.Add(wallet.EarningsBalance)
	}
	assert.Positive(t, purchased)
	assert.Equal(t, int64(len(users))*500+purchased-spent, coins, "coins enter by bonus or purchase and leave only by settled gifts")
	assert.True(t, credited.Equal(earned), "every debit has its credit")
}

// auditLedger checks one point-in-time view of every wallet. Coins held plus
// coins gifted away must equal bonuses plus purchases, and each gift debit
// must be paired with its credit.
func auditLedger(wallets []*domain.Wallet, bonus int64) []string {
	var problems []string
	var held, minted, gifted int64
	var sent, received int
	var creditedTotal, earnedTotal decimal.Decimal
	for _, w := range wallets {
		if w.CoinsBalance < 0 {
			problems = append(problems, fmt.Sprintf("%s holds %d coins", w.UserID, w.CoinsBalance))
		}
		var own int64
		for _, tx := range w.Transactions {
			own += tx.CoinsAmount
			switch tx.Type {
			case domain.TransactionBonus, domain.TransactionPurchase:
				minted += tx.CoinsAmount
			case domain.TransactionGiftSent:
				gifted -= tx.CoinsAmount
				sent++
			case domain.TransactionGiftReceived:
				received++
				if tx.MoneyAmount != nil {
					creditedTotal = creditedTotal.Add(*tx.MoneyAmount)
				}
			}
		}
		if own != w.CoinsBalance {
			problems = append(problems, fmt.Sprintf("%s balance %d disagrees with history %d", w.UserID, w.CoinsBalance, own))
		}
		held += w.CoinsBalance
		earnedTotal = earnedTotal.Add(w.EarningsBalance)
	}
	if held+gifted != minted {
		problems = append(problems, fmt.Sprintf("held %d + gifted %d != minted %d", held, gifted, minted))
	}
	if minted < int64(len(wallets))*bonus {
		problems = append(problems, fmt.Sprintf("minted %d below bonuses for %d wallets", minted, len(wallets)))
	}
	if sent != received {
		problems = append(problems, fmt.Sprintf("%d gifts sent but %d received", sent, received))
	}
	if !creditedTotal.Equal(earnedTotal) {
		problems = append(problems, fmt.Sprintf("credited %s but earnings hold %s", creditedTotal, earnedTotal))
	}
	return problems
}

func TestWalletService_Catalog(t *testing.T) {
	f := newFixture(t)
	assert.Len(t, f.wallets.ListGifts(), 7)
	assert.Len(t, f.wallets.ListPackages(), 5)
}
