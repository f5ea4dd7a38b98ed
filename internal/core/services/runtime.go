package services

import (
	"time"

	"giftcast/internal/core/ports"
	"giftcast/pkg/config"
	"giftcast/pkg/utils"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Runtime bundles the collaborators every service shares. Zero fields are
// replaced with production defaults.
type Runtime struct {
	Clock    clockwork.Clock
	IDs      ports.IDGenerator
	Random   ports.RandomSource
	Notifier ports.ChangeNotifier
	Metrics  ports.EconomyMetrics
	Logger   *zap.SugaredLogger
}

func (rt Runtime) withDefaults() Runtime {
	if rt.Clock == nil {
		rt.Clock = clockwork.NewRealClock()
	}
	if rt.IDs == nil {
		rt.IDs = utils.NewUUIDGenerator()
	}
	if rt.Random == nil {
		rt.Random = utils.NewCryptoRandom()
	}
	if rt.Notifier == nil {
		rt.Notifier = nopNotifier{}
	}
	if rt.Metrics == nil {
		rt.Metrics = NewMetricsService()
	}
	if rt.Logger == nil {
		rt.Logger = zap.NewNop().Sugar()
	}
	return rt
}

type nopNotifier struct{}

func (nopNotifier) NotifyChanged(string) {}

// EconomyConfig holds the tunable constants of groups, wallets and sessions.
type EconomyConfig struct {
	WelcomeBonus  int64
	CoinRate      decimal.Decimal
	RevenueShare  decimal.Decimal
	MinWithdrawal decimal.Decimal
	InviteTTL     time.Duration
	ChatRetention int
	RecentGifts   int
	MaxChatLength int
}

func DefaultEconomyConfig() EconomyConfig {
	return EconomyConfig{
		WelcomeBonus:  500,
		CoinRate:      decimal.RequireFromString("0.01"),
		RevenueShare:  decimal.RequireFromString("0.50"),
		MinWithdrawal: decimal.RequireFromString("20.00"),
		InviteTTL:     24 * time.Hour,
		ChatRetention: 200,
		RecentGifts:   5,
		MaxChatLength: 500,
	}
}

// EconomyConfigFrom reads the economy section of a validated config.
func EconomyConfigFrom(cfg *config.Config) (EconomyConfig, error) {
	rates, err := cfg.Rates()
	if err != nil {
		return EconomyConfig{}, err
	}
	return EconomyConfig{
		WelcomeBonus:  cfg.Economy.WelcomeBonusCoins,
		CoinRate:      rates.CoinRate,
		RevenueShare:  rates.RevenueShare,
		MinWithdrawal: rates.MinWithdrawal,
		InviteTTL:     cfg.Economy.InviteTTL,
		ChatRetention: cfg.Economy.ChatRetention,
		RecentGifts:   cfg.Economy.RecentGifts,
		MaxChatLength: cfg.Economy.MaxChatLength,
	}, nil
}
