package services

import (
	"testing"

	"giftcast/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEconomyConfigFrom(t *testing.T) {
	got, err := EconomyConfigFrom(config.DefaultConfig())
	require.NoError(t, err)

	want := DefaultEconomyConfig()
	assert.Equal(t, want.WelcomeBonus, got.WelcomeBonus)
	assert.True(t, want.CoinRate.Equal(got.CoinRate))
	assert.True(t, want.RevenueShare.Equal(got.RevenueShare))
	assert.True(t, want.MinWithdrawal.Equal(got.MinWithdrawal))
	assert.Equal(t, want.InviteTTL, got.InviteTTL)
	assert.Equal(t, want.ChatRetention, got.ChatRetention)
	assert.Equal(t, want.RecentGifts, got.RecentGifts)
	assert.Equal(t, want.MaxChatLength, got.MaxChatLength)
}

func TestEconomyConfigFromBadRate(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Economy.CoinRate = "one cent"

	_, err := EconomyConfigFrom(cfg)
	assert.Error(t, err)
}

func TestRuntimeDefaults(t *testing.T) {
	rt := Runtime{}.withDefaults()
	assert.NotNil(t, rt.Clock)
	assert.NotNil(t, rt.IDs)
	assert.NotNil(t, rt.Random)
	assert.NotNil(t, rt.Notifier)
	assert.NotNil(t, rt.Metrics)
	assert.NotNil(t, rt.Logger)
	assert.NotEmpty(t, rt.IDs.NewID("grp"))
}
