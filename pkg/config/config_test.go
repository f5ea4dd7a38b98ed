package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	rates, err := cfg.Rates()
	require.NoError(t, err)
	assert.Equal(t, "0.01", rates.CoinRate.String())
	assert.Equal(t, "0.5", rates.RevenueShare.String())
	assert.Equal(t, "20", rates.MinWithdrawal.String())
	assert.Equal(t, int64(500), cfg.Economy.WelcomeBonusCoins)
	assert.Equal(t, 24*time.Hour, cfg.Economy.InviteTTL)
	assert.Equal(t, 200, cfg.Economy.ChatRetention)
	assert.Equal(t, 5, cfg.Economy.RecentGifts)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty address", func(c *Config) { c.Server.Address = "" }, "server.address"},
		{"zero read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }, "server.read_timeout"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"tracing without url", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.JaegerURL = ""
		}, "tracing.jaeger_url"},
		{"tracing sample rate", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.SampleRate = 1.5
		}, "tracing.sample_rate"},
		{"redis backend without redis", func(c *Config) { c.Persistence.Backend = "redis" }, "requires redis.enabled"},
		{"redis pool size", func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.PoolSize = 0
		}, "redis.pool_size"},
		{"unknown backend", func(c *Config) { c.Persistence.Backend = "postgres" }, "persistence.backend"},
		{"file backend without dir", func(c *Config) { c.Persistence.Dir = "" }, "persistence.dir"},
		{"s3 backend without bucket", func(c *Config) { c.Persistence.Backend = "s3" }, "persistence.s3.bucket"},
		{"zero flush interval", func(c *Config) { c.Persistence.FlushInterval = 0 }, "persistence.flush_interval"},
		{"archive without retention", func(c *Config) {
			c.Archive.Enabled = true
			c.Archive.RetentionDays = 0
		}, "archive.retention_days"},
		{"negative bonus", func(c *Config) { c.Economy.WelcomeBonusCoins = -1 }, "welcome_bonus_coins"},
		{"unparseable rate", func(c *Config) { c.Economy.CoinRate = "one cent" }, "coin_to_currency_rate"},
		{"zero rate", func(c *Config) { c.Economy.CoinRate = "0" }, "coin_to_currency_rate"},
		{"share above one", func(c *Config) { c.Economy.RevenueShare = "1.2" }, "revenue_share"},
		{"zero min withdrawal", func(c *Config) { c.Economy.MinWithdrawal = "0" }, "min_withdrawal"},
		{"zero chat retention", func(c *Config) { c.Economy.ChatRetention = 0 }, "chat_retention"},
		{"zero prune interval", func(c *Config) { c.Live.PruneInterval = 0 }, "live.prune_interval"},
		{"idempotency without ttl", func(c *Config) { c.Idempotency.TTL = 0 }, "idempotency.ttl"},
		{"auth without secret", func(c *Config) { c.Auth.Enabled = true }, "auth.jwt_secret"},
		{"rate limit without rps", func(c *Config) {
			c.RateLimiting.Enabled = true
			c.RateLimiting.HTTP.RequestsPerSecond = 0
		}, "requests_per_second"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_AcceptsAlternativeBackends(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Persistence.Backend = "memory"
	cfg.Persistence.Dir = ""
	assert.NoError(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Persistence.Backend = "s3"
	cfg.Persistence.S3.Bucket = "giftcast-snapshots"
	assert.NoError(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Redis.Enabled = true
	cfg.Persistence.Backend = "redis"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  address: ":9090"
logging:
  level: debug
  format: console
persistence:
  backend: memory
  flush_interval: 1s
economy:
  welcome_bonus_coins: 250
  coin_to_currency_rate: "0.02"
  invite_ttl: 48h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "memory", cfg.Persistence.Backend)
	assert.Equal(t, time.Second, cfg.Persistence.FlushInterval)
	assert.Equal(t, int64(250), cfg.Economy.WelcomeBonusCoins)
	assert.Equal(t, 48*time.Hour, cfg.Economy.InviteTTL)
	// untouched keys keep their defaults
	assert.Equal(t, "0.50", cfg.Economy.RevenueShare)
	assert.Equal(t, 200, cfg.Economy.ChatRetention)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("economy:\n  revenue_share: \"2\"\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "revenue_share")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GIFTCAST_SERVER_ADDRESS", ":7070")
	t.Setenv("GIFTCAST_PERSISTENCE_BACKEND", "memory")
	t.Setenv("GIFTCAST_WELCOME_BONUS", "100")
	t.Setenv("GIFTCAST_AUTH_ENABLED", "true")
	t.Setenv("GIFTCAST_JWT_SECRET", "shh")
	t.Setenv("GIFTCAST_REDIS_ADDRESS", "redis:6379")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Address)
	assert.Equal(t, "memory", cfg.Persistence.Backend)
	assert.Equal(t, int64(100), cfg.Economy.WelcomeBonusCoins)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, "shh", cfg.Auth.JWTSecret)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Address)
}
