package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Monitoring struct {
		PrometheusEnabled bool   `yaml:"prometheus_enabled"`
		MetricsPath       string `yaml:"metrics_path"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		ServiceName string  `yaml:"service_name"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Persistence struct {
		// Backend is one of memory, redis, file or s3.
		Backend       string        `yaml:"backend"`
		Dir           string        `yaml:"dir"`
		FlushInterval time.Duration `yaml:"flush_interval"`
		BatchSize     int           `yaml:"batch_size"`
		SaveTimeout   time.Duration `yaml:"save_timeout"`

		Retry struct {
			Enabled      bool          `yaml:"enabled"`
			MaxAttempts  int           `yaml:"max_attempts"`
			InitialDelay time.Duration `yaml:"initial_delay"`
			MaxDelay     time.Duration `yaml:"max_delay"`
		} `yaml:"retry"`

		CircuitBreaker struct {
			FailureThreshold int           `yaml:"failure_threshold"`
			SuccessThreshold int           `yaml:"success_threshold"`
			Timeout          time.Duration `yaml:"timeout"`
		} `yaml:"circuit_breaker"`

		S3 struct {
			Bucket          string `yaml:"bucket"`
			Prefix          string `yaml:"prefix"`
			Region          string `yaml:"region"`
			Endpoint        string `yaml:"endpoint"`
			AccessKeyID     string `yaml:"access_key_id"`
			SecretAccessKey string `yaml:"secret_access_key"`
		} `yaml:"s3"`
	} `yaml:"persistence"`

	Archive struct {
		Enabled       bool          `yaml:"enabled"`
		Interval      time.Duration `yaml:"interval"`
		RetentionDays int           `yaml:"retention_days"`
	} `yaml:"archive"`

	Economy struct {
		WelcomeBonusCoins int64         `yaml:"welcome_bonus_coins"`
		CoinRate          string        `yaml:"coin_to_currency_rate"`
		RevenueShare      string        `yaml:"revenue_share"`
		MinWithdrawal     string        `yaml:"min_withdrawal"`
		InviteTTL         time.Duration `yaml:"invite_ttl"`
		ChatRetention     int           `yaml:"chat_retention"`
		RecentGifts       int           `yaml:"recent_gifts"`
		MaxChatLength     int           `yaml:"max_chat_length"`
	} `yaml:"economy"`

	Live struct {
		EndedSessionRetention time.Duration `yaml:"ended_session_retention"`
		PruneInterval         time.Duration `yaml:"prune_interval"`
	} `yaml:"live"`

	Idempotency struct {
		Enabled bool          `yaml:"enabled"`
		TTL     time.Duration `yaml:"ttl"`
	} `yaml:"idempotency"`

	Auth struct {
		Enabled   bool   `yaml:"enabled"`
		JWTSecret string `yaml:"jwt_secret"`
		Issuer    string `yaml:"issuer"`
	} `yaml:"auth"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`

		HTTP struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
			MaxConcurrent     int     `yaml:"max_concurrent"` // global concurrent HTTP requests
		} `yaml:"http"`
	} `yaml:"rate_limiting"`
}

// Rates holds the parsed monetary settings of the economy section.
type Rates struct {
	CoinRate      decimal.Decimal
	RevenueShare  decimal.Decimal
	MinWithdrawal decimal.Decimal
}

// Rates parses the decimal economy settings. Validate guarantees success.
func (c *Config) Rates() (Rates, error) {
	var (
		r   Rates
		err error
	)
	if r.CoinRate, err = decimal.NewFromString(c.Economy.CoinRate); err != nil {
		return r, fmt.Errorf("economy.coin_to_currency_rate: %w", err)
	}
	if r.RevenueShare, err = decimal.NewFromString(c.Economy.RevenueShare); err != nil {
		return r, fmt.Errorf("economy.revenue_share: %w", err)
	}
	if r.MinWithdrawal, err = decimal.NewFromString(c.Economy.MinWithdrawal); err != nil {
		return r, fmt.Errorf("economy.min_withdrawal: %w", err)
	}
	return r, nil
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be json or console")
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be within [0, 1]")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	// Persistence
	switch c.Persistence.Backend {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("persistence.backend=redis requires redis.enabled=true")
		}
	case "file":
		if c.Persistence.Dir == "" {
			return fmt.Errorf("persistence.dir must not be empty when persistence.backend=file")
		}
	case "s3":
		if c.Persistence.S3.Bucket == "" {
			return fmt.Errorf("persistence.s3.bucket must not be empty when persistence.backend=s3")
		}
	default:
		return fmt.Errorf("persistence.backend must be one of memory, redis, file, s3")
	}
	if c.Persistence.FlushInterval <= 0 {
		return fmt.Errorf("persistence.flush_interval must be > 0")
	}
	if c.Persistence.BatchSize <= 0 {
		return fmt.Errorf("persistence.batch_size must be > 0")
	}
	if c.Persistence.SaveTimeout <= 0 {
		return fmt.Errorf("persistence.save_timeout must be > 0")
	}
	if c.Persistence.Retry.Enabled && c.Persistence.Retry.MaxAttempts < 0 {
		return fmt.Errorf("persistence.retry.max_attempts must be >= 0")
	}
	if c.Persistence.CircuitBreaker.FailureThreshold <= 0 {
		return fmt.Errorf("persistence.circuit_breaker.failure_threshold must be > 0")
	}

	// Archive
	if c.Archive.Enabled {
		if c.Archive.Interval <= 0 {
			return fmt.Errorf("archive.interval must be > 0 when archive.enabled=true")
		}
		if c.Archive.RetentionDays <= 0 {
			return fmt.Errorf("archive.retention_days must be > 0 when archive.enabled=true")
		}
	}

	// Economy
	if c.Economy.WelcomeBonusCoins < 0 {
		return fmt.Errorf("economy.welcome_bonus_coins must be >= 0")
	}
	rates, err := c.Rates()
	if err != nil {
		return err
	}
	if !rates.CoinRate.IsPositive() {
		return fmt.Errorf("economy.coin_to_currency_rate must be > 0")
	}
	if rates.RevenueShare.IsNegative() || rates.RevenueShare.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("economy.revenue_share must be within [0, 1]")
	}
	if !rates.MinWithdrawal.IsPositive() {
		return fmt.Errorf("economy.min_withdrawal must be > 0")
	}
	if c.Economy.InviteTTL <= 0 {
		return fmt.Errorf("economy.invite_ttl must be > 0")
	}
	if c.Economy.ChatRetention <= 0 {
		return fmt.Errorf("economy.chat_retention must be > 0")
	}
	if c.Economy.RecentGifts <= 0 {
		return fmt.Errorf("economy.recent_gifts must be > 0")
	}
	if c.Economy.MaxChatLength <= 0 {
		return fmt.Errorf("economy.max_chat_length must be > 0")
	}

	// Live
	if c.Live.EndedSessionRetention <= 0 {
		return fmt.Errorf("live.ended_session_retention must be > 0")
	}
	if c.Live.PruneInterval <= 0 {
		return fmt.Errorf("live.prune_interval must be > 0")
	}

	// Idempotency
	if c.Idempotency.Enabled && c.Idempotency.TTL <= 0 {
		return fmt.Errorf("idempotency.ttl must be > 0 when idempotency.enabled=true")
	}

	// Auth
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty when auth.enabled=true")
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.http.max_concurrent must be >= 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 15 * time.Second
	cfg.Server.WriteTimeout = 15 * time.Second
	cfg.Server.ShutdownTimeout = 20 * time.Second

	cfg.Monitoring.PrometheusEnabled = true
	cfg.Monitoring.MetricsPath = "/metrics"

	cfg.Tracing.Enabled = false
	cfg.Tracing.ServiceName = "giftcast"
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10

	cfg.Persistence.Backend = "file"
	cfg.Persistence.Dir = "data"
	cfg.Persistence.FlushInterval = 500 * time.Millisecond
	cfg.Persistence.BatchSize = 64
	cfg.Persistence.SaveTimeout = 5 * time.Second
	cfg.Persistence.Retry.Enabled = true
	cfg.Persistence.Retry.MaxAttempts = 3
	cfg.Persistence.Retry.InitialDelay = 100 * time.Millisecond
	cfg.Persistence.Retry.MaxDelay = 2 * time.Second
	cfg.Persistence.CircuitBreaker.FailureThreshold = 5
	cfg.Persistence.CircuitBreaker.SuccessThreshold = 1
	cfg.Persistence.CircuitBreaker.Timeout = 30 * time.Second
	cfg.Persistence.S3.Prefix = "giftcast"
	cfg.Persistence.S3.Region = "us-east-1"

	cfg.Archive.Enabled = false
	cfg.Archive.Interval = time.Hour
	cfg.Archive.RetentionDays = 7

	cfg.Economy.WelcomeBonusCoins = 500
	cfg.Economy.CoinRate = "0.01"
	cfg.Economy.RevenueShare = "0.50"
	cfg.Economy.MinWithdrawal = "20.00"
	cfg.Economy.InviteTTL = 24 * time.Hour
	cfg.Economy.ChatRetention = 200
	cfg.Economy.RecentGifts = 5
	cfg.Economy.MaxChatLength = 500

	cfg.Live.EndedSessionRetention = 2 * time.Hour
	cfg.Live.PruneInterval = 10 * time.Minute

	cfg.Idempotency.Enabled = true
	cfg.Idempotency.TTL = 10 * time.Minute

	cfg.Auth.Enabled = false
	cfg.Auth.Issuer = "giftcast"

	// Rate limiting defaults (disabled by default)
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 20
	cfg.RateLimiting.HTTP.Burst = 40
	cfg.RateLimiting.HTTP.MaxConcurrent = 0

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("GIFTCAST_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if level := os.Getenv("GIFTCAST_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if backend := os.Getenv("GIFTCAST_PERSISTENCE_BACKEND"); backend != "" {
		c.Persistence.Backend = backend
	}
	if dir := os.Getenv("GIFTCAST_DATA_DIR"); dir != "" {
		c.Persistence.Dir = dir
	}
	if addr := os.Getenv("GIFTCAST_REDIS_ADDRESS"); addr != "" {
		c.Redis.Enabled = true
		c.Redis.Address = addr
	}
	if pw := os.Getenv("GIFTCAST_REDIS_PASSWORD"); pw != "" {
		c.Redis.Password = pw
	}
	if bucket := os.Getenv("GIFTCAST_S3_BUCKET"); bucket != "" {
		c.Persistence.S3.Bucket = bucket
	}
	if endpoint := os.Getenv("GIFTCAST_S3_ENDPOINT"); endpoint != "" {
		c.Persistence.S3.Endpoint = endpoint
	}
	if key := os.Getenv("GIFTCAST_S3_ACCESS_KEY_ID"); key != "" {
		c.Persistence.S3.AccessKeyID = key
	}
	if secret := os.Getenv("GIFTCAST_S3_SECRET_ACCESS_KEY"); secret != "" {
		c.Persistence.S3.SecretAccessKey = secret
	}
	if secret := os.Getenv("GIFTCAST_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if v := os.Getenv("GIFTCAST_AUTH_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Auth.Enabled = enabled
		}
	}
	if v := os.Getenv("GIFTCAST_WELCOME_BONUS"); v != "" {
		if bonus, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Economy.WelcomeBonusCoins = bonus
		}
	}
}
