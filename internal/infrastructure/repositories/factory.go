package repositories

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"giftcast/internal/core/ports"
	archive "giftcast/internal/infrastructure/backup"
	"giftcast/internal/infrastructure/reliability"
	"giftcast/internal/infrastructure/repositories/memory"
	redisrepo "giftcast/internal/infrastructure/repositories/redis"
	"giftcast/pkg/backup"
	"giftcast/pkg/circuitbreaker"
	"giftcast/pkg/config"
	"giftcast/pkg/distributed"
	"giftcast/pkg/retry"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendFile   = "file"
	BackendS3     = "s3"

	writerLeaseTTL = 15 * time.Second
)

// RepositoryFactory builds the in-memory repositories and the snapshot store
// behind them. A redis backend that cannot be reached falls back to memory.
type RepositoryFactory struct {
	cfg     *config.Config
	clock   clockwork.Clock
	logger  *zap.SugaredLogger
	backend string

	redisClient *redis.Client
	redisStore  *redisrepo.SnapshotStore
	storage     backup.Storage
	snapshots   ports.SnapshotStore
}

func NewRepositoryFactory(ctx context.Context, cfg *config.Config, clock clockwork.Clock, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	f := &RepositoryFactory{
		cfg:     cfg,
		clock:   clock,
		logger:  logger,
		backend: cfg.Persistence.Backend,
	}

	var store ports.SnapshotStore
	var permanent []error
	switch f.backend {
	case BackendRedis:
		client, err := redisrepo.NewRedisClient(redisrepo.ClientOptions{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}, logger)
		if err != nil {
			logger.Warnw("Failed to connect to Redis, falling back to memory snapshot store",
				"address", cfg.Redis.Address,
				"error", err,
			)
			f.backend = BackendMemory
			store = memory.NewMemorySnapshotStore()
			break
		}
		f.redisClient = client
		lease := distributed.NewLease(client, redisrepo.WriterLeaseKey, writerLeaseTTL, clock)
		lease.OnLost(func() {
			logger.Errorw("Lost snapshot writer lease; another instance may be writing")
		})
		f.redisStore = redisrepo.NewSnapshotStore(client, lease)
		store = f.redisStore
		permanent = append(permanent, redisrepo.ErrNotWriter)
	case BackendFile:
		storage, err := backup.NewFileStorage(cfg.Persistence.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot directory: %w", err)
		}
		f.storage = storage
		store = archive.NewSnapshotStore(storage, BackendFile)
	case BackendS3:
		storage, err := backup.NewS3StorageFromOptions(ctx, s3Options(cfg))
		if err != nil {
			return nil, fmt.Errorf("failed to configure s3 storage: %w", err)
		}
		f.storage = storage
		store = archive.NewSnapshotStore(storage, BackendS3)
	case BackendMemory, "":
		f.backend = BackendMemory
		store = memory.NewMemorySnapshotStore()
	default:
		return nil, fmt.Errorf("unknown persistence backend %q", f.backend)
	}

	if f.backend == BackendMemory {
		f.snapshots = store
	} else {
		f.snapshots = reliability.NewSnapshotStoreWrapper(store, retryConfig(cfg), breakerConfig(cfg), clock, logger, permanent...)
	}

	logger.Infow("Snapshot store ready", "backend", f.backend)
	return f, nil
}

func s3Options(cfg *config.Config) backup.S3Options {
	s3 := cfg.Persistence.S3
	return backup.S3Options{
		Bucket:          s3.Bucket,
		Prefix:          s3.Prefix,
		Region:          s3.Region,
		Endpoint:        s3.Endpoint,
		AccessKeyID:     s3.AccessKeyID,
		SecretAccessKey: s3.SecretAccessKey,
	}
}

func retryConfig(cfg *config.Config) retry.Config {
	rc := retry.DefaultConfig()
	r := cfg.Persistence.Retry
	rc.Enabled = r.Enabled
	if r.MaxAttempts > 0 {
		rc.MaxAttempts = r.MaxAttempts
	}
	if r.InitialDelay > 0 {
		rc.InitialDelay = r.InitialDelay
	}
	if r.MaxDelay > 0 {
		rc.MaxDelay = r.MaxDelay
	}
	return rc
}

func breakerConfig(cfg *config.Config) circuitbreaker.Config {
	cb := circuitbreaker.DefaultConfig()
	c := cfg.Persistence.CircuitBreaker
	if c.FailureThreshold > 0 {
		cb.FailureThreshold = c.FailureThreshold
	}
	if c.SuccessThreshold > 0 {
		cb.SuccessThreshold = c.SuccessThreshold
	}
	if c.Timeout > 0 {
		cb.Timeout = c.Timeout
	}
	return cb
}

// Backend is the snapshot backend actually in use after any fallback.
func (f *RepositoryFactory) Backend() string {
	return f.backend
}

func (f *RepositoryFactory) CreateGroupRepository() ports.GroupRepository {
	return memory.NewMemoryGroupRepository()
}

func (f *RepositoryFactory) CreateWalletRepository() ports.WalletRepository {
	return memory.NewMemoryWalletRepository()
}

// CreateSessionRepository always returns a memory repository; live
// sessions are never persisted.
func (f *RepositoryFactory) CreateSessionRepository() ports.SessionRepository {
	return memory.NewMemorySessionRepository()
}

// SnapshotStore returns the configured store, wrapped with retry and a
// circuit breaker for every backend except memory.
func (f *RepositoryFactory) SnapshotStore() ports.SnapshotStore {
	return f.snapshots
}

// ArchiveStorage returns where timestamped archives go: the bucket for the
// s3 backend, otherwise an archive directory under the persistence dir.
func (f *RepositoryFactory) ArchiveStorage() (backup.Storage, error) {
	if f.backend == BackendS3 {
		return f.storage, nil
	}
	return backup.NewFileStorage(filepath.Join(f.cfg.Persistence.Dir, "archive"))
}

// Close releases the writer lease and the Redis connection if used.
func (f *RepositoryFactory) Close(ctx context.Context) error {
	if f.redisStore != nil {
		if err := f.redisStore.Close(ctx); err != nil {
			f.logger.Warnw("Failed to release snapshot writer lease", "error", err)
		}
	}
	if f.redisClient != nil {
		return redisrepo.CloseRedisClient(f.redisClient)
	}
	return nil
}

// Ping checks Redis when it backs the snapshot store. It implements
// monitoring.Pinger.
func (f *RepositoryFactory) Ping(ctx context.Context) error {
	if f.redisStore != nil {
		return f.redisStore.Ping(ctx)
	}
	return nil
}
