package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix            = "giftcast:"
	schemaVersionKey     = keyPrefix + "schema:version"
	currentSchemaVersion = 2

	// pre-1.0 builds stored the snapshot under this key
	legacySnapshotKey = keyPrefix + "state"
)

type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, client redis.UniversalClient) error
}

// Migrate applies every migration newer than the stored schema version.
func Migrate(ctx context.Context, client redis.UniversalClient, logger *zap.SugaredLogger) error {
	currentVersion, err := getSchemaVersion(ctx, client)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}
	if currentVersion > currentSchemaVersion {
		return fmt.Errorf("redis schema version %d is newer than supported version %d", currentVersion, currentSchemaVersion)
	}
	if currentVersion == currentSchemaVersion {
		if logger != nil {
			logger.Debugw("Redis schema is up to date", "version", currentVersion)
		}
		return nil
	}

	for _, migration := range migrations() {
		if migration.Version <= currentVersion {
			continue
		}
		if logger != nil {
			logger.Infow("Running migration", "version", migration.Version, "description", migration.Description)
		}
		if err := migration.Up(ctx, client); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}
		if err := setSchemaVersion(ctx, client, migration.Version); err != nil {
			return fmt.Errorf("failed to update schema version: %w", err)
		}
	}
	return nil
}

func getSchemaVersion(ctx context.Context, client redis.UniversalClient) (int, error) {
	val, err := client.Get(ctx, schemaVersionKey).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}

func setSchemaVersion(ctx context.Context, client redis.UniversalClient, version int) error {
	return client.Set(ctx, schemaVersionKey, version, 0).Err()
}

func migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "move legacy snapshot key",
			Up: func(ctx context.Context, client redis.UniversalClient) error {
				exists, err := client.Exists(ctx, legacySnapshotKey, SnapshotKey).Result()
				if err != nil {
					return err
				}
				// only the legacy key present
				if exists != 1 {
					return nil
				}
				err = client.RenameNX(ctx, legacySnapshotKey, SnapshotKey).Err()
				if err != nil && !isNoSuchKey(err) {
					return err
				}
				return nil
			},
		},
		{
			Version:     2,
			Description: "add snapshot metadata hash",
			Up: func(ctx context.Context, client redis.UniversalClient) error {
				data, err := client.Get(ctx, SnapshotKey).Bytes()
				if errors.Is(err, redis.Nil) {
					return nil
				}
				if err != nil {
					return err
				}
				snapshot, err := decodeSnapshot(data)
				if err != nil {
					return err
				}
				return client.HSet(ctx, SnapshotMetaKey, snapshotMeta(snapshot, len(data))).Err()
			},
		},
	}
}

func isNoSuchKey(err error) bool {
	return err != nil && err.Error() == "ERR no such key"
}
