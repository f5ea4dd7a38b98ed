package backup

import (
	"context"
	"fmt"
	"time"

	"giftcast/internal/core/domain"
	"giftcast/internal/core/ports"
	"giftcast/pkg/backup"

	"go.uber.org/zap"
)

// RestoreService copies an archive back into the live snapshot slot. The
// server picks it up on its next start.
type RestoreService struct {
	backups *backup.BackupService
	store   ports.SnapshotStore
	logger  *zap.SugaredLogger
}

func NewRestoreService(backups *backup.BackupService, store ports.SnapshotStore, logger *zap.SugaredLogger) *RestoreService {
	return &RestoreService{
		backups: backups,
		store:   store,
		logger:  logger,
	}
}

// ListArchives returns archive names, oldest first.
func (rs *RestoreService) ListArchives(ctx context.Context) ([]string, error) {
	return rs.backups.ListBackups(ctx)
}

// LoadArchive decodes the snapshot stored in an archive.
func (rs *RestoreService) LoadArchive(ctx context.Context, name string) (*domain.Snapshot, *backup.BackupData, error) {
	data, err := rs.backups.RestoreBackup(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	if data.Version == "" {
		return nil, nil, fmt.Errorf("invalid backup %s: missing version", name)
	}

	var snapshot domain.Snapshot
	if err := data.Decode(&snapshot); err != nil {
		return nil, nil, fmt.Errorf("failed to decode snapshot in %s: %w", name, err)
	}
	if err := snapshot.Validate(); err != nil {
		return nil, nil, fmt.Errorf("backup %s: %w", name, err)
	}
	return &snapshot, data, nil
}

// RestoreArchive overwrites the live snapshot with the named archive.
func (rs *RestoreService) RestoreArchive(ctx context.Context, name string) (*domain.Snapshot, error) {
	rs.logger.Infow("Starting restore", "backup_name", name)

	snapshot, _, err := rs.LoadArchive(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := rs.store.Save(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to write restored snapshot: %w", err)
	}

	rs.logger.Infow("Restore completed",
		"backup_name", name,
		"groups", len(snapshot.Groups),
		"wallets", len(snapshot.Wallets),
	)
	return snapshot, nil
}

// FindBackupByTime returns the newest archive taken at or before target.
func (rs *RestoreService) FindBackupByTime(ctx context.Context, target time.Time) (string, error) {
	names, err := rs.backups.ListBackups(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list backups: %w", err)
	}

	var (
		closest     string
		closestTime time.Time
	)
	for _, name := range names {
		stamp, ok := backup.ParseBackupTime(name)
		if !ok || stamp.After(target) {
			continue
		}
		if closest == "" || stamp.After(closestTime) {
			closest, closestTime = name, stamp
		}
	}
	if closest == "" {
		return "", fmt.Errorf("no backup found at or before %s", target.UTC().Format(time.RFC3339))
	}
	return closest, nil
}
