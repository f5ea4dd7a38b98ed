package backup

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"giftcast/internal/core/domain"
	"giftcast/pkg/backup"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ArchiveFormatVersion tags the envelope of every archive written here.
const ArchiveFormatVersion = "1"

// NewArchiveService opens the backup service archives are written through.
func NewArchiveService(storage backup.Storage, clock clockwork.Clock) *backup.BackupService {
	return backup.NewBackupService(storage, ArchiveFormatVersion, clock)
}

// SnapshotSource captures the current groups and wallets.
type SnapshotSource interface {
	Capture(ctx context.Context) (*domain.Snapshot, error)
}

// Archiver writes timestamped copies of the snapshot next to the live one
// and deletes copies older than the retention period.
type Archiver struct {
	backups       *backup.BackupService
	source        SnapshotSource
	retentionDays int
	clock         clockwork.Clock
	logger        *zap.SugaredLogger
}

func NewArchiver(backups *backup.BackupService, source SnapshotSource, retentionDays int, clock clockwork.Clock, logger *zap.SugaredLogger) *Archiver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Archiver{
		backups:       backups,
		source:        source,
		retentionDays: retentionDays,
		clock:         clock,
		logger:        logger,
	}
}

// Archive captures and stores one archive, then applies retention.
func (a *Archiver) Archive(ctx context.Context, kind string) (string, error) {
	snapshot, err := a.source.Capture(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to capture snapshot: %w", err)
	}

	name, err := a.backups.CreateBackup(ctx, snapshot, map[string]string{
		"backup_type":      kind,
		"groups":           strconv.Itoa(len(snapshot.Groups)),
		"wallets":          strconv.Itoa(len(snapshot.Wallets)),
		"snapshot_version": strconv.Itoa(snapshot.Version),
	})
	if err != nil {
		return "", err
	}
	a.logger.Infow("Archive created", "backup_name", name, "groups", len(snapshot.Groups), "wallets", len(snapshot.Wallets))

	if _, err := a.Cleanup(ctx); err != nil {
		a.logger.Warnw("Failed to clean up old archives", "error", err)
	}
	return name, nil
}

// Cleanup removes archives older than the retention period. A zero
// retention keeps everything.
func (a *Archiver) Cleanup(ctx context.Context) (int, error) {
	if a.retentionDays <= 0 {
		return 0, nil
	}
	names, err := a.backups.ListBackups(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list backups: %w", err)
	}

	cutoff := a.clock.Now().AddDate(0, 0, -a.retentionDays)
	deleted := 0
	for _, name := range names {
		stamp, ok := backup.ParseBackupTime(name)
		if !ok || !stamp.Before(cutoff) {
			continue
		}
		if err := a.backups.DeleteBackup(ctx, name); err != nil {
			a.logger.Warnw("Failed to delete old archive", "backup_name", name, "error", err)
			continue
		}
		deleted++
		a.logger.Infow("Deleted old archive", "backup_name", name, "age", a.clock.Since(stamp).Round(time.Minute))
	}
	return deleted, nil
}
