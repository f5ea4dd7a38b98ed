package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"giftcast/internal/core/domain"
	"giftcast/internal/core/ports"
	"giftcast/pkg/batch"
)

type SnapshotWriterConfig struct {
	BatchSize     int
	FlushInterval time.Duration
	SaveTimeout   time.Duration
}

// SnapshotWriter coalesces change notifications and writes groups and
// wallets to the snapshot store in the background. NotifyChanged only
// enqueues; a failed save is logged and the next change retries.
type SnapshotWriter struct {
	groupRepo   ports.GroupRepository
	walletRepo  ports.WalletRepository
	store       ports.SnapshotStore
	batcher     *batch.Batcher[string]
	saveTimeout time.Duration
	rt          Runtime

	mu        sync.Mutex
	lastSaved time.Time
}

func NewSnapshotWriter(
	groupRepo ports.GroupRepository,
	walletRepo ports.WalletRepository,
	store ports.SnapshotStore,
	cfg SnapshotWriterConfig,
	rt Runtime,
) *SnapshotWriter {
	w := &SnapshotWriter{
		groupRepo:   groupRepo,
		walletRepo:  walletRepo,
		store:       store,
		saveTimeout: cfg.SaveTimeout,
		rt:          rt.withDefaults(),
	}
	w.batcher = batch.NewBatcher[string](
		cfg.BatchSize,
		cfg.FlushInterval,
		batch.ProcessorFunc[string](w.processBatch),
		batch.WithClock[string](w.rt.Clock),
		batch.WithErrorHandler[string](func(err error) {
			w.rt.Logger.Errorw("Background snapshot failed", "error", err)
		}),
	)
	return w
}

// NotifyChanged implements ports.ChangeNotifier.
func (w *SnapshotWriter) NotifyChanged(reason string) {
	w.batcher.Add(reason)
}

// processBatch writes one snapshot for any number of coalesced changes.
func (w *SnapshotWriter) processBatch(ctx context.Context, reasons []string) error {
	counts := make(map[string]int, len(reasons))
	for _, r := range reasons {
		counts[r]++
	}
	w.rt.Logger.Debugw("Flushing snapshot", "changes", len(reasons), "reasons", counts)
	return w.SaveNow(ctx)
}

// SaveNow captures the current state and writes it synchronously.
func (w *SnapshotWriter) SaveNow(ctx context.Context) error {
	snapshot, err := w.Capture(ctx)
	if err != nil {
		return err
	}

	if w.saveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.saveTimeout)
		defer cancel()
	}

	start := w.rt.Clock.Now()
	err = w.store.Save(ctx, snapshot)
	w.rt.Metrics.RecordSnapshotSave(w.rt.Clock.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	w.mu.Lock()
	w.lastSaved = snapshot.SavedAt
	w.mu.Unlock()
	return nil
}

// LastSaved reports when the last successful snapshot was captured. It is
// zero until the first save.
func (w *SnapshotWriter) LastSaved() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSaved
}

// Capture copies groups and wallets into a snapshot.
func (w *SnapshotWriter) Capture(ctx context.Context) (*domain.Snapshot, error) {
	groups, err := w.groupRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	wallets, err := w.walletRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return &domain.Snapshot{
		Version: domain.SnapshotVersion,
		SavedAt: w.rt.Clock.Now(),
		Groups:  groups,
		Wallets: wallets,
	}, nil
}

// Restore loads the last snapshot into the repositories. Broadcasts never
// survive a restart, so live flags are cleared.
func (w *SnapshotWriter) Restore(ctx context.Context) error {
	snapshot, err := w.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	if snapshot == nil {
		w.rt.Logger.Infow("No snapshot found, starting empty")
		return nil
	}
	if err := snapshot.Validate(); err != nil {
		return fmt.Errorf("refusing to restore snapshot: %w", err)
	}

	for _, g := range snapshot.Groups {
		g.IsLive = false
		g.LiveTitle = ""
	}
	if err := w.groupRepo.ReplaceAll(ctx, snapshot.Groups); err != nil {
		return fmt.Errorf("failed to restore groups: %w", err)
	}
	if err := w.walletRepo.ReplaceAll(ctx, snapshot.Wallets); err != nil {
		return fmt.Errorf("failed to restore wallets: %w", err)
	}

	w.rt.Logger.Infow("Snapshot restored",
		"groups", len(snapshot.Groups),
		"wallets", len(snapshot.Wallets),
		"saved_at", snapshot.SavedAt,
	)
	return nil
}

// Flush writes pending changes now.
func (w *SnapshotWriter) Flush(ctx context.Context) error {
	return w.batcher.Flush(ctx)
}

func (w *SnapshotWriter) PendingCount() int {
	return w.batcher.PendingCount()
}

// Stop flushes pending changes and stops the background loop.
func (w *SnapshotWriter) Stop() {
	w.batcher.Stop()
}
