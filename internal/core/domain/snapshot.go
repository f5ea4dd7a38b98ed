package domain

import (
	"fmt"
	"time"
)

// Snapshot is the durable image of groups and wallets. Live sessions are
// never part of it.
type Snapshot struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`
	Groups  []*Group  `json:"groups"`
	Wallets []*Wallet `json:"wallets"`
}

const SnapshotVersion = 1

// Validate rejects a snapshot whose wallets break the ledger's invariants.
func (s *Snapshot) Validate() error {
	if s.Version > SnapshotVersion {
		return fmt.Errorf("snapshot version %d is newer than supported version %d", s.Version, SnapshotVersion)
	}
	for _, w := range s.Wallets {
		if w == nil || w.UserID == "" {
			return fmt.Errorf("snapshot wallet without user id")
		}
		if w.CoinsBalance < 0 || w.EarningsBalance.IsNegative() {
			return fmt.Errorf("snapshot wallet %s has a negative balance", w.UserID)
		}
		for _, tx := range w.Transactions {
			if !tx.Type.Valid() {
				return fmt.Errorf("snapshot wallet %s has unknown transaction type %q", w.UserID, tx.Type)
			}
		}
	}
	return nil
}
