package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerStats aggregates all wallets at one instant.
type LedgerStats struct {
	Wallets             int             `json:"wallets"`
	CoinsInCirculation  int64           `json:"coins_in_circulation"`
	EarningsOutstanding decimal.Decimal `json:"earnings_outstanding"`
	TotalEarned         decimal.Decimal `json:"total_earned"`
	TotalWithdrawn      decimal.Decimal `json:"total_withdrawn"`
	PendingWithdrawals  int             `json:"pending_withdrawals"`
	Timestamp           time.Time       `json:"timestamp"`
}
