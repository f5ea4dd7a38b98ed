package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionBonus        TransactionType = "bonus"
	TransactionPurchase     TransactionType = "purchase"
	TransactionGiftSent     TransactionType = "gift_sent"
	TransactionGiftReceived TransactionType = "gift_received"
	TransactionWithdrawal   TransactionType = "withdrawal"
)

// Valid reports whether t is one of the known transaction kinds.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionBonus, TransactionPurchase, TransactionGiftSent, TransactionGiftReceived, TransactionWithdrawal:
		return true
	}
	return false
}

type TransactionStatus string

const (
	StatusCompleted TransactionStatus = "completed"
	StatusPending   TransactionStatus = "pending"
)

// Transaction is immutable once appended to a wallet.
type Transaction struct {
	ID          string            `json:"id"`
	Type        TransactionType   `json:"type"`
	CoinsAmount int64             `json:"coins_amount"`
	MoneyAmount *decimal.Decimal  `json:"money_amount,omitempty"`
	Description string            `json:"description"`
	Status      TransactionStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
}

type Wallet struct {
	UserID          UserID          `json:"user_id"`
	CoinsBalance    int64           `json:"coins_balance"`
	EarningsBalance decimal.Decimal `json:"earnings_balance"`
	TotalEarned     decimal.Decimal `json:"total_earned"`
	TotalWithdrawn  decimal.Decimal `json:"total_withdrawn"`
	Transactions    []Transaction   `json:"transactions"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Append records tx at the end of the history.
func (w *Wallet) Append(tx Transaction) {
	w.Transactions = append(w.Transactions, tx)
}

func (w *Wallet) Clone() *Wallet {
	if w == nil {
		return nil
	}
	c := *w
	c.Transactions = make([]Transaction, len(w.Transactions))
	copy(c.Transactions, w.Transactions)
	return &c
}

// GiftReceipt describes a settled gift transfer between two wallets.
type GiftReceipt struct {
	Gift             Gift            `json:"gift"`
	FromUserID       UserID          `json:"from_user_id"`
	ToUserID         UserID          `json:"to_user_id"`
	CoinsDebited     int64           `json:"coins_debited"`
	MoneyValue       decimal.Decimal `json:"money_value"`
	EarningsCredited decimal.Decimal `json:"earnings_credited"`
	SenderBalance    int64           `json:"sender_balance"`
	Message          string          `json:"message"`
}
