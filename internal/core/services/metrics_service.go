package services

import (
	"sync"
	"time"

	"giftcast/internal/core/domain"

	"github.com/shopspring/decimal"
)

// ActivityCounters is a point-in-time copy of MetricsService.
type ActivityCounters struct {
	WalletsCreated   int                        `json:"wallets_created"`
	CoinsPurchased   int64                      `json:"coins_purchased"`
	GiftsSent        int                        `json:"gifts_sent"`
	LiveGiftsSent    int                        `json:"live_gifts_sent"`
	CoinsGifted      int64                      `json:"coins_gifted"`
	GiftsRejected    map[string]int             `json:"gifts_rejected"`
	Withdrawals      int                        `json:"withdrawals"`
	AmountWithdrawn  decimal.Decimal            `json:"amount_withdrawn"`
	SessionsStarted  int                        `json:"sessions_started"`
	SessionsEnded    int                        `json:"sessions_ended"`
	LiveTime         time.Duration              `json:"live_time_ns"`
	ViewersJoined    int                        `json:"viewers_joined"`
	Messages         map[domain.MessageType]int `json:"messages"`
	FeedPolls        int                        `json:"feed_polls"`
	TruncatedPolls   int                        `json:"truncated_polls"`
	SnapshotSaves    int                        `json:"snapshot_saves"`
	SnapshotFailures int                        `json:"snapshot_failures"`
	LastSnapshotSave time.Duration              `json:"last_snapshot_save_ns"`
}

// MetricsService keeps economy counters in process. It backs the metrics
// port when prometheus is disabled and gives tests something to assert on.
type MetricsService struct {
	mu       sync.RWMutex
	counters ActivityCounters
}

func NewMetricsService() *MetricsService {
	return &MetricsService{
		counters: ActivityCounters{
			GiftsRejected: make(map[string]int),
			Messages:      make(map[domain.MessageType]int),
		},
	}
}

func (m *MetricsService) RecordWalletCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters.WalletsCreated++
}

func (m *MetricsService) RecordCoinsPurchased(packageID string, coins int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters.CoinsPurchased += coins
}

func (m *MetricsService) RecordGiftSent(giftID string, coins int64, live bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters.GiftsSent++
	m.counters.CoinsGifted += coins
	if live {
		m.counters.LiveGiftsSent++
	}
}

func (m *MetricsService) RecordGiftRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters.GiftsRejected[reason]++
}

func (m *MetricsService) RecordWithdrawal(amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters.Withdrawals++
	m.counters.AmountWithdrawn = m.counters.AmountWithdrawn.Add(amount)
}

func (m *MetricsService) RecordSessionStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters.SessionsStarted++
}

func (m *MetricsService) RecordSessionEnded(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters.SessionsEnded++
	m.counters.LiveTime += duration
}

func (m *MetricsService) RecordViewerJoined() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters.ViewersJoined++
}

func (m *MetricsService) RecordChatMessage(kind domain.MessageType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters.Messages[kind]++
}

func (m *MetricsService) RecordFeedPoll(truncated bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters.FeedPolls++
	if truncated {
		m.counters.TruncatedPolls++
	}
}

func (m *MetricsService) RecordSnapshotSave(duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.counters.SnapshotFailures++
		return
	}
	m.counters.SnapshotSaves++
	m.counters.LastSnapshotSave = duration
}

// Counters returns a copy of the current counters.
func (m *MetricsService) Counters() ActivityCounters {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c := m.counters
	c.GiftsRejected = make(map[string]int, len(m.counters.GiftsRejected))
	for k, v := range m.counters.GiftsRejected {
		c.GiftsRejected[k] = v
	}
	c.Messages = make(map[domain.MessageType]int, len(m.counters.Messages))
	for k, v := range m.counters.Messages {
		c.Messages[k] = v
	}
	return c
}
