package monitoring

import (
	"time"

	"giftcast/internal/core/domain"
	"giftcast/internal/core/ports"

	"github.com/shopspring/decimal"
)

// Fanout forwards every observation to each sink in order.
type Fanout []ports.EconomyMetrics

var _ ports.EconomyMetrics = Fanout(nil)

func (f Fanout) RecordWalletCreated() {
	for _, m := range f {
		m.RecordWalletCreated()
	}
}

func (f Fanout) RecordCoinsPurchased(packageID string, coins int64) {
	for _, m := range f {
		m.RecordCoinsPurchased(packageID, coins)
	}
}

func (f Fanout) RecordGiftSent(giftID string, coins int64, live bool) {
	for _, m := range f {
		m.RecordGiftSent(giftID, coins, live)
	}
}

func (f Fanout) RecordGiftRejected(reason string) {
	for _, m := range f {
		m.RecordGiftRejected(reason)
	}
}

func (f Fanout) RecordWithdrawal(amount decimal.Decimal) {
	for _, m := range f {
		m.RecordWithdrawal(amount)
	}
}

func (f Fanout) RecordSessionStarted() {
	for _, m := range f {
		m.RecordSessionStarted()
	}
}

func (f Fanout) RecordSessionEnded(duration time.Duration) {
	for _, m := range f {
		m.RecordSessionEnded(duration)
	}
}

func (f Fanout) RecordViewerJoined() {
	for _, m := range f {
		m.RecordViewerJoined()
	}
}

func (f Fanout) RecordChatMessage(kind domain.MessageType) {
	for _, m := range f {
		m.RecordChatMessage(kind)
	}
}

func (f Fanout) RecordFeedPoll(truncated bool) {
	for _, m := range f {
		m.RecordFeedPoll(truncated)
	}
}

func (f Fanout) RecordSnapshotSave(duration time.Duration, err error) {
	for _, m := range f {
		m.RecordSnapshotSave(duration, err)
	}
}
