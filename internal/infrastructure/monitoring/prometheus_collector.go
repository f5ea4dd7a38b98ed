package monitoring

import (
	"time"

	"giftcast/internal/core/domain"
	"giftcast/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// PrometheusCollector exports economy and live activity as prometheus
// metrics.
type PrometheusCollector struct {
	walletsCreated  prometheus.Counter
	coinsPurchased  *prometheus.CounterVec
	giftsSent       *prometheus.CounterVec
	coinsGifted     prometheus.Counter
	giftsRejected   *prometheus.CounterVec
	withdrawals     prometheus.Counter
	amountWithdrawn prometheus.Counter

	sessionsActive   prometheus.Gauge
	sessionsStarted  prometheus.Counter
	sessionDuration  prometheus.Histogram
	viewersJoined    prometheus.Counter
	chatMessages     *prometheus.CounterVec
	feedPolls        *prometheus.CounterVec
	snapshotSaves    *prometheus.CounterVec
	snapshotDuration prometheus.Histogram
}

var _ ports.EconomyMetrics = (*PrometheusCollector)(nil)

func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)
	return &PrometheusCollector{
		walletsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "giftcast_wallets_created_total",
			Help: "Wallets created on first use",
		}),
		coinsPurchased: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "giftcast_coins_purchased_total",
			Help: "Coins credited through package purchases",
		}, []string{"package_id"}),
		giftsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "giftcast_gifts_sent_total",
			Help: "Settled gifts by gift and channel",
		}, []string{"gift_id", "channel"}),
		coinsGifted: factory.NewCounter(prometheus.CounterOpts{
			Name: "giftcast_coins_gifted_total",
			Help: "Coins debited by settled gifts",
		}),
		giftsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "giftcast_gifts_rejected_total",
			Help: "Gift attempts rejected by reason",
		}, []string{"reason"}),
		withdrawals: factory.NewCounter(prometheus.CounterOpts{
			Name: "giftcast_withdrawals_total",
			Help: "Withdrawal requests accepted",
		}),
		amountWithdrawn: factory.NewCounter(prometheus.CounterOpts{
			Name: "giftcast_amount_withdrawn_total",
			Help: "Currency moved out of earnings balances",
		}),
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "giftcast_live_sessions_active",
			Help: "Live sessions currently running",
		}),
		sessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "giftcast_live_sessions_started_total",
			Help: "Live sessions started",
		}),
		sessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "giftcast_live_session_duration_seconds",
			Help:    "Duration of ended live sessions",
			Buckets: prometheus.ExponentialBuckets(60, 2, 10),
		}),
		viewersJoined: factory.NewCounter(prometheus.CounterOpts{
			Name: "giftcast_live_viewers_joined_total",
			Help: "Distinct viewer joins across sessions",
		}),
		chatMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "giftcast_chat_messages_total",
			Help: "Messages appended to live chat by type",
		}, []string{"type"}),
		feedPolls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "giftcast_feed_polls_total",
			Help: "Delta feed polls",
		}, []string{"truncated"}),
		snapshotSaves: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "giftcast_snapshot_saves_total",
			Help: "Snapshot writes by result",
		}, []string{"result"}),
		snapshotDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "giftcast_snapshot_save_duration_seconds",
			Help:    "Duration of successful snapshot writes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
}

func (p *PrometheusCollector) RecordWalletCreated() {
	p.walletsCreated.Inc()
}

func (p *PrometheusCollector) RecordCoinsPurchased(packageID string, coins int64) {
	p.coinsPurchased.WithLabelValues(packageID).Add(float64(coins))
}

func (p *PrometheusCollector) RecordGiftSent(giftID string, coins int64, live bool) {
	channel := "direct"
	if live {
		channel = "live"
	}
	p.giftsSent.WithLabelValues(giftID, channel).Inc()
	p.coinsGifted.Add(float64(coins))
}

func (p *PrometheusCollector) RecordGiftRejected(reason string) {
	p.giftsRejected.WithLabelValues(reason).Inc()
}

func (p *PrometheusCollector) RecordWithdrawal(amount decimal.Decimal) {
	p.withdrawals.Inc()
	p.amountWithdrawn.Add(amount.InexactFloat64())
}

func (p *PrometheusCollector) RecordSessionStarted() {
	p.sessionsStarted.Inc()
	p.sessionsActive.Inc()
}

func (p *PrometheusCollector) RecordSessionEnded(duration time.Duration) {
	p.sessionsActive.Dec()
	p.sessionDuration.Observe(duration.Seconds())
}

func (p *PrometheusCollector) RecordViewerJoined() {
	p.viewersJoined.Inc()
}

func (p *PrometheusCollector) RecordChatMessage(kind domain.MessageType) {
	p.chatMessages.WithLabelValues(string(kind)).Inc()
}

func (p *PrometheusCollector) RecordFeedPoll(truncated bool) {
	label := "false"
	if truncated {
		label = "true"
	}
	p.feedPolls.WithLabelValues(label).Inc()
}

func (p *PrometheusCollector) RecordSnapshotSave(duration time.Duration, err error) {
	if err != nil {
		p.snapshotSaves.WithLabelValues("error").Inc()
		return
	}
	p.snapshotSaves.WithLabelValues("ok").Inc()
	p.snapshotDuration.Observe(duration.Seconds())
}
