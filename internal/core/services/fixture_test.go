package services

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"giftcast/internal/core/domain"
	"giftcast/internal/core/ports"
	"giftcast/internal/infrastructure/repositories/memory"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var epoch = time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)

// seqIDs issues prefix_1, prefix_2, ...
type seqIDs struct{ n atomic.Int64 }

func (g *seqIDs) NewID(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, g.n.Add(1))
}

// seededRandom is deterministic across runs.
type seededRandom struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newSeededRandom() *seededRandom {
	return &seededRandom{rnd: rand.New(rand.NewSource(42))}
}

func (r *seededRandom) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

// constRandom always draws zero, which makes every invite code collide.
type constRandom struct{}

func (constRandom) Intn(int) int { return 0 }

type recordingNotifier struct {
	mu      sync.Mutex
	reasons []string
}

func (n *recordingNotifier) NotifyChanged(reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reasons = append(n.reasons, reason)
}

func (n *recordingNotifier) Reasons() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.reasons))
	copy(out, n.reasons)
	return out
}

type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockSnapshotStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Snapshot), args.Error(1)
}

type fixture struct {
	clock    *clockwork.FakeClock
	metrics  *MetricsService
	notifier *recordingNotifier
	economy  EconomyConfig
	rt       Runtime

	groupRepo   ports.GroupRepository
	walletRepo  ports.WalletRepository
	sessionRepo ports.SessionRepository

	groups  ports.GroupService
	wallets ports.WalletService
	live    ports.LiveService
	feed    ports.FeedService
}

func newFixture(t *testing.T, tweaks ...func(*EconomyConfig)) *fixture {
	t.Helper()

	economy := DefaultEconomyConfig()
	for _, tweak := range tweaks {
		tweak(&economy)
	}

	f := &fixture{
		clock:       clockwork.NewFakeClockAt(epoch),
		metrics:     NewMetricsService(),
		notifier:    &recordingNotifier{},
		economy:     economy,
		groupRepo:   memory.NewMemoryGroupRepository(),
		walletRepo:  memory.NewMemoryWalletRepository(),
		sessionRepo: memory.NewMemorySessionRepository(),
	}
	f.rt = Runtime{
		Clock:    f.clock,
		IDs:      &seqIDs{},
		Random:   newSeededRandom(),
		Notifier: f.notifier,
		Metrics:  f.metrics,
		Logger:   zaptest.NewLogger(t).Sugar(),
	}

	f.groups = NewGroupService(f.groupRepo, economy, f.rt)
	f.wallets = NewWalletService(f.walletRepo, economy, f.rt)
	f.live = NewLiveService(f.groups, f.sessionRepo, f.wallets, economy, f.rt)
	f.feed = NewFeedService(f.sessionRepo, economy, f.rt)
	return f
}

func (f *fixture) createGroup(t *testing.T, name string, owner domain.UserID, ownerName string) *domain.Group {
	t.Helper()
	group, err := f.groups.CreateGroup(context.Background(), ports.CreateGroupInput{
		Name:        name,
		AvatarEmoji: "📚",
		OwnerID:     owner,
		OwnerName:   ownerName,
	})
	require.NoError(t, err)
	return group
}

func (f *fixture) startLive(t *testing.T, groupID domain.GroupID, host domain.UserID) *domain.SessionSummary {
	t.Helper()
	summary, err := f.live.StartLive(context.Background(), groupID, host, "")
	require.NoError(t, err)
	return summary
}
