package ports

import (
	"context"
	"time"

	"giftcast/internal/core/domain"

	"github.com/shopspring/decimal"
)

type CreateGroupInput struct {
	Name        string
	Description string
	AvatarEmoji string
	OwnerID     domain.UserID
	OwnerName   string
}

type GroupService interface {
	CreateGroup(ctx context.Context, in CreateGroupInput) (*domain.Group, error)
	GetGroup(ctx context.Context, id domain.GroupID) (*domain.Group, error)
	ListGroupsForUser(ctx context.Context, userID domain.UserID) ([]*domain.Group, error)
	JoinGroup(ctx context.Context, inviteCode string, userID domain.UserID, displayName string) (*domain.Group, error)
	RefreshInvite(ctx context.Context, id domain.GroupID) (*domain.Group, error)
	DeleteGroup(ctx context.Context, id domain.GroupID) (bool, error)
	SetLive(ctx context.Context, id domain.GroupID, live bool, title string) error
}

type WalletService interface {
	GetOrCreateWallet(ctx context.Context, userID domain.UserID) (*domain.Wallet, error)
	BuyCoins(ctx context.Context, userID domain.UserID, packageID string) (*domain.Wallet, error)
	SendGift(ctx context.Context, from, to domain.UserID, giftID string) (*domain.GiftReceipt, error)
	Withdraw(ctx context.Context, userID domain.UserID, amount decimal.Decimal, method string) (*domain.Wallet, error)
	ListGifts() []domain.Gift
	ListPackages() []domain.CoinPackage
	Stats(ctx context.Context) (*domain.LedgerStats, error)
}

type LiveService interface {
	StartLive(ctx context.Context, groupID domain.GroupID, userID domain.UserID, title string) (*domain.SessionSummary, error)
	EndLive(ctx context.Context, groupID domain.GroupID, userID domain.UserID) (bool, error)
	// DeleteGroup ends any running session and then removes the group.
	DeleteGroup(ctx context.Context, groupID domain.GroupID) (bool, error)
	JoinLive(ctx context.Context, groupID domain.GroupID, userID domain.UserID, displayName string) (*domain.SessionSummary, error)
	LeaveLive(ctx context.Context, groupID domain.GroupID, userID domain.UserID) (*domain.SessionSummary, error)
	SendChat(ctx context.Context, groupID domain.GroupID, userID domain.UserID, displayName, text string) (*domain.ChatMessage, error)
	SendLiveGift(ctx context.Context, groupID domain.GroupID, from domain.UserID, fromName, giftID string) (*domain.LiveGiftResult, error)
	PruneEnded(ctx context.Context, olderThan time.Duration) (int, error)
}

type FeedService interface {
	// GetLiveState returns nil, nil when the group has no active session.
	GetLiveState(ctx context.Context, groupID domain.GroupID, afterCursor int64) (*domain.LiveState, error)
	GetSessionState(ctx context.Context, id domain.SessionID, afterCursor int64) (*domain.LiveState, error)
}

// ChangeNotifier is told about every committed mutation of groups or wallets.
// Implementations must not block the caller.
type ChangeNotifier interface {
	NotifyChanged(reason string)
}

type EconomyMetrics interface {
	RecordWalletCreated()
	RecordCoinsPurchased(packageID string, coins int64)
	RecordGiftSent(giftID string, coins int64, live bool)
	RecordGiftRejected(reason string)
	RecordWithdrawal(amount decimal.Decimal)
	RecordSessionStarted()
	RecordSessionEnded(duration time.Duration)
	RecordViewerJoined()
	RecordChatMessage(kind domain.MessageType)
	RecordFeedPoll(truncated bool)
	RecordSnapshotSave(duration time.Duration, err error)
}
