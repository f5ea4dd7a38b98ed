package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"giftcast/internal/core/domain"
	"giftcast/internal/core/ports"
	"giftcast/pkg/tracing"
	"giftcast/pkg/utils"
	"giftcast/pkg/validation"
)

type liveService struct {
	groups   ports.GroupService
	sessions ports.SessionRepository
	wallets  ports.WalletService
	economy  EconomyConfig
	rt       Runtime

	// lifecycle serializes start and end so a group never gets two sessions
	lifecycle sync.Mutex
}

func NewLiveService(
	groups ports.GroupService,
	sessions ports.SessionRepository,
	wallets ports.WalletService,
	economy EconomyConfig,
	rt Runtime,
) ports.LiveService {
	return &liveService{
		groups:   groups,
		sessions: sessions,
		wallets:  wallets,
		economy:  economy,
		rt:       rt.withDefaults(),
	}
}

// StartLive opens a broadcast for the group. If one is already running it
// is returned unchanged.
func (s *liveService) StartLive(ctx context.Context, groupID domain.GroupID, userID domain.UserID, title string) (*domain.SessionSummary, error) {
	if err := validation.ValidateLiveTitle(title); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if active, err := s.sessions.GetActive(ctx, groupID); err == nil {
		summary := active.Summary()
		return &summary, nil
	} else if !errors.Is(err, domain.ErrNoActiveSession) {
		return nil, fmt.Errorf("failed to look up live session: %w", err)
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = group.Name
	}
	hostName := string(userID)
	if member, ok := group.Member(userID); ok {
		hostName = member.DisplayName
	}

	now := s.rt.Clock.Now()
	session := domain.NewLiveSession(
		domain.SessionID(s.rt.IDs.NewID("live")),
		groupID, title, userID, hostName, now, s.economy.ChatRetention,
	)
	if err := session.Post(s.systemMessage(fmt.Sprintf("%s started the live: %s", hostName, title))); err != nil {
		return nil, err
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to register live session: %w", err)
	}
	if err := s.groups.SetLive(ctx, groupID, true, title); err != nil {
		// group deleted underneath us
		session.End(now, s.systemMessage("Live ended"))
		_ = s.sessions.Deactivate(ctx, groupID, session.ID)
		return nil, err
	}

	s.rt.Metrics.RecordSessionStarted()
	s.rt.Metrics.RecordChatMessage(domain.MessageSystem)
	s.rt.Logger.Infow("Live session started",
		"group_id", groupID,
		"session_id", session.ID,
		"host_user_id", userID,
	)

	summary := session.Summary()
	return &summary, nil
}

// EndLive terminates the active session. It reports false when the group
// has nothing running.
func (s *liveService) EndLive(ctx context.Context, groupID domain.GroupID, userID domain.UserID) (bool, error) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.endLocked(ctx, groupID, userID, "Live ended")
}

// DeleteGroup ends the group's session, if any, before removing the group so
// no broadcast outlives it.
func (s *liveService) DeleteGroup(ctx context.Context, groupID domain.GroupID) (bool, error) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if _, err := s.endLocked(ctx, groupID, "", "Group deleted"); err != nil {
		return false, err
	}
	return s.groups.DeleteGroup(ctx, groupID)
}

// endLocked closes the active session. The caller holds lifecycle.
func (s *liveService) endLocked(ctx context.Context, groupID domain.GroupID, userID domain.UserID, notice string) (bool, error) {
	session, err := s.sessions.GetActive(ctx, groupID)
	if errors.Is(err, domain.ErrNoActiveSession) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up live session: %w", err)
	}

	now := s.rt.Clock.Now()
	ended := session.End(now, s.systemMessage(notice))

	if err := s.sessions.Deactivate(ctx, groupID, session.ID); err != nil && !errors.Is(err, domain.ErrNoActiveSession) {
		return false, fmt.Errorf("failed to deactivate live session: %w", err)
	}
	if err := s.groups.SetLive(ctx, groupID, false, ""); err != nil && !errors.Is(err, domain.ErrGroupNotFound) {
		s.rt.Logger.Warnw("Failed to clear live flag", "group_id", groupID, "error", err)
	}

	if ended {
		duration := now.Sub(session.StartedAt)
		s.rt.Metrics.RecordSessionEnded(duration)
		s.rt.Metrics.RecordChatMessage(domain.MessageSystem)
		s.rt.Logger.Infow("Live session ended",
			"group_id", groupID,
			"session_id", session.ID,
			"ended_by", userID,
			"duration", utils.FormatDuration(duration),
		)
	}
	return ended, nil
}

// activeSession returns the group's running session. A session whose group
// has been removed is closed on sight and reported as not active.
func (s *liveService) activeSession(ctx context.Context, groupID domain.GroupID) (*domain.LiveSession, error) {
	session, err := s.sessions.GetActive(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if _, err := s.groups.GetGroup(ctx, groupID); err != nil {
		if !errors.Is(err, domain.ErrGroupNotFound) {
			return nil, err
		}
		s.lifecycle.Lock()
		_, endErr := s.endLocked(ctx, groupID, "", "Group deleted")
		s.lifecycle.Unlock()
		if endErr != nil {
			s.rt.Logger.Warnw("Failed to end orphaned live session", "group_id", groupID, "error", endErr)
		}
		return nil, domain.ErrNoActiveSession
	}
	return session, nil
}

// JoinLive adds the viewer once; repeated joins leave the log untouched.
func (s *liveService) JoinLive(ctx context.Context, groupID domain.GroupID, userID domain.UserID, displayName string) (*domain.SessionSummary, error) {
	session, err := s.activeSession(ctx, groupID)
	if err != nil {
		return nil, err
	}

	name := s.displayName(userID, displayName)
	added, err := session.AddViewer(userID, s.systemMessage(fmt.Sprintf("%s joined", name)))
	if err != nil {
		return nil, liveErr(err)
	}
	if added {
		s.rt.Metrics.RecordViewerJoined()
		s.rt.Metrics.RecordChatMessage(domain.MessageSystem)
	}

	summary := session.Summary()
	return &summary, nil
}

func (s *liveService) LeaveLive(ctx context.Context, groupID domain.GroupID, userID domain.UserID) (*domain.SessionSummary, error) {
	session, err := s.activeSession(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if _, err := session.RemoveViewer(userID); err != nil {
		return nil, liveErr(err)
	}

	summary := session.Summary()
	return &summary, nil
}

func (s *liveService) SendChat(ctx context.Context, groupID domain.GroupID, userID domain.UserID, displayName, text string) (*domain.ChatMessage, error) {
	text = utils.SanitizeString(text)
	if text == "" {
		return nil, domain.ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > s.economy.MaxChatLength {
		return nil, domain.ErrMessageTooLong
	}

	session, err := s.activeSession(ctx, groupID)
	if err != nil {
		return nil, err
	}

	msg := domain.ChatMessage{
		ID:          s.rt.IDs.NewID("msg"),
		UserID:      userID,
		DisplayName: s.displayName(userID, displayName),
		Text:        text,
		Type:        domain.MessageChat,
		CreatedAt:   s.rt.Clock.Now(),
	}
	if err := session.Post(msg); err != nil {
		return nil, liveErr(err)
	}

	s.rt.Metrics.RecordChatMessage(domain.MessageChat)
	return &msg, nil
}

// SendLiveGift settles a gift to the session host. Settlement runs under the
// session lock, so the ledger transfer and the session append are a single
// step and nothing settles against a session that has ended.
func (s *liveService) SendLiveGift(ctx context.Context, groupID domain.GroupID, from domain.UserID, fromName, giftID string) (*domain.LiveGiftResult, error) {
	ctx, span := tracing.TraceLiveOperation(ctx, "send_gift", string(groupID))
	defer span.End()

	gift, err := domain.FindGift(giftID)
	if err != nil {
		return nil, err
	}
	session, err := s.activeSession(ctx, groupID)
	if err != nil {
		return nil, err
	}
	tracing.AddSpanAttributes(ctx, tracing.SessionIDKey.String(string(session.ID)))

	name := s.displayName(from, fromName)
	var receipt *domain.GiftReceipt
	event, err := session.RecordGift(func() (domain.GiftEvent, domain.ChatMessage, error) {
		r, err := s.wallets.SendGift(withLiveGift(ctx), from, session.HostUserID, gift.ID)
		if err != nil {
			return domain.GiftEvent{}, domain.ChatMessage{}, err
		}
		receipt = r

		now := s.rt.Clock.Now()
		event := domain.GiftEvent{
			ID:         s.rt.IDs.NewID("gift"),
			FromUserID: from,
			FromName:   name,
			GiftID:     gift.ID,
			GiftName:   gift.Name,
			GiftEmoji:  gift.Emoji,
			Coins:      gift.Coins,
			CreatedAt:  now,
		}
		msg := domain.ChatMessage{
			ID:          s.rt.IDs.NewID("msg"),
			UserID:      from,
			DisplayName: name,
			Text:        fmt.Sprintf("sent %s %s", gift.Emoji, gift.Name),
			Type:        domain.MessageGift,
			CreatedAt:   now,
		}
		return event, msg, nil
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, liveErr(err)
	}

	s.rt.Metrics.RecordChatMessage(domain.MessageGift)
	return &domain.LiveGiftResult{Event: event, Receipt: receipt}, nil
}

// PruneEnded forgets sessions that ended more than olderThan ago.
func (s *liveService) PruneEnded(ctx context.Context, olderThan time.Duration) (int, error) {
	pruned, err := s.sessions.PruneEnded(ctx, s.rt.Clock.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to prune live sessions: %w", err)
	}
	if pruned > 0 {
		s.rt.Logger.Infow("Pruned ended live sessions", "count", pruned)
	}
	return pruned, nil
}

func (s *liveService) systemMessage(text string) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        s.rt.IDs.NewID("msg"),
		Text:      text,
		Type:      domain.MessageSystem,
		CreatedAt: s.rt.Clock.Now(),
	}
}

func (s *liveService) displayName(userID domain.UserID, name string) string {
	name = utils.TruncateRunes(utils.SanitizeString(name), validation.MaxDisplayNameLength)
	if name == "" {
		return string(userID)
	}
	return name
}

// liveErr reports a session that ended mid-call as no longer active.
func liveErr(err error) error {
	if errors.Is(err, domain.ErrSessionEnded) {
		return domain.ErrNoActiveSession
	}
	return err
}
