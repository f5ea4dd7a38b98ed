package services

import (
	"context"
	"errors"

	"giftcast/internal/core/domain"
	"giftcast/internal/core/ports"
)

type feedService struct {
	sessions ports.SessionRepository
	economy  EconomyConfig
	rt       Runtime
}

func NewFeedService(sessions ports.SessionRepository, economy EconomyConfig, rt Runtime) ports.FeedService {
	return &feedService{
		sessions: sessions,
		economy:  economy,
		rt:       rt.withDefaults(),
	}
}

// GetLiveState serves one poll. Messages start at afterCursor, clamped into
// the retained window, and TotalMessages is the cursor for the next poll.
// Summary fields and RecentGifts are refreshed on every call.
func (s *feedService) GetLiveState(ctx context.Context, groupID domain.GroupID, afterCursor int64) (*domain.LiveState, error) {
	session, err := s.sessions.GetActive(ctx, groupID)
	if errors.Is(err, domain.ErrNoActiveSession) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.poll(session, afterCursor), nil
}

// GetSessionState reads a session by id, including ended sessions that are
// still retained.
func (s *feedService) GetSessionState(ctx context.Context, id domain.SessionID, afterCursor int64) (*domain.LiveState, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.poll(session, afterCursor), nil
}

func (s *feedService) poll(session *domain.LiveSession, afterCursor int64) *domain.LiveState {
	state := session.State(afterCursor, s.economy.RecentGifts)
	s.rt.Metrics.RecordFeedPoll(state.Truncated)
	if state.Truncated {
		s.rt.Logger.Debugw("Feed cursor behind retained window",
			"session_id", state.SessionID,
			"cursor", afterCursor,
			"oldest_cursor", state.OldestCursor,
		)
	}
	return state
}
