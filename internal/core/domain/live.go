package domain

import (
	"sync"
	"time"
)

type SessionID string

type MessageType string

const (
	MessageChat   MessageType = "chat"
	MessageSystem MessageType = "system"
	MessageGift   MessageType = "gift"
)

type ChatMessage struct {
	ID          string      `json:"id"`
	UserID      UserID      `json:"user_id"`
	DisplayName string      `json:"display_name"`
	Text        string      `json:"text"`
	Type        MessageType `json:"type"`
	CreatedAt   time.Time   `json:"created_at"`
}

type GiftEvent struct {
	ID         string    `json:"id"`
	FromUserID UserID    `json:"from_user_id"`
	FromName   string    `json:"from_name"`
	GiftID     string    `json:"gift_id"`
	GiftName   string    `json:"gift_name"`
	GiftEmoji  string    `json:"gift_emoji"`
	Coins      int64     `json:"coins"`
	CreatedAt  time.Time `json:"created_at"`
}

// LiveSession is an in-memory broadcast scoped to one group. Every append
// goes through the session mutex, which makes it the single ordering point
// for chat and gift activity. Once ended it rejects further mutation.
type LiveSession struct {
	ID         SessionID
	GroupID    GroupID
	Title      string
	HostUserID UserID
	HostName   string
	StartedAt  time.Time

	mu         sync.Mutex
	active     bool
	endedAt    *time.Time
	viewers    map[UserID]struct{}
	messages   *MessageLog
	gifts      []GiftEvent
	totalCoins int64
}

func NewLiveSession(id SessionID, groupID GroupID, title string, host UserID, hostName string, startedAt time.Time, retention int) *LiveSession {
	return &LiveSession{
		ID:         id,
		GroupID:    groupID,
		Title:      title,
		HostUserID: host,
		HostName:   hostName,
		StartedAt:  startedAt,
		active:     true,
		viewers:    make(map[UserID]struct{}),
		messages:   NewMessageLog(retention),
	}
}

func (s *LiveSession) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// EndedAt returns the end time, or nil while the session is running.
func (s *LiveSession) EndedAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.endedAt == nil {
		return nil
	}
	t := *s.endedAt
	return &t
}

// Post appends msg to the chat log.
func (s *LiveSession) Post(msg ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return ErrSessionEnded
	}
	s.messages.Append(msg)
	return nil
}

// AddViewer adds userID to the viewer set. The notice is appended only when
// the viewer is new.
func (s *LiveSession) AddViewer(userID UserID, notice ChatMessage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return false, ErrSessionEnded
	}
	if _, ok := s.viewers[userID]; ok {
		return false, nil
	}
	s.viewers[userID] = struct{}{}
	s.messages.Append(notice)
	return true, nil
}

func (s *LiveSession) RemoveViewer(userID UserID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return false, ErrSessionEnded
	}
	if _, ok := s.viewers[userID]; !ok {
		return false, nil
	}
	delete(s.viewers, userID)
	return true, nil
}

// End marks the session inactive and appends the closing notice. It returns
// false if the session had already ended.
func (s *LiveSession) End(at time.Time, notice ChatMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return false
	}
	s.messages.Append(notice)
	s.active = false
	s.endedAt = &at
	return true
}

// RecordGift runs settle while holding the session lock, so a gift can never
// settle against a session that ends concurrently. On success the returned
// event and message are appended and the coin total is advanced.
func (s *LiveSession) RecordGift(settle func() (GiftEvent, ChatMessage, error)) (GiftEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return GiftEvent{}, ErrSessionEnded
	}
	event, msg, err := settle()
	if err != nil {
		return GiftEvent{}, err
	}
	s.gifts = append(s.gifts, event)
	s.messages.Append(msg)
	s.totalCoins += event.Coins
	return event, nil
}

// Summary returns the session header fields without the chat log.
func (s *LiveSession) Summary() SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked()
}

// State returns a consistent read of the session: chat since cursor plus the
// most recent gift events.
func (s *LiveSession) State(cursor int64, recentGifts int) *LiveState {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, truncated := s.messages.Since(cursor)
	return &LiveState{
		SessionSummary: s.summaryLocked(),
		Messages:       msgs,
		TotalMessages:  s.messages.Total(),
		OldestCursor:   s.messages.Offset(),
		Truncated:      truncated,
		RecentGifts:    lastGifts(s.gifts, recentGifts),
	}
}

func (s *LiveSession) summaryLocked() SessionSummary {
	sum := SessionSummary{
		SessionID:       s.ID,
		GroupID:         s.GroupID,
		Title:           s.Title,
		HostUserID:      s.HostUserID,
		HostName:        s.HostName,
		ViewerCount:     len(s.viewers),
		IsActive:        s.active,
		TotalGiftsCoins: s.totalCoins,
		GiftCount:       len(s.gifts),
		StartedAt:       s.StartedAt,
	}
	if s.endedAt != nil {
		t := *s.endedAt
		sum.EndedAt = &t
	}
	return sum
}

func lastGifts(events []GiftEvent, n int) []GiftEvent {
	if n <= 0 || len(events) == 0 {
		return []GiftEvent{}
	}
	if len(events) < n {
		n = len(events)
	}
	out := make([]GiftEvent, n)
	copy(out, events[len(events)-n:])
	return out
}

type SessionSummary struct {
	SessionID       SessionID  `json:"session_id"`
	GroupID         GroupID    `json:"group_id"`
	Title           string     `json:"title"`
	HostUserID      UserID     `json:"host_user_id"`
	HostName        string     `json:"host_name"`
	ViewerCount     int        `json:"viewer_count"`
	IsActive        bool       `json:"is_active"`
	TotalGiftsCoins int64      `json:"total_gifts_coins"`
	GiftCount       int        `json:"gift_count"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
}

// LiveState is one poll of the delta feed. TotalMessages is the cursor for
// the next poll.
type LiveState struct {
	SessionSummary
	Messages      []ChatMessage `json:"messages"`
	TotalMessages int64         `json:"total_messages"`
	OldestCursor  int64         `json:"oldest_cursor"`
	Truncated     bool          `json:"truncated"`
	RecentGifts   []GiftEvent   `json:"recent_gifts"`
}

// LiveGiftResult pairs the session event with the ledger receipt.
type LiveGiftResult struct {
	Event   GiftEvent    `json:"event"`
	Receipt *GiftReceipt `json:"receipt"`
}
