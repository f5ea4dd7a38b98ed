package domain

import (
	"time"
)

type GroupID string

type Group struct {
	ID              GroupID   `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	OwnerID         UserID    `json:"owner_id"`
	OwnerName       string    `json:"owner_name"`
	AvatarEmoji     string    `json:"avatar_emoji"`
	InviteCode      string    `json:"invite_code"`
	InviteExpiresAt time.Time `json:"invite_expires_at"`
	CreatedAt       time.Time `json:"created_at"`
	Members         []Member  `json:"members"`
	IsLive          bool      `json:"is_live"`
	LiveTitle       string    `json:"live_title,omitempty"`
}

// HasMember reports whether userID is already in the member list.
func (g *Group) HasMember(userID UserID) bool {
	_, ok := g.Member(userID)
	return ok
}

func (g *Group) Member(userID UserID) (Member, bool) {
	for _, m := range g.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return Member{}, false
}

// InviteExpired reports whether the invite code is no longer valid at now.
func (g *Group) InviteExpired(now time.Time) bool {
	return !now.Before(g.InviteExpiresAt)
}

// Clone returns a deep copy so callers never share the member slice.
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	c := *g
	c.Members = make([]Member, len(g.Members))
	copy(c.Members, g.Members)
	return &c
}
