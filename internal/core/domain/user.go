package domain

import "time"

// UserID is an opaque identifier supplied by the caller's identity provider.
type UserID string

type MemberRole string

const (
	RoleOwner     MemberRole = "owner"
	RoleModerator MemberRole = "moderator"
	RoleMember    MemberRole = "member"
)

type Member struct {
	UserID      UserID     `json:"user_id"`
	DisplayName string     `json:"display_name"`
	Role        MemberRole `json:"role"`
	JoinedAt    time.Time  `json:"joined_at"`
}
