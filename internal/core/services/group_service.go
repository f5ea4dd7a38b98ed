package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"giftcast/internal/core/domain"
	"giftcast/internal/core/ports"
	"giftcast/pkg/utils"
	"giftcast/pkg/validation"
)

const (
	inviteAlphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	inviteCodeLength = 8
)

// maxInviteAttempts bounds retries when a generated code is already taken.
const maxInviteAttempts = 16

type groupService struct {
	groupRepo ports.GroupRepository
	economy   EconomyConfig
	rt        Runtime
}

func NewGroupService(groupRepo ports.GroupRepository, economy EconomyConfig, rt Runtime) ports.GroupService {
	return &groupService{
		groupRepo: groupRepo,
		economy:   economy,
		rt:        rt.withDefaults(),
	}
}

func (s *groupService) CreateGroup(ctx context.Context, in ports.CreateGroupInput) (*domain.Group, error) {
	if err := validation.ValidateGroupName(in.Name); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := validation.ValidateDescription(in.Description); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := validation.ValidateDisplayName(in.OwnerName); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if in.OwnerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", domain.ErrInvalidInput)
	}

	now := s.rt.Clock.Now()
	ownerName := strings.TrimSpace(in.OwnerName)
	group := &domain.Group{
		ID:              domain.GroupID(s.rt.IDs.NewID("grp")),
		Name:            strings.TrimSpace(in.Name),
		Description:     strings.TrimSpace(in.Description),
		OwnerID:         in.OwnerID,
		OwnerName:       ownerName,
		AvatarEmoji:     in.AvatarEmoji,
		InviteExpiresAt: now.Add(s.economy.InviteTTL),
		CreatedAt:       now,
		Members: []domain.Member{{
			UserID:      in.OwnerID,
			DisplayName: ownerName,
			Role:        domain.RoleOwner,
			JoinedAt:    now,
		}},
	}

	var err error
	for attempt := 0; attempt < maxInviteAttempts; attempt++ {
		group.InviteCode = s.newInviteCode()
		err = s.groupRepo.Create(ctx, group)
		if !errors.Is(err, domain.ErrInviteCodeTaken) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	s.rt.Logger.Infow("Group created", "group_id", group.ID, "owner_id", group.OwnerID)
	s.rt.Notifier.NotifyChanged("group_created")
	return group.Clone(), nil
}

func (s *groupService) GetGroup(ctx context.Context, id domain.GroupID) (*domain.Group, error) {
	return s.groupRepo.GetByID(ctx, id)
}

func (s *groupService) ListGroupsForUser(ctx context.Context, userID domain.UserID) ([]*domain.Group, error) {
	groups, err := s.groupRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	mine := make([]*domain.Group, 0, len(groups))
	for _, g := range groups {
		if g.HasMember(userID) {
			mine = append(mine, g)
		}
	}
	return mine, nil
}

// JoinGroup admits userID through an invite code. An expired code is
// rotated and the joiner is still admitted; joining twice changes nothing.
func (s *groupService) JoinGroup(ctx context.Context, inviteCode string, userID domain.UserID, displayName string) (*domain.Group, error) {
	code := utils.NormalizeInviteCode(inviteCode)
	if err := validation.ValidateInviteCode(code); err != nil {
		return nil, domain.ErrInviteNotFound
	}
	if err := validation.ValidateDisplayName(displayName); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	displayName = strings.TrimSpace(displayName)

	for attempt := 0; attempt < maxInviteAttempts; attempt++ {
		found, err := s.groupRepo.GetByInviteCode(ctx, code)
		if err != nil {
			return nil, err
		}

		var joined, rotated bool
		group, err := s.groupRepo.Update(ctx, found.ID, func(g *domain.Group) error {
			// rotated or refreshed since the lookup
			if g.InviteCode != code {
				return domain.ErrInviteNotFound
			}
			now := s.rt.Clock.Now()
			if g.InviteExpired(now) {
				fresh, err := s.freshInviteCode(code)
				if err != nil {
					return err
				}
				g.InviteCode = fresh
				g.InviteExpiresAt = now.Add(s.economy.InviteTTL)
				rotated = true
			}
			if !g.HasMember(userID) {
				g.Members = append(g.Members, domain.Member{
					UserID:      userID,
					DisplayName: displayName,
					Role:        domain.RoleMember,
					JoinedAt:    now,
				})
				joined = true
			}
			return nil
		})
		if errors.Is(err, domain.ErrInviteCodeTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}

		if rotated {
			s.rt.Logger.Infow("Expired invite rotated on join", "group_id", group.ID)
		}
		if joined {
			s.rt.Logger.Infow("Member joined group", "group_id", group.ID, "user_id", userID)
		}
		if joined || rotated {
			s.rt.Notifier.NotifyChanged("group_joined")
		}
		return group, nil
	}
	return nil, fmt.Errorf("failed to join group: %w", domain.ErrInviteCodeTaken)
}

func (s *groupService) RefreshInvite(ctx context.Context, id domain.GroupID) (*domain.Group, error) {
	for attempt := 0; attempt < maxInviteAttempts; attempt++ {
		group, err := s.groupRepo.Update(ctx, id, func(g *domain.Group) error {
			fresh, err := s.freshInviteCode(g.InviteCode)
			if err != nil {
				return err
			}
			g.InviteCode = fresh
			g.InviteExpiresAt = s.rt.Clock.Now().Add(s.economy.InviteTTL)
			return nil
		})
		if errors.Is(err, domain.ErrInviteCodeTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.rt.Logger.Infow("Invite refreshed", "group_id", id)
		s.rt.Notifier.NotifyChanged("invite_refreshed")
		return group, nil
	}
	return nil, fmt.Errorf("failed to refresh invite: %w", domain.ErrInviteCodeTaken)
}

// DeleteGroup removes the group only; members' wallets are untouched.
func (s *groupService) DeleteGroup(ctx context.Context, id domain.GroupID) (bool, error) {
	if err := s.groupRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrGroupNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete group: %w", err)
	}

	s.rt.Logger.Infow("Group deleted", "group_id", id)
	s.rt.Notifier.NotifyChanged("group_deleted")
	return true, nil
}

// SetLive flips the broadcast flag. Live flags are cleared on restore, so
// this does not schedule a snapshot.
func (s *groupService) SetLive(ctx context.Context, id domain.GroupID, live bool, title string) error {
	_, err := s.groupRepo.Update(ctx, id, func(g *domain.Group) error {
		g.IsLive = live
		if live {
			g.LiveTitle = title
		} else {
			g.LiveTitle = ""
		}
		return nil
	})
	return err
}

func (s *groupService) newInviteCode() string {
	var b strings.Builder
	b.Grow(inviteCodeLength)
	for i := 0; i < inviteCodeLength; i++ {
		b.WriteByte(inviteAlphabet[s.rt.Random.Intn(len(inviteAlphabet))])
	}
	return b.String()
}

// freshInviteCode returns a code different from previous, giving up after
// maxInviteAttempts draws.
func (s *groupService) freshInviteCode(previous string) (string, error) {
	for attempt := 0; attempt < maxInviteAttempts; attempt++ {
		if code := s.newInviteCode(); code != previous {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: no fresh code after %d draws", domain.ErrInviteCodeTaken, maxInviteAttempts)
}
