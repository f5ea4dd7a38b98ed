package http

import (
	"net/http"

	"giftcast/internal/core/domain"
	"giftcast/internal/core/ports"
	apperrors "giftcast/pkg/errors"

	"github.com/gin-gonic/gin"
)

type GroupHandler struct {
	groups ports.GroupService
	live   ports.LiveService
}

func NewGroupHandler(groups ports.GroupService, live ports.LiveService) *GroupHandler {
	return &GroupHandler{groups: groups, live: live}
}

func (h *GroupHandler) SetupRoutes(api *gin.RouterGroup) {
	api.POST("/groups", h.CreateGroup)
	api.GET("/groups", h.ListGroups)
	api.POST("/groups/join", h.JoinGroup)
	api.GET("/groups/:id", h.GetGroup)
	api.POST("/groups/:id/invite", h.RefreshInvite)
	api.DELETE("/groups/:id", h.DeleteGroup)
}

func (h *GroupHandler) CreateGroup(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		AvatarEmoji string `json:"avatar_emoji"`
		OwnerName   string `json:"owner_name"`
	}
	if !bindJSON(c, &req) {
		return
	}

	group, err := h.groups.CreateGroup(c.Request.Context(), ports.CreateGroupInput{
		Name:        req.Name,
		Description: req.Description,
		AvatarEmoji: req.AvatarEmoji,
		OwnerID:     id.UserID,
		OwnerName:   displayName(id, req.OwnerName),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"group": group})
}

func (h *GroupHandler) ListGroups(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	groups, err := h.groups.ListGroupsForUser(c.Request.Context(), id.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups, "count": len(groups)})
}

func (h *GroupHandler) GetGroup(c *gin.Context) {
	group, err := h.groups.GetGroup(c.Request.Context(), domain.GroupID(c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": group})
}

func (h *GroupHandler) JoinGroup(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req struct {
		InviteCode  string `json:"invite_code"`
		DisplayName string `json:"display_name"`
	}
	if !bindJSON(c, &req) {
		return
	}

	group, err := h.groups.JoinGroup(c.Request.Context(), req.InviteCode, id.UserID, displayName(id, req.DisplayName))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": group})
}

// RefreshInvite issues a new invite code. Only the owner may rotate it.
func (h *GroupHandler) RefreshInvite(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	groupID := domain.GroupID(c.Param("id"))
	group, err := h.groups.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		fail(c, err)
		return
	}
	if group.OwnerID != id.UserID {
		fail(c, apperrors.NewForbiddenError("only the owner can refresh the invite"))
		return
	}

	group, err = h.groups.RefreshInvite(c.Request.Context(), groupID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"invite_code":       group.InviteCode,
		"invite_expires_at": group.InviteExpiresAt,
	})
}

// DeleteGroup is reserved to the owner and ends a running live first.
// Deleting an absent group reports deleted=false.
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	groupID := domain.GroupID(c.Param("id"))
	group, err := h.groups.GetGroup(c.Request.Context(), groupID)
	if err != nil && !domain.IsNotFound(err) {
		fail(c, err)
		return
	}
	if group != nil && group.OwnerID != id.UserID {
		fail(c, apperrors.NewForbiddenError("only the owner can delete the group"))
		return
	}

	deleted, err := h.live.DeleteGroup(c.Request.Context(), groupID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
