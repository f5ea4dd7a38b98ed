package http

import (
	"net/http"

	"giftcast/internal/core/domain"
	"giftcast/internal/core/ports"
	apperrors "giftcast/pkg/errors"

	"github.com/gin-gonic/gin"
)

// LiveHandler drives live sessions and serves the polling feed.
type LiveHandler struct {
	live   ports.LiveService
	feed   ports.FeedService
	groups ports.GroupService
}

func NewLiveHandler(live ports.LiveService, feed ports.FeedService, groups ports.GroupService) *LiveHandler {
	return &LiveHandler{live: live, feed: feed, groups: groups}
}

func (h *LiveHandler) SetupRoutes(api *gin.RouterGroup) {
	live := api.Group("/groups/:id/live")
	{
		live.GET("", h.GetLiveState)
		live.POST("/start", h.StartLive)
		live.POST("/end", h.EndLive)
		live.POST("/join", h.JoinLive)
		live.POST("/leave", h.LeaveLive)
		live.POST("/chat", h.SendChat)
		live.POST("/gifts", h.SendGift)
	}
	api.GET("/live/:sessionId", h.GetSessionState)
}

func (h *LiveHandler) StartLive(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	session, err := h.live.StartLive(c.Request.Context(), domain.GroupID(c.Param("id")), id.UserID, req.Title)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// EndLive is allowed to the host and to the group owner.
func (h *LiveHandler) EndLive(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	groupID := domain.GroupID(c.Param("id"))

	state, err := h.feed.GetLiveState(ctx, groupID, 0)
	if err != nil {
		fail(c, err)
		return
	}
	if state != nil && state.HostUserID != id.UserID {
		group, err := h.groups.GetGroup(ctx, groupID)
		if err != nil && !domain.IsNotFound(err) {
			fail(c, err)
			return
		}
		if group == nil || group.OwnerID != id.UserID {
			fail(c, apperrors.NewForbiddenError("only the host or the group owner can end the live"))
			return
		}
	}

	ended, err := h.live.EndLive(ctx, groupID, id.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ended": ended})
}

func (h *LiveHandler) JoinLive(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req struct {
		DisplayName string `json:"display_name"`
	}
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	session, err := h.live.JoinLive(c.Request.Context(), domain.GroupID(c.Param("id")), id.UserID, displayName(id, req.DisplayName))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *LiveHandler) LeaveLive(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	session, err := h.live.LeaveLive(c.Request.Context(), domain.GroupID(c.Param("id")), id.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *LiveHandler) SendChat(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req struct {
		Text        string `json:"text"`
		DisplayName string `json:"display_name"`
	}
	if !bindJSON(c, &req) {
		return
	}

	msg, err := h.live.SendChat(c.Request.Context(), domain.GroupID(c.Param("id")), id.UserID, displayName(id, req.DisplayName), req.Text)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

func (h *LiveHandler) SendGift(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req struct {
		GiftID      string `json:"gift_id"`
		DisplayName string `json:"display_name"`
	}
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.live.SendLiveGift(c.Request.Context(), domain.GroupID(c.Param("id")), id.UserID, displayName(id, req.DisplayName), req.GiftID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetLiveState is the polling endpoint. state is null when the group is not
// live.
func (h *LiveHandler) GetLiveState(c *gin.Context) {
	cursor, ok := cursorParam(c)
	if !ok {
		return
	}
	state, err := h.feed.GetLiveState(c.Request.Context(), domain.GroupID(c.Param("id")), cursor)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *LiveHandler) GetSessionState(c *gin.Context) {
	cursor, ok := cursorParam(c)
	if !ok {
		return
	}
	state, err := h.feed.GetSessionState(c.Request.Context(), domain.SessionID(c.Param("sessionId")), cursor)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}
