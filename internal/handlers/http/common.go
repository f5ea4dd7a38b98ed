package http

import (
	"fmt"
	"strconv"
	"strings"

	"giftcast/internal/core/domain"
	"giftcast/internal/infrastructure/middleware"
	apperrors "giftcast/pkg/errors"

	"github.com/gin-gonic/gin"
)

// fail hands err to ErrorHandlerMiddleware and stops the chain.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func invalid(c *gin.Context, format string, args ...interface{}) {
	fail(c, fmt.Errorf("%w: %s", domain.ErrInvalidInput, fmt.Sprintf(format, args...)))
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		invalid(c, "malformed request body: %v", err)
		return false
	}
	return true
}

// caller returns the resolved identity or fails the request with 401.
func caller(c *gin.Context) (middleware.Identity, bool) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		fail(c, apperrors.NewUnauthorizedError("caller identity required"))
		return middleware.Identity{}, false
	}
	return id, true
}

// displayName picks the first non-blank name, then the user id.
func displayName(id middleware.Identity, names ...string) string {
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			return n
		}
	}
	if n := strings.TrimSpace(id.DisplayName); n != "" {
		return n
	}
	return string(id.UserID)
}

// cursorParam reads the after query parameter. Missing means 0.
func cursorParam(c *gin.Context) (int64, bool) {
	raw := c.Query("after")
	if raw == "" {
		return 0, true
	}
	cursor, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		invalid(c, "after must be an integer")
		return 0, false
	}
	return cursor, true
}
