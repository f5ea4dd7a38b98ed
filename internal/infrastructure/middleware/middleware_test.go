package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"giftcast/internal/core/domain"
	"giftcast/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

const testSecret = "test-secret"

var testNow = time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)

func signToken(t *testing.T, subject, name, issuer string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(testNow),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func identityRouter(verifier *TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(IdentityMiddleware(verifier))
	router.GET("/whoami", func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		c.JSON(http.StatusOK, gin.H{
			"ok":       ok,
			"user_id":  id.UserID,
			"name":     id.DisplayName,
			"verified": id.Verified,
			"ctx_user": logger.UserIDFrom(c.Request.Context()),
		})
	})
	router.GET("/private", RequireIdentity(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func doRequest(router http.Handler, path string, headers map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	router.ServeHTTP(w, req)
	var body map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestIdentityMiddleware_Headers(t *testing.T) {
	router := identityRouter(nil)

	_, body := doRequest(router, "/whoami", map[string]string{HeaderUserID: "u-42", HeaderDisplayName: "Leo"})
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "u-42", body["user_id"])
	assert.Equal(t, "Leo", body["name"])
	assert.Equal(t, false, body["verified"])
	assert.Equal(t, "u-42", body["ctx_user"])

	_, body = doRequest(router, "/whoami", map[string]string{HeaderDisplayName: "Ana María"})
	assert.Equal(t, "ana-maria", body["user_id"], "display name is slugified")

	_, body = doRequest(router, "/whoami", nil)
	assert.Equal(t, false, body["ok"])

	w, _ := doRequest(router, "/private", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = doRequest(router, "/private", map[string]string{HeaderUserID: "u-42"})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestIdentityMiddleware_BearerTokens(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	router := identityRouter(NewTokenVerifier(testSecret, "giftcast", clock))

	token := signToken(t, "ana", "Ana", "giftcast", testNow.Add(time.Hour))
	w, body := doRequest(router, "/whoami", map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana", body["user_id"])
	assert.Equal(t, "Ana", body["name"])
	assert.Equal(t, true, body["verified"])

	w, _ = doRequest(router, "/whoami", map[string]string{HeaderUserID: "ana"})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "headers are ignored when tokens are required")

	w, _ = doRequest(router, "/whoami", map[string]string{"Authorization": "Token " + token})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	foreign := signToken(t, "ana", "Ana", "someone-else", testNow.Add(time.Hour))
	w, _ = doRequest(router, "/whoami", map[string]string{"Authorization": "Bearer " + foreign})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	clock.Advance(2 * time.Hour)
	w, body = doRequest(router, "/whoami", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, ErrExpiredToken.Error(), body["message"])
}

func TestTokenVerifier_RejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "ana"},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewTokenVerifier(testSecret, "", nil).Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func errorRouter(t *testing.T, err error) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlerMiddleware(zaptest.NewLogger(t).Sugar()), RecoveryMiddleware(zaptest.NewLogger(t).Sugar()))
	router.GET("/fail", func(c *gin.Context) {
		_ = c.Error(err)
	})
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return router
}

func TestErrorHandlerMiddleware_MapsDomainErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrGroupNotFound, http.StatusNotFound, "NOT_FOUND"},
		{domain.ErrInsufficientBalance, http.StatusBadRequest, "INSUFFICIENT_BALANCE"},
		{fmt.Errorf("%w: name too long", domain.ErrInvalidInput), http.StatusBadRequest, "INVALID_INPUT"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		w, body := doRequest(errorRouter(t, tc.err), "/fail", nil)
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		assert.Equal(t, tc.code, body["error"])
	}

	_, body := doRequest(errorRouter(t, errors.New("disk on fire")), "/fail", nil)
	assert.NotContains(t, body["message"], "disk", "internal causes stay in the logs")
}

func TestRecoveryMiddleware(t *testing.T) {
	w, body := doRequest(errorRouter(t, nil), "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", body["error"])
}

func TestRequestLoggerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	router := gin.New()
	router.Use(RequestLoggerMiddleware(logger.NewContextLogger(zap.New(core)), clockwork.NewFakeClock()))
	router.Use(IdentityMiddleware(nil))
	router.GET("/groups/:id", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	w, _ := doRequest(router, "/groups/grp_1", map[string]string{HeaderRequestID: "req-1", HeaderUserID: "leo"})
	assert.Equal(t, "req-1", w.Header().Get(HeaderRequestID))

	w, _ = doRequest(router, "/groups/grp_2", nil)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID), "an id is generated when absent")

	entries := logs.All()
	require.Len(t, entries, 2)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "leo", fields["user_id"])
	assert.Equal(t, "/groups/:id", fields["path"])
	assert.Equal(t, int64(http.StatusNotFound), fields["status_code"])
}
