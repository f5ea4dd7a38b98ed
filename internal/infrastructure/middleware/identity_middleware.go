package middleware

import (
	"errors"
	"strings"

	"giftcast/internal/core/domain"
	apperrors "giftcast/pkg/errors"
	"giftcast/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gosimple/slug"
	"github.com/jonboulle/clockwork"
)

const (
	identityKey = "identity"

	HeaderUserID      = "X-User-ID"
	HeaderDisplayName = "X-Display-Name"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Identity is the caller as resolved from the request. UserID is opaque to
// the core.
type Identity struct {
	UserID      domain.UserID
	DisplayName string
	Verified    bool
}

// Claims are issued by the external auth service. The subject is the user id.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// TokenVerifier checks HS256 bearer tokens. It never issues them.
type TokenVerifier struct {
	secret []byte
	issuer string
	clock  clockwork.Clock
}

func NewTokenVerifier(secret, issuer string, clock clockwork.Clock) *TokenVerifier {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenVerifier{secret: []byte(secret), issuer: issuer, clock: clock}
}

func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.clock.Now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IdentityMiddleware resolves the caller. With a verifier every request
// must carry a valid bearer token. Without one the X-User-ID header is
// trusted, falling back to a slug of X-Display-Name; requests with neither
// stay anonymous.
func IdentityMiddleware(verifier *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var id Identity
		if verifier != nil {
			claims, err := bearerClaims(c, verifier)
			if err != nil {
				abortWith(c, apperrors.NewUnauthorizedError(err.Error()))
				return
			}
			id = Identity{
				UserID:      domain.UserID(claims.Subject),
				DisplayName: claims.Name,
				Verified:    true,
			}
		} else {
			id = headerIdentity(c)
		}

		if id.UserID != "" {
			c.Set(identityKey, id)
			c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), string(id.UserID)))
		}
		c.Next()
	}
}

func bearerClaims(c *gin.Context, verifier *TokenVerifier) (*Claims, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, errors.New("authorization header required")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, errors.New("invalid authorization header format")
	}
	return verifier.Verify(strings.TrimSpace(parts[1]))
}

func headerIdentity(c *gin.Context) Identity {
	name := strings.TrimSpace(c.GetHeader(HeaderDisplayName))
	userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
	if userID == "" && name != "" {
		userID = slug.Make(name)
	}
	return Identity{UserID: domain.UserID(userID), DisplayName: name}
}

// RequireIdentity rejects anonymous requests.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentIdentity(c); !ok {
			abortWith(c, apperrors.NewUnauthorizedError("caller identity required"))
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the identity resolved by IdentityMiddleware.
func CurrentIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

func abortWith(c *gin.Context, appErr *apperrors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, gin.H{
		"error":   string(appErr.Code),
		"message": appErr.Message,
	})
}
