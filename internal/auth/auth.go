// Package auth identifies API callers from HS256 bearer tokens.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"todo-planner/internal/errs"
)

const (
	claimUserID = "userId"
	ctxUserID   = "userId"
)

// Verifier checks bearer tokens signed with a shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify returns the user id carried by token.
func (v *Verifier) Verify(token string) (uint, error) {
	if len(v.secret) == 0 {
		return 0, fmt.Errorf("%w: no signing secret configured", errs.ErrUnauthenticated)
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrUnauthenticated, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return 0, fmt.Errorf("%w: invalid token claims", errs.ErrUnauthenticated)
	}
	raw, ok := claims[claimUserID].(float64)
	if !ok || raw < 1 || raw != float64(uint(raw)) {
		return 0, fmt.Errorf("%w: invalid userId in token claims", errs.ErrUnauthenticated)
	}
	return uint(raw), nil
}

// Issue signs a token for userID. A zero ttl means the token never expires.
func Issue(secret string, userID uint, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("signing secret is empty")
	}
	claims := jwt.MapClaims{
		claimUserID: userID,
		"iat":       now.Unix(),
	}
	if ttl > 0 {
		claims["exp"] = now.Add(ttl).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Middleware resolves the caller. A request without a token passes through
// anonymously unless required is set; a request with a bad token is always
// rejected.
func Middleware(v *Verifier, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			if required {
				unauthenticated(c)
				return
			}
			c.Next()
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			unauthenticated(c)
			return
		}
		userID, err := v.Verify(strings.TrimSpace(token))
		if err != nil {
			_ = c.Error(err)
			unauthenticated(c)
			return
		}
		c.Set(ctxUserID, userID)
		c.Next()
	}
}

// UserID returns the authenticated caller, or nil for anonymous requests.
func UserID(c *gin.Context) *uint {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return nil
	}
	id, ok := v.(uint)
	if !ok {
		return nil
	}
	return &id
}

func unauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthenticated."})
}
