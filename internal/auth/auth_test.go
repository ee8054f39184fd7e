package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-planner/internal/errs"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestIssueAndVerify(t *testing.T) {
	token, err := Issue("secret", 42, time.Hour, time.Now())
	require.NoError(t, err)

	id, err := NewVerifier("secret").Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	_, err = NewVerifier("other").Verify(token)
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)

	_, err = NewVerifier("").Verify(token)
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)

	_, err = Issue("", 1, 0, time.Now())
	assert.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	token, err := Issue("secret", 1, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = NewVerifier("secret").Verify(token)
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)
}

func TestVerifyRejectsBadClaims(t *testing.T) {
	sign := func(claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		return s
	}
	v := NewVerifier("secret")

	for name, claims := range map[string]jwt.MapClaims{
		"missing":  {"sub": "1"},
		"string":   {"userId": "1"},
		"zero":     {"userId": 0},
		"fraction": {"userId": 1.5},
	} {
		_, err := v.Verify(sign(claims))
		assert.ErrorIs(t, err, errs.ErrUnauthenticated, name)
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"userId": 1}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = v.Verify(hs512)
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)
}

func newRouter(required bool) *gin.Engine {
	r := gin.New()
	r.Use(Middleware(NewVerifier("secret"), required))
	r.GET("/whoami", func(c *gin.Context) {
		if id := UserID(c); id != nil {
			c.JSON(http.StatusOK, gin.H{"user_id": *id})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": nil})
	})
	return r
}

func call(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware(t *testing.T) {
	token, err := Issue("secret", 7, 0, time.Now())
	require.NoError(t, err)

	required := newRouter(true)
	w := call(required, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"message":"Unauthenticated."}`, w.Body.String())

	w = call(required, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7}`, w.Body.String())

	w = call(required, "Token "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	optional := newRouter(false)
	w = call(optional, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":null}`, w.Body.String())

	w = call(optional, "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
