package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/raphaelgruber/campusdesk/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T) *JWTResolver {
	t.Helper()
	r, err := NewJWTResolver("test-secret", "campusdesk")
	require.NoError(t, err)
	return r
}

func TestIssueAndResolve(t *testing.T) {
	j := newTestResolver(t)
	token, err := j.Issue("user-42", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/todos", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	userID, err := j.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestResolveRejects(t *testing.T) {
	j := newTestResolver(t)
	valid, err := j.Issue("user-42", time.Hour)
	require.NoError(t, err)

	other, err := NewJWTResolver("other-secret", "campusdesk")
	require.NoError(t, err)
	foreign, err := other.Issue("user-42", time.Hour)
	require.NoError(t, err)

	wrongIssuer, err := NewJWTResolver("test-secret", "someone-else")
	require.NoError(t, err)
	misissued, err := wrongIssuer.Issue("user-42", time.Hour)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "user-42"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic " + valid},
		{"no token", "Bearer "},
		{"garbage", "Bearer not.a.token"},
		{"wrong secret", "Bearer " + foreign},
		{"wrong issuer", "Bearer " + misissued},
		{"unsigned", "Bearer " + noneToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/todos", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			_, err := j.Resolve(req)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrAuthRejected)
			assert.Equal(t, 401, apperr.HTTPStatus(err))
		})
	}
}

func TestResolveExpired(t *testing.T) {
	j := newTestResolver(t)
	j.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := j.Issue("user-42", time.Hour)
	require.NoError(t, err)

	j.now = time.Now
	_, err = j.Parse(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrAuthRejected)
	assert.Contains(t, err.Error(), "Token expired")
}

func TestSubjectFallback(t *testing.T) {
	j := newTestResolver(t)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-7",
		Issuer:    "campusdesk",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	userID, err := j.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", userID)
}

func TestNewJWTResolverRequiresSecret(t *testing.T) {
	_, err := NewJWTResolver("", "")
	assert.ErrorIs(t, err, apperr.ErrConfigMissing)
}

func TestUserIDContext(t *testing.T) {
	_, ok := UserID(context.Background())
	assert.False(t, ok)

	id, ok := UserID(WithUserID(context.Background(), "user-1"))
	assert.True(t, ok)
	assert.Equal(t, "user-1", id)
}
