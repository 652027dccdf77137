// Package auth resolves request credentials into a user identity.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/raphaelgruber/campusdesk/internal/apperr"
)

// Resolver turns a request credential into a user id.
type Resolver interface {
	Resolve(r *http.Request) (string, error)
}

// Claims is the token payload issued to users.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// JWTResolver validates HS256 bearer tokens.
type JWTResolver struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// Compile-time check that JWTResolver implements Resolver.
var _ Resolver = (*JWTResolver)(nil)

// NewJWTResolver creates a resolver for tokens signed with secret.
// A non-empty issuer is both stamped on issued tokens and required on
// resolved ones.
func NewJWTResolver(secret, issuer string) (*JWTResolver, error) {
	if secret == "" {
		return nil, apperr.ConfigMissing("JWT secret not configured")
	}
	return &JWTResolver{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Resolve reads the Authorization header and returns the token's user id.
func (j *JWTResolver) Resolve(r *http.Request) (string, error) {
	raw, err := bearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return "", err
	}
	return j.Parse(raw)
}

// Parse validates a raw token and returns its user id.
func (j *JWTResolver) Parse(raw string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return j.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperr.AuthRejected("Token expired", err)
		}
		return "", apperr.AuthRejected("Invalid token", err)
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return "", apperr.AuthRejected("Invalid token", errors.New("token has no user id"))
	}
	return userID, nil
}

// Issue signs a token for userID valid for ttl.
func (j *JWTResolver) Issue(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", apperr.Validation("user id is required")
	}
	now := j.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", apperr.AuthRejected("No token, authorization denied", nil)
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", apperr.AuthRejected("Malformed authorization header", nil)
	}
	return strings.TrimSpace(token), nil
}

type contextKey struct{}

// WithUserID stores the resolved user id in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserID returns the user id stored by WithUserID.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}
