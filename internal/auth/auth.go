// Package auth verifies access tokens issued by the hosted auth service and
// carries the current user through the request context.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type User struct {
	ID    string
	Email string
	Role  string
	// Token is the raw access token, forwarded to the storage service.
	Token string
}

// Claims mirrors the access token payload of the hosted auth service.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret   []byte
	audience string
}

func NewVerifier(secret, audience string) *Verifier {
	return &Verifier{secret: []byte(secret), audience: audience}
}

func (v *Verifier) Verify(tokenString string) (*User, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}

	return &User{
		ID:    claims.Subject,
		Email: claims.Email,
		Role:  claims.Role,
		Token: tokenString,
	}, nil
}

type ctxKey string

const userKey ctxKey = "auth.user"

func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// CurrentUser returns the authenticated user, if any.
func CurrentUser(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userKey).(*User)
	return u, ok && u != nil
}

// CurrentUserID returns the authenticated user's id or "" when there is none.
func CurrentUserID(ctx context.Context) string {
	if u, ok := CurrentUser(ctx); ok {
		return u.ID
	}
	return ""
}
