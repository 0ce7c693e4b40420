// Package session carries the acting user's identity explicitly through the
// console. Controllers receive a Session in their constructors; nothing reads a
// process-wide current user.
package session

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrBadToken is returned when a bearer token cannot be parsed or verified.
var ErrBadToken = errors.New("invalid token")

// ErrNoSession is returned when a request carries no session.
var ErrNoSession = errors.New("no session")

// Session is the authenticated operator on whose behalf backend calls are made.
type Session struct {
	UserID string
	Token  string
}

// Valid reports whether the session identifies a user.
func (s Session) Valid() bool {
	return s.UserID != "" && s.Token != ""
}

// Claims mirrors the backend's access token claims.
type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// subject prefers the uid claim and falls back to sub.
func (c *Claims) subject() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// Parse verifies an HS256 token against secret and returns the session it names.
func Parse(raw, secret string) (Session, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return Session{}, ErrNoSession
	}

	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Session{}, errors.Join(ErrBadToken, err)
	}

	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || c.subject() == "" {
		return Session{}, ErrBadToken
	}
	return Session{UserID: c.subject(), Token: raw}, nil
}

// ParseUnverified reads the user id out of a token without checking its
// signature. The CLI uses it with tokens the backend will verify anyway.
func ParseUnverified(raw string) (Session, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return Session{}, ErrNoSession
	}

	var c Claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &c); err != nil {
		return Session{}, errors.Join(ErrBadToken, err)
	}
	if c.subject() == "" {
		return Session{}, ErrBadToken
	}
	return Session{UserID: c.subject(), Token: raw}, nil
}

type ctxKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by WithSession.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}
