// Package session carries the signed-in user through a request context.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNoSession is returned when an operation needs a user but the context has none.
var ErrNoSession = errors.New("session: no user in context")

// Session identifies the user on whose behalf an operation runs.
type Session struct {
	UserID    string // DID
	Username  string
	Address   string
	StartedAt time.Time
}

type ctxKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored in ctx.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	if !ok || s.UserID == "" {
		return Session{}, false
	}
	return s, true
}

// Require is FromContext that reports a missing session as ErrNoSession.
func Require(ctx context.Context) (Session, error) {
	s, ok := FromContext(ctx)
	if !ok {
		return Session{}, ErrNoSession
	}
	return s, nil
}
