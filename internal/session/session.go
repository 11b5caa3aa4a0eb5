// Package session turns a bearer token into the identity the policy engine
// consumes: who the user is, their subscription type, and whether they are
// an admin. The subscription type and admin flag are re-read from the user
// store on every request so administrative changes take effect immediately.
package session

import (
	"context"

	"github.com/google/uuid"
)

// Session is the per-request identity. A nil *Session means the request is
// unauthenticated.
type Session struct {
	UserID           uuid.UUID
	Email            string
	SubscriptionType string
	IsAdmin          bool
}

type contextKey string

const sessionKey contextKey = "session"

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// FromContext returns the request's session, or nil if unauthenticated.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey).(*Session)
	return s
}
