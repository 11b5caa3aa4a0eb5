// Package gate centralizes the two authorization decisions the rest of the
// system relies on, instead of re-checking roles at each call site. It only
// decides; mapping a decision to an HTTP response stays with the caller.
package gate

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/modelgate-platform/modelgate/internal/api"
	"github.com/modelgate-platform/modelgate/internal/session"
)

var (
	// ErrUnauthenticated means no active session accompanied the request.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the session exists but lacks the required privilege.
	ErrForbidden = errors.New("forbidden")
)

// AuthorizeAdmin gates registry mutations and cross-user reads.
func AuthorizeAdmin(s *session.Session) error {
	if s == nil {
		return ErrUnauthenticated
	}
	if !s.IsAdmin {
		return ErrForbidden
	}
	return nil
}

// AuthorizeOwner gates access to a single user's own records. Admin status
// is irrelevant here: only the owner passes.
func AuthorizeOwner(s *session.Session, ownerID uuid.UUID) error {
	if s == nil {
		return ErrUnauthenticated
	}
	if s.UserID != ownerID {
		return ErrForbidden
	}
	return nil
}

// AdminOnly is the HTTP form of AuthorizeAdmin, for mounting on admin routes.
// It expects session.Middleware to have run first.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch err := AuthorizeAdmin(session.FromContext(r.Context())); {
		case errors.Is(err, ErrUnauthenticated):
			api.HandleError(w, api.ErrUnauthorized)
		case errors.Is(err, ErrForbidden):
			api.HandleError(w, api.ErrForbidden)
		default:
			next.ServeHTTP(w, r)
		}
	})
}
