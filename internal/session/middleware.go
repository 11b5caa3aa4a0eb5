package session

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/modelgate-platform/modelgate/internal/api"
)

// User is owned by the identity subsystem; the policy engine reads it for
// session hydration, admin listings, and tier reference counting. It is
// declared here (and aliased as users.User) so that session does not depend
// on the users package.
type User struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	SubscriptionType string    `json:"subscription_type"`
	IsAdmin          bool      `json:"is_admin"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// UserSource supplies the current user record for session hydration.
type UserSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// Middleware validates the bearer token and attaches a Session to the
// request context. The user row is fetched fresh each time: tier and admin
// flags must never be trusted from a token minted before an admin edit.
func Middleware(jwtMgr *JWTManager, source UserSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			claims, err := jwtMgr.Validate(parts[1])
			if err != nil {
				api.HandleError(w, api.ErrInvalidToken)
				return
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				api.HandleError(w, api.ErrInvalidToken)
				return
			}

			user, err := source.GetByID(r.Context(), userID)
			if err != nil {
				api.HandleError(w, api.ErrInternalServer)
				return
			}
			if user == nil {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			sess := &Session{
				UserID:           user.ID,
				Email:            user.Email,
				SubscriptionType: user.SubscriptionType,
				IsAdmin:          user.IsAdmin,
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}
