package gate

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/modelgate-platform/modelgate/internal/session"
)

func TestAuthorizeAdmin(t *testing.T) {
	assert.ErrorIs(t, AuthorizeAdmin(nil), ErrUnauthenticated)

	member := &session.Session{UserID: uuid.New(), IsAdmin: false}
	assert.ErrorIs(t, AuthorizeAdmin(member), ErrForbidden)

	admin := &session.Session{UserID: uuid.New(), IsAdmin: true}
	assert.NoError(t, AuthorizeAdmin(admin))
}

func TestAuthorizeOwner(t *testing.T) {
	ownerID := uuid.New()

	assert.ErrorIs(t, AuthorizeOwner(nil, ownerID), ErrUnauthenticated)

	stranger := &session.Session{UserID: uuid.New()}
	assert.ErrorIs(t, AuthorizeOwner(stranger, ownerID), ErrForbidden)

	// Admin status does not grant ownership.
	adminStranger := &session.Session{UserID: uuid.New(), IsAdmin: true}
	assert.ErrorIs(t, AuthorizeOwner(adminStranger, ownerID), ErrForbidden)

	owner := &session.Session{UserID: ownerID}
	assert.NoError(t, AuthorizeOwner(owner, ownerID))
}

func TestAdminOnly(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := AdminOnly(next)

	// No session
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/tiers", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Non-admin session
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/tiers", nil)
	ctx := session.WithSession(req.Context(), &session.Session{UserID: uuid.New()})
	handler.ServeHTTP(rec, req.WithContext(ctx))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Admin session
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin/tiers", nil)
	ctx = session.WithSession(req.Context(), &session.Session{UserID: uuid.New(), IsAdmin: true})
	handler.ServeHTTP(rec, req.WithContext(ctx))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
