package quota

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelgate-platform/modelgate/internal/api"
	"github.com/modelgate-platform/modelgate/internal/entitlements"
	"github.com/modelgate-platform/modelgate/internal/session"
)

// EntitlementSource resolves the session's tier for usage reporting.
type EntitlementSource interface {
	Resolve(ctx context.Context, tierID string) (entitlements.Entitlements, error)
}

// Handler serves the authenticated user's quota standing.
type Handler struct {
	tracker *Tracker
	ents    EntitlementSource
}

func NewHandler(tracker *Tracker, ents EntitlementSource) *Handler {
	return &Handler{tracker: tracker, ents: ents}
}

// MyQuota reports the caller's consumption in the current UTC day window.
func (h *Handler) MyQuota(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	ent, err := h.ents.Resolve(r.Context(), sess.SubscriptionType)
	if err != nil {
		if errors.Is(err, entitlements.ErrUnknownTier) {
			slog.Error("resolving entitlements for quota view", "error", err, "tier", sess.SubscriptionType)
			api.HandleError(w, api.ErrEntitlementUnavailable)
			return
		}
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	status, err := h.tracker.Usage(r.Context(), sess.UserID, ent)
	if err != nil {
		slog.Error("fetching quota usage", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, status)
}
