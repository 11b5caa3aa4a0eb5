package tiers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/modelgate-platform/modelgate/internal/api"
	"github.com/modelgate-platform/modelgate/internal/session"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

// PublicList returns active tiers only, the pricing-page data. No auth,
// no quota.
func (h *Handler) PublicList(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.svc.List(r.Context(), true)
	if err != nil {
		slog.Error("listing public tiers", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, tiers)
}

// AdminList returns every tier, inactive ones included, for editing.
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.svc.List(r.Context(), false)
	if err != nil {
		slog.Error("listing tiers", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, tiers)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tier, err := h.svc.Get(r.Context(), chi.URLParam(r, "tierID"))
	if err != nil {
		slog.Error("getting tier", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if tier == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}
	api.JSON(w, http.StatusOK, tier)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req CreateTierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	tier, err := h.svc.Create(r.Context(), sess.UserID, &req)
	if err != nil {
		if errors.Is(err, ErrTierExists) {
			api.HandleError(w, api.NewConflictError("subscription type already exists"))
			return
		}
		slog.Error("creating tier", "error", err, "tier", req.ID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusCreated, tier)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req UpdateTierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	id := chi.URLParam(r, "tierID")
	tier, err := h.svc.Update(r.Context(), sess.UserID, id, &req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			api.HandleError(w, api.ErrNotFound)
			return
		}
		slog.Error("updating tier", "error", err, "tier", id)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, tier)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	id := chi.URLParam(r, "tierID")
	err := h.svc.Delete(r.Context(), sess.UserID, id)
	if err != nil {
		var inUse *TierInUseError
		switch {
		case errors.Is(err, ErrNotFound):
			api.HandleError(w, api.ErrNotFound)
		case errors.As(err, &inUse):
			api.HandleError(w, api.NewTierInUseError(inUse.ID, inUse.Count))
		default:
			slog.Error("deleting tier", "error", err, "tier", id)
			api.HandleError(w, api.ErrInternalServer)
		}
		return
	}

	api.JSONMessage(w, http.StatusOK, "subscription type deleted")
}
