package users

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/modelgate-platform/modelgate/internal/api"
)

// Handler serves the admin user-management surface.
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

type assignTierRequest struct {
	TierID string `json:"tier_id" validate:"required,min=1,max=100"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := DefaultListParams()
	if p := r.URL.Query().Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if pageSize, err := strconv.Atoi(ps); err == nil && pageSize > 0 && pageSize <= 100 {
			params.PageSize = pageSize
		}
	}

	users, total, err := h.svc.List(r.Context(), params)
	if err != nil {
		slog.Error("listing users", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSONPaginated(w, http.StatusOK, users, total, params.Page, params.PageSize)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid user id"))
		return
	}

	user, err := h.svc.GetByID(r.Context(), userID)
	if err != nil {
		slog.Error("getting user", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if user == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}
	api.JSON(w, http.StatusOK, user)
}

// AssignTier moves a user onto another subscription type. The change takes
// effect on the user's next request because sessions re-read the user row.
func (h *Handler) AssignTier(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid user id"))
		return
	}

	var req assignTierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	if err := h.svc.AssignTier(r.Context(), userID, req.TierID); err != nil {
		switch {
		case errors.Is(err, ErrTierNotAssignable):
			api.HandleError(w, api.NewBadRequestError(err.Error()))
		case errors.Is(err, ErrUserNotFound):
			api.HandleError(w, api.ErrNotFound)
		default:
			slog.Error("assigning tier", "error", err, "user", userID, "tier", req.TierID)
			api.HandleError(w, api.ErrInternalServer)
		}
		return
	}

	api.JSONMessage(w, http.StatusOK, "subscription type assigned")
}
