package chat

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/modelgate-platform/modelgate/internal/api"
	"github.com/modelgate-platform/modelgate/internal/entitlements"
	"github.com/modelgate-platform/modelgate/internal/gate"
	"github.com/modelgate-platform/modelgate/internal/quota"
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

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	chat, err := h.svc.CreateChat(r.Context(), sess, req)
	if err != nil {
		h.handleError(w, err)
		return
	}
	api.JSON(w, http.StatusCreated, chat)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	params := parseListParams(r)
	chats, total, err := h.svc.ListChats(r.Context(), sess, params)
	if err != nil {
		h.handleError(w, err)
		return
	}
	api.JSONPaginated(w, http.StatusOK, chats, total, params.Page, params.PageSize)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	chatID, err := uuid.Parse(chi.URLParam(r, "chatID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid chat id"))
		return
	}

	chat, err := h.svc.GetChat(r.Context(), sess, chatID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, chat)
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	chatID, err := uuid.Parse(chi.URLParam(r, "chatID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid chat id"))
		return
	}

	params := parseListParams(r)
	msgs, total, err := h.svc.ListMessages(r.Context(), sess, chatID, params)
	if err != nil {
		h.handleError(w, err)
		return
	}
	api.JSONPaginated(w, http.StatusOK, msgs, total, params.Page, params.PageSize)
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	chatID, err := uuid.Parse(chi.URLParam(r, "chatID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid chat id"))
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	msg, err := h.svc.SendMessage(r.Context(), sess, chatID, req)
	if err != nil {
		if errors.Is(err, quota.ErrQuotaExceeded) {
			w.Header().Set("Retry-After", strconv.Itoa(quota.SecondsUntilRollover(time.Now())))
		}
		h.handleError(w, err)
		return
	}
	api.JSON(w, http.StatusCreated, msg)
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrChatNotFound):
		api.HandleError(w, api.ErrNotFound)
	case errors.Is(err, gate.ErrForbidden):
		api.HandleError(w, api.ErrForbidden)
	case errors.Is(err, gate.ErrUnauthenticated):
		api.HandleError(w, api.ErrUnauthorized)
	case errors.Is(err, ErrModelNotAllowed):
		api.HandleError(w, api.ErrModelNotAllowed)
	case errors.Is(err, quota.ErrQuotaExceeded):
		api.HandleError(w, api.ErrQuotaExceeded)
	case errors.Is(err, entitlements.ErrUnknownTier):
		slog.Error("resolving entitlements", "error", err)
		api.HandleError(w, api.ErrEntitlementUnavailable)
	default:
		slog.Error("chat operation failed", "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}

func parseListParams(r *http.Request) ListParams {
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
	return params
}
