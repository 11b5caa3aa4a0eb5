package api

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrBadRequest     = &AppError{Code: http.StatusBadRequest, Message: "bad request"}
	ErrUnauthorized   = &AppError{Code: http.StatusUnauthorized, Message: "unauthorized"}
	ErrForbidden      = &AppError{Code: http.StatusForbidden, Message: "forbidden"}
	ErrNotFound       = &AppError{Code: http.StatusNotFound, Message: "not found"}
	ErrConflict       = &AppError{Code: http.StatusConflict, Message: "conflict"}
	ErrInternalServer = &AppError{Code: http.StatusInternalServerError, Message: "internal server error"}
	ErrInvalidToken   = &AppError{Code: http.StatusUnauthorized, Message: "invalid or expired token"}
	ErrValidation     = &AppError{Code: http.StatusBadRequest, Message: "validation error"}

	// ErrQuotaExceeded is the presentation of a daily ceiling hit. The window
	// rolls over at the next UTC midnight; handlers set Retry-After accordingly.
	ErrQuotaExceeded = &AppError{Code: http.StatusTooManyRequests, Message: "daily message quota exceeded"}

	// ErrModelNotAllowed is returned when the requested model is not in the
	// user's subscription tier.
	ErrModelNotAllowed = &AppError{Code: http.StatusForbidden, Message: "model not available on your plan"}

	// ErrEntitlementUnavailable covers a user whose subscription type is
	// missing from the registry. The request is denied, never granted an
	// undefined entitlement.
	ErrEntitlementUnavailable = &AppError{Code: http.StatusInternalServerError, Message: "entitlements unavailable"}
)

func NewBadRequestError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: msg}
}

func NewConflictError(msg string) *AppError {
	return &AppError{Code: http.StatusConflict, Message: msg}
}

func NewValidationError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

// NewTierInUseError reports a rejected subscription-type deletion together
// with the number of users still referencing it.
func NewTierInUseError(id string, count int64) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Message: fmt.Sprintf("subscription type %q is referenced by %d user(s) and cannot be deleted", id, count),
	}
}

func HandleError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		JSONErrorMessage(w, appErr.Code, appErr.Message)
		return
	}
	JSONErrorMessage(w, http.StatusInternalServerError, "internal server error")
}
