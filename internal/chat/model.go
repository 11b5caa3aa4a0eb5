package chat

import (
	"time"

	"github.com/google/uuid"
)

type Chat struct {
	ID          uuid.UUID `json:"id"`
	OwnerUserID uuid.UUID `json:"owner_user_id"`
	Title       string    `json:"title"`
	ModelID     string    `json:"model_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Message struct {
	ID        uuid.UUID `json:"id"`
	ChatID    uuid.UUID `json:"chat_id"`
	Role      string    `json:"role"`
	Body      string    `json:"body"`
	ModelID   string    `json:"model_id"`
	CreatedAt time.Time `json:"created_at"`
}

const RoleUser = "user"

type CreateChatRequest struct {
	Title   string `json:"title" validate:"required,min=1,max=200"`
	ModelID string `json:"model_id" validate:"required,min=1,max=100"`
}

// SendMessageRequest may override the chat's default model per message.
type SendMessageRequest struct {
	Body    string `json:"body" validate:"required,min=1,max=8000"`
	ModelID string `json:"model_id" validate:"omitempty,min=1,max=100"`
}

type ListParams struct {
	Page     int
	PageSize int
}

func DefaultListParams() ListParams {
	return ListParams{Page: 1, PageSize: 50}
}
