package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	CreateChat(ctx context.Context, chat *Chat) error
	GetChat(ctx context.Context, id uuid.UUID) (*Chat, error)
	ListChatsByOwner(ctx context.Context, ownerID uuid.UUID, params ListParams) ([]Chat, int64, error)
	InsertMessage(ctx context.Context, msg *Message) error
	ListMessages(ctx context.Context, chatID uuid.UUID, params ListParams) ([]Message, int64, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) CreateChat(ctx context.Context, chat *Chat) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chats (id, owner_user_id, title, model_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		chat.ID, chat.OwnerUserID, chat.Title, chat.ModelID, chat.CreatedAt, chat.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting chat: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetChat(ctx context.Context, id uuid.UUID) (*Chat, error) {
	chat := &Chat{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_user_id, title, model_id, created_at, updated_at
		FROM chats WHERE id = $1`, id,
	).Scan(&chat.ID, &chat.OwnerUserID, &chat.Title, &chat.ModelID, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying chat: %w", err)
	}
	return chat, nil
}

func (r *postgresRepository) ListChatsByOwner(ctx context.Context, ownerID uuid.UUID, params ListParams) ([]Chat, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 50
	}

	var totalCount int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM chats WHERE owner_user_id = $1`, ownerID).Scan(&totalCount)
	if err != nil {
		return nil, 0, fmt.Errorf("counting chats: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_user_id, title, model_id, created_at, updated_at
		FROM chats WHERE owner_user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3`, ownerID, params.PageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing chats: %w", err)
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		c := Chat{}
		if err := rows.Scan(&c.ID, &c.OwnerUserID, &c.Title, &c.ModelID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning chat: %w", err)
		}
		chats = append(chats, c)
	}
	return chats, totalCount, rows.Err()
}

func (r *postgresRepository) InsertMessage(ctx context.Context, msg *Message) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (id, chat_id, role, body, model_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.ChatID, msg.Role, msg.Body, msg.ModelID, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListMessages(ctx context.Context, chatID uuid.UUID, params ListParams) ([]Message, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 50
	}

	var totalCount int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE chat_id = $1`, chatID).Scan(&totalCount)
	if err != nil {
		return nil, 0, fmt.Errorf("counting messages: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	rows, err := r.pool.Query(ctx, `
		SELECT id, chat_id, role, body, model_id, created_at
		FROM messages WHERE chat_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3`, chatID, params.PageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		m := Message{}
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Body, &m.ModelID, &m.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, totalCount, rows.Err()
}
