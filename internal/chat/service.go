package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/modelgate-platform/modelgate/internal/entitlements"
	"github.com/modelgate-platform/modelgate/internal/events"
	"github.com/modelgate-platform/modelgate/internal/gate"
	"github.com/modelgate-platform/modelgate/internal/quota"
	"github.com/modelgate-platform/modelgate/internal/session"
)

var (
	ErrChatNotFound    = errors.New("chat not found")
	ErrModelNotAllowed = errors.New("model not available on the user's plan")
)

// EntitlementSource resolves a subscription type to its entitlements.
type EntitlementSource interface {
	Resolve(ctx context.Context, tierID string) (entitlements.Entitlements, error)
}

// QuotaChecker enforces the daily message ceiling.
type QuotaChecker interface {
	CheckAndIncrement(ctx context.Context, userID uuid.UUID, ent entitlements.Entitlements) error
}

// DenialPublisher emits policy denial events. A nil publisher disables emission.
type DenialPublisher interface {
	PublishPolicyDenied(ctx context.Context, event events.PolicyDeniedEvent) error
}

// Service is the enforcement point for message sending. Every send passes
// ownership, entitlement, model and quota checks in that order before any
// message row is written.
type Service struct {
	repo      Repository
	ents      EntitlementSource
	quota     QuotaChecker
	publisher DenialPublisher
}

func NewService(repo Repository, ents EntitlementSource, quota QuotaChecker, publisher DenialPublisher) *Service {
	return &Service{
		repo:      repo,
		ents:      ents,
		quota:     quota,
		publisher: publisher,
	}
}

func (s *Service) CreateChat(ctx context.Context, sess *session.Session, req CreateChatRequest) (*Chat, error) {
	ent, err := s.ents.Resolve(ctx, sess.SubscriptionType)
	if err != nil {
		return nil, err
	}
	if !ent.AllowsModel(req.ModelID) {
		s.publishDenial(ctx, sess.UserID, events.ReasonModelNotAllowed, "chat", "",
			fmt.Sprintf("model %q not in tier %q", req.ModelID, sess.SubscriptionType))
		return nil, ErrModelNotAllowed
	}

	now := time.Now().UTC()
	chat := &Chat{
		ID:          uuid.New(),
		OwnerUserID: sess.UserID,
		Title:       req.Title,
		ModelID:     req.ModelID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateChat(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *Service) ListChats(ctx context.Context, sess *session.Session, params ListParams) ([]Chat, int64, error) {
	return s.repo.ListChatsByOwner(ctx, sess.UserID, params)
}

// GetChat returns the chat if the session owns it. Admins are not exempt
// from the ownership check on chat content.
func (s *Service) GetChat(ctx context.Context, sess *session.Session, chatID uuid.UUID) (*Chat, error) {
	chat, err := s.repo.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}
	if err := gate.AuthorizeOwner(sess, chat.OwnerUserID); err != nil {
		s.publishDenial(ctx, sess.UserID, events.ReasonForbidden, "chat", chat.ID.String(),
			"attempted access to another user's chat")
		return nil, err
	}
	return chat, nil
}

func (s *Service) ListMessages(ctx context.Context, sess *session.Session, chatID uuid.UUID, params ListParams) ([]Message, int64, error) {
	if _, err := s.GetChat(ctx, sess, chatID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListMessages(ctx, chatID, params)
}

// SendMessage runs the full policy chain and, only if every check passes,
// records the message. The quota increment happens before the insert so a
// storage failure can waste a quota slot but can never produce an
// uncounted message.
func (s *Service) SendMessage(ctx context.Context, sess *session.Session, chatID uuid.UUID, req SendMessageRequest) (*Message, error) {
	chat, err := s.repo.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}
	if err := gate.AuthorizeOwner(sess, chat.OwnerUserID); err != nil {
		s.publishDenial(ctx, sess.UserID, events.ReasonForbidden, "chat", chat.ID.String(),
			"attempted message to another user's chat")
		return nil, err
	}

	ent, err := s.ents.Resolve(ctx, sess.SubscriptionType)
	if err != nil {
		if errors.Is(err, entitlements.ErrUnknownTier) {
			s.publishDenial(ctx, sess.UserID, events.ReasonUnknownTier, "chat", chat.ID.String(),
				fmt.Sprintf("tier %q not found", sess.SubscriptionType))
		}
		return nil, err
	}

	modelID := chat.ModelID
	if req.ModelID != "" {
		modelID = req.ModelID
	}
	if !ent.AllowsModel(modelID) {
		s.publishDenial(ctx, sess.UserID, events.ReasonModelNotAllowed, "chat", chat.ID.String(),
			fmt.Sprintf("model %q not in tier %q", modelID, sess.SubscriptionType))
		return nil, ErrModelNotAllowed
	}

	if err := s.quota.CheckAndIncrement(ctx, sess.UserID, ent); err != nil {
		if errors.Is(err, quota.ErrQuotaExceeded) {
			s.publishDenial(ctx, sess.UserID, events.ReasonQuotaExceeded, "chat", chat.ID.String(),
				fmt.Sprintf("daily ceiling %d reached", ent.Limit.Ceiling()))
		}
		return nil, err
	}

	msg := &Message{
		ID:        uuid.New(),
		ChatID:    chat.ID,
		Role:      RoleUser,
		Body:      req.Body,
		ModelID:   modelID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *Service) publishDenial(ctx context.Context, userID uuid.UUID, reason, resourceType, resourceID, details string) {
	if s.publisher == nil {
		return
	}
	event := events.PolicyDeniedEvent{
		UserID:       userID,
		Reason:       reason,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		Timestamp:    time.Now().UTC(),
	}
	if err := s.publisher.PublishPolicyDenied(ctx, event); err != nil {
		slog.Warn("publishing policy denial event", "error", err, "reason", reason)
	}
}
