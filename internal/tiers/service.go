package tiers

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/modelgate-platform/modelgate/internal/events"
)

// EventPublisher receives registry-change events for the audit trail.
type EventPublisher interface {
	PublishTierChanged(ctx context.Context, event events.TierChangedEvent) error
}

type Service struct {
	repo      Repository
	publisher EventPublisher
}

// NewService creates a tier Service. publisher may be nil when the event
// bus is not configured.
func NewService(repo Repository, publisher EventPublisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

func (s *Service) Get(ctx context.Context, id string) (*SubscriptionType, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, onlyActive bool) ([]SubscriptionType, error) {
	return s.repo.List(ctx, onlyActive)
}

func (s *Service) Create(ctx context.Context, actorID uuid.UUID, req *CreateTierRequest) (*SubscriptionType, error) {
	now := time.Now()
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	tier := &SubscriptionType{
		ID:                req.ID,
		Name:              req.Name,
		MaxMessagesPerDay: req.MaxMessagesPerDay,
		AvailableModelIDs: req.AvailableModelIDs,
		Active:            active,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, tier); err != nil {
		return nil, err
	}

	s.publishChange(ctx, actorID, tier.ID, "created")
	return tier, nil
}

func (s *Service) Update(ctx context.Context, actorID uuid.UUID, id string, req *UpdateTierRequest) (*SubscriptionType, error) {
	tier, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}

	s.publishChange(ctx, actorID, id, "updated")
	return tier, nil
}

func (s *Service) Delete(ctx context.Context, actorID uuid.UUID, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.publishChange(ctx, actorID, id, "deleted")
	return nil
}

func (s *Service) publishChange(ctx context.Context, actorID uuid.UUID, tierID, action string) {
	if s.publisher == nil {
		return
	}
	event := events.TierChangedEvent{
		ActorUserID: actorID,
		TierID:      tierID,
		Action:      action,
		Timestamp:   time.Now().UTC(),
	}
	if err := s.publisher.PublishTierChanged(ctx, event); err != nil {
		slog.Warn("publishing tier change event", "error", err, "tier", tierID, "action", action)
	}
}
