package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/modelgate-platform/modelgate/internal/tiers"
)

var (
	ErrUserNotFound = errors.New("user not found")
	// ErrTierNotAssignable rejects assigning a missing or inactive
	// subscription type. Existing holders of an inactive type are untouched.
	ErrTierNotAssignable = errors.New("subscription type not assignable")
)

// TierRegistry is the read side of the subscription-type catalog, used to
// vet assignments.
type TierRegistry interface {
	Get(ctx context.Context, id string) (*tiers.SubscriptionType, error)
}

type Service struct {
	repo     Repository
	registry TierRegistry
}

func NewService(repo Repository, registry TierRegistry) *Service {
	return &Service{repo: repo, registry: registry}
}

func (s *Service) Create(ctx context.Context, email, passwordHash, tierID string, isAdmin bool) (*User, error) {
	tier, err := s.registry.Get(ctx, tierID)
	if err != nil {
		return nil, err
	}
	if tier == nil || !tier.Active {
		return nil, fmt.Errorf("%w: %q", ErrTierNotAssignable, tierID)
	}

	now := time.Now()
	user := &User{
		ID:               uuid.New(),
		Email:            email,
		PasswordHash:     passwordHash,
		SubscriptionType: tierID,
		IsAdmin:          isAdmin,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *Service) List(ctx context.Context, params ListParams) ([]User, int64, error) {
	return s.repo.List(ctx, params)
}

// AssignTier moves a user onto a different subscription type. Inactive
// types are not assignable; they remain valid only for current holders.
func (s *Service) AssignTier(ctx context.Context, userID uuid.UUID, tierID string) error {
	tier, err := s.registry.Get(ctx, tierID)
	if err != nil {
		return err
	}
	if tier == nil || !tier.Active {
		return fmt.Errorf("%w: %q", ErrTierNotAssignable, tierID)
	}
	return s.repo.SetSubscriptionType(ctx, userID, tierID)
}
