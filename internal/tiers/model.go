package tiers

import (
	"fmt"
	"time"
)

// UnlimitedMessages is the storage/API sentinel for "no daily ceiling".
// It exists only at this edge; internally the entitlements package carries
// a tagged limit value instead.
const UnlimitedMessages = -1

// SubscriptionType is a named bundle of entitlements assignable to users.
// Inactive types stay valid for existing holders but cannot be assigned to
// anyone new.
type SubscriptionType struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	MaxMessagesPerDay int       `json:"max_messages_per_day"`
	AvailableModelIDs []string  `json:"available_model_ids"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type CreateTierRequest struct {
	ID                string   `json:"id" validate:"required,min=2,max=40,lowercase"`
	Name              string   `json:"name" validate:"required,min=2,max=100"`
	MaxMessagesPerDay int      `json:"max_messages_per_day" validate:"min=-1"`
	AvailableModelIDs []string `json:"available_model_ids" validate:"required,min=1,dive,required"`
	Active            *bool    `json:"active"`
}

// UpdateTierRequest carries a partial update; nil fields are left unchanged.
type UpdateTierRequest struct {
	Name              *string   `json:"name" validate:"omitempty,min=2,max=100"`
	MaxMessagesPerDay *int      `json:"max_messages_per_day" validate:"omitempty,min=-1"`
	AvailableModelIDs *[]string `json:"available_model_ids" validate:"omitempty,min=1,dive,required"`
	Active            *bool     `json:"active"`
}

// TierInUseError rejects deletion of a subscription type that users still
// reference, reporting how many.
type TierInUseError struct {
	ID    string
	Count int64
}

func (e *TierInUseError) Error() string {
	return fmt.Sprintf("subscription type %q is referenced by %d user(s)", e.ID, e.Count)
}
