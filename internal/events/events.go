package events

import (
	"time"

	"github.com/google/uuid"
)

// FetchTimeout is the default timeout for batch fetching from consumers.
const FetchTimeout = 2 * time.Second

// StreamEvents holds all policy and registry events.
const StreamEvents = "MODELGATE_EVENTS"

// Subject constants.
const (
	SubjectPolicyDenied = "modelgate.events.policy.denied"
	SubjectTierChanged  = "modelgate.events.tier.changed"
)

// Denial reasons carried on PolicyDeniedEvent.
const (
	ReasonQuotaExceeded   = "quota_exceeded"
	ReasonModelNotAllowed = "model_not_allowed"
	ReasonUnknownTier     = "unknown_tier"
	ReasonForbidden       = "forbidden"
)

// PolicyDeniedEvent records a request the policy engine turned away.
type PolicyDeniedEvent struct {
	UserID       uuid.UUID `json:"user_id"`
	Reason       string    `json:"reason"`
	ResourceType string    `json:"resource_type,omitempty"`
	ResourceID   string    `json:"resource_id,omitempty"`
	Details      string    `json:"details,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// TierChangedEvent records an admin mutation of the subscription registry.
type TierChangedEvent struct {
	ActorUserID uuid.UUID `json:"actor_user_id"`
	TierID      string    `json:"tier_id"`
	Action      string    `json:"action"`
	Details     string    `json:"details,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
