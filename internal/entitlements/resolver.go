package entitlements

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelgate-platform/modelgate/internal/tiers"
)

// ErrUnknownTier means a user references a subscription type absent from
// the registry, a data integrity problem. Callers deny service rather
// than grant an undefined entitlement.
var ErrUnknownTier = errors.New("unknown subscription type")

// Registry is the read side of the subscription-type catalog.
type Registry interface {
	Get(ctx context.Context, id string) (*tiers.SubscriptionType, error)
}

// Resolver maps subscription types to Entitlements. It holds no cache:
// every Resolve reads the current registry state, so admin edits are
// visible to the very next request.
type Resolver struct {
	registry Registry
}

func NewResolver(registry Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Resolve looks up tierID and derives its Entitlements. A deactivated tier
// still resolves: deactivation blocks new assignment, not existing holders.
func (r *Resolver) Resolve(ctx context.Context, tierID string) (Entitlements, error) {
	tier, err := r.registry.Get(ctx, tierID)
	if err != nil {
		return Entitlements{}, fmt.Errorf("resolving tier %q: %w", tierID, err)
	}
	if tier == nil {
		return Entitlements{}, fmt.Errorf("%w: %q", ErrUnknownTier, tierID)
	}

	return Entitlements{
		Limit:    FromCeiling(tier.MaxMessagesPerDay),
		ModelIDs: tier.AvailableModelIDs,
	}, nil
}
