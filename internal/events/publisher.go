package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// Publisher provides typed methods for publishing events to NATS JetStream.
type Publisher struct {
	js jetstream.JetStream
}

func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishPolicyDenied publishes a policy denial for the audit trail.
func (p *Publisher) PublishPolicyDenied(ctx context.Context, event PolicyDeniedEvent) error {
	return p.publish(ctx, SubjectPolicyDenied, event)
}

// PublishTierChanged publishes a registry mutation for the audit trail.
func (p *Publisher) PublishTierChanged(ctx context.Context, event TierChangedEvent) error {
	return p.publish(ctx, SubjectTierChanged, event)
}

func (p *Publisher) publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
