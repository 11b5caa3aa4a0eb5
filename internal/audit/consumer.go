package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/modelgate-platform/modelgate/internal/events"
)

// Consumer listens on the events stream and persists policy denials and
// registry mutations to the database.
type Consumer struct {
	repo        *Repository
	consumerMgr *events.ConsumerManager
}

func NewConsumer(repo *Repository, consumerMgr *events.ConsumerManager) *Consumer {
	return &Consumer{
		repo:        repo,
		consumerMgr: consumerMgr,
	}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, events.StreamEvents, "audit-persister", "modelgate.events.>")
	if err != nil {
		return err
	}

	slog.Info("audit consumer started", "consumer", "audit-persister")

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(events.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("audit consumer: fetching events", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handleEvent(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) handleEvent(ctx context.Context, msg jetstream.Msg) {
	var entry *Entry
	var err error

	switch msg.Subject() {
	case events.SubjectPolicyDenied:
		entry, err = denialEntry(msg.Data())
	case events.SubjectTierChanged:
		entry, err = tierChangeEntry(msg.Data())
	default:
		slog.Debug("audit consumer: ignoring subject", "subject", msg.Subject())
		_ = msg.Ack()
		return
	}
	if err != nil {
		slog.Error("audit consumer: unmarshaling event", "error", err, "subject", msg.Subject())
		_ = msg.Nak()
		return
	}

	if err := c.repo.Insert(ctx, entry); err != nil {
		slog.Error("audit consumer: persisting entry", "error", err, "event_type", entry.EventType)
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()
}

func denialEntry(data []byte) (*Entry, error) {
	var event events.PolicyDeniedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}

	details, _ := json.Marshal(map[string]string{"message": event.Details})
	return &Entry{
		ID:           uuid.New(),
		UserID:       event.UserID,
		EventType:    "policy.denied." + event.Reason,
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		Details:      details,
		CreatedAt:    event.Timestamp,
	}, nil
}

func tierChangeEntry(data []byte) (*Entry, error) {
	var event events.TierChangedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}

	details, _ := json.Marshal(map[string]string{"message": event.Details})
	return &Entry{
		ID:           uuid.New(),
		UserID:       event.ActorUserID,
		EventType:    "tier." + event.Action,
		ResourceType: "subscription_type",
		ResourceID:   event.TierID,
		Details:      details,
		CreatedAt:    event.Timestamp,
	}, nil
}
