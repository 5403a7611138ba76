package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
)

// Publisher publishes turn events to JetStream.
type Publisher struct {
	js jetstream.JetStream
}

func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishTurnCompleted publishes a finished turn. The event id doubles as
// the JetStream message id so redeliveries of the same publish are dropped.
func (p *Publisher) PublishTurnCompleted(ctx context.Context, event TurnCompleted) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CompletedAt.IsZero() {
		event.CompletedAt = time.Now().UTC()
	}
	return p.publish(ctx, SubjectTurnCompleted, event, jetstream.WithMsgID(event.ID))
}

// Persist hands the turn to the write-back consumer.
func (p *Publisher) Persist(ctx context.Context, userInput, response string) error {
	return p.PublishTurnCompleted(ctx, TurnCompleted{UserInput: userInput, Response: response})
}

func (p *Publisher) publish(ctx context.Context, subject string, data any, opts ...jetstream.PublishOpt) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	if _, err := p.js.Publish(ctx, subject, payload, opts...); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
