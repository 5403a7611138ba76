package writeback

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/jiwoo-ai/jiwoo/internal/nats"
)

const consumerName = "writeback-persister"

// Consumer drains TurnCompleted events and writes them through the cache.
type Consumer struct {
	cache       *Cache
	consumerMgr *inats.ConsumerManager
}

func NewConsumer(cache *Cache, consumerMgr *inats.ConsumerManager) *Consumer {
	return &Consumer{cache: cache, consumerMgr: consumerMgr}
}

// Start runs the fetch loop until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, inats.StreamTurns, consumerName, inats.SubjectTurnCompleted)
	if err != nil {
		return err
	}

	slog.Info("writeback consumer started", "consumer", consumerName)

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(inats.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("writeback consumer: fetching events", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handle(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg jetstream.Msg) {
	var event inats.TurnCompleted
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		slog.Error("writeback consumer: unmarshaling event", "error", err)
		_ = msg.Term()
		return
	}

	stored := c.cache.MaybePersist(ctx, event.UserInput, event.Response)
	_ = msg.Ack()

	slog.Debug("writeback consumer: handled turn", "event_id", event.ID, "stored", stored)
}
