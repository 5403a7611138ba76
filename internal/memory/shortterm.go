package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jiwoo-ai/jiwoo/internal/domain"
)

// RedisStore keeps each session's turns in a Redis list and its summary in a
// sibling string key. Both keys share the same TTL.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func convKey(sessionID string) string {
	return fmt.Sprintf("conv:%s", sessionID)
}

func summaryKey(sessionID string) string {
	return fmt.Sprintf("conv:%s:summary", sessionID)
}

func (s *RedisStore) Turns(ctx context.Context, sessionID string) ([]domain.ConversationTurn, error) {
	key := convKey(sessionID)

	vals, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}

	turns := make([]domain.ConversationTurn, 0, len(vals))
	for _, v := range vals {
		var turn domain.ConversationTurn
		if err := json.Unmarshal([]byte(v), &turn); err != nil {
			slog.Warn("memory: skipping malformed turn", "key", key, "error", err)
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (s *RedisStore) Summary(ctx context.Context, sessionID string) (string, error) {
	key := summaryKey(sessionID)
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

func (s *RedisStore) Append(ctx context.Context, sessionID string, turn domain.ConversationTurn, capacity int, summary string) error {
	key := convKey(sessionID)

	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshaling turn: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, string(data))
		pipe.LTrim(ctx, key, int64(-capacity), -1)
		pipe.Set(ctx, summaryKey(sessionID), summary, 0)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
			pipe.Expire(ctx, summaryKey(sessionID), s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("appending turn to %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, convKey(sessionID), summaryKey(sessionID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("clearing session %s: %w", sessionID, err)
	}
	return nil
}
