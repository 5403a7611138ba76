package memory

import (
	"context"

	"github.com/jiwoo-ai/jiwoo/internal/domain"
)

// Store persists a bounded turn queue and its summary per session.
type Store interface {
	// Turns returns the stored turns oldest first.
	Turns(ctx context.Context, sessionID string) ([]domain.ConversationTurn, error)
	Summary(ctx context.Context, sessionID string) (string, error)
	// Append pushes turn, evicts the oldest turns beyond capacity and
	// replaces the summary, all as one update.
	Append(ctx context.Context, sessionID string, turn domain.ConversationTurn, capacity int, summary string) error
	// Clear removes turns and summary together.
	Clear(ctx context.Context, sessionID string) error
}
