package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jiwoo-ai/jiwoo/internal/domain"
	"github.com/jiwoo-ai/jiwoo/internal/llm"
)

// Service owns per-session conversation memory: a FIFO queue of at most
// capacity turns and a token-bounded summary derived from it.
type Service struct {
	store         Store
	tokenizer     llm.Tokenizer
	capacity      int
	summaryTokens int
	locks         *lockTable
}

func NewService(store Store, tokenizer llm.Tokenizer, capacity, summaryTokens int) *Service {
	return &Service{
		store:         store,
		tokenizer:     tokenizer,
		capacity:      capacity,
		summaryTokens: summaryTokens,
		locks:         newLockTable(),
	}
}

// Append records a completed turn. Concurrent appends to one session are
// serialized; different sessions proceed independently.
func (s *Service) Append(ctx context.Context, sessionID string, turn domain.ConversationTurn) error {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	turns, err := s.store.Turns(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("loading turns: %w", err)
	}

	turns = append(turns, turn)
	if over := len(turns) - s.capacity; over > 0 {
		turns = turns[over:]
	}

	summary := Summarize(turns, s.tokenizer, s.summaryTokens)
	if err := s.store.Append(ctx, sessionID, turn, s.capacity, summary); err != nil {
		return fmt.Errorf("storing turn: %w", err)
	}
	return nil
}

func (s *Service) Summary(ctx context.Context, sessionID string) (string, error) {
	return s.store.Summary(ctx, sessionID)
}

func (s *Service) Turns(ctx context.Context, sessionID string) ([]domain.ConversationTurn, error) {
	return s.store.Turns(ctx, sessionID)
}

func (s *Service) Clear(ctx context.Context, sessionID string) error {
	unlock := s.locks.lock(sessionID)
	defer unlock()
	return s.store.Clear(ctx, sessionID)
}

// Summarize keeps the newest turns that fit within budget tokens and renders
// them oldest first as "User: ...\nAI: ..." blocks.
func Summarize(turns []domain.ConversationTurn, tok llm.Tokenizer, budget int) string {
	var picked []string
	used := 0
	for i := len(turns) - 1; i >= 0; i-- {
		block := FormatTurn(turns[i])
		cost := llm.Count(tok, block+"\n")
		if used+cost > budget {
			break
		}
		used += cost
		picked = append(picked, block)
	}

	for i, j := 0, len(picked)-1; i < j; i, j = i+1, j-1 {
		picked[i], picked[j] = picked[j], picked[i]
	}
	return strings.Join(picked, "\n")
}

func FormatTurn(t domain.ConversationTurn) string {
	return "User: " + t.UserInput + "\nAI: " + t.Response
}

// lockTable hands out one mutex per session and forgets it once unused.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*refLock)}
}

func (t *lockTable) lock(key string) func() {
	t.mu.Lock()
	l, ok := t.locks[key]
	if !ok {
		l = &refLock{}
		t.locks[key] = l
	}
	l.refs++
	t.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		t.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(t.locks, key)
		}
		t.mu.Unlock()
	}
}

func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
