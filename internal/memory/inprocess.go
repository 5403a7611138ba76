package memory

import (
	"context"
	"sync"

	"github.com/jiwoo-ai/jiwoo/internal/domain"
)

type session struct {
	turns   []domain.ConversationTurn
	summary string
}

// InProcessStore keeps sessions in a map. Contents are lost on restart.
type InProcessStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func NewInProcessStore() *InProcessStore {
	return &InProcessStore{sessions: make(map[string]*session)}
}

func (s *InProcessStore) Turns(_ context.Context, sessionID string) ([]domain.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return []domain.ConversationTurn{}, nil
	}
	return append([]domain.ConversationTurn(nil), sess.turns...), nil
}

func (s *InProcessStore) Summary(_ context.Context, sessionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sess, ok := s.sessions[sessionID]; ok {
		return sess.summary, nil
	}
	return "", nil
}

func (s *InProcessStore) Append(_ context.Context, sessionID string, turn domain.ConversationTurn, capacity int, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{}
		s.sessions[sessionID] = sess
	}

	sess.turns = append(sess.turns, turn)
	if over := len(sess.turns) - capacity; over > 0 {
		sess.turns = append([]domain.ConversationTurn(nil), sess.turns[over:]...)
	}
	sess.summary = summary
	return nil
}

func (s *InProcessStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
