package nats

import "time"

// FetchTimeout bounds a single batch fetch from a consumer.
const FetchTimeout = 2 * time.Second

const StreamTurns = "JIWOO_TURNS"

const SubjectTurnCompleted = "jiwoo.turns.completed"

// TurnCompleted is published after a text answer has been returned to the
// caller, for the write-back consumer to index.
type TurnCompleted struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id,omitempty"`
	UserInput   string    `json:"user_input"`
	Response    string    `json:"response"`
	CompletedAt time.Time `json:"completed_at"`
}
