package writeback

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inats "github.com/jiwoo-ai/jiwoo/internal/nats"
)

// fakeMsg overrides only the methods the consumer calls.
type fakeMsg struct {
	jetstream.Msg
	data   []byte
	acked  bool
	termed bool
}

func (m *fakeMsg) Data() []byte { return m.data }
func (m *fakeMsg) Ack() error   { m.acked = true; return nil }
func (m *fakeMsg) Term() error  { m.termed = true; return nil }

func eventMsg(t *testing.T, e inats.TurnCompleted) *fakeMsg {
	t.Helper()
	data, err := json.Marshal(e)
	require.NoError(t, err)
	return &fakeMsg{data: data}
}

func TestConsumerHandle_PersistsAndAcks(t *testing.T) {
	cache, idx, _ := newCache(t)
	c := NewConsumer(cache, nil)

	msg := eventMsg(t, inats.TurnCompleted{ID: "e1", UserInput: "q", Response: "a real answer"})
	c.handle(context.Background(), msg)

	assert.True(t, msg.acked)
	assert.Equal(t, 1, idx.Len())
}

func TestConsumerHandle_NonAnswerAckedNotStored(t *testing.T) {
	cache, idx, _ := newCache(t)
	c := NewConsumer(cache, nil)

	msg := eventMsg(t, inats.TurnCompleted{ID: "e2", UserInput: "q", Response: "정보가 없습니다"})
	c.handle(context.Background(), msg)

	assert.True(t, msg.acked)
	assert.Equal(t, int32(0), idx.inserts.Load())
}

func TestConsumerHandle_MalformedTerminated(t *testing.T) {
	cache, idx, _ := newCache(t)
	c := NewConsumer(cache, nil)

	msg := &fakeMsg{data: []byte("{oops")}
	c.handle(context.Background(), msg)

	assert.True(t, msg.termed)
	assert.False(t, msg.acked)
	assert.Equal(t, 0, idx.Len())
}
