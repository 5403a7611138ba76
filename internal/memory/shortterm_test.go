package memory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiwoo-ai/jiwoo/internal/domain"
)

func setupMiniredis(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, ttl), mr
}

func turn(in, out string) domain.ConversationTurn {
	return domain.ConversationTurn{UserInput: in, Response: out, CreatedAt: time.Now().UTC()}
}

func TestRedisStore_AppendAndGet(t *testing.T) {
	store, _ := setupMiniredis(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "s1", turn("Hello", "Hi there!"), 10, "User: Hello\nAI: Hi there!"))
	require.NoError(t, store.Append(ctx, "s1", turn("How are you?", "Fine."), 10, "summary-2"))

	turns, err := store.Turns(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "Hello", turns[0].UserInput)
	assert.Equal(t, "Fine.", turns[1].Response)

	summary, err := store.Summary(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "summary-2", summary)
}

func TestRedisStore_Trim(t *testing.T) {
	store, _ := setupMiniredis(t, time.Hour)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, "s1", turn(string(rune('A'+i)), "ok"), 3, ""))
	}

	turns, err := store.Turns(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "C", turns[0].UserInput)
	assert.Equal(t, "D", turns[1].UserInput)
	assert.Equal(t, "E", turns[2].UserInput)
}

func TestRedisStore_TTL(t *testing.T) {
	store, mr := setupMiniredis(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "s1", turn("Hello", "Hi"), 10, "sum"))
	mr.FastForward(61 * time.Second)

	turns, err := store.Turns(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, turns)
	summary, err := store.Summary(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, summary)
}

func TestRedisStore_ClearRemovesBothKeys(t *testing.T) {
	store, mr := setupMiniredis(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "s1", turn("Hello", "Hi"), 10, "sum"))
	require.NoError(t, store.Clear(ctx, "s1"))

	assert.False(t, mr.Exists(convKey("s1")))
	assert.False(t, mr.Exists(summaryKey("s1")))
}

func TestRedisStore_SkipsMalformedEntries(t *testing.T) {
	store, mr := setupMiniredis(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "s1", turn("good", "ok"), 10, ""))
	_, err := mr.Push(convKey("s1"), "{not json")
	require.NoError(t, err)

	turns, err := store.Turns(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "good", turns[0].UserInput)
}

func TestRedisStore_IsolatedBySession(t *testing.T) {
	store, _ := setupMiniredis(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "a", turn("for a", "x"), 10, "A"))
	require.NoError(t, store.Append(ctx, "b", turn("for b", "y"), 10, "B"))

	turns, _ := store.Turns(ctx, "a")
	require.Len(t, turns, 1)
	assert.Equal(t, "for a", turns[0].UserInput)

	summary, _ := store.Summary(ctx, "b")
	assert.Equal(t, "B", summary)
}
