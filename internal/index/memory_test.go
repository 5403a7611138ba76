package index

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiwoo-ai/jiwoo/internal/domain"
)

func TestMemoryIndex_InsertAndSearch(t *testing.T) {
	idx := NewMemoryIndex(2)
	ctx := context.Background()

	for _, r := range []domain.SearchRecord{
		{Content: "far", Embedding: []float32{10, 10}},
		{Content: "near", Embedding: []float32{1, 0}},
		{Content: "exact", Embedding: []float32{0, 0}},
	} {
		rec := r
		_, err := idx.Insert(ctx, &rec)
		require.NoError(t, err)
	}

	hits, err := idx.Search(ctx, []float32{0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "exact", hits[0].Record.Content)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-9)
	assert.Equal(t, "near", hits[1].Record.Content)
	assert.InDelta(t, 1.0, hits[1].Distance, 1e-9)
}

func TestMemoryIndex_AssignsIDsAndTimestamps(t *testing.T) {
	idx := NewMemoryIndex(1)
	ctx := context.Background()

	a := &domain.SearchRecord{Content: "a", Embedding: []float32{1}}
	b := &domain.SearchRecord{Content: "b", Embedding: []float32{2}, CreatedAt: 42}

	idA, err := idx.Insert(ctx, a)
	require.NoError(t, err)
	idB, err := idx.Insert(ctx, b)
	require.NoError(t, err)

	assert.Equal(t, int64(1), idA)
	assert.Equal(t, int64(2), idB)
	assert.Equal(t, idA, a.ID)

	hits, err := idx.Search(ctx, []float32{2}, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(42), hits[0].Record.CreatedAt)
}

func TestMemoryIndex_RejectsDimensionMismatch(t *testing.T) {
	idx := NewMemoryIndex(3)
	ctx := context.Background()

	_, err := idx.Insert(ctx, &domain.SearchRecord{Content: "x", Embedding: []float32{1, 2}})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Equal(t, 0, idx.Len())

	_, err = idx.Search(ctx, []float32{1}, 5)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestMemoryIndex_EmptyAndZeroK(t *testing.T) {
	idx := NewMemoryIndex(2)
	ctx := context.Background()

	hits, err := idx.Search(ctx, []float32{0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = idx.Insert(ctx, &domain.SearchRecord{Content: "x", Embedding: []float32{1, 1}})
	require.NoError(t, err)
	hits, err = idx.Search(ctx, []float32{0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestMemoryIndex_ConcurrentInsert(t *testing.T) {
	idx := NewMemoryIndex(2)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = idx.Insert(ctx, &domain.SearchRecord{Content: "c", Embedding: []float32{float32(i), 0}})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, idx.Len())
}
