package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/jiwoo-ai/jiwoo/internal/domain"
)

// MemoryIndex is a brute-force in-process index.
type MemoryIndex struct {
	mu      sync.RWMutex
	dim     int
	nextID  int64
	records []domain.SearchRecord
}

func NewMemoryIndex(dim int) *MemoryIndex {
	return &MemoryIndex{dim: dim, nextID: 1}
}

func (m *MemoryIndex) Dimension() int {
	return m.dim
}

func (m *MemoryIndex) Insert(_ context.Context, rec *domain.SearchRecord) (int64, error) {
	if err := rec.Validate(m.dim); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *rec
	stored.ID = m.nextID
	stored.Embedding = append([]float32(nil), rec.Embedding...)
	if stored.CreatedAt == 0 {
		stored.CreatedAt = time.Now().Unix()
	}
	m.nextID++
	m.records = append(m.records, stored)

	rec.ID = stored.ID
	return stored.ID, nil
}

func (m *MemoryIndex) Search(_ context.Context, vector []float32, k int) ([]Hit, error) {
	if len(vector) != m.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", domain.ErrDimensionMismatch, len(vector), m.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]Hit, 0, len(m.records))
	for _, r := range m.records {
		hits = append(hits, Hit{Record: r, Distance: l2(vector, r.Embedding)})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of stored records.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func l2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
