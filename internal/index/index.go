package index

import (
	"context"
	"errors"

	"github.com/jiwoo-ai/jiwoo/internal/domain"
)

var ErrCollectionMissing = errors.New("collection does not exist")

// Hit is one search result with its L2 distance to the query vector.
type Hit struct {
	Record   domain.SearchRecord
	Distance float64
}

// Index is a nearest-neighbour store over fixed-dimension embeddings.
type Index interface {
	// Search returns up to k hits ordered by ascending distance.
	Search(ctx context.Context, vector []float32, k int) ([]Hit, error)
	// Insert stores rec and returns its assigned id. Records whose
	// embedding does not match Dimension are rejected before any write.
	Insert(ctx context.Context, rec *domain.SearchRecord) (int64, error)
	Dimension() int
}
