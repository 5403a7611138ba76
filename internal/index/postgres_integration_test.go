//go:build integration

package index

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jiwoo-ai/jiwoo/internal/database"
	"github.com/jiwoo-ai/jiwoo/internal/domain"
)

func setupPostgres(t *testing.T) (*pgxpool.Pool, string) {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "pgvector/pgvector:0.8.1-pg16",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "jiwoo_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/jiwoo_test?sslmode=disable", host, port.Port())

	_, file, _, _ := runtime.Caller(0)
	migrations := filepath.Join(filepath.Dir(file), "..", "..", "migrations")
	require.NoError(t, database.RunMigrations(dsn, migrations))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool, dsn
}

func TestPostgresIndex_Lifecycle(t *testing.T) {
	pool, _ := setupPostgres(t)
	ctx := context.Background()
	idx := NewPostgresIndex(pool, "search_records", 3)

	ok, err := idx.HasCollection(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, idx.EnsureCollection(ctx))
	ok, err = idx.HasCollection(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	dim, err := idx.StoredDimension(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, dim)

	mismatched := NewPostgresIndex(pool, "search_records", 4)
	err = mismatched.EnsureCollection(ctx)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	require.NoError(t, idx.DropCollection(ctx))
	ok, err = idx.HasCollection(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostgresIndex_InsertAndSearch(t *testing.T) {
	pool, _ := setupPostgres(t)
	ctx := context.Background()
	idx := NewPostgresIndex(pool, "search_records", 3)
	require.NoError(t, idx.CreateCollection(ctx))

	for _, r := range []domain.SearchRecord{
		{Content: "origin", URL: "doc://a", Embedding: []float32{0, 0, 0}},
		{Content: "unit", URL: "doc://b", Embedding: []float32{1, 0, 0}},
		{Content: "far", URL: "doc://c", Embedding: []float32{5, 5, 5}},
	} {
		rec := r
		id, err := idx.Insert(ctx, &rec)
		require.NoError(t, err)
		assert.Positive(t, id)
	}

	hits, err := idx.Search(ctx, []float32{0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "origin", hits[0].Record.Content)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-6)
	assert.Equal(t, "unit", hits[1].Record.Content)
	assert.InDelta(t, 1.0, hits[1].Distance, 1e-6)

	_, err = idx.Insert(ctx, &domain.SearchRecord{Content: "bad", Embedding: []float32{1}})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
