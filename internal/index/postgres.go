package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jiwoo-ai/jiwoo/internal/domain"
)

// PostgresIndex stores records in a pgvector table and searches by L2 distance.
type PostgresIndex struct {
	pool  *pgxpool.Pool
	table string
	dim   int
}

func NewPostgresIndex(pool *pgxpool.Pool, table string, dim int) *PostgresIndex {
	return &PostgresIndex{pool: pool, table: table, dim: dim}
}

func (p *PostgresIndex) Dimension() int {
	return p.dim
}

func (p *PostgresIndex) ident() string {
	return pgx.Identifier{p.table}.Sanitize()
}

func (p *PostgresIndex) Insert(ctx context.Context, rec *domain.SearchRecord) (int64, error) {
	if err := rec.Validate(p.dim); err != nil {
		return 0, err
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().Unix()
	}

	var id int64
	err := p.pool.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO %s (content, url, embedding, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`, p.ident()),
		rec.Content, rec.URL, pgvector.NewVector(rec.Embedding), rec.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting search record: %w", err)
	}

	rec.ID = id
	return id, nil
}

func (p *PostgresIndex) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if len(vector) != p.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", domain.ErrDimensionMismatch, len(vector), p.dim)
	}

	vec := pgvector.NewVector(vector)
	rows, err := p.pool.Query(ctx,
		fmt.Sprintf(`SELECT id, content, url, created_at, embedding <-> $1 AS distance
		 FROM %s
		 ORDER BY embedding <-> $1
		 LIMIT $2`, p.ident()),
		vec, k,
	)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.Record.ID, &h.Record.Content, &h.Record.URL, &h.Record.CreatedAt, &h.Distance); err != nil {
			return nil, fmt.Errorf("scanning search hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// HasCollection reports whether the backing table exists.
func (p *PostgresIndex) HasCollection(ctx context.Context) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, p.table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking collection %s: %w", p.table, err)
	}
	return exists, nil
}

// CreateCollection creates the table and its IVFFlat L2 index.
func (p *PostgresIndex) CreateCollection(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id         BIGSERIAL PRIMARY KEY,
			content    TEXT NOT NULL CHECK (octet_length(content) <= %d),
			url        TEXT NOT NULL DEFAULT '' CHECK (octet_length(url) <= %d),
			embedding  vector(%d) NOT NULL,
			created_at BIGINT NOT NULL
		)`, p.ident(), domain.MaxContentBytes, domain.MaxURLBytes, p.dim),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING ivfflat (embedding vector_l2_ops) WITH (lists = 100)`,
			pgx.Identifier{p.table + "_embedding_idx"}.Sanitize(), p.ident()),
	}

	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("creating collection %s: %w", p.table, err)
		}
	}

	slog.Info("index: collection created", "table", p.table, "dimension", p.dim)
	return nil
}

// DropCollection removes the table and all records in it.
func (p *PostgresIndex) DropCollection(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, p.ident())); err != nil {
		return fmt.Errorf("dropping collection %s: %w", p.table, err)
	}
	slog.Info("index: collection dropped", "table", p.table)
	return nil
}

// StoredDimension returns the declared dimension of the embedding column.
func (p *PostgresIndex) StoredDimension(ctx context.Context) (int, error) {
	var dim int
	err := p.pool.QueryRow(ctx,
		`SELECT atttypmod FROM pg_attribute
		 WHERE attrelid = to_regclass($1) AND attname = 'embedding' AND NOT attisdropped`,
		p.table,
	).Scan(&dim)
	if err != nil {
		return 0, fmt.Errorf("reading dimension of %s: %w", p.table, err)
	}
	return dim, nil
}

// EnsureCollection creates the collection when missing and otherwise
// verifies the stored dimension matches the configured one.
func (p *PostgresIndex) EnsureCollection(ctx context.Context) error {
	ok, err := p.HasCollection(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return p.CreateCollection(ctx)
	}

	dim, err := p.StoredDimension(ctx)
	if err != nil {
		return err
	}
	if dim != p.dim {
		return fmt.Errorf("%w: collection %s stores %d, configured %d", domain.ErrDimensionMismatch, p.table, dim, p.dim)
	}
	return nil
}

// Count returns the number of stored records.
func (p *PostgresIndex) Count(ctx context.Context) (int64, error) {
	var n int64
	err := p.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, p.ident())).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}
