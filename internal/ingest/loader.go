package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jiwoo-ai/jiwoo/internal/domain"
	"github.com/jiwoo-ai/jiwoo/internal/index"
	"github.com/jiwoo-ai/jiwoo/internal/llm"
)

var ErrEmptyDocument = errors.New("document has no content")

// Loader embeds documents chunk by chunk and inserts them into the index.
type Loader struct {
	embedder     llm.Embedder
	index        index.Index
	splitter     Splitter
	embedTimeout time.Duration
}

func NewLoader(embedder llm.Embedder, idx index.Index, splitter Splitter, embedTimeout time.Duration) *Loader {
	return &Loader{embedder: embedder, index: idx, splitter: splitter, embedTimeout: embedTimeout}
}

// LoadFile reads a UTF-8 text file and ingests it. When url is empty the
// file path is recorded as the source.
func (l *Loader) LoadFile(ctx context.Context, path, url string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	if url == "" {
		url = "file://" + path
	}
	return l.LoadText(ctx, string(data), url)
}

// LoadText ingests text and returns the number of records written. It
// stops at the first failing chunk; records already written stay.
func (l *Loader) LoadText(ctx context.Context, text, url string) (int, error) {
	chunks := l.splitter.Split(text)
	if len(chunks) == 0 {
		return 0, ErrEmptyDocument
	}

	now := time.Now().Unix()
	for i, chunk := range chunks {
		vec, err := l.embed(ctx, chunk)
		if err != nil {
			return i, fmt.Errorf("embedding chunk %d: %w", i, err)
		}

		rec := &domain.SearchRecord{Content: chunk, URL: url, Embedding: vec, CreatedAt: now}
		if _, err := l.index.Insert(ctx, rec); err != nil {
			return i, fmt.Errorf("inserting chunk %d: %w", i, err)
		}
	}

	slog.Info("ingested document", "url", url, "chunks", len(chunks))
	return len(chunks), nil
}

func (l *Loader) embed(ctx context.Context, text string) ([]float32, error) {
	if l.embedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.embedTimeout)
		defer cancel()
	}
	return l.embedder.Embed(ctx, text)
}
