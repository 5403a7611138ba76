package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterEmpty(t *testing.T) {
	items := []EvidenceItem{
		{Title: "a", Snippet: "first"},
		{Title: "b", Snippet: "   "},
		{Title: "c", Snippet: ""},
		{Title: "d", Snippet: "second"},
	}

	out := FilterEmpty(items)
	assert.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Title)
	assert.Equal(t, "d", out[1].Title)
}

func TestSearchRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rec     SearchRecord
		wantErr error
	}{
		{"ok", SearchRecord{Content: "x", Embedding: make([]float32, 4)}, nil},
		{"short embedding", SearchRecord{Content: "x", Embedding: make([]float32, 3)}, ErrDimensionMismatch},
		{"long embedding", SearchRecord{Content: "x", Embedding: make([]float32, 5)}, ErrDimensionMismatch},
		{"content too large", SearchRecord{Content: strings.Repeat("a", MaxContentBytes+1), Embedding: make([]float32, 4)}, ErrRecordTooLarge},
		{"url too large", SearchRecord{Content: "x", URL: strings.Repeat("u", MaxURLBytes+1), Embedding: make([]float32, 4)}, ErrRecordTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate(4)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
