package ingest

import (
	"strings"
	"unicode/utf8"
)

const DefaultChunkSize = 1000

// Splitter cuts text into chunks of at most ChunkSize runes. Paragraphs
// (blank-line separated) are packed greedily into a chunk; a paragraph
// longer than ChunkSize is cut at rune boundaries.
type Splitter struct {
	ChunkSize int
	Separator string
}

func NewSplitter(chunkSize int) Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return Splitter{ChunkSize: chunkSize, Separator: "\n\n"}
}

func (s Splitter) Split(text string) []string {
	sep := s.Separator
	if sep == "" {
		sep = "\n\n"
	}
	sepLen := utf8.RuneCountInString(sep)

	var (
		chunks []string
		cur    []string
		curLen int
	)
	flush := func() {
		if len(cur) > 0 {
			chunks = append(chunks, strings.Join(cur, sep))
			cur, curLen = nil, 0
		}
	}

	for _, piece := range strings.Split(text, sep) {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		n := utf8.RuneCountInString(piece)

		if n > s.ChunkSize {
			flush()
			chunks = append(chunks, cutRunes(piece, s.ChunkSize)...)
			continue
		}

		extra := n
		if len(cur) > 0 {
			extra += sepLen
		}
		if curLen+extra > s.ChunkSize {
			flush()
			extra = n
		}
		cur = append(cur, piece)
		curLen += extra
	}
	flush()
	return chunks
}

func cutRunes(s string, size int) []string {
	runes := []rune(s)
	var out []string
	for len(runes) > 0 {
		n := min(size, len(runes))
		if part := strings.TrimSpace(string(runes[:n])); part != "" {
			out = append(out, part)
		}
		runes = runes[n:]
	}
	return out
}
