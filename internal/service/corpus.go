package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Chunk is a scored fragment of a corpus document.
type Chunk struct {
	Content      string                 `json:"content"`
	Metadata     map[string]interface{} `json:"metadata"`
	DocumentName string                 `json:"document_name"`
	Score        float64                `json:"score"`
}

// Source labels a chunk by its metadata source, falling back to the document name.
func (c Chunk) Source() string {
	if src, ok := c.Metadata["source"].(string); ok && src != "" {
		return src
	}
	if c.DocumentName != "" {
		return c.DocumentName
	}
	return "unknown"
}

// CorpusQuery is one free-text search; Limit <= 0 leaves the count to the backend.
type CorpusQuery struct {
	Query  string
	Limit  int
	Filter map[string]string
}

// CorpusSearcher searches a pre-indexed collection of Seattle travel writing.
// Relevance ordering is owned by the backend.
type CorpusSearcher interface {
	Backend() string
	Search(ctx context.Context, q CorpusQuery) ([]Chunk, error)
}

// CorpusIndexer is implemented by backends this service can load documents into.
type CorpusIndexer interface {
	IndexDocuments(ctx context.Context, docs []CorpusDocument) error
}

// CorpusDocument is one chunk prepared for indexing.
type CorpusDocument struct {
	ID           string
	DocumentName string
	Content      string
	Metadata     map[string]string
}

const noChunksFound = "No matching documents found."

// FormatChunks renders chunks as fenced blocks in the order given. Each fence
// is longer than any backtick run inside its content.
func FormatChunks(chunks []Chunk) string {
	if len(chunks) == 0 {
		return noChunksFound
	}
	blocks := make([]string, 0, len(chunks))
	for _, c := range chunks {
		content := strings.TrimSpace(c.Content)
		fence := strings.Repeat("`", max(3, longestBacktickRun(content)+1))
		blocks = append(blocks, fmt.Sprintf("Chunk from source: %s\n%s\n%s\n%s", c.Source(), fence, content, fence))
	}
	return strings.Join(blocks, "\n\n")
}

func longestBacktickRun(s string) int {
	longest, run := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] != '`' {
			run = 0
			continue
		}
		run++
		longest = max(longest, run)
	}
	return longest
}

func logCorpusCall(e *zerolog.Event, backend string, q CorpusQuery) *zerolog.Event {
	d := zerolog.Dict()
	for k, v := range q.Filter {
		d = d.Str(k, v)
	}
	return e.Str("service", "corpus").Str("backend", backend).
		Str("query", q.Query).Int("limit", q.Limit).Dict("filter", d)
}
