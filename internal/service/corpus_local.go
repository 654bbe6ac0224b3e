package service

import (
	"context"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
)

// LocalCorpus is an embedded chromem-go collection persisted on disk.
type LocalCorpus struct {
	collection *chromem.Collection
}

// NewLocalCorpus opens (or creates) the collection. An empty path keeps the
// database in memory.
func NewLocalCorpus(path, collection string, embed chromem.EmbeddingFunc) (*LocalCorpus, error) {
	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("open vector db %s: %w", path, err)
		}
	}

	col, err := db.GetOrCreateCollection(collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", collection, err)
	}
	return &LocalCorpus{collection: col}, nil
}

// NewOpenAIEmbedding is the embedding function used for the local corpus.
func NewOpenAIEmbedding(apiKey, model string) chromem.EmbeddingFunc {
	return chromem.NewEmbeddingFuncOpenAI(apiKey, chromem.EmbeddingModelOpenAI(model))
}

func (c *LocalCorpus) Backend() string { return "local" }

// Count reports how many chunks are indexed.
func (c *LocalCorpus) Count() int { return c.collection.Count() }

// TestConnection fails when nothing has been ingested yet.
func (c *LocalCorpus) TestConnection(context.Context) error {
	if c.collection.Count() == 0 {
		return fmt.Errorf("collection %s is empty, run seattleguide ingest", c.collection.Name)
	}
	return nil
}

func (c *LocalCorpus) Search(ctx context.Context, q CorpusQuery) ([]Chunk, error) {
	n := q.Limit
	if count := c.collection.Count(); n <= 0 || n > count {
		n = count
	}
	if n == 0 {
		logCorpusCall(log.Info(), c.Backend(), q).Int("chunks", 0).Msg("corpus search")
		return nil, nil
	}

	results, err := c.collection.Query(ctx, q.Query, n, q.Filter, nil)
	if err != nil {
		logCorpusCall(log.Error().Err(err), c.Backend(), q).Msg("corpus search failed")
		return nil, fmt.Errorf("%w: local corpus query: %v", ErrUpstream, err)
	}

	chunks := make([]Chunk, 0, len(results))
	for _, r := range results {
		meta := make(map[string]interface{}, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}
		chunks = append(chunks, Chunk{
			Content:      r.Content,
			Metadata:     meta,
			DocumentName: r.Metadata["document_name"],
			Score:        float64(r.Similarity),
		})
	}

	logCorpusCall(log.Info(), c.Backend(), q).Int("chunks", len(chunks)).Msg("corpus search")
	return chunks, nil
}

func (c *LocalCorpus) IndexDocuments(ctx context.Context, docs []CorpusDocument) error {
	if len(docs) == 0 {
		return nil
	}
	batch := make([]chromem.Document, 0, len(docs))
	for _, d := range docs {
		meta := make(map[string]string, len(d.Metadata)+1)
		for k, v := range d.Metadata {
			meta[k] = v
		}
		meta["document_name"] = d.DocumentName
		batch = append(batch, chromem.Document{
			ID:       d.ID,
			Metadata: meta,
			Content:  d.Content,
		})
	}
	return c.collection.AddDocuments(ctx, batch, runtime.NumCPU())
}
