package tools

import (
	"context"
	"fmt"

	"github.com/seattleguide/seattleguide/internal/service"
)

const maxCorpusLimit = 20

// CorpusSearchTool searches curated Seattle travel writing and returns the
// matching chunks as fenced text blocks.
func CorpusSearchTool(corpus service.CorpusSearcher, cfg Config) Tool {
	return Tool{
		Name: SearchCorpus,
		Description: "Search a curated collection of Seattle travel guides and blog posts. " +
			"Use it for recommendations, neighborhood advice, itineraries, seasonal tips and local context.",
		Params: []Param{
			{Name: "query", Type: String, Required: true,
				Description: "Free-text search, e.g. 'rainy day activities with kids'"},
			{Name: "limit", Type: Number, Default: float64(cfg.CorpusLimit),
				Description: fmt.Sprintf("Number of chunks to return (max %d)", maxCorpusLimit)},
			{Name: "source", Type: String,
				Description: "Only return chunks from this source"},
		},
		Execute: func(ctx context.Context, args Args) (string, error) {
			q := service.CorpusQuery{Query: args.String("query")}
			if limit, ok := args.Number("limit"); ok {
				if limit < 1 {
					return "", fmt.Errorf("%w: limit must be at least 1", ErrInvalidArguments)
				}
				// Clamp before converting: huge values overflow int.
				q.Limit = int(min(limit, maxCorpusLimit))
			}
			if src := args.String("source"); src != "" {
				q.Filter = map[string]string{"source": src}
			}

			chunks, err := corpus.Search(ctx, q)
			if err != nil {
				return "", err
			}
			return service.FormatChunks(chunks), nil
		},
	}
}
