package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/seattleguide/seattleguide/internal/server"
	"github.com/seattleguide/seattleguide/internal/service"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <dir>",
	Short: "Load .md and .txt files into the corpus backend",
	Long: `Splits every .md and .txt file under <dir> into paragraph chunks and indexes
them into the configured corpus backend. Each chunk's source is the file name
without its extension. Only the elasticsearch and local backends accept documents.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}
		chunkSize, _ := cmd.Flags().GetInt("chunk-size")

		corpus, err := server.NewCorpus(cfg)
		if err != nil {
			return err
		}
		indexer, ok := corpus.(service.CorpusIndexer)
		if !ok {
			return fmt.Errorf("corpus backend %q does not accept documents", corpus.Backend())
		}

		docs, err := loadDocuments(cmd.Context(), args[0], chunkSize)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			return fmt.Errorf("no .md or .txt files found under %s", args[0])
		}

		if err := indexer.IndexDocuments(cmd.Context(), docs); err != nil {
			return fmt.Errorf("index documents: %w", err)
		}
		log.Info().
			Str("backend", corpus.Backend()).
			Int("chunks", len(docs)).
			Msg("ingest complete")
		return nil
	},
}

// loadDocuments reads and splits every corpus file under dir. Output order
// follows the directory walk.
func loadDocuments(ctx context.Context, dir string, chunkSize int) ([]service.CorpusDocument, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".txt":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	perFile := make([][]service.CorpusDocument, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			perFile[i] = service.SplitDocument(name, string(data), chunkSize)
			log.Debug().Str("file", path).Int("chunks", len(perFile[i])).Msg("document split")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var docs []service.CorpusDocument
	for _, d := range perFile {
		docs = append(docs, d...)
	}
	return docs, nil
}

func init() {
	ingestCmd.Flags().Int("chunk-size", service.DefaultChunkSize, "soft maximum chunk size in bytes")
	rootCmd.AddCommand(ingestCmd)
}
