package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/echorelay/echorelay/internal/ingestion"
	"github.com/echorelay/echorelay/internal/logging"
)

// NewIngestCmd constructs the `echorelay ingest` command, which runs the
// document ingestion pipeline to populate the retrieval stores.
func NewIngestCmd() *cobra.Command {
	var label string
	var storeName string
	var chunkSize int
	var chunkOverlap int
	var locations []string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest documents into the retrieval stores",
		Long: `Fetch, chunk, and index documents into the configured retrieval stores.

Each source is an HTTP(S) URL or a local file path. Content is split into
overlapping chunks, embedded through the configured embedding backend, and
upserted so later queries can surface it as context.

Required environment variables:
  MODEL_PROVIDER       Embedding backend: ollama, openai (default: ollama)
  EMBEDDING_*          Provider-specific overrides (see README)
  RAG_SOURCES          Optional JSON store topology (default: single SQLite store)
  RAG_DB_PATH          Default SQLite store path (default: retrieval.db)

The --label flag is optional. When omitted, a label is inferred from the
URL host or the file name. The --store flag routes chunks to a named
member of a composite topology; omitted means the default store.

Examples:
  echorelay ingest --source ./docs/runbook.md
  echorelay ingest --source https://example.com/handbook --label handbook
  echorelay ingest --source notes.txt --store scratch --chunk-size 500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if len(locations) == 0 {
				return fmt.Errorf("ingest: at least one --source is required")
			}

			store, _, err := buildStore(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer func() { _ = store.Close() }()

			pipeline, err := ingestion.NewPipeline(store, &ingestion.Config{
				ChunkSize:    chunkSize,
				ChunkOverlap: chunkOverlap,
			})
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			labelSet := cmd.Flags().Changed("label")

			sources := make([]ingestion.Source, 0, len(locations))
			for _, loc := range locations {
				src := ingestion.Source{Location: loc, Store: storeName}
				if labelSet {
					src.Label = label
				} else {
					src.Label = ingestion.InferMetadata(loc).Label
				}

				log.Info("source metadata",
					slog.String("location", loc),
					slog.String("label", src.Label),
					slog.String("store", src.Store),
				)
				sources = append(sources, src)
			}

			log.Info("starting ingestion", slog.Int("sources", len(sources)))

			if err := pipeline.Ingest(ctx, sources, func(msg string) {
				log.Info(msg)
			}); err != nil {
				return fmt.Errorf("ingest: pipeline failed: %w", err)
			}

			log.Info("ingestion complete", slog.Int("sources", len(sources)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&label, "label", "l", "", "Source label attached to every chunk (default: inferred)")
	cmd.Flags().StringVar(&storeName, "store", "", "Named store to route chunks to (default: default store)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Chunk size in characters (default: 1000)")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 0, "Chunk overlap in characters")
	cmd.Flags().StringArrayVarP(&locations, "source", "s", nil, "Document URL or file path to ingest (repeatable)")

	return cmd
}
