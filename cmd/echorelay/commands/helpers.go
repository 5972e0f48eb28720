package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/echorelay/echorelay/internal/config"
	"github.com/echorelay/echorelay/internal/embedder"
	"github.com/echorelay/echorelay/internal/retrieval"
)

// buildStore constructs the retrieval store topology shared by the serve,
// ingest, query, and stores commands: one embedder from the environment,
// plus the stores declared in RAG_SOURCES (or the default SQLite store when
// none are declared). The caller owns the returned store and must Close it.
func buildStore(ctx context.Context, log *slog.Logger) (retrieval.Store, retrieval.Embedder, error) {
	if err := embedder.Validate(log); err != nil {
		return nil, nil, err
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}

	sources, err := config.Sources()
	if err != nil {
		return nil, nil, err
	}

	store, err := retrieval.Build(ctx, sources, emb, &retrieval.BuildOptions{
		DefaultPath:  envOrDefault("RAG_DB_PATH", "retrieval.db"),
		QdrantAPIKey: os.Getenv("QDRANT_API_KEY"),
		QdrantTLS:    os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build retrieval store: %w", err)
	}

	log.Info("retrieval store ready", slog.Any("stores", store.Names()))
	return store, emb, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
