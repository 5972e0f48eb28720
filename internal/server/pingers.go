package server

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/echorelay/echorelay/internal/retrieval"
)

// EmbedderPinger probes the embedding backend by embedding a minimal input.
// It satisfies the Pinger interface and is used by GET /api/ready.
type EmbedderPinger struct {
	// embedder is the embedding backend to probe.
	embedder retrieval.Embedder
	// name identifies the backend in readiness responses (e.g. "ollama").
	name string
}

// NewEmbedderPinger constructs an EmbedderPinger for the given backend.
func NewEmbedderPinger(e retrieval.Embedder, name string) *EmbedderPinger {
	return &EmbedderPinger{embedder: e, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *EmbedderPinger) Name() string { return p.name }

// Ping embeds a one-word input to verify the backend responds with a vector.
func (p *EmbedderPinger) Ping(ctx context.Context) error {
	vec, err := p.embedder.Embed(ctx, "ping")
	if err != nil {
		return fmt.Errorf("embed failed: %w", err)
	}
	if len(vec) == 0 {
		return fmt.Errorf("embed returned an empty vector")
	}
	return nil
}

// HistoryPinger probes the message history database.
type HistoryPinger struct {
	// db is any store exposing a Ping, typically *history.SQLiteStore.
	db interface {
		Ping(ctx context.Context) error
	}
}

// NewHistoryPinger constructs a HistoryPinger for the given store.
func NewHistoryPinger(db interface{ Ping(ctx context.Context) error }) *HistoryPinger {
	return &HistoryPinger{db: db}
}

// Name returns the dependency label used in readiness responses.
func (p *HistoryPinger) Name() string { return "history" }

// Ping verifies the history database is reachable.
func (p *HistoryPinger) Ping(ctx context.Context) error {
	if err := p.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// QdrantPinger probes a Qdrant instance using its native HealthCheck RPC.
// It satisfies the Pinger interface and is used by GET /api/ready.
type QdrantPinger struct {
	// client is the Qdrant gRPC client to probe.
	client *qdrant.Client
}

// NewQdrantPinger constructs a QdrantPinger for the given Qdrant client.
func NewQdrantPinger(client *qdrant.Client) *QdrantPinger {
	return &QdrantPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
// Returns nil if Qdrant is reachable, or a descriptive error otherwise.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	_, err := p.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
