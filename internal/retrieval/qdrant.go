package retrieval

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds connection parameters for a Qdrant-backed store.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this
	// collection, used when the collection has to be created.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// Name overrides the default store name ("qdrant:<collection>").
	Name string
}

// QdrantStore is a remote leaf Store variant backed by a Qdrant
// collection. Unlike the SQLite and memory variants it does not scan and
// score locally — ranking is delegated to the server, which is configured
// for cosine distance so scores stay comparable with the local variants.
// It exists for deployments where a corpus outgrows linear scan.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client, exclusively owned.
	client *qdrant.Client
	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig
	// name is the store's immutable name.
	name string
	// embedder converts content and query text into vectors.
	embedder Embedder
}

// NewQdrantStore connects to Qdrant, ensures the target collection exists
// (creating it with cosine distance if necessary), and returns a ready
// Store.
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig, embedder Embedder) (*QdrantStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("retrieval: qdrant: embedder must not be nil")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("retrieval: qdrant: %w: collection is required", ErrInvalidConfig)
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval: qdrant: %w: create client: %v", ErrStorageUnavailable, err)
	}

	name := cfg.Name
	if name == "" {
		name = "qdrant:" + cfg.Collection
	}

	s := &QdrantStore{client: client, cfg: cfg, name: name, embedder: embedder}
	if err := s.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

// ensureCollection creates the collection if it does not already exist.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("retrieval: qdrant: %w: check collection: %v", ErrStorageUnavailable, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("retrieval: qdrant: %w: create collection %q: %v", ErrStorageUnavailable, s.cfg.Collection, err)
	}
	return nil
}

// Name returns the store's immutable name.
func (s *QdrantStore) Name() string { return s.name }

// Names returns the single-element name list for this leaf store.
func (s *QdrantStore) Names() []string { return []string{s.name} }

// Upsert embeds req.Content and stores it as a new point under a
// generated id. The req.Store field is ignored.
func (s *QdrantStore) Upsert(ctx context.Context, req UpsertRequest) (string, error) {
	vec, err := s.embedder.Embed(ctx, req.Content)
	if err != nil {
		return "", fmt.Errorf("retrieval: qdrant upsert: %w", err)
	}

	id := uuid.NewString()
	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(id),
		Vectors: qdrant.NewVectors(vec...),
		Payload: qdrant.NewValueMap(map[string]any{
			"content": req.Content,
			"source":  req.Source,
		}),
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return "", fmt.Errorf("retrieval: qdrant upsert: %w: %v", ErrStorageUnavailable, err)
	}
	return id, nil
}

// Query runs a server-side cosine similarity search and returns at most
// req.Limit results. A non-positive limit yields an empty result set.
func (s *QdrantStore) Query(ctx context.Context, req QueryRequest) ([]Result, error) {
	if req.Limit <= 0 {
		return []Result{}, nil
	}

	vec := req.Embedding
	if len(vec) == 0 {
		var err error
		vec, err = s.embedder.Embed(ctx, req.Text)
		if err != nil {
			return nil, fmt.Errorf("retrieval: qdrant query: %w", err)
		}
	}

	limit := uint64(req.Limit)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval: qdrant query: %w: %v", ErrStorageUnavailable, err)
	}

	results := make([]Result, 0, len(points))
	for _, p := range points {
		r := Result{
			ID:    p.Id.GetUuid(),
			Store: s.name,
			Score: float64(p.Score),
		}
		if payload := p.Payload; payload != nil {
			if v, ok := payload["content"]; ok {
				r.Content = v.GetStringValue()
			}
			if v, ok := payload["source"]; ok {
				r.Source = v.GetStringValue()
			}
		}
		results = append(results, r)
	}
	return results, nil
}

// Close closes the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("retrieval: qdrant close: %w", err)
	}
	return nil
}

// Client returns the underlying Qdrant client, used for readiness probes.
func (s *QdrantStore) Client() *qdrant.Client { return s.client }
