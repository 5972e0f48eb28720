package retrieval

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the ephemeral Store variant: documents live in process
// memory and are lost on restart. It suits transient content or content
// whose source of truth is already durable elsewhere (a file on disk).
type MemoryStore struct {
	// name is the store's immutable name.
	name string
	// embedder converts content and query text into vectors.
	embedder Embedder

	// mu guards docs. Embedding computation happens outside the lock.
	mu sync.RWMutex
	// docs holds every document in insertion order, so score ties rank
	// oldest-first without any extra bookkeeping.
	docs []memoryDoc
}

// memoryDoc is one stored document.
type memoryDoc struct {
	id        string
	source    string
	content   string
	embedding []float32
	createdAt time.Time
}

// NewMemoryStore constructs an empty MemoryStore. If name is empty the
// store is named "memory".
func NewMemoryStore(name string, embedder Embedder) (*MemoryStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("retrieval: memory: embedder must not be nil")
	}
	if name == "" {
		name = "memory"
	}
	return &MemoryStore{name: name, embedder: embedder}, nil
}

// Name returns the store's immutable name.
func (s *MemoryStore) Name() string { return s.name }

// Names returns the single-element name list for this leaf store.
func (s *MemoryStore) Names() []string { return []string{s.name} }

// Upsert embeds req.Content and appends a new document under a generated
// id. The req.Store field is ignored — a leaf store has exactly one target.
func (s *MemoryStore) Upsert(ctx context.Context, req UpsertRequest) (string, error) {
	vec, err := s.embedder.Embed(ctx, req.Content)
	if err != nil {
		return "", fmt.Errorf("retrieval: memory upsert: %w", err)
	}

	id := uuid.NewString()

	s.mu.Lock()
	s.docs = append(s.docs, memoryDoc{
		id:        id,
		source:    req.Source,
		content:   req.Content,
		embedding: vec,
		createdAt: time.Now(),
	})
	s.mu.Unlock()

	return id, nil
}

// Query scores every document against the query vector and returns at
// most req.Limit results sorted by descending score.
func (s *MemoryStore) Query(ctx context.Context, req QueryRequest) ([]Result, error) {
	vec := req.Embedding
	if len(vec) == 0 {
		var err error
		vec, err = s.embedder.Embed(ctx, req.Text)
		if err != nil {
			return nil, fmt.Errorf("retrieval: memory query: %w", err)
		}
	}

	// Snapshot under the read lock; score outside it. Documents are
	// immutable once appended, so sharing the backing array is safe.
	s.mu.RLock()
	docs := s.docs
	s.mu.RUnlock()

	results := make([]Result, 0, len(docs))
	for _, d := range docs {
		score, err := Cosine(vec, d.embedding)
		if err != nil {
			return nil, fmt.Errorf("retrieval: memory query: doc %s: %w", d.id, err)
		}
		results = append(results, Result{
			ID:      d.id,
			Source:  d.source,
			Content: d.content,
			Store:   s.name,
			Score:   score,
		})
	}

	return rank(results, req.Limit), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
