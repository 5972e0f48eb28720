// Package retrieval implements the knowledge store used to ground relay
// responses: text goes in, gets embedded, and can later be found again by
// vector similarity. Storage backends are pluggable — a durable SQLite
// store, an ephemeral in-memory store, and a remote Qdrant store all
// satisfy the same Store interface, and a Composite store aggregates any
// number of them behind one entry point.
//
// Search is a full linear scan over the owning store's documents. At the
// corpus sizes this system targets, an index structure would cost more in
// complexity than it buys in latency.
package retrieval

import (
	"context"
)

// DefaultLimit is the number of results a query returns when the caller
// does not specify a limit.
const DefaultLimit = 3

// Embedder converts text into a dense vector embedding.
// Implementations must be safe to call from multiple goroutines and hold
// no mutable state beyond configuration, so a single instance may be
// shared across every store in a Composite.
type Embedder interface {
	// Embed returns the embedding vector for text. The vector length is
	// provider-defined and constant across calls for a given instance.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// UpsertRequest carries the inputs for a single document insert.
//
// Despite the operation name, upsert never updates an existing row: every
// call appends a new immutable document. The name is kept for wire
// compatibility with the original API surface.
type UpsertRequest struct {
	// Source is an optional free-text label for the document's origin
	// (file path, URL, or empty).
	Source string

	// Content is the document text. Empty content is legal and yields a
	// zero-ish embedding that scores 0 against everything.
	Content string

	// Store optionally names the Composite member to insert into.
	// Leaf stores accept and ignore it — they have exactly one target.
	Store string
}

// QueryRequest carries the inputs for a similarity query.
type QueryRequest struct {
	// Text is the query text to embed and compare against stored documents.
	Text string

	// Limit is the maximum number of results to return. Zero or negative
	// yields an empty result set, never an error. Callers that want the
	// conventional default should pass DefaultLimit.
	Limit int

	// Embedding, if non-empty, is used as the query vector instead of
	// re-embedding Text. The Composite store uses this to compute the
	// embedding once and share it across all members.
	Embedding []float32

	// Stores optionally restricts a Composite query to the named members.
	// Leaf stores accept and ignore it.
	Stores []string
}

// Result is one ranked similarity match.
type Result struct {
	// ID identifies the document within its owning store. Results from a
	// Composite carry qualified ids of the form "<store>:<local-id>".
	ID string `json:"id"`

	// Source is the document's origin label, if any.
	Source string `json:"source,omitempty"`

	// Content is the full document text.
	Content string `json:"content"`

	// Store is the name of the store that owns the document.
	Store string `json:"store"`

	// Score is the cosine similarity to the query vector, in [-1, 1].
	Score float64 `json:"score"`
}

// Store is the contract shared by every storage backend. A Composite store
// satisfies it too, so callers cannot tell one store from many — this is
// deliberate, and allows arbitrary nesting.
//
// Implementations must be safe to call from multiple goroutines. Documents
// are append-only: there is no update or delete.
type Store interface {
	// Name returns the store's immutable name, assigned at construction.
	Name() string

	// Names returns the names of all stores reachable through this one.
	// Leaf stores return a single-element slice containing their own name.
	Names() []string

	// Upsert embeds req.Content, appends a new document, and returns its id.
	Upsert(ctx context.Context, req UpsertRequest) (string, error)

	// Query returns at most req.Limit documents ranked by descending
	// cosine similarity to the query. Ties rank in insertion order.
	Query(ctx context.Context, req QueryRequest) ([]Result, error)

	// Close releases any resources held by the store.
	Close() error
}
