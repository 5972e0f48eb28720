package retrieval

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// SourceConfig is one declarative store descriptor consumed by Build.
// Descriptors arrive either from the YAML config file or from the
// RAG_SOURCES JSON environment variable, hence both tag sets.
type SourceConfig struct {
	// Type selects the backend: "sqlite", "memory", or "qdrant".
	// "durable" and "ephemeral" are accepted as aliases for the first two.
	// Empty defaults to "sqlite".
	Type string `yaml:"type" json:"type"`

	// Name overrides the store's default name. Names must be unique
	// across the descriptor list.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Path is the database file location (sqlite only, required).
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	// Host is the server hostname (qdrant only).
	Host string `yaml:"host,omitempty" json:"host,omitempty"`

	// Port is the server gRPC port (qdrant only).
	Port int `yaml:"port,omitempty" json:"port,omitempty"`

	// Collection is the collection name (qdrant only, required).
	Collection string `yaml:"collection,omitempty" json:"collection,omitempty"`

	// VectorSize is the embedding dimensionality used if the collection
	// has to be created (qdrant only).
	VectorSize uint64 `yaml:"vector_size,omitempty" json:"vector_size,omitempty"`
}

// BuildOptions carries the ambient settings Build needs beyond the
// descriptor list itself.
type BuildOptions struct {
	// DefaultPath is the SQLite path used when the descriptor list is
	// empty. An explicit sqlite descriptor must carry its own path.
	DefaultPath string

	// QdrantAPIKey authenticates qdrant descriptors, if set.
	QdrantAPIKey string

	// QdrantTLS enables TLS for qdrant descriptors.
	QdrantTLS bool
}

// Build constructs the store topology described by sources, sharing one
// embedder (and therefore one embedding space) across every store built.
//
// An empty or nil list yields a single default-configured SQLite store.
// One descriptor yields that leaf store directly; several yield a
// CompositeStore wrapping one store per descriptor in the listed order,
// with the first as the default upsert target. Malformed descriptors fail
// with ErrInvalidConfig.
func Build(ctx context.Context, sources []SourceConfig, embedder Embedder, opts *BuildOptions) (Store, error) {
	if opts == nil {
		opts = &BuildOptions{}
	}
	if opts.DefaultPath == "" {
		opts.DefaultPath = "retrieval.db"
	}

	if len(sources) == 0 {
		return NewSQLiteStore(&SQLiteConfig{Path: opts.DefaultPath}, embedder)
	}

	stores := make([]Store, 0, len(sources))
	for i, src := range sources {
		s, err := buildOne(ctx, i, src, embedder, opts)
		if err != nil {
			// Leaf stores opened so far hold real resources.
			for _, open := range stores {
				_ = open.Close()
			}
			return nil, err
		}
		stores = append(stores, s)
	}

	if len(stores) == 1 {
		return stores[0], nil
	}
	return NewCompositeStore(stores, embedder, "")
}

// buildOne constructs the leaf store for a single descriptor.
func buildOne(ctx context.Context, idx int, src SourceConfig, embedder Embedder, opts *BuildOptions) (Store, error) {
	switch normalizeType(src.Type) {
	case "sqlite":
		path := src.Path
		if path == "" {
			return nil, fmt.Errorf("retrieval: %w: sqlite source %d requires a path", ErrInvalidConfig, idx)
		}
		return NewSQLiteStore(&SQLiteConfig{Path: path, Name: src.Name}, embedder)

	case "memory":
		name := src.Name
		if name == "" {
			name = "memory:" + strconv.Itoa(idx)
		}
		return NewMemoryStore(name, embedder)

	case "qdrant":
		return NewQdrantStore(ctx, &QdrantConfig{
			Host:       src.Host,
			Port:       src.Port,
			Collection: src.Collection,
			VectorSize: src.VectorSize,
			APIKey:     opts.QdrantAPIKey,
			UseTLS:     opts.QdrantTLS,
			Name:       src.Name,
		}, embedder)

	default:
		return nil, fmt.Errorf("retrieval: %w: unsupported source type %q", ErrInvalidConfig, src.Type)
	}
}

// normalizeType maps descriptor type aliases to their canonical backend name.
func normalizeType(t string) string {
	switch strings.ToLower(t) {
	case "", "sqlite", "durable":
		return "sqlite"
	case "memory", "ephemeral":
		return "memory"
	case "qdrant":
		return "qdrant"
	default:
		return strings.ToLower(t)
	}
}
