// Package ingestion implements the document ingestion pipeline.
// It reads documents from HTTP(S) URLs or local files, chunks the content,
// and upserts each chunk into the retrieval store, which embeds on write.
// This pipeline is invoked by the `echorelay ingest` CLI command.
package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/echorelay/echorelay/internal/retrieval"
)

// Source describes one document to be ingested.
type Source struct {
	// Location is an HTTP(S) URL or a local file path.
	Location string

	// Label is the source label attached to every chunk. Empty means the
	// label is inferred from Location.
	Label string

	// Store routes chunks to a named member of a composite store.
	// Empty means the default store.
	Store string
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per document chunk.
	// Defaults to 1000 if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters to overlap between consecutive chunks.
	// Values at or above ChunkSize are clamped to a tenth of it.
	ChunkOverlap int

	// HTTPTimeout is the timeout for each URL fetch request.
	// Defaults to 30s if zero.
	HTTPTimeout time.Duration

	// UserAgent is the HTTP User-Agent header sent with fetch requests.
	UserAgent string
}

// Pipeline orchestrates the load → chunk → upsert flow for a set of sources.
type Pipeline struct {
	// store persists the chunks and produces their embeddings.
	store retrieval.Store

	// cfg holds the resolved pipeline configuration.
	cfg *Config

	// httpClient is the HTTP client used for fetching URL sources.
	httpClient *http.Client
}

// NewPipeline constructs a Pipeline from the provided store and config.
func NewPipeline(store retrieval.Store, cfg *Config) (*Pipeline, error) {
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 10
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "echorelay/1.0 (document ingestion)"
	}

	return &Pipeline{
		store: store,
		cfg:   cfg,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
	}, nil
}

// Ingest loads, chunks, and stores all provided sources.
// It processes sources sequentially and returns the first error encountered.
// Progress is reported via the optional progress callback.
func (p *Pipeline) Ingest(ctx context.Context, sources []Source, progress func(msg string)) error {
	if progress == nil {
		progress = func(string) {}
	}

	for _, src := range sources {
		progress(fmt.Sprintf("loading %s", src.Location))

		content, err := p.load(ctx, src.Location)
		if err != nil {
			return fmt.Errorf("ingestion: load failed for %s: %w", src.Location, err)
		}

		label := src.Label
		if label == "" {
			label = InferMetadata(src.Location).Label
		}

		chunks := p.chunk(content)
		progress(fmt.Sprintf("chunked %s into %d chunks", src.Location, len(chunks)))

		for _, chunk := range chunks {
			_, err := p.store.Upsert(ctx, retrieval.UpsertRequest{
				Source:  label,
				Content: chunk,
				Store:   src.Store,
			})
			if err != nil {
				return fmt.Errorf("ingestion: upsert failed for %s: %w", src.Location, err)
			}
		}

		progress(fmt.Sprintf("ingested %d chunks from %s", len(chunks), src.Location))
	}

	return nil
}

// load retrieves the raw text content of a URL or local file.
func (p *Pipeline) load(ctx context.Context, location string) (string, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return p.fetch(ctx, location)
	}

	data, err := os.ReadFile(location)
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	return string(data), nil
}

// fetch retrieves the raw text content of a URL.
func (p *Pipeline) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)
	req.Header.Set("Accept", "text/plain, text/html")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}

	return string(body), nil
}

// chunk splits text into overlapping chunks of cfg.ChunkSize characters.
func (p *Pipeline) chunk(text string) []string {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return nil
	}

	var chunks []string
	size := p.cfg.ChunkSize
	overlap := p.cfg.ChunkOverlap

	for start := 0; start < len(text); start += size - overlap {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}

	return chunks
}
