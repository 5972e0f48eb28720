package ingestion

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/echorelay/echorelay/internal/retrieval"
)

// recordingStore captures upserted chunks for assertions.
type recordingStore struct {
	requests []retrieval.UpsertRequest
	err      error
}

func (s *recordingStore) Name() string    { return "recording" }
func (s *recordingStore) Names() []string { return []string{"recording"} }

func (s *recordingStore) Upsert(_ context.Context, req retrieval.UpsertRequest) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.requests = append(s.requests, req)
	return fmt.Sprintf("%d", len(s.requests)), nil
}

func (s *recordingStore) Query(context.Context, retrieval.QueryRequest) ([]retrieval.Result, error) {
	return nil, nil
}

func (s *recordingStore) Close() error { return nil }

func Test_Pipeline_IngestFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "notes.md")
	if err := os.WriteFile(path, []byte("relay operating notes"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := &recordingStore{}
	p, err := NewPipeline(store, nil)
	if err != nil {
		t.Fatalf("NewPipeline() error: %v", err)
	}

	if err := p.Ingest(context.Background(), []Source{{Location: path}}, nil); err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}

	if len(store.requests) != 1 {
		t.Fatalf("upserted %d chunks, want 1", len(store.requests))
	}
	got := store.requests[0]
	if got.Content != "relay operating notes" {
		t.Errorf("chunk content = %q", got.Content)
	}
	if got.Source != "notes" {
		t.Errorf("chunk source = %q, want inferred label %q", got.Source, "notes")
	}
}

func Test_Pipeline_IngestURLChunksAndRoutes(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("0123456789", 30) // 300 chars
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)

	store := &recordingStore{}
	p, err := NewPipeline(store, &Config{ChunkSize: 100, ChunkOverlap: 10})
	if err != nil {
		t.Fatalf("NewPipeline() error: %v", err)
	}

	src := Source{Location: srv.URL + "/docs/page", Label: "docs", Store: "alpha"}
	if err := p.Ingest(context.Background(), []Source{src}, nil); err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}

	if len(store.requests) < 3 {
		t.Fatalf("upserted %d chunks, want at least 3 for 300 chars at size 100", len(store.requests))
	}
	for i, req := range store.requests {
		if req.Source != "docs" {
			t.Errorf("chunk %d source = %q, want explicit label", i, req.Source)
		}
		if req.Store != "alpha" {
			t.Errorf("chunk %d store = %q, want routed member", i, req.Store)
		}
	}
	// Overlap: each chunk after the first starts with the previous chunk's tail.
	first, second := store.requests[0].Content, store.requests[1].Content
	if !strings.HasPrefix(second, first[len(first)-10:]) {
		t.Errorf("chunk overlap missing: first tail %q, second head %q", first[len(first)-10:], second[:10])
	}
}

func Test_Pipeline_IngestFetchFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	p, err := NewPipeline(&recordingStore{}, nil)
	if err != nil {
		t.Fatalf("NewPipeline() error: %v", err)
	}

	if err := p.Ingest(context.Background(), []Source{{Location: srv.URL}}, nil); err == nil {
		t.Fatal("Ingest() expected error for failing fetch")
	}
}

func Test_Pipeline_RequiresStore(t *testing.T) {
	t.Parallel()

	if _, err := NewPipeline(nil, nil); err == nil {
		t.Fatal("NewPipeline() expected error for nil store")
	}
}
