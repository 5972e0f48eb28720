package retrieval

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func Test_Build_EmptyListYieldsDefaultSQLite(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "default.db")

	s, err := Build(context.Background(), nil, charEmbedder{}, &BuildOptions{DefaultPath: path})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer s.Close()

	if _, ok := s.(*SQLiteStore); !ok {
		t.Fatalf("want *SQLiteStore, got %T", s)
	}
	if want := "sqlite:" + path; s.Name() != want {
		t.Errorf("Name() = %q, want %q", s.Name(), want)
	}
}

func Test_Build_SingleDescriptorYieldsLeaf(t *testing.T) {
	t.Parallel()

	s, err := Build(context.Background(), []SourceConfig{
		{Type: "memory", Name: "scratch"},
	}, charEmbedder{}, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer s.Close()

	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("want *MemoryStore, got %T", s)
	}
	if s.Name() != "scratch" {
		t.Errorf("Name() = %q, want scratch", s.Name())
	}
}

func Test_Build_MultipleDescriptorsYieldComposite(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Build(context.Background(), []SourceConfig{
		{Type: "sqlite", Name: "docs", Path: filepath.Join(dir, "docs.db")},
		{Type: "memory", Name: "scratch"},
	}, charEmbedder{}, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer s.Close()

	if _, ok := s.(*CompositeStore); !ok {
		t.Fatalf("want *CompositeStore, got %T", s)
	}
	names := s.Names()
	if len(names) != 2 || names[0] != "docs" || names[1] != "scratch" {
		t.Errorf("Names() = %v, want [docs scratch]", names)
	}

	// The first descriptor is the default upsert target.
	id, err := s.Upsert(context.Background(), UpsertRequest{Content: "hello"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if store, _, _ := SplitID(id); store != "docs" {
		t.Errorf("default target = %q, want docs", store)
	}
}

func Test_Build_TypeAliases(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Build(context.Background(), []SourceConfig{
		{Type: "durable", Name: "d", Path: filepath.Join(dir, "d.db")},
		{Type: "ephemeral", Name: "e"},
	}, charEmbedder{}, nil)
	if err != nil {
		t.Fatalf("build with aliases: %v", err)
	}
	defer s.Close()

	names := s.Names()
	if len(names) != 2 || names[0] != "d" || names[1] != "e" {
		t.Errorf("Names() = %v, want [d e]", names)
	}
}

func Test_Build_SQLiteRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Build(context.Background(), []SourceConfig{{Type: "sqlite"}}, charEmbedder{}, nil)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("want ErrInvalidConfig, got %v", err)
	}

	// DefaultPath only covers the empty descriptor list. An explicit
	// durable descriptor must still carry its own path.
	opts := &BuildOptions{DefaultPath: filepath.Join(t.TempDir(), "fallback.db")}
	_, err = Build(context.Background(), []SourceConfig{{Type: "durable"}}, charEmbedder{}, opts)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("durable without path: want ErrInvalidConfig, got %v", err)
	}
}

func Test_Build_UnsupportedTypeFails(t *testing.T) {
	t.Parallel()

	_, err := Build(context.Background(), []SourceConfig{{Type: "redis"}}, charEmbedder{}, nil)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("want ErrInvalidConfig, got %v", err)
	}
}

func Test_Build_UnnamedMemoryStoresGetIndexedNames(t *testing.T) {
	t.Parallel()

	s, err := Build(context.Background(), []SourceConfig{
		{Type: "memory"},
		{Type: "memory"},
	}, charEmbedder{}, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer s.Close()

	names := s.Names()
	if len(names) != 2 || names[0] != "memory:0" || names[1] != "memory:1" {
		t.Errorf("Names() = %v, want [memory:0 memory:1]", names)
	}
}
