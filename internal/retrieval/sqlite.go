package retrieval

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// SQLiteStore is the durable Store variant: documents and their embeddings
// live in a single-file SQLite database and survive process restarts.
//
// Concurrency discipline: the connection pool is capped at one connection,
// so every read and write is serialized — a scan-and-score pass never
// interleaves with a concurrent insert. Embedding computation (network
// I/O) always happens before the storage access so a slow provider never
// blocks readers of already-stored data.
type SQLiteStore struct {
	// db is the underlying database handle, exclusively owned by this store.
	db *sql.DB
	// name is the store's immutable name.
	name string
	// embedder converts content and query text into vectors.
	embedder Embedder
}

// SQLiteConfig holds the settings for constructing a SQLiteStore.
type SQLiteConfig struct {
	// Path is the database file location. ":memory:" is valid for tests.
	Path string
	// Name overrides the default store name ("sqlite:<path>").
	Name string
}

// NewSQLiteStore opens (or creates) the database at cfg.Path, runs the
// schema migration, and returns a ready Store. The parent directory is
// created if it does not exist.
func NewSQLiteStore(cfg *SQLiteConfig, embedder Embedder) (*SQLiteStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("retrieval: sqlite: embedder must not be nil")
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("retrieval: sqlite: %w: path is required", ErrInvalidConfig)
	}

	if cfg.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("retrieval: sqlite: %w: create %s: %v", ErrStorageUnavailable, dir, err)
			}
		}
	}

	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := cfg.Path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("retrieval: sqlite: %w: open %s: %v", ErrStorageUnavailable, cfg.Path, err)
	}
	// A single connection is the store-wide exclusive-access region:
	// no two inserts interleave, and scans see a consistent snapshot.
	db.SetMaxOpenConns(1)

	name := cfg.Name
	if name == "" {
		name = "sqlite:" + cfg.Path
	}

	s := &SQLiteStore{db: db, name: name, embedder: embedder}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist. The embedding
// column holds a JSON array of floats — existing data files written in
// that format must stay parseable, so the on-disk shape is load-bearing.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS documents (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    source      TEXT,
    content     TEXT NOT NULL,
    embedding   TEXT NOT NULL,
    created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("retrieval: sqlite: %w: migrate: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Name returns the store's immutable name.
func (s *SQLiteStore) Name() string { return s.name }

// Names returns the single-element name list for this leaf store.
func (s *SQLiteStore) Names() []string { return []string{s.name} }

// Upsert embeds req.Content, appends a new row, and returns the row id.
// The req.Store field is ignored — a leaf store has exactly one target.
func (s *SQLiteStore) Upsert(ctx context.Context, req UpsertRequest) (string, error) {
	vec, err := s.embedder.Embed(ctx, req.Content)
	if err != nil {
		return "", fmt.Errorf("retrieval: sqlite upsert: %w", err)
	}

	raw, err := json.Marshal(vec)
	if err != nil {
		return "", fmt.Errorf("retrieval: sqlite upsert: marshal embedding: %w", err)
	}

	var source sql.NullString
	if req.Source != "" {
		source = sql.NullString{String: req.Source, Valid: true}
	}

	const q = `INSERT INTO documents (source, content, embedding) VALUES (?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, source, req.Content, string(raw))
	if err != nil {
		return "", fmt.Errorf("retrieval: sqlite upsert: %w: %v", ErrStorageUnavailable, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("retrieval: sqlite upsert: last insert id: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

// Query linearly scans every row, scores it against the query vector, and
// returns at most req.Limit results sorted by descending score. Ties rank
// in insertion order. A non-positive limit yields an empty result set.
func (s *SQLiteStore) Query(ctx context.Context, req QueryRequest) ([]Result, error) {
	vec := req.Embedding
	if len(vec) == 0 {
		var err error
		vec, err = s.embedder.Embed(ctx, req.Text)
		if err != nil {
			return nil, fmt.Errorf("retrieval: sqlite query: %w", err)
		}
	}

	const q = `SELECT id, source, content, embedding FROM documents ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("retrieval: sqlite query: %w: %v", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			id     int64
			source sql.NullString
			r      Result
			raw    string
		)
		if err := rows.Scan(&id, &source, &r.Content, &raw); err != nil {
			return nil, fmt.Errorf("retrieval: sqlite query: scan: %w", err)
		}

		var docVec []float32
		if err := json.Unmarshal([]byte(raw), &docVec); err != nil {
			return nil, fmt.Errorf("retrieval: sqlite query: decode embedding for row %d: %w", id, err)
		}

		score, err := Cosine(vec, docVec)
		if err != nil {
			return nil, fmt.Errorf("retrieval: sqlite query: row %d: %w", id, err)
		}

		r.ID = strconv.FormatInt(id, 10)
		r.Source = source.String
		r.Store = s.name
		r.Score = score
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("retrieval: sqlite query: rows: %w", err)
	}

	return rank(results, req.Limit), nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("retrieval: sqlite close: %w", err)
	}
	return nil
}

// rank sorts results by descending score — stably, so equal scores keep
// their insertion order — and truncates to limit. A non-positive limit
// returns an empty slice.
func rank(results []Result, limit int) []Result {
	if limit <= 0 {
		return []Result{}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
