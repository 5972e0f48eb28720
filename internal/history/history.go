// Package history provides the SQLite-backed message bookkeeping for the
// relay: every text submitted for enhancement is recorded, and each
// LLM-enhanced version is stored alongside its source message. Rows are
// persisted across server restarts.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// ErrNotFound indicates the requested message id does not exist.
var ErrNotFound = errors.New("history: message not found")

// Message is one relayed text submission.
type Message struct {
	// ID is the message's row id.
	ID int64 `json:"id"`
	// Content is the submitted text.
	Content string `json:"content"`
	// CreatedAt is when the message was persisted.
	CreatedAt time.Time `json:"created_at"`
}

// Enhanced is one LLM-enhanced version of a stored message.
type Enhanced struct {
	// ID is the enhanced row's id.
	ID int64 `json:"id"`
	// SourceID is the id of the message this enhancement was derived from.
	SourceID int64 `json:"source_id"`
	// Content is the enhanced text.
	Content string `json:"content"`
	// CreatedAt is when the enhancement was persisted.
	CreatedAt time.Time `json:"created_at"`
}

// MessageStore persists relayed messages and their enhanced versions.
// Implementations must be safe for concurrent use.
type MessageStore interface {
	// Append persists a new message and returns its id.
	Append(ctx context.Context, content string) (int64, error)
	// Get returns the message with the given id, or ErrNotFound.
	Get(ctx context.Context, id int64) (Message, error)
	// Recent returns the most recent n messages, newest-first.
	Recent(ctx context.Context, n int) ([]Message, error)
	// AppendEnhanced persists an enhanced version of the message with
	// sourceID and returns the new enhanced row's id.
	AppendEnhanced(ctx context.Context, sourceID int64, content string) (int64, error)
	// EnhancedFor returns up to limit enhanced versions of the message
	// with sourceID, newest-first.
	EnhancedFor(ctx context.Context, sourceID int64, limit int) ([]Enhanced, error)
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is a MessageStore backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the message history database.
// It resolves to ~/.echorelay/history.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("history: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".echorelay")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("history: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the
// schema migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS messages (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    content      TEXT    NOT NULL,
    created_at   INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE TABLE IF NOT EXISTS enhanced_messages (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    source_message_id  INTEGER NOT NULL REFERENCES messages(id),
    enhanced_content   TEXT    NOT NULL,
    created_at         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_enhanced_source_created
    ON enhanced_messages (source_message_id, created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}
	return nil
}

// Append persists a new message and returns its id.
func (s *SQLiteStore) Append(ctx context.Context, content string) (int64, error) {
	const q = `INSERT INTO messages (content, created_at) VALUES (?, ?)`
	res, err := s.db.ExecContext(ctx, q, content, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("history: append: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history: append id: %w", err)
	}
	return id, nil
}

// Get returns the message with the given id.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (Message, error) {
	const q = `SELECT id, content, created_at FROM messages WHERE id = ?`
	var m Message
	var ts int64
	err := s.db.QueryRowContext(ctx, q, id).Scan(&m.ID, &m.Content, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return Message{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return Message{}, fmt.Errorf("history: get: %w", err)
	}
	m.CreatedAt = time.Unix(ts, 0)
	return m, nil
}

// Recent returns the most recent n messages, newest-first.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]Message, error) {
	const q = `SELECT id, content, created_at FROM messages ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var ts int64
		if err := rows.Scan(&m.ID, &m.Content, &ts); err != nil {
			return nil, fmt.Errorf("history: recent scan: %w", err)
		}
		m.CreatedAt = time.Unix(ts, 0)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: recent rows: %w", err)
	}
	return msgs, nil
}

// AppendEnhanced persists an enhanced version of the message with sourceID.
// The source message must exist.
func (s *SQLiteStore) AppendEnhanced(ctx context.Context, sourceID int64, content string) (int64, error) {
	if _, err := s.Get(ctx, sourceID); err != nil {
		return 0, err
	}

	const q = `INSERT INTO enhanced_messages (source_message_id, enhanced_content, created_at) VALUES (?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, sourceID, content, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("history: append enhanced: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history: append enhanced id: %w", err)
	}
	return id, nil
}

// EnhancedFor returns up to limit enhanced versions of the message with
// sourceID, newest-first.
func (s *SQLiteStore) EnhancedFor(ctx context.Context, sourceID int64, limit int) ([]Enhanced, error) {
	const q = `
SELECT id, source_message_id, enhanced_content, created_at
FROM   enhanced_messages
WHERE  source_message_id = ?
ORDER  BY created_at DESC, id DESC
LIMIT  ?`
	rows, err := s.db.QueryContext(ctx, q, sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("history: enhanced for: %w", err)
	}
	defer rows.Close()

	var out []Enhanced
	for rows.Next() {
		var e Enhanced
		var ts int64
		if err := rows.Scan(&e.ID, &e.SourceID, &e.Content, &ts); err != nil {
			return nil, fmt.Errorf("history: enhanced scan: %w", err)
		}
		e.CreatedAt = time.Unix(ts, 0)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: enhanced rows: %w", err)
	}
	return out, nil
}

// Ping verifies the database is reachable, used for readiness probes.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("history: ping: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("history: close: %w", err)
	}
	return nil
}
