// Package cache holds the SQLite stores used to make evaluation runs cheap
// and repeatable: embedding vectors, judge replies and verdict history.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultMaxMB caps the cache file before LRU eviction starts.
const DefaultMaxMB = 256

// Store is one SQLite file shared by the embedding and judge caches.
type Store struct {
	db       *sql.DB
	maxBytes int64

	// touched buffers accessed_at updates so reads stay read-only.
	mu      sync.Mutex
	touched map[touchKey]int64
}

type touchKey struct {
	table string
	key   string
	model string
}

// Stats reports current usage of a Store.
type Stats struct {
	Embeddings   int
	JudgeReplies int
	TotalBytes   int64
}

// Open opens (or creates) a cache at path. The parent directory is created
// when missing. maxMB <= 0 selects DefaultMaxMB.
func Open(path string, maxMB int) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	if maxMB <= 0 {
		maxMB = DefaultMaxMB
	}

	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	// :memory: databases are per connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS embeddings (
			content_hash TEXT    NOT NULL,
			model        TEXT    NOT NULL,
			vector       BLOB    NOT NULL,
			created_at   INTEGER NOT NULL,
			accessed_at  INTEGER NOT NULL,
			PRIMARY KEY (content_hash, model)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_embeddings_accessed ON embeddings(accessed_at)`,
		`CREATE TABLE IF NOT EXISTS judge_replies (
			request_key TEXT    NOT NULL,
			model       TEXT    NOT NULL,
			content     TEXT    NOT NULL,
			created_at  INTEGER NOT NULL,
			accessed_at INTEGER NOT NULL,
			PRIMARY KEY (request_key, model)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_judge_replies_accessed ON judge_replies(accessed_at)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create cache schema: %w", err)
		}
	}

	return &Store{
		db:       db,
		maxBytes: int64(maxMB) * 1024 * 1024,
		touched:  make(map[touchKey]int64),
	}, nil
}

// OpenDB opens a SQLite database in WAL mode with a busy timeout.
func OpenDB(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	return db, nil
}

// Embeddings returns the embedding vector cache view of the store.
func (s *Store) Embeddings() *EmbeddingCache { return &EmbeddingCache{s: s} }

// Judge returns the judge reply cache view of the store.
func (s *Store) Judge() *JudgeCache { return &JudgeCache{s: s} }

// Stats returns current row counts and payload size.
func (s *Store) Stats() (*Stats, error) {
	var st Stats
	var embBytes, judgeBytes int64
	if err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(vector)), 0) FROM embeddings`,
	).Scan(&st.Embeddings, &embBytes); err != nil {
		return nil, fmt.Errorf("embedding stats: %w", err)
	}
	if err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(content)), 0) FROM judge_replies`,
	).Scan(&st.JudgeReplies, &judgeBytes); err != nil {
		return nil, fmt.Errorf("judge stats: %w", err)
	}
	st.TotalBytes = embBytes + judgeBytes
	return &st, nil
}

// Clear removes every cached entry.
func (s *Store) Clear() error {
	s.mu.Lock()
	clear(s.touched)
	s.mu.Unlock()
	for _, table := range []string{"embeddings", "judge_replies"} {
		if _, err := s.db.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// Close flushes pending access times and closes the database.
func (s *Store) Close() error {
	s.flushTouched()
	return s.db.Close()
}

func (s *Store) touch(table, key, model string) {
	s.mu.Lock()
	s.touched[touchKey{table: table, key: key, model: model}] = time.Now().UnixNano()
	s.mu.Unlock()
}

func (s *Store) flushTouched() {
	s.mu.Lock()
	pending := s.touched
	s.touched = make(map[touchKey]int64)
	s.mu.Unlock()
	if len(pending) == 0 {
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		return
	}
	for k, ts := range pending {
		switch k.table {
		case "embeddings":
			_, _ = tx.Exec(`UPDATE embeddings SET accessed_at = ? WHERE content_hash = ? AND model = ?`, ts, k.key, k.model)
		case "judge_replies":
			_, _ = tx.Exec(`UPDATE judge_replies SET accessed_at = ? WHERE request_key = ? AND model = ?`, ts, k.key, k.model)
		}
	}
	_ = tx.Commit()
}

// evict drops least recently used rows of table until the store fits.
func (s *Store) evict(table, sizeExpr string) error {
	s.flushTouched()

	st, err := s.Stats()
	if err != nil {
		return err
	}
	if st.TotalBytes <= s.maxBytes {
		return nil
	}

	var count, bytes int64
	if err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(`+sizeExpr+`), 0) FROM `+table,
	).Scan(&count, &bytes); err != nil {
		return fmt.Errorf("evict size check: %w", err)
	}
	if count == 0 {
		return nil
	}

	// Assume uniform row size and take 10% extra headroom.
	n := (st.TotalBytes - s.maxBytes) / max(bytes/count, 1)
	n = max(n, 1)
	n = min(n+n/10, count)

	if _, err := s.db.Exec(
		`DELETE FROM `+table+` WHERE rowid IN (SELECT rowid FROM `+table+` ORDER BY accessed_at ASC LIMIT ?)`,
		n,
	); err != nil {
		return fmt.Errorf("evict %s: %w", table, err)
	}
	return nil
}
