package cache

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/BemoBit/po-translator/pkg/log"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteStore is the durable cache backend. Writes are first-wins: an
// existing record is never overwritten, which keeps lookups stable within
// and across runs.
type SQLiteStore struct {
	db *sql.DB

	mu     sync.RWMutex
	cached map[string]string
}

// Open returns a Store backed by the SQLite file at path. A missing or
// corrupt file is not an error: the file is recreated, and if SQLite still
// cannot be brought up the disabled store is returned so the run proceeds
// with a cold cache.
func Open(path string) Store {
	store, err := newSQLiteStore(path)
	if err == nil {
		return store
	}
	log.Warn("Cache store at %s unusable (%v), retrying with a fresh file", path, err)

	_ = os.Remove(path)
	store, err = newSQLiteStore(path)
	if err == nil {
		return store
	}
	log.Warn("Cache disabled for this run: %v", err)
	return NewNoop()
}

func newSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{
		db:     db,
		cached: make(map[string]string),
	}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename
// (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

func (s *SQLiteStore) Get(ctx context.Context, key Key) (string, bool) {
	hash := key.hash()

	s.mu.RLock()
	if v, ok := s.cached[hash]; ok {
		s.mu.RUnlock()
		return v, true
	}
	s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT translated_text FROM translations WHERE key_hash = ?`, hash)
	var translated string
	if err := row.Scan(&translated); err != nil {
		if err != sql.ErrNoRows {
			log.Warn("Cache lookup failed: %v", err)
		}
		return "", false
	}

	s.mu.Lock()
	s.cached[hash] = translated
	s.mu.Unlock()
	return translated, true
}

func (s *SQLiteStore) Put(ctx context.Context, key Key, translated string) {
	hash := key.hash()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO translations (key_hash, service, source_lang, target_lang, source_text, translated_text)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key_hash) DO NOTHING`,
		hash,
		key.Service,
		key.SourceLang,
		key.TargetLang,
		key.Text,
		translated,
	)
	if err != nil {
		log.Warn("Cache write failed: %v", err)
		return
	}

	s.mu.Lock()
	if _, ok := s.cached[hash]; !ok {
		s.cached[hash] = translated
	}
	s.mu.Unlock()
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
