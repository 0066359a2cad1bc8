// Package cache stores lint results in SQLite so unchanged files can skip
// analysis. Entries are keyed by file path, content hash and configuration
// hash; any change to either hash is a miss.
package cache

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/xxh3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/leapstack-labs/leaplint/pkg/lint"
)

// ErrUnavailable wraps every storage failure. Callers treat it as fatal for
// the whole run, unlike per-file lint failures.
var ErrUnavailable = errors.New("lint cache unavailable")

// schemaVersion is bumped whenever Entry changes shape. Rows written with
// another version are misses.
const schemaVersion = 1

// Key identifies one cached result.
type Key struct {
	Path        string
	ContentHash string
	ConfigHash  string
}

// Entry is the cached outcome of linting one file.
type Entry struct {
	Violations []lint.Violation
	Converged  bool
}

// Cache is a SQLite backed result cache. It is safe for concurrent use.
type Cache struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens (creating if needed) the cache database at path and migrates
// it. Use ":memory:" for a throwaway cache.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Cache, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("%w: failed to create cache directory: %w", ErrUnavailable, err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open sqlite database: %w", ErrUnavailable, err)
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to ping sqlite database: %w", ErrUnavailable, err)
	}

	c := NewWithDB(db, logger)
	c.path = path
	if err := c.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return c, nil
}

// NewWithDB wraps an existing connection. The schema is not migrated.
func NewWithDB(db *sql.DB, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{db: db, logger: logger}
}

// Path returns the database path given to Open.
func (c *Cache) Path() string {
	return c.path
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get looks up a result. A missing, stale or undecodable row is a miss;
// undecodable rows are deleted.
func (c *Cache) Get(ctx context.Context, key Key) (*Entry, bool, error) {
	var (
		schema int
		blob   []byte
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT schema, result FROM lint_results WHERE file_path = ? AND content_hash = ? AND config_hash = ?`,
		key.Path, key.ContentHash, key.ConfigHash,
	).Scan(&schema, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: failed to read result: %w", ErrUnavailable, err)
	}

	entry := &Entry{}
	if schema == schemaVersion {
		err = msgpack.Unmarshal(blob, entry)
	} else {
		err = fmt.Errorf("schema version %d", schema)
	}
	if err != nil {
		c.logger.Warn("dropping unreadable cache entry",
			slog.String("file", key.Path),
			slog.String("error", err.Error()))
		if err := c.delete(ctx, key); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return entry, true, nil
}

// Put stores a result if no row for key exists yet and drops the rows of
// older versions of the same file.
func (c *Cache) Put(ctx context.Context, key Key, entry *Entry) error {
	blob, err := msgpack.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM lint_results WHERE file_path = ? AND (content_hash != ? OR config_hash != ?)`,
		key.Path, key.ContentHash, key.ConfigHash,
	); err != nil {
		return fmt.Errorf("%w: failed to remove stale results: %w", ErrUnavailable, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO lint_results (file_path, content_hash, config_hash, schema, result) VALUES (?, ?, ?, ?, ?)`,
		key.Path, key.ContentHash, key.ConfigHash, schemaVersion, blob,
	); err != nil {
		return fmt.Errorf("%w: failed to store result: %w", ErrUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit result: %w", ErrUnavailable, err)
	}
	return nil
}

// Clear removes every cached result.
func (c *Cache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM lint_results`); err != nil {
		return fmt.Errorf("%w: failed to clear results: %w", ErrUnavailable, err)
	}
	return nil
}

// Len returns the number of cached results.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lint_results`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: failed to count results: %w", ErrUnavailable, err)
	}
	return n, nil
}

func (c *Cache) delete(ctx context.Context, key Key) error {
	if _, err := c.db.ExecContext(ctx,
		`DELETE FROM lint_results WHERE file_path = ? AND content_hash = ? AND config_hash = ?`,
		key.Path, key.ContentHash, key.ConfigHash,
	); err != nil {
		return fmt.Errorf("%w: failed to delete result: %w", ErrUnavailable, err)
	}
	return nil
}

// ContentHash fingerprints file contents.
func ContentHash(content []byte) string {
	sum := xxh3.Hash128(content).Bytes()
	return hashString(sum[:])
}

// ConfigHash fingerprints the parts of a run configuration that affect
// results. Parts are encoded with msgpack, so map ordering does not matter.
func ConfigHash(parts ...any) (string, error) {
	h := xxh3.New()
	enc := msgpack.NewEncoder(h)
	enc.SetSortMapKeys(true)
	for _, p := range parts {
		if err := enc.Encode(p); err != nil {
			return "", fmt.Errorf("failed to hash configuration: %w", err)
		}
	}
	return hashString(h.Sum(nil)), nil
}

func hashString(b []byte) string {
	return hex.EncodeToString(b)
}
