package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Cache is a local SQLite-backed copy of server responses, partitioned
// by user id so that logout can wipe one identity's data without
// touching another's. It backs the read-through behavior of the API
// client when the network is unreachable.
type Cache struct {
	db *sqlx.DB
}

// Open opens (or creates) the cache database at dbPath, enables WAL
// mode, and runs any pending schema migrations.
func Open(dbPath string) (*Cache, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	c := &Cache{db: db}
	if err := c.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return c, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (c *Cache) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := c.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = c.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := c.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Put stores (or replaces) the response body for a user/endpoint pair.
func (c *Cache) Put(ctx context.Context, userID int, endpoint string, body []byte) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO responses (user_id, endpoint, body, fetched_at)
		VALUES (?, ?, ?, ?)`,
		userID, endpoint, body, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("caching response for %s: %w", endpoint, err)
	}
	return nil
}

// Get returns the stored response body for a user/endpoint pair, or
// (nil, nil) when no entry exists.
func (c *Cache) Get(ctx context.Context, userID int, endpoint string) ([]byte, error) {
	var body []byte
	err := c.db.GetContext(ctx, &body,
		"SELECT body FROM responses WHERE user_id = ? AND endpoint = ?",
		userID, endpoint,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached response for %s: %w", endpoint, err)
	}
	return body, nil
}

// FetchedAt returns when the entry for a user/endpoint pair was stored.
// The zero time means no entry exists.
func (c *Cache) FetchedAt(ctx context.Context, userID int, endpoint string) (time.Time, error) {
	var fetched time.Time
	err := c.db.GetContext(ctx, &fetched,
		"SELECT fetched_at FROM responses WHERE user_id = ? AND endpoint = ?",
		userID, endpoint,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading cache timestamp for %s: %w", endpoint, err)
	}
	return fetched, nil
}

// ClearUser removes every cached response belonging to the given user.
// Called on logout so the next account never sees the previous one's
// data.
func (c *Cache) ClearUser(ctx context.Context, userID int) error {
	_, err := c.db.ExecContext(ctx,
		"DELETE FROM responses WHERE user_id = ?", userID,
	)
	if err != nil {
		return fmt.Errorf("clearing cache for user %d: %w", userID, err)
	}
	return nil
}
