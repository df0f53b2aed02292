// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside your Go binary as a single
// file. No separate database server to install, configure, or manage.
// ":memory:" gives every test its own throwaway database.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which needs a C compiler and makes
// cross-compilation painful. modernc.org/sqlite is a pure Go translation of
// the SQLite sources — works everywhere Go works.
//
// TIME HANDLING:
// Every date written by this package is normalized to UTC first. The driver
// stores time.Time as text, so ordering and range comparisons on date columns
// are only correct when all stored values share one offset.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Side-effect import: the driver's init() registers itself with
	// database/sql under the name "sqlite".
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements every repository
// interface. One type for all of them is deliberate: several operations
// (cascade delete, like toggles, follow pairs) span tables and need a single
// transaction, which is easiest when one type owns the pool.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
// Use ":memory:" for an in-memory database in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// sql.Open doesn't actually connect; Ping forces the first connection so
	// a bad path or permission problem surfaces here, not on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is in progress —
	// essential for a web server where requests hit the DB in parallel.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite for backwards compatibility.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Defer this wherever New is called so the
// WAL is flushed and the file lock released on shutdown.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it safe to run
// on every start.
//
// Note the absence of a UNIQUE constraint on likes(content, user_id,
// content_id): the API this replaces never enforced one, and adding it would
// change observable behavior under concurrent toggles. See DESIGN.md.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			description   TEXT NOT NULL DEFAULT '',
			is_admin      INTEGER NOT NULL DEFAULT 0,
			profile_pic   TEXT NOT NULL DEFAULT '',
			date          DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS media (
			id         TEXT PRIMARY KEY,
			media_type TEXT NOT NULL CHECK (media_type IN ('image', 'audio', 'video')),
			data       TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS posts (
			id                 TEXT PRIMARY KEY,
			user_id            TEXT NOT NULL REFERENCES users(id),
			date               DATETIME NOT NULL,
			text               TEXT NOT NULL DEFAULT '',
			likes              INTEGER NOT NULL DEFAULT 0 CHECK (likes >= 0),
			number_of_comments INTEGER NOT NULL DEFAULT 0 CHECK (number_of_comments >= 0),
			media_id           TEXT REFERENCES media(id)
		);
		CREATE INDEX IF NOT EXISTS idx_posts_date ON posts(date);
		CREATE INDEX IF NOT EXISTS idx_posts_user_id ON posts(user_id);

		CREATE TABLE IF NOT EXISTS comments (
			id      TEXT PRIMARY KEY,
			post_id TEXT NOT NULL,
			user_id TEXT NOT NULL REFERENCES users(id),
			date    DATETIME NOT NULL,
			text    TEXT NOT NULL,
			likes   INTEGER NOT NULL DEFAULT 0 CHECK (likes >= 0)
		);
		CREATE INDEX IF NOT EXISTS idx_comments_post_date ON comments(post_id, date);

		CREATE TABLE IF NOT EXISTS likes (
			id         TEXT PRIMARY KEY,
			content    TEXT NOT NULL CHECK (content IN ('post', 'comment')),
			user_id    TEXT NOT NULL,
			content_id TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_likes_user ON likes(content, user_id);
		CREATE INDEX IF NOT EXISTS idx_likes_content ON likes(content, content_id);

		CREATE TABLE IF NOT EXISTS follows (
			id             TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL,
			follow_type    TEXT NOT NULL CHECK (follow_type IN ('following', 'followedBy')),
			follow_user_id TEXT NOT NULL,
			date           DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_follows_user ON follows(user_id, follow_type, date);
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	return nil
}

// withTx runs fn inside a transaction, committing on nil and rolling back on
// error. The deferred Rollback after a successful Commit is a no-op.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// utc normalizes a timestamp before it is written or used as a bound.
func utc(t time.Time) time.Time {
	return t.UTC()
}
