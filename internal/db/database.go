// Package db provides database access for gopherlist. The database is an
// index over the git message store: every table here can be rebuilt from the
// raw messages, so schema changes stay cheap.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Database wraps the SQL database connection and queries.
type Database struct {
	conn    *sql.DB
	Queries *Queries
}

// Schema is the SQL schema for creating tables.
const Schema = `
CREATE TABLE IF NOT EXISTS preferences (
    name TEXT PRIMARY KEY,
    value TEXT
);

CREATE TABLE IF NOT EXISTS user (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT,
    first_seen TIMESTAMP,
    last_seen TIMESTAMP,
    is_approved BOOLEAN DEFAULT FALSE,
    is_admin BOOLEAN DEFAULT FALSE,
    email_confirmed BOOLEAN DEFAULT FALSE,
    allow_read BOOLEAN DEFAULT FALSE,
    allow_moderate BOOLEAN DEFAULT FALSE,
    allow_import BOOLEAN DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS lists (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    address TEXT NOT NULL,
    description TEXT,
    is_hidden BOOLEAN DEFAULT FALSE,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS threads (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    list_id INTEGER NOT NULL REFERENCES lists(id),
    root_message_id TEXT NOT NULL,
    subject TEXT,
    subject_key TEXT,
    message_count INTEGER DEFAULT 0,
    has_patch BOOLEAN DEFAULT FALSE,
    created_at TIMESTAMP,
    last_activity TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_threads_root ON threads(list_id, root_message_id);
CREATE INDEX IF NOT EXISTS idx_threads_activity ON threads(list_id, last_activity);
CREATE INDEX IF NOT EXISTS idx_threads_subject_key ON threads(list_id, subject_key);

CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    list_id INTEGER NOT NULL REFERENCES lists(id),
    thread_id INTEGER NOT NULL REFERENCES threads(id),
    message_id TEXT NOT NULL,
    parent_id TEXT,
    subject TEXT,
    from_name TEXT,
    from_email TEXT,
    date TIMESTAMP,
    body TEXT,
    is_patch BOOLEAN DEFAULT FALSE,
    is_hidden BOOLEAN DEFAULT FALSE,
    blob_path TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_mid ON messages(list_id, message_id);
CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, date);
CREATE INDEX IF NOT EXISTS idx_messages_list_date ON messages(list_id, date);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
    subject, from_name, from_email, body,
    content='messages', content_rowid='id',
    tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS messages_fts_insert AFTER INSERT ON messages BEGIN
    INSERT INTO messages_fts(rowid, subject, from_name, from_email, body)
    VALUES (new.id, new.subject, new.from_name, new.from_email, new.body);
END;

CREATE TRIGGER IF NOT EXISTS messages_fts_delete AFTER DELETE ON messages BEGIN
    INSERT INTO messages_fts(messages_fts, rowid, subject, from_name, from_email, body)
    VALUES ('delete', old.id, old.subject, old.from_name, old.from_email, old.body);
END;
`

// Open opens a new database connection.
func Open(uri string) (*Database, error) {
	// Parse the URI to extract the database path
	// SQLite URIs are typically: sqlite:///path/to/db.sqlite or sqlite:///:memory:
	dbPath := uri
	if strings.HasPrefix(uri, "sqlite:///") {
		dbPath = strings.TrimPrefix(uri, "sqlite:///")
	} else if strings.HasPrefix(uri, "sqlite://") {
		dbPath = strings.TrimPrefix(uri, "sqlite://")
	}

	// For in-memory database
	if dbPath == ":memory:" || dbPath == "" {
		dbPath = ":memory:"
	}

	// Create connection string with options
	connStr := dbPath
	if dbPath != ":memory:" {
		// Add options for file-based database
		connStr = dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every pooled connection to :memory: is its own empty database, so
	// in-memory mode must stay on a single connection.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// Test the connection
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &Database{
		conn:    conn,
		Queries: New(conn),
	}

	return db, nil
}

// Migrate runs the schema migrations.
func (d *Database) Migrate(ctx context.Context) error {
	_, err := d.conn.ExecContext(ctx, Schema)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Run additional migrations for existing databases
	if err := d.runMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations handles incremental schema changes for existing databases.
func (d *Database) runMigrations(ctx context.Context) error {
	// Check if messages table has is_hidden column, add if missing
	var count int
	err := d.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pragma_table_info('messages') WHERE name='is_hidden'").Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check messages schema: %w", err)
	}
	if count == 0 {
		_, err := d.conn.ExecContext(ctx, "ALTER TABLE messages ADD COLUMN is_hidden BOOLEAN DEFAULT FALSE")
		if err != nil {
			return fmt.Errorf("failed to add is_hidden column: %w", err)
		}
	}

	// Check if threads table has has_patch column, add if missing
	err = d.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pragma_table_info('threads') WHERE name='has_patch'").Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check threads schema: %w", err)
	}
	if count == 0 {
		_, err := d.conn.ExecContext(ctx, "ALTER TABLE threads ADD COLUMN has_patch BOOLEAN DEFAULT FALSE")
		if err != nil {
			return fmt.Errorf("failed to add has_patch column: %w", err)
		}
	}

	return nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.conn.Close()
}

// Conn returns the underlying database connection.
func (d *Database) Conn() *sql.DB {
	return d.conn
}

// BeginTx starts a new transaction.
func (d *Database) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return d.conn.BeginTx(ctx, nil)
}

// WithTx returns queries that use the given transaction.
func (d *Database) WithTx(tx *sql.Tx) *Queries {
	return d.Queries.WithTx(tx)
}
