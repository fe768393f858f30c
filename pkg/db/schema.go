// Package db provides SQLite database management for the insertion history.
package db

// Schema defines the SQL statements to create database tables.
const Schema = `
-- Insertion history table
-- One row per record written to the ledger
CREATE TABLE IF NOT EXISTS insert_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    kind TEXT NOT NULL,                -- 'transaction', 'open' or 'commodity'
    record_date TEXT NOT NULL,         -- YYYY-MM-DD
    summary TEXT NOT NULL,             -- short description of the record
    file_path TEXT NOT NULL,           -- file the record was written to
    target_mode TEXT NOT NULL,         -- 'single-file' or 'directory'
    routing_key TEXT NOT NULL DEFAULT '', -- routing key used, empty for the ledger file
    ledger_file TEXT NOT NULL,         -- root ledger file
    inserted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_insert_history_kind
    ON insert_history(kind);

CREATE INDEX IF NOT EXISTS idx_insert_history_date
    ON insert_history(record_date);

-- History metadata table
-- Stores key-value metadata about insertions
CREATE TABLE IF NOT EXISTS history_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InitializeSchema initializes the database schema.
// It creates all tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.Exec(Schema); err != nil {
		return err
	}
	return nil
}
