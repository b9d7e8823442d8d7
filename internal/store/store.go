// Package store provides persistent server state backed by an embedded SQLite
// database. It owns the database lifecycle and exposes a minimal API used by
// the rest of the server.
//
// Migration design: SQL statements are kept in the [migrations] slice as
// ordered strings. Each is applied exactly once; the applied version is
// tracked in the schema_migrations table. To add a migration, append a new
// string — never edit or reorder existing entries.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// migrations holds the ordered list of DDL/DML statements that bring the
// schema up to date. Index i corresponds to version i+1.
var migrations = []string{
	// v1 — settings key/value store
	`CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	// v2 — accounts
	`CREATE TABLE IF NOT EXISTS accounts (
		name          TEXT PRIMARY KEY,
		password      TEXT NOT NULL DEFAULT '',
		administrator INTEGER NOT NULL DEFAULT 0,
		forgiven      INTEGER NOT NULL DEFAULT 0
	)`,
	// v3 — contact lists
	`CREATE TABLE IF NOT EXISTS contacts (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		account TEXT NOT NULL REFERENCES accounts(name) ON DELETE CASCADE,
		contact TEXT NOT NULL
	)`,
	// v4 — inbox messages
	`CREATE TABLE IF NOT EXISTS messages (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		account TEXT NOT NULL REFERENCES accounts(name) ON DELETE CASCADE,
		source  TEXT NOT NULL,
		body    TEXT NOT NULL,
		unread  INTEGER NOT NULL DEFAULT 1
	)`,
	// v5 — server ban list
	`CREATE TABLE IF NOT EXISTS bans (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		address TEXT NOT NULL UNIQUE
	)`,
	// v6 — channels
	`CREATE TABLE IF NOT EXISTS channels (
		id          INTEGER PRIMARY KEY,
		name        TEXT NOT NULL UNIQUE,
		owner       TEXT NOT NULL,
		password    TEXT NOT NULL DEFAULT '',
		buffer_size INTEGER NOT NULL DEFAULT -1,
		replay_size INTEGER NOT NULL DEFAULT 10,
		state       TEXT NOT NULL DEFAULT 'ready'
	)`,
	// v7 — channel line buffers
	`CREATE TABLE IF NOT EXISTS channel_lines (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		channel_id INTEGER NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
		source     TEXT NOT NULL,
		body       TEXT NOT NULL
	)`,
	// v8 — privilege groups (hierarchy is stored but not yet consulted by
	// the handlers; authorization still runs on the administrator flag)
	`CREATE TABLE IF NOT EXISTS privilege_groups (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	// v9 — privilege group edges
	`CREATE TABLE IF NOT EXISTS privilege_links (
		parent_id INTEGER NOT NULL REFERENCES privilege_groups(id) ON DELETE CASCADE,
		child_id  INTEGER NOT NULL REFERENCES privilege_groups(id) ON DELETE CASCADE,
		UNIQUE(parent_id, child_id)
	)`,
	// v10 — indexes for the per-account and per-channel lookups
	`CREATE INDEX IF NOT EXISTS idx_contacts_account ON contacts(account)`,
	// v11
	`CREATE INDEX IF NOT EXISTS idx_messages_account ON messages(account)`,
	// v12
	`CREATE INDEX IF NOT EXISTS idx_lines_channel ON channel_lines(channel_id)`,
	// v13 — enable WAL mode
	`PRAGMA journal_mode=WAL`,
}

// Store wraps a SQLite database and exposes server-state operations.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at path and applies any pending
// migrations. Use ":memory:" for ephemeral in-process storage (tests).
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Allow multiple read connections but serialise writes.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	if _, err := db.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		slog.Warn("store busy_timeout", "err", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		slog.Warn("store foreign_keys", "err", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the schema_migrations table (if absent) and applies any
// migrations whose version number exceeds the current maximum.
func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := s.db.QueryRow(
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`,
	).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i, stmt := range migrations {
		v := i + 1
		if v <= current {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", v, err)
		}
		if _, err := s.db.Exec(
			`INSERT INTO schema_migrations(version) VALUES(?)`, v,
		); err != nil {
			return fmt.Errorf("record migration %d: %w", v, err)
		}
		slog.Debug("applied store migration", "version", v)
	}
	return nil
}

// GetSetting returns the value stored under key. The second return value is
// false when the key does not exist; an error is only returned for real I/O
// failures.
func (s *Store) GetSetting(key string) (string, bool, error) {
	var val string
	err := s.db.QueryRow(
		`SELECT value FROM settings WHERE key = ?`, key,
	).Scan(&val)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// SetSetting upserts key → value in the settings table.
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings(key, value) VALUES(?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// DeleteSetting removes key from the settings table.
func (s *Store) DeleteSetting(key string) error {
	_, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	return err
}

// GetAllSettings returns all key/value pairs from the settings table.
func (s *Store) GetAllSettings() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		settings[k] = v
	}
	return settings, rows.Err()
}

// BanAdd records a banned address. Duplicates are ignored so the in-memory
// list can write through without checking first.
func (s *Store) BanAdd(address string) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO bans(address) VALUES(?)`, address)
	return err
}

// BanRemove deletes a banned address without checking for its existence.
func (s *Store) BanRemove(address string) error {
	_, err := s.db.Exec(`DELETE FROM bans WHERE address = ?`, address)
	return err
}

// BanContains checks whether an address is banned.
func (s *Store) BanContains(address string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM bans WHERE address = ?`, address,
	).Scan(&n)
	return n != 0, err
}

// BanList returns all banned addresses in insertion order.
func (s *Store) BanList() ([]string, error) {
	rows, err := s.db.Query(`SELECT address FROM bans ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addresses []string
	for rows.Next() {
		var address string
		if err := rows.Scan(&address); err != nil {
			return nil, err
		}
		addresses = append(addresses, address)
	}
	return addresses, rows.Err()
}

// Backup creates a copy of the database at the given path using SQLite's
// backup API through VACUUM INTO.
func (s *Store) Backup(destPath string) error {
	_, err := s.db.Exec(`VACUUM INTO ?`, destPath)
	return err
}
