package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/hpungsan/scribe/internal/config"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// FileName is the database file inside the base directory.
const FileName = "scribe.db"

// Init initializes the SQLite passage index at baseDir/scribe.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.scribe.
func Init(baseDir string) (*sql.DB, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	// Pragmas in the DSN apply to every pooled connection.
	dbPath := filepath.Join(baseDir, FileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: passage index with FTS5.
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS documents (
		  name          TEXT PRIMARY KEY,
		  content_hash  TEXT NOT NULL,
		  passage_count INTEGER NOT NULL,
		  strategy      TEXT NOT NULL,
		  indexed_at    INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS passages (
		  seq          INTEGER PRIMARY KEY AUTOINCREMENT,
		  id           TEXT NOT NULL UNIQUE,
		  document     TEXT NOT NULL REFERENCES documents(name) ON DELETE CASCADE,
		  ordinal      INTEGER NOT NULL,
		  topic_id     TEXT,
		  topic_title  TEXT,
		  content      TEXT NOT NULL,
		  start_offset INTEGER NOT NULL,
		  end_offset   INTEGER NOT NULL,
		  created_at   INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_passages_document
		ON passages(document, ordinal);

		CREATE VIRTUAL TABLE IF NOT EXISTS passages_fts USING fts5(
		  content, topic_title,
		  content='passages',
		  content_rowid='seq',
		  tokenize='unicode61'
		);

		CREATE TRIGGER IF NOT EXISTS passages_ai AFTER INSERT ON passages BEGIN
		  INSERT INTO passages_fts(rowid, content, topic_title)
		  VALUES (new.seq, new.content, new.topic_title);
		END;

		CREATE TRIGGER IF NOT EXISTS passages_ad AFTER DELETE ON passages BEGIN
		  INSERT INTO passages_fts(passages_fts, rowid, content, topic_title)
		  VALUES ('delete', old.seq, old.content, old.topic_title);
		END;
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
