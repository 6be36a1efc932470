// database/local.go - Local SQLite cache (offline mirror of achievement state)
package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

var localDB *sql.DB

// localMigrations returns the cache schema statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func localMigrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS achievement_records (
			user_id        INTEGER NOT NULL,
			achievement_id TEXT NOT NULL,
			level          INTEGER NOT NULL,
			progress       REAL NOT NULL DEFAULT 0,
			unlocked_at    TEXT,
			claimed_at     TEXT,
			updated_at     TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (user_id, achievement_id, level)
		)`,

		`CREATE TABLE IF NOT EXISTS streak_bonus_flags (
			user_id    INTEGER NOT NULL,
			multiple   INTEGER NOT NULL,
			awarded_at TEXT NOT NULL,
			PRIMARY KEY (user_id, multiple)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_local_bonus_awarded ON streak_bonus_flags(awarded_at)`,
	}
}

// InitLocalCache opens (or creates) the SQLite cache file and applies the
// schema. The cache keeps achievement state readable when PostgreSQL is
// unreachable.
func InitLocalCache() {
	dir := getEnvOrDefault("STUDYTRACK_CACHE_DIR", "./data")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Fatalf("Failed to create cache directory %s: %v", dir, err)
	}

	path := filepath.Join(dir, "cache.db")
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		log.Fatalf("Failed to open local cache %s: %v", path, err)
	}

	// Single writer; WAL keeps readers unblocked during async mirror writes.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		log.Fatalf("Failed to enable WAL on local cache: %v", err)
	}
	conn.SetMaxOpenConns(1)

	for _, stmt := range localMigrations() {
		if _, err := conn.Exec(stmt); err != nil {
			log.Fatalf("Failed to migrate local cache: %v", err)
		}
	}

	localDB = conn
	log.Printf("✅ Local cache ready at %s", path)
}

// GetLocalCache returns the local cache handle.
func GetLocalCache() *sql.DB {
	if localDB == nil {
		log.Fatal("Local cache not initialized. Call InitLocalCache() first.")
	}
	return localDB
}

// OpenLocalCacheAt opens a cache database at an explicit path. Used by tests
// and tooling; the server goes through InitLocalCache.
func OpenLocalCacheAt(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open local cache: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	conn.SetMaxOpenConns(1)
	for _, stmt := range localMigrations() {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("migrate local cache: %w", err)
		}
	}
	return conn, nil
}

// CloseLocalCache closes the cache file handle.
func CloseLocalCache() error {
	if localDB == nil {
		return nil
	}
	return localDB.Close()
}
