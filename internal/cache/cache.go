// Package cache persists computed fingerprints in a sqlite database so
// repeated runs skip decoding unchanged files.
package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"dedoppel/internal/fingerprint"
)

type Cache struct {
	db *sql.DB
}

// Open opens (creating if necessary) a fingerprint cache at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS fingerprints (
		path TEXT NOT NULL PRIMARY KEY,
		modified_at TEXT NOT NULL,
		size INTEGER NOT NULL,
		phash TEXT NOT NULL
	);`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache %s: %w", path, err)
	}
	return &Cache{db: db}, nil
}

// Get returns the cached fingerprint for path if the stored modification
// time and size still match the file on disk.
func (c *Cache) Get(path string, modTime time.Time, size int64) (fingerprint.Hash, bool, error) {
	var storedModTime, storedHash string
	var storedSize int64
	err := c.db.QueryRow(
		"SELECT modified_at, size, phash FROM fingerprints WHERE path = ?", path,
	).Scan(&storedModTime, &storedSize, &storedHash)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("cache lookup for %s: %w", path, err)
	}

	if storedModTime != modTime.UTC().Format(time.RFC3339Nano) || storedSize != size {
		return 0, false, nil
	}

	h, err := fingerprint.Parse(storedHash)
	if err != nil {
		// A mangled row is treated as a miss and overwritten on Put.
		return 0, false, nil
	}
	return h, true, nil
}

// Put stores the fingerprint for path, replacing any previous entry.
func (c *Cache) Put(path string, modTime time.Time, size int64, h fingerprint.Hash) error {
	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO fingerprints (path, modified_at, size, phash) VALUES (?, ?, ?, ?)",
		path, modTime.UTC().Format(time.RFC3339Nano), size, h.String(),
	)
	if err != nil {
		return fmt.Errorf("cache store for %s: %w", path, err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}
