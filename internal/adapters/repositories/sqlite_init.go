// Package repositories holds schema management for the sequence and
// untimed-arc caches' SQL backends.
package repositories

import (
	"database/sql"
	"errors"
	"fmt"
)

// InitSchema creates the sequence and untimed-arc cache tables if they
// don't already exist. Safe to call on every process start.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createSequenceCacheQuery := `
	CREATE TABLE IF NOT EXISTS sequence_cache (
		fingerprint TEXT NOT NULL,
		seq_index INTEGER NOT NULL,
		orders TEXT NOT NULL,
		restaurant TEXT NOT NULL,
		earliest_leave REAL NOT NULL,
		latest_leave REAL NOT NULL,
		travel REAL NOT NULL,
		PRIMARY KEY (fingerprint, seq_index)
	);
	`

	createUntimedArcCacheQuery := `
	CREATE TABLE IF NOT EXISTS untimed_arc_cache (
		fingerprint TEXT NOT NULL,
		arc_index INTEGER NOT NULL,
		group_key TEXT NOT NULL,
		courier_id TEXT NOT NULL,
		orders TEXT NOT NULL,
		departure_restaurant TEXT NOT NULL,
		next_restaurant TEXT NOT NULL,
		earliest_leave REAL NOT NULL,
		latest_leave REAL NOT NULL,
		travel REAL NOT NULL,
		PRIMARY KEY (fingerprint, arc_index)
	);
	`

	statements := []string{createSequenceCacheQuery, createUntimedArcCacheQuery}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
