// Package index persists parse records in sqlite, one row per document
// path, so editor sessions and the CLI can see what was parsed when and
// how long it took.
package index

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Record is one parse result.
type Record struct {
	Path         string
	Language     string
	Bytes        int64
	RootStart    int64
	RootEnd      int64
	ParseMicros  int64
	Incremental  bool
	LastModified int64
}

// Index is a sqlite-backed store of parse records.
type Index struct {
	db *sql.DB
}

// Open opens or creates the index at path.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	if _, err := db.Exec(`
        PRAGMA foreign_keys = ON;
        PRAGMA journal_mode = WAL;
    `); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set PRAGMA: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Index{db: db}, nil
}

// Close closes the underlying database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// WithTx runs fn inside a transaction, committing on success.
func (ix *Index) WithTx(fn func(*Tx) error) error {
	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	return nil
}

// Get returns the record for path, or ErrNotFound.
func (ix *Index) Get(path string) (*Record, error) {
	var rec Record
	err := ix.db.QueryRow(
		`SELECT path, language, bytes, root_start, root_end, parse_micros, incremental, last_modified
         FROM parses WHERE path = ?`,
		path,
	).Scan(&rec.Path, &rec.Language, &rec.Bytes, &rec.RootStart, &rec.RootEnd,
		&rec.ParseMicros, &rec.Incremental, &rec.LastModified)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query record: %w", err)
	}
	return &rec, nil
}

// Recent returns up to limit records, newest first.
func (ix *Index) Recent(limit int) ([]Record, error) {
	rows, err := ix.db.Query(
		`SELECT path, language, bytes, root_start, root_end, parse_micros, incremental, last_modified
         FROM parses ORDER BY last_modified DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Path, &rec.Language, &rec.Bytes, &rec.RootStart, &rec.RootEnd,
			&rec.ParseMicros, &rec.Incremental, &rec.LastModified); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PruneMissing deletes records whose path no longer exists on disk and
// returns the pruned paths. file:// URIs are resolved to local paths;
// records with non-file schemes are kept.
func (ix *Index) PruneMissing() ([]string, error) {
	rows, err := ix.db.Query("SELECT path FROM parses")
	if err != nil {
		return nil, fmt.Errorf("failed to query paths: %w", err)
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan path: %w", err)
		}

		local, ok := localPath(path)
		if !ok {
			continue
		}
		if _, err := os.Stat(local); os.IsNotExist(err) {
			stale = append(stale, path)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, path := range stale {
		if err := ix.Delete(path); err != nil {
			return stale, err
		}
	}
	return stale, nil
}

// localPath maps a record path to a filesystem path. Plain paths map to
// themselves.
func localPath(path string) (string, bool) {
	if strings.Contains(path, "://") {
		if !strings.HasPrefix(path, "file://") {
			return "", false
		}
		return strings.TrimPrefix(path, "file://"), true
	}
	return path, true
}

// Delete removes the record for path. Deleting a missing record is not an
// error.
func (ix *Index) Delete(path string) error {
	if _, err := ix.db.Exec("DELETE FROM parses WHERE path = ?", path); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// Tx is an open transaction on the index.
type Tx struct {
	tx *sql.Tx
}

// Upsert inserts or replaces the record for rec.Path.
func (t *Tx) Upsert(rec *Record) error {
	_, err := t.tx.Exec(
		`INSERT INTO parses (path, language, bytes, root_start, root_end, parse_micros, incremental, last_modified)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(path) DO UPDATE SET
            language = excluded.language,
            bytes = excluded.bytes,
            root_start = excluded.root_start,
            root_end = excluded.root_end,
            parse_micros = excluded.parse_micros,
            incremental = excluded.incremental,
            last_modified = excluded.last_modified`,
		rec.Path, rec.Language, rec.Bytes, rec.RootStart, rec.RootEnd,
		rec.ParseMicros, rec.Incremental, rec.LastModified,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}
