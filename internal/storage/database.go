// Package storage keeps deck sources, note fingerprints, scheduling state
// and the review log in SQLite.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps in-memory databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Source types.
const (
	SourceLocal = "local"
	SourceGit   = "git"
)

// Source represents a deck source, either a local path or a Git URL.
type Source struct {
	ID          int64
	Path        string
	Type        string
	LastScanned sql.NullTime
}

// InsertSource inserts a new source path into the database and returns its ID.
func (db *DB) InsertSource(path, sourceType string) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO sources (path, type)
		VALUES (?, ?)
	`, path, sourceType)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source from the database by its path.
func (db *DB) FindSourceByPath(path string) (*Source, error) {
	var s Source
	row := db.conn.QueryRow(`
		SELECT id, path, type, last_scanned
		FROM sources WHERE path = ?
	`, path)

	err := row.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Source not found
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// GetAllSources retrieves all stored sources from the database.
func (db *DB) GetAllSources() ([]Source, error) {
	rows, err := db.conn.Query(`
		SELECT id, path, type, last_scanned
		FROM sources
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(sourceID int64) error {
	_, err := db.conn.Exec(`
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, time.Now(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

// DeleteSource removes a source. Notes and scheduling state of its decks are
// kept until the next sync of a source providing the same decks.
func (db *DB) DeleteSource(sourceID int64) error {
	_, err := db.conn.Exec(`DELETE FROM sources WHERE id = ?`, sourceID)
	if err != nil {
		return fmt.Errorf("failed to delete source ID %d: %w", sourceID, err)
	}
	return nil
}

// NoteFingerprints returns the watched-field fingerprints recorded for a
// deck's notes, keyed by note id.
func (db *DB) NoteFingerprints(deckID string) (map[string]string, error) {
	rows, err := db.conn.Query(`
		SELECT note_id, fingerprint
		FROM notes WHERE deck_id = ?
	`, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to get notes for deck %s: %w", deckID, err)
	}
	defer rows.Close()

	fingerprints := make(map[string]string)
	for rows.Next() {
		var noteID, fingerprint string
		if err := rows.Scan(&noteID, &fingerprint); err != nil {
			return nil, fmt.Errorf("failed to scan note row for deck %s: %w", deckID, err)
		}
		fingerprints[noteID] = fingerprint
	}
	return fingerprints, rows.Err()
}

// UpsertNote records a note's fingerprint.
func (db *DB) UpsertNote(deckID, noteID, fingerprint string, sourceID int64) error {
	_, err := db.conn.Exec(`
		INSERT INTO notes (deck_id, note_id, fingerprint, source_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (deck_id, note_id) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			source_id = excluded.source_id
	`, deckID, noteID, fingerprint, sourceID)
	if err != nil {
		return fmt.Errorf("failed to upsert note %s/%s: %w", deckID, noteID, err)
	}
	return nil
}

// DeleteNote removes a note together with its scheduling state.
func (db *DB) DeleteNote(deckID, noteID string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM scheduling WHERE deck_id = ? AND note_id = ?`, deckID, noteID); err != nil {
		return fmt.Errorf("failed to delete scheduling for note %s/%s: %w", deckID, noteID, err)
	}
	if _, err := tx.Exec(`DELETE FROM notes WHERE deck_id = ? AND note_id = ?`, deckID, noteID); err != nil {
		return fmt.Errorf("failed to delete note %s/%s: %w", deckID, noteID, err)
	}
	return tx.Commit()
}

// CountReviews returns how many answers were logged for a deck.
func (db *DB) CountReviews(deckID string) (int, error) {
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM reviews WHERE deck_id = ?`, deckID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count reviews for deck %s: %w", deckID, err)
	}
	return n, nil
}
