package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
)

// DeckStore persists one deck's scheduling state. It implements
// domain.StateStore and domain.ReviewRecorder.
type DeckStore struct {
	db     *DB
	deckID string
}

// DeckStore returns the state store for deckID.
func (db *DB) DeckStore(deckID string) *DeckStore {
	return &DeckStore{db: db, deckID: deckID}
}

// States loads every scheduler's state for a card.
func (s *DeckStore) States(key domain.CardKey) (map[string]domain.State, error) {
	rows, err := s.db.conn.Query(`
		SELECT scheduler, state
		FROM scheduling
		WHERE deck_id = ? AND note_id = ? AND template_id = ?
	`, s.deckID, key.NoteID, key.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduling for card %s/%s: %w", key.NoteID, key.TemplateID, err)
	}
	defer rows.Close()

	states := make(map[string]domain.State)
	for rows.Next() {
		var name, raw string
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan scheduling row: %w", err)
		}
		var st domain.State
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			return nil, fmt.Errorf("failed to decode %s state for card %s/%s: %w", name, key.NoteID, key.TemplateID, err)
		}
		states[name] = st
	}
	return states, rows.Err()
}

// Put writes one scheduler's state for a card.
func (s *DeckStore) Put(key domain.CardKey, scheduler string, st domain.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode %s state: %w", scheduler, err)
	}
	_, err = s.db.conn.Exec(`
		INSERT INTO scheduling (deck_id, note_id, template_id, scheduler, state, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (deck_id, note_id, template_id, scheduler) DO UPDATE SET
			state = excluded.state,
			updated_at = excluded.updated_at
	`, s.deckID, key.NoteID, key.TemplateID, scheduler, string(raw), time.Now())
	if err != nil {
		return fmt.Errorf("failed to save scheduling for card %s/%s: %w", key.NoteID, key.TemplateID, err)
	}
	return nil
}

// Reset drops the scheduling state of every card of a note.
func (s *DeckStore) Reset(noteID string) error {
	_, err := s.db.conn.Exec(`
		DELETE FROM scheduling
		WHERE deck_id = ? AND note_id = ?
	`, s.deckID, noteID)
	if err != nil {
		return fmt.Errorf("failed to reset scheduling for note %s: %w", noteID, err)
	}
	return nil
}

// RecordReview appends an answer to the review log.
func (s *DeckStore) RecordReview(log domain.ReviewLog) error {
	_, err := s.db.conn.Exec(`
		INSERT INTO reviews (deck_id, note_id, template_id, scheduler, quality, reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.deckID, log.Key.NoteID, log.Key.TemplateID, log.Scheduler, log.Quality, log.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to record review for card %s/%s: %w", log.Key.NoteID, log.Key.TemplateID, err)
	}
	return nil
}
