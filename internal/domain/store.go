package domain

import (
	"maps"
	"time"
)

// CardKey identifies a card by its note and template.
type CardKey struct {
	NoteID     string
	TemplateID string
}

// StateStore holds durable scheduling state keyed by card and scheduler name.
type StateStore interface {
	// States returns every scheduler's state for the card. A card that was
	// never answered yields an empty map.
	States(key CardKey) (map[string]State, error)
	Put(key CardKey, scheduler string, s State) error
	// Reset drops all state recorded for the note's cards.
	Reset(noteID string) error
}

// ReviewLog records a single answer given to a card.
type ReviewLog struct {
	Key       CardKey
	Scheduler string
	Quality   int
	Timestamp time.Time
}

// ReviewRecorder is implemented by stores that keep a review history.
type ReviewRecorder interface {
	RecordReview(log ReviewLog) error
}

// MemoryStore is an in-process StateStore.
type MemoryStore struct {
	states map[CardKey]map[string]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[CardKey]map[string]State)}
}

func (m *MemoryStore) States(key CardKey) (map[string]State, error) {
	out := make(map[string]State, len(m.states[key]))
	for name, s := range m.states[key] {
		out[name] = maps.Clone(s)
	}
	return out, nil
}

func (m *MemoryStore) Put(key CardKey, scheduler string, s State) error {
	byName, ok := m.states[key]
	if !ok {
		byName = make(map[string]State)
		m.states[key] = byName
	}
	byName[scheduler] = maps.Clone(s)
	return nil
}

func (m *MemoryStore) Reset(noteID string) error {
	for key := range m.states {
		if key.NoteID == noteID {
			delete(m.states, key)
		}
	}
	return nil
}
