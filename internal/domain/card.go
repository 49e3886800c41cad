package domain

import (
	"fmt"
	"time"
)

// Card is one reviewable (note, template) pairing. Cards are views built on
// demand; their scheduling state lives in the deck's StateStore.
type Card struct {
	Note     *Note
	Template *Template
	// Scheduling maps a scheduler name to that scheduler's state for this card.
	Scheduling map[string]State
}

// Key returns the card's identity.
func (c *Card) Key() CardKey {
	return CardKey{NoteID: c.Note.ID, TemplateID: c.Template.ID}
}

// State returns the card's state for s, normalized by s.Init.
func (c *Card) State(s Scheduler) State {
	return s.Init(c.Scheduling[s.Name()])
}

// Answer applies the deck's scheduler update for the given quality and
// persists the result. It does nothing if the deck has no scheduler.
func (c *Card) Answer(d *Deck, quality int) error {
	s := d.Scheduler()
	if s == nil {
		return nil
	}
	next := s.Update(c.State(s), quality)
	key := c.Key()
	if err := d.store.Put(key, s.Name(), next); err != nil {
		return fmt.Errorf("failed to persist scheduling for card %s/%s: %w", key.NoteID, key.TemplateID, err)
	}
	if c.Scheduling == nil {
		c.Scheduling = make(map[string]State)
	}
	c.Scheduling[s.Name()] = next

	if rec, ok := d.store.(ReviewRecorder); ok {
		err := rec.RecordReview(ReviewLog{
			Key:       key,
			Scheduler: s.Name(),
			Quality:   quality,
			Timestamp: time.Now(),
		})
		if err != nil {
			return fmt.Errorf("failed to record review for card %s/%s: %w", key.NoteID, key.TemplateID, err)
		}
	}
	return nil
}
