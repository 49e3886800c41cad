package domain

import (
	"fmt"
	"slices"
	"sort"

	"github.com/conorfennell/knoldeck/internal/knol"
)

// Note is a content record with named fields. A note renders one card per
// applicable template.
type Note struct {
	ID      string
	Content map[string]string
	// Templates restricts the note to these template ids. Empty means every
	// template of the deck applies.
	Templates []string
}

// Fields returns the note's field names in sorted order.
func (n *Note) Fields() []string {
	fields := make([]string, 0, len(n.Content))
	for f := range n.Content {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Fingerprint hashes the values of the given fields.
func (n *Note) Fingerprint(fields []string) string {
	return knol.Fingerprint(n.Content, fields)
}

// applies reports whether the template is one the note renders against.
func (n *Note) applies(t *Template) bool {
	return len(n.Templates) == 0 || slices.Contains(n.Templates, t.ID)
}

// Cards synthesizes the note's cards against the given templates, attaching
// the scheduling state recorded in store for each (note, template) pair.
// Templates are visited in id order.
func (n *Note) Cards(templates map[string]*Template, store StateStore) ([]*Card, error) {
	ids := make([]string, 0, len(templates))
	for id := range templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var cards []*Card
	for _, id := range ids {
		t := templates[id]
		if !n.applies(t) {
			continue
		}
		key := CardKey{NoteID: n.ID, TemplateID: t.ID}
		scheduling, err := store.States(key)
		if err != nil {
			return nil, fmt.Errorf("failed to load scheduling for card %s/%s: %w", n.ID, t.ID, err)
		}
		cards = append(cards, &Card{Note: n, Template: t, Scheduling: scheduling})
	}
	return cards, nil
}

// checkShape compares the note's fields with the deck's and returns a
// ShapeMismatchError listing both differences.
func checkShape(id string, content map[string]string, fields []string) error {
	var missing, extra []string
	for _, f := range fields {
		if _, ok := content[f]; !ok {
			missing = append(missing, f)
		}
	}
	for f := range content {
		if !slices.Contains(fields, f) {
			extra = append(extra, f)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	sort.Strings(extra)
	return &ShapeMismatchError{NoteID: id, MissingFromNote: missing, ExtraInNote: extra}
}
