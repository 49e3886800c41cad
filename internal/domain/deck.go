// Package domain holds the deck model: notes, templates, the cards they
// produce and the scheduler contract that orders and updates those cards.
package domain

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/conorfennell/knoldeck/internal/knol"
)

// Options configures a new Deck. Every field is optional.
type Options struct {
	IDNum     int64 // defaults to knol.NumericID(id)
	Name      string
	Desc      string
	Fields    []string // field names every note must carry
	Watch     []string // subset of Fields whose changes matter to observers
	Notes     map[string]*Note // keyed by note id
	Meta      map[string]string
	Scheduler Scheduler
	Store     StateStore // defaults to a MemoryStore
	// OnChange is called when AddNote replaces a note and a watched field
	// changed value.
	OnChange func(prev, next *Note)
}

// Deck aggregates notes and templates and exposes their cards through the
// bound scheduler. A Deck is not safe for concurrent use.
type Deck struct {
	ID     string
	IDNum  int64
	Name   string
	Desc   string
	Fields []string
	Watch  []string
	Meta   map[string]string

	notes     map[string]*Note
	templates map[string]*Template
	scheduler Scheduler
	store     StateStore
	onChange  func(prev, next *Note)
}

// New creates a deck, checking that fields are unique, that watched fields
// are deck fields and that every initial note matches the deck's fields.
// Initial notes are copied and registered under their map key; a note's own
// ID, when set, must equal that key.
func New(id string, opts Options) (*Deck, error) {
	if id == "" {
		return nil, fmt.Errorf("deck: %w", ErrEmptyID)
	}
	seen := make(map[string]bool, len(opts.Fields))
	for _, f := range opts.Fields {
		if seen[f] {
			return nil, fmt.Errorf("deck %q field %q: %w", id, f, ErrDuplicateField)
		}
		seen[f] = true
	}
	for _, w := range opts.Watch {
		if !seen[w] {
			return nil, fmt.Errorf("deck %q field %q: %w", id, w, ErrUnknownWatchField)
		}
	}

	d := &Deck{
		ID:        id,
		IDNum:     opts.IDNum,
		Name:      opts.Name,
		Desc:      opts.Desc,
		Fields:    slices.Clone(opts.Fields),
		Watch:     slices.Clone(opts.Watch),
		Meta:      maps.Clone(opts.Meta),
		notes:     make(map[string]*Note, len(opts.Notes)),
		templates: make(map[string]*Template),
		scheduler: opts.Scheduler,
		store:     opts.Store,
		onChange:  opts.OnChange,
	}
	if d.IDNum == 0 {
		d.IDNum = knol.NumericID(id)
	}
	if d.Meta == nil {
		d.Meta = make(map[string]string)
	}
	if d.store == nil {
		d.store = NewMemoryStore()
	}
	for key, n := range opts.Notes {
		if n == nil {
			return nil, fmt.Errorf("deck %q note %q: %w", id, key, ErrNilNote)
		}
		if n.ID != "" && n.ID != key {
			return nil, fmt.Errorf("deck %q note %q has id %q: %w", id, key, n.ID, ErrNoteIDMismatch)
		}
		if key == "" {
			return nil, fmt.Errorf("deck %q note: %w", id, ErrEmptyID)
		}
		if err := checkShape(key, n.Content, d.Fields); err != nil {
			return nil, err
		}
		d.notes[key] = &Note{
			ID:        key,
			Content:   maps.Clone(n.Content),
			Templates: slices.Clone(n.Templates),
		}
	}
	return d, nil
}

// AddNote validates content against the deck's fields and registers the
// note under id, replacing any note with the same id.
func (d *Deck) AddNote(id string, content map[string]string, templateIDs ...string) error {
	if id == "" {
		return fmt.Errorf("note: %w", ErrEmptyID)
	}
	if err := checkShape(id, content, d.Fields); err != nil {
		return err
	}
	n := &Note{
		ID:        id,
		Content:   maps.Clone(content),
		Templates: slices.Clone(templateIDs),
	}
	prev, replaced := d.notes[id]
	d.notes[id] = n
	if replaced && d.onChange != nil && len(d.Watch) > 0 &&
		prev.Fingerprint(d.Watch) != n.Fingerprint(d.Watch) {
		d.onChange(prev, n)
	}
	return nil
}

// AddTemplate registers a template under id, replacing any existing one.
func (d *Deck) AddTemplate(id, question, answer string, typ TemplateType, style string) error {
	if id == "" {
		return fmt.Errorf("template: %w", ErrEmptyID)
	}
	d.templates[id] = NewTemplate(id, question, answer, typ, style)
	return nil
}

// Note returns the note registered under id, or nil.
func (d *Deck) Note(id string) *Note {
	return d.notes[id]
}

// Template returns the template registered under id, or nil.
func (d *Deck) Template(id string) *Template {
	return d.templates[id]
}

// Notes returns the registered notes ordered by id.
func (d *Deck) Notes() []*Note {
	notes := slices.Collect(maps.Values(d.notes))
	slices.SortFunc(notes, func(a, b *Note) int { return cmp.Compare(a.ID, b.ID) })
	return notes
}

// Templates returns the registered templates ordered by id.
func (d *Deck) Templates() []*Template {
	templates := slices.Collect(maps.Values(d.templates))
	slices.SortFunc(templates, func(a, b *Template) int { return cmp.Compare(a.ID, b.ID) })
	return templates
}

// Scheduler returns the bound scheduler, or nil.
func (d *Deck) Scheduler() Scheduler {
	return d.scheduler
}

// SetScheduler binds s as the deck's scheduler. States recorded by other
// schedulers are kept.
func (d *Deck) SetScheduler(s Scheduler) {
	d.scheduler = s
}

// Store returns the deck's scheduling state store.
func (d *Deck) Store() StateStore {
	return d.store
}

// Cards returns every card of the deck sorted by the scheduler. Without a
// scheduler it returns no cards.
func (d *Deck) Cards() ([]*Card, error) {
	s := d.scheduler
	if s == nil {
		return nil, nil
	}

	var cards []*Card
	for _, n := range d.Notes() {
		noteCards, err := n.Cards(d.templates, d.store)
		if err != nil {
			return nil, err
		}
		cards = append(cards, noteCards...)
	}

	states := make(map[*Card]State, len(cards))
	for _, c := range cards {
		states[c] = c.State(s)
	}
	slices.SortStableFunc(cards, func(a, b *Card) int {
		return s.Sort(states[a], states[b])
	})
	return cards, nil
}

// NextN returns up to n due cards in review order.
func (d *Deck) NextN(n int) ([]*Card, error) {
	s := d.scheduler
	if s == nil || n < 1 {
		return nil, nil
	}
	cards, err := d.Cards()
	if err != nil {
		return nil, err
	}
	due := make([]*Card, 0, min(n, len(cards)))
	for _, c := range cards {
		if len(due) == n {
			break
		}
		if s.Filter(c.State(s)) {
			due = append(due, c)
		}
	}
	return due, nil
}

// Next returns the first due card, or nil if none is due.
func (d *Deck) Next() (*Card, error) {
	due, err := d.NextN(1)
	if err != nil || len(due) == 0 {
		return nil, err
	}
	return due[0], nil
}

// AnswerNext answers the first due card with the given quality and returns
// it. It returns nil when nothing is due or no scheduler is bound.
func (d *Deck) AnswerNext(quality int) (*Card, error) {
	c, err := d.Next()
	if err != nil || c == nil {
		return nil, err
	}
	if err := c.Answer(d, quality); err != nil {
		return nil, err
	}
	return c, nil
}
