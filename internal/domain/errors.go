package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrShapeMismatch is wrapped by ShapeMismatchError.
	ErrShapeMismatch = errors.New("note fields do not match deck fields")

	// ErrEmptyID is returned when a note or template is registered without an id.
	ErrEmptyID = errors.New("id cannot be empty")

	// ErrDuplicateField is returned when a deck declares the same field twice.
	ErrDuplicateField = errors.New("duplicate deck field")

	// ErrNilNote is returned when a deck is created with a nil initial note.
	ErrNilNote = errors.New("note cannot be nil")

	// ErrNoteIDMismatch is returned when an initial note is keyed under an id
	// other than its own.
	ErrNoteIDMismatch = errors.New("note id does not match its key")

	// ErrUnknownWatchField is returned when a watched field is not a deck field.
	ErrUnknownWatchField = errors.New("watched field is not a deck field")
)

// ShapeMismatchError reports the symmetric difference between a note's
// field names and the fields declared by its deck.
type ShapeMismatchError struct {
	NoteID          string
	MissingFromNote []string // required by the deck, absent in the note
	ExtraInNote     []string // present in the note, unknown to the deck
}

func (e *ShapeMismatchError) Error() string {
	var parts []string
	if len(e.MissingFromNote) > 0 {
		parts = append(parts, fmt.Sprintf("note is missing fields required by deck: %s", strings.Join(e.MissingFromNote, ", ")))
	}
	if len(e.ExtraInNote) > 0 {
		parts = append(parts, fmt.Sprintf("deck is missing fields required by note: %s", strings.Join(e.ExtraInNote, ", ")))
	}
	return fmt.Sprintf("note %q: %s", e.NoteID, strings.Join(parts, "; "))
}

func (e *ShapeMismatchError) Unwrap() error {
	return ErrShapeMismatch
}
