// Package parser reads deck sources: a YAML manifest and markdown note files.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/knoldeck/internal/knol"
)

const (
	idDirective        = "@id:"
	templatesDirective = "@templates:"
	separator          = "---"

	// MaxLineSize is the longest line a note file may contain.
	MaxLineSize = 4 << 20
)

// NoteRecord is a note read from a source file.
type NoteRecord struct {
	ID        string
	Content   map[string]string
	Templates []string
}

// ParseFile reads a file from the given path and extracts all notes.
func ParseFile(path string, fields []string) ([]NoteRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file, fields)
}

// Parse reads notes from r. A line starting with "<field>:" opens that field
// and following lines continue it. A "---" line, or the deck's first field
// appearing again, starts a new note. "@id:" and "@templates:" lines set the
// note's id and template subset; notes without an id get one derived from
// their content.
func Parse(r io.Reader, fields []string) ([]NoteRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	var notes []NoteRecord
	current := NoteRecord{Content: map[string]string{}}
	var currentField string
	var currentBlock []string

	flushField := func() {
		if currentField != "" {
			current.Content[currentField] = strings.TrimRight(strings.Join(currentBlock, "\n"), "\n")
		}
		currentField = ""
		currentBlock = nil
	}

	finishNote := func() {
		flushField()
		if len(current.Content) > 0 {
			if current.ID == "" {
				current.ID = knol.Fingerprint(current.Content, fields)[:16]
			}
			notes = append(notes, current)
		}
		current = NoteRecord{Content: map[string]string{}}
	}

	for scanner.Scan() {
		line := scanner.Text()

		if strings.TrimSpace(line) == separator {
			finishNote()
			continue
		}

		started := currentField != "" || len(current.Content) > 0

		// Directives precede the fields of the note they belong to.
		if value, ok := cutPrefix(line, idDirective); ok {
			if started {
				finishNote()
			}
			current.ID = strings.TrimSpace(value)
			continue
		}
		if value, ok := cutPrefix(line, templatesDirective); ok {
			if started {
				finishNote()
			}
			current.Templates = splitList(value)
			continue
		}

		field, value, ok := matchField(line, fields)
		if !ok {
			if currentField != "" {
				currentBlock = append(currentBlock, line)
			}
			continue
		}

		// A repeated field or a new first field always starts a new note.
		_, seen := current.Content[field]
		if seen || field == currentField || (field == fields[0] && started) {
			finishNote()
		} else {
			flushField()
		}
		currentField = field
		currentBlock = append(currentBlock, value)
	}

	finishNote() // Finish the very last note in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return notes, nil
}

// matchField reports which declared field, if any, the line opens.
func matchField(line string, fields []string) (string, string, bool) {
	for _, f := range fields {
		if value, ok := cutPrefix(line, f+":"); ok {
			return f, value, true
		}
	}
	return "", "", false
}

// cutPrefix strips prefix and a single following space.
func cutPrefix(line, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(line, prefix)
	if !ok {
		return "", false
	}
	return strings.TrimPrefix(rest, " "), true
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
