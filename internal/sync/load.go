package sync

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/parser"
)

// LoadOptions configures how a deck directory is turned into a Deck.
type LoadOptions struct {
	Scheduler domain.Scheduler
	// StoreFor returns the state store of a deck. Nil means an in-memory store.
	StoreFor func(deckID string) domain.StateStore
	OnChange func(prev, next *domain.Note)
}

// LoadReport summarizes a deck load.
type LoadReport struct {
	Dir    string
	Files  int
	Notes  int
	Errors []error
	// Unreadable lists note files that could not be parsed at all.
	Unreadable []string
}

// Complete reports whether every note of the source made it into the deck.
func (r *LoadReport) Complete() bool {
	return len(r.Errors) == 0
}

// LoadDeck reads the manifest in dir and every note file it names. Notes that
// fail to parse or do not match the deck's fields are reported and skipped;
// only an unreadable or invalid manifest fails the load.
func LoadDeck(dir string, opts LoadOptions) (*domain.Deck, *LoadReport, error) {
	m, err := parser.ParseManifestFile(filepath.Join(dir, parser.ManifestFile))
	if err != nil {
		return nil, nil, err
	}

	var store domain.StateStore
	if opts.StoreFor != nil {
		store = opts.StoreFor(m.ID)
	}
	deck, err := domain.New(m.ID, domain.Options{
		IDNum:     m.IDNum,
		Name:      m.Name,
		Desc:      m.Desc,
		Fields:    m.Fields,
		Watch:     m.Watch,
		Meta:      m.Meta,
		Scheduler: opts.Scheduler,
		Store:     store,
		OnChange:  opts.OnChange,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("manifest in %s: %w", dir, err)
	}
	for _, t := range m.Templates {
		if err := deck.AddTemplate(t.ID, t.Question, t.Answer, domain.TemplateType(t.Type), t.Style); err != nil {
			return nil, nil, fmt.Errorf("manifest in %s: %w", dir, err)
		}
	}

	report := &LoadReport{Dir: dir}
	addAll := func(origin string, records []parser.NoteRecord) {
		for _, r := range records {
			if err := deck.AddNote(r.ID, r.Content, r.Templates...); err != nil {
				report.Errors = append(report.Errors, fmt.Errorf("%s: %w", origin, err))
				continue
			}
			report.Notes++
		}
	}
	addAll(parser.ManifestFile, m.Records())

	files, err := noteFiles(dir, m.NoteFiles)
	if err != nil {
		return nil, nil, err
	}
	for _, path := range files {
		records, err := parser.ParseFile(path, m.Fields)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("parsing %s: %w", path, err))
			report.Unreadable = append(report.Unreadable, path)
			continue
		}
		report.Files++
		addAll(path, records)
	}
	return deck, report, nil
}

// noteFiles lists the note files of a deck directory in lexical order.
func noteFiles(dir string, patterns []string) ([]string, error) {
	var files []string
	if len(patterns) == 0 {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err // Propagate errors from WalkDir
			}
			if d.IsDir() && d.Name() == ".git" {
				return filepath.SkipDir
			}
			if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error walking directory %s: %w", dir, err)
		}
		return files, nil
	}

	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("bad note_files pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}
