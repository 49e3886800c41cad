// Package sync loads decks from their sources and reconciles them with the
// durable scheduling state.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/gitsource"
	"github.com/conorfennell/knoldeck/internal/storage"
)

// ErrUnknownSource is returned when removing a source that was never added.
var ErrUnknownSource = errors.New("unknown source")

// Syncer loads every configured source into a deck.
type Syncer struct {
	db        *storage.DB
	reposDir  string
	scheduler domain.Scheduler
	// Progress receives git clone and pull output. Nil discards it.
	Progress io.Writer
}

// New returns a Syncer mirroring git sources under reposDir and binding
// scheduler to every deck it loads.
func New(db *storage.DB, reposDir string, scheduler domain.Scheduler) *Syncer {
	return &Syncer{db: db, reposDir: reposDir, scheduler: scheduler}
}

// AddSource registers a local directory or git URL, unless already known.
func (s *Syncer) AddSource(path string) (int64, error) {
	existing, err := s.db.FindSourceByPath(path)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		slog.Info("Source already exists", "id", existing.ID, "path", path)
		return existing.ID, nil
	}

	sourceType := storage.SourceLocal
	if gitsource.IsGitURL(path) {
		sourceType = storage.SourceGit
	}
	id, err := s.db.InsertSource(path, sourceType)
	if err != nil {
		return 0, err
	}
	slog.Info("Source added", "id", id, "type", sourceType, "path", path)
	return id, nil
}

// RemoveSource unregisters a source. The scheduling state of its decks is
// kept, so adding the source again picks up where it left off.
func (s *Syncer) RemoveSource(path string) error {
	existing, err := s.db.FindSourceByPath(path)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("source %s: %w", path, ErrUnknownSource)
	}
	if err := s.db.DeleteSource(existing.ID); err != nil {
		return err
	}
	slog.Info("Source removed", "id", existing.ID, "path", path)
	return nil
}

// Run iterates over all sources and reconciles them. A failing source is
// logged and skipped; its error is part of the joined error returned with
// the decks that did load. When two sources provide the same deck id the
// first one wins and the later one is neither served nor reconciled.
func (s *Syncer) Run(ctx context.Context) ([]*domain.Deck, error) {
	slog.Info("Starting sync process for all sources...")
	sources, err := s.db.GetAllSources()
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Info("No sources configured. Add one with --add-source <path/or/url.git>")
		return nil, nil
	}

	var decks []*domain.Deck
	var errs []error
	seen := make(map[string]string)
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return decks, err
		}
		slog.Info("Syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		deck, report, err := s.loadSource(ctx, source)
		if err != nil {
			slog.Error("Error syncing source", "path", source.Path, "error", err)
			errs = append(errs, fmt.Errorf("source %s: %w", source.Path, err))
			continue
		}
		if prev, dup := seen[deck.ID]; dup {
			slog.Warn("Deck id already loaded from another source, skipping", "deck", deck.ID, "path", source.Path, "first", prev)
			continue
		}
		seen[deck.ID] = source.Path

		if err := s.reconcile(deck, report, source.ID); err != nil {
			slog.Error("Error reconciling source", "path", source.Path, "error", err)
			errs = append(errs, fmt.Errorf("source %s: %w", source.Path, err))
			continue
		}
		if err := s.db.UpdateSourceLastScanned(source.ID); err != nil {
			slog.Warn("Failed to update last scanned for source", "source_id", source.ID, "error", err)
		}
		for _, path := range report.Unreadable {
			errs = append(errs, fmt.Errorf("source %s: unreadable note file %s", source.Path, path))
		}

		slog.Info("reconciliation complete",
			"deck", deck.ID,
			"path", report.Dir,
			"files", report.Files,
			"notes", report.Notes,
			"errors", len(report.Errors),
		)
		decks = append(decks, deck)
	}
	slog.Info("Sync process complete.", "decks", len(decks), "failed", len(errs))
	return decks, errors.Join(errs...)
}

// loadSource mirrors a git source if needed and loads its deck. Nothing is
// written to the database.
func (s *Syncer) loadSource(ctx context.Context, source storage.Source) (*domain.Deck, *LoadReport, error) {
	dir := source.Path
	if source.Type == storage.SourceGit {
		localRepoPath, err := gitsource.LocalPath(s.reposDir, source.Path)
		if err != nil {
			return nil, nil, err
		}
		if err := os.MkdirAll(s.reposDir, os.ModePerm); err != nil {
			return nil, nil, fmt.Errorf("failed to create repos directory: %w", err)
		}
		if err := gitsource.Sync(ctx, source.Path, localRepoPath, s.Progress); err != nil {
			return nil, nil, err
		}
		dir = localRepoPath
	}

	deck, report, err := LoadDeck(dir, LoadOptions{
		Scheduler: s.scheduler,
		StoreFor: func(deckID string) domain.StateStore {
			return s.db.DeckStore(deckID)
		},
		OnChange: func(prev, next *domain.Note) {
			slog.Warn("Note defined more than once, keeping the last definition", "path", dir, "note", next.ID)
		},
	})
	if err != nil {
		return nil, nil, err
	}
	for _, e := range report.Errors {
		slog.Warn("Skipped note", "deck", deck.ID, "error", e)
	}
	return deck, report, nil
}

// reconcile resets the scheduling of notes whose watched fields changed
// since the last sync and deletes notes that left the source. Orphans are
// only deleted after a load without errors: a note that failed to load is
// not gone.
func (s *Syncer) reconcile(deck *domain.Deck, report *LoadReport, sourceID int64) error {
	known, err := s.db.NoteFingerprints(deck.ID)
	if err != nil {
		return err
	}

	var changed int
	for _, note := range deck.Notes() {
		fingerprint := note.Fingerprint(deck.Watch)
		if prev, ok := known[note.ID]; ok && prev != fingerprint {
			slog.Info("Watched fields changed, resetting scheduling", "deck", deck.ID, "note", note.ID)
			if err := deck.Store().Reset(note.ID); err != nil {
				return err
			}
			changed++
		}
		if err := s.db.UpsertNote(deck.ID, note.ID, fingerprint, sourceID); err != nil {
			return err
		}
		delete(known, note.ID)
	}

	if !report.Complete() {
		slog.Warn("Deck loaded with errors, keeping notes missing from it", "deck", deck.ID, "missing", len(known))
		return nil
	}
	for noteID := range known {
		slog.Info("Orphaned note, deleting", "deck", deck.ID, "note", noteID)
		if err := s.db.DeleteNote(deck.ID, noteID); err != nil {
			slog.Warn("Failed to delete orphaned note", "deck", deck.ID, "note", noteID, "error", err)
		}
	}

	slog.Debug("notes reconciled", "deck", deck.ID, "changed", changed, "orphaned", len(known))
	return nil
}
