// Package web serves decks over a small JSON review API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/conorfennell/knoldeck/internal/domain"
)

// Reloader reloads every deck from its source.
type Reloader func(ctx context.Context) ([]*domain.Deck, error)

// Server holds the dependencies for the HTTP server. Decks are not safe for
// concurrent use, so every handler holds mu while it touches one. syncMu
// serializes reloads, which run without mu held.
type Server struct {
	mu     sync.Mutex
	syncMu sync.Mutex
	decks  map[string]*domain.Deck
	reload Reloader
	router chi.Router
}

// NewServer creates and configures a new server. reload may be nil, which
// disables POST /sync.
func NewServer(decks []*domain.Deck, reload Reloader) *Server {
	s := &Server{
		decks:  indexDecks(decks),
		reload: reload,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/decks", s.handleListDecks())
	s.router.Post("/sync", s.handlePostSync())
	s.router.Route("/decks/{deckID}", func(r chi.Router) {
		r.Get("/", s.handleGetDeck())
		r.Get("/cards", s.handleGetCards())
		r.Get("/next", s.handleGetNext())
		r.Post("/answer", s.handlePostAnswer())
		r.Get("/notes", s.handleGetNotes())
		r.Get("/templates", s.handleGetTemplates())
	})
}

func indexDecks(decks []*domain.Deck) map[string]*domain.Deck {
	byID := make(map[string]*domain.Deck, len(decks))
	for _, d := range decks {
		byID[d.ID] = d
	}
	return byID
}

// deck looks up the deck named in the URL, writing a 404 when unknown.
// Callers must hold s.mu.
func (s *Server) deck(w http.ResponseWriter, r *http.Request) *domain.Deck {
	d, ok := s.decks[chi.URLParam(r, "deckID")]
	if !ok {
		writeError(w, http.StatusNotFound, "deck not found")
		return nil
	}
	return d
}

// handleListDecks lists every deck with its due count.
func (s *Server) handleListDecks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		views := make([]deckView, 0, len(s.decks))
		for _, d := range sortedDecks(s.decks) {
			v, err := newDeckView(d)
			if err != nil {
				s.internalError(w, "Error summarizing deck", d.ID, err)
				return
			}
			views = append(views, v)
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// handleGetDeck describes one deck.
func (s *Server) handleGetDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		d := s.deck(w, r)
		if d == nil {
			return
		}
		v, err := newDeckView(d)
		if err != nil {
			s.internalError(w, "Error summarizing deck", d.ID, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// handleGetCards lists every card of a deck in review order.
func (s *Server) handleGetCards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		d := s.deck(w, r)
		if d == nil {
			return
		}
		cards, err := d.Cards()
		if err != nil {
			s.internalError(w, "Error getting cards", d.ID, err)
			return
		}
		writeJSON(w, http.StatusOK, newCardViews(cards))
	}
}

// handleGetNext returns the next due card, or with ?n= greater than one a
// list of up to n due cards. A single lookup with nothing due answers 204.
func (s *Server) handleGetNext() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := 1
		if raw := r.URL.Query().Get("n"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid n")
				return
			}
			n = parsed
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		d := s.deck(w, r)
		if d == nil {
			return
		}
		cards, err := d.NextN(n)
		if err != nil {
			s.internalError(w, "Error getting next cards", d.ID, err)
			return
		}
		if n != 1 {
			writeJSON(w, http.StatusOK, newCardViews(cards))
			return
		}
		if len(cards) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, newCardView(cards[0]))
	}
}

type answerRequest struct {
	Quality *int `json:"quality"`
}

// handlePostAnswer grades the next due card. The quality comes from a JSON
// body or a "quality" form value.
func (s *Server) handlePostAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quality, err := readQuality(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		d := s.deck(w, r)
		if d == nil {
			return
		}
		card, err := d.AnswerNext(quality)
		if err != nil {
			s.internalError(w, "Error answering card", d.ID, err)
			return
		}
		if card == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		slog.Info("Card answered", "deck", d.ID, "note", card.Note.ID, "template", card.Template.ID, "quality", quality)
		writeJSON(w, http.StatusOK, newCardView(card))
	}
}

func readQuality(r *http.Request) (int, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req answerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return 0, errors.New("invalid JSON body")
		}
		if req.Quality == nil {
			return 0, errors.New("quality is required")
		}
		return *req.Quality, nil
	}
	raw := r.PostFormValue("quality")
	if raw == "" {
		return 0, errors.New("quality is required")
	}
	q, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("invalid quality")
	}
	return q, nil
}

// handleGetNotes lists a deck's notes.
func (s *Server) handleGetNotes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		d := s.deck(w, r)
		if d == nil {
			return
		}
		notes := d.Notes()
		views := make([]noteView, 0, len(notes))
		for _, n := range notes {
			views = append(views, noteView{ID: n.ID, Content: n.Content, Templates: n.Templates})
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// handleGetTemplates lists a deck's templates.
func (s *Server) handleGetTemplates() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		d := s.deck(w, r)
		if d == nil {
			return
		}
		templates := d.Templates()
		views := make([]templateView, 0, len(templates))
		for _, t := range templates {
			views = append(views, newTemplateView(t))
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// handlePostSync reloads every deck and lists the result.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.reload == nil {
			writeError(w, http.StatusNotImplemented, "sync is not configured")
			return
		}

		s.syncMu.Lock()
		decks, err := s.reload(r.Context())
		s.syncMu.Unlock()
		if err != nil {
			// Sources that loaded are still served.
			slog.Warn("Sync finished with errors", "error", err)
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if len(decks) > 0 || err == nil {
			s.decks = indexDecks(decks)
		}

		views := make([]deckView, 0, len(s.decks))
		for _, d := range sortedDecks(s.decks) {
			v, vErr := newDeckView(d)
			if vErr != nil {
				s.internalError(w, "Error summarizing deck", d.ID, vErr)
				return
			}
			views = append(views, v)
		}
		writeJSON(w, http.StatusOK, views)
	}
}

func (s *Server) internalError(w http.ResponseWriter, msg, deckID string, err error) {
	slog.Error(msg, "deck", deckID, "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
