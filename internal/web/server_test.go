package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/knoldeck/internal/domain"
)

type dueScheduler struct{}

func (dueScheduler) Name() string { return "due" }

func (dueScheduler) Init(st domain.State) domain.State {
	if st == nil {
		return domain.State{"due": true}
	}
	return st
}

func (dueScheduler) Filter(st domain.State) bool { return st["due"] == true }

func (dueScheduler) Sort(a, b domain.State) int { return 0 }

func (dueScheduler) Update(st domain.State, quality int) domain.State {
	return domain.State{"due": quality < 3}
}

func newTestDeck(t *testing.T) *domain.Deck {
	t.Helper()
	d, err := domain.New("zh_CN", domain.Options{
		Name:      "Chinese",
		Fields:    []string{"emoji", "text"},
		Scheduler: dueScheduler{},
	})
	require.NoError(t, err)
	require.NoError(t, d.AddTemplate("basic", "{{emoji}}", "{{ text }} ({{pinyin}})", "", ""))
	require.NoError(t, d.AddNote("apple", map[string]string{"emoji": "🍎", "text": "apple"}))
	require.NoError(t, d.AddNote("pear", map[string]string{"emoji": "🍐", "text": "pear"}))
	return d
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRender(t *testing.T) {
	content := map[string]string{"emoji": "🍎", "text": "apple"}
	assert.Equal(t, "🍎", render("{{emoji}}", content))
	assert.Equal(t, "apple / 🍎", render("{{ text }} / {{emoji}}", content))
	assert.Equal(t, "{{pinyin}}", render("{{pinyin}}", content))
	assert.Equal(t, "plain", render("plain", content))
}

func TestServer_Decks(t *testing.T) {
	s := NewServer([]*domain.Deck{newTestDeck(t)}, nil)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/decks", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	decks := decode[[]deckView](t, rec)
	require.Len(t, decks, 1)
	assert.Equal(t, "zh_CN", decks[0].ID)
	assert.Equal(t, "due", decks[0].Scheduler)
	assert.Equal(t, 2, decks[0].Notes)
	assert.Equal(t, 2, decks[0].Cards)
	assert.Equal(t, 2, decks[0].Due)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/decks/zh_CN/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Chinese", decode[deckView](t, rec).Name)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/decks/fr_FR/cards", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Cards(t *testing.T) {
	s := NewServer([]*domain.Deck{newTestDeck(t)}, nil)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/decks/zh_CN/cards", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	cards := decode[[]cardView](t, rec)
	require.Len(t, cards, 2)
	assert.Equal(t, "apple", cards[0].NoteID)
	assert.Equal(t, "🍎", cards[0].Question)
	assert.Equal(t, "apple ({{pinyin}})", cards[0].Answer)
	assert.Equal(t, domain.TemplateBasic, cards[0].Type)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/decks/zh_CN/notes", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	notes := decode[[]noteView](t, rec)
	require.Len(t, notes, 2)
	assert.Equal(t, "pear", notes[1].Content["text"])

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/decks/zh_CN/templates", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	templates := decode[[]templateView](t, rec)
	require.Len(t, templates, 1)
	assert.Equal(t, "{{emoji}}", templates[0].Question)
}

func TestServer_ReviewFlow(t *testing.T) {
	s := NewServer([]*domain.Deck{newTestDeck(t)}, nil)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/decks/zh_CN/next", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "apple", decode[cardView](t, rec).NoteID)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/decks/zh_CN/next?n=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]cardView](t, rec), 2)

	form := url.Values{"quality": {"5"}}
	req := httptest.NewRequest(http.MethodPost, "/decks/zh_CN/answer", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = do(t, s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	answered := decode[cardView](t, rec)
	assert.Equal(t, "apple", answered.NoteID)
	assert.Equal(t, domain.State{"due": false}, answered.Scheduling["due"])

	req = httptest.NewRequest(http.MethodPost, "/decks/zh_CN/answer", strings.NewReader(`{"quality": 4}`))
	req.Header.Set("Content-Type", "application/json")
	rec = do(t, s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pear", decode[cardView](t, rec).NoteID)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/decks/zh_CN/next", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/decks/zh_CN/next?n=3", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]cardView](t, rec))

	req = httptest.NewRequest(http.MethodPost, "/decks/zh_CN/answer", strings.NewReader(`{"quality": 1}`))
	req.Header.Set("Content-Type", "application/json")
	rec = do(t, s, req)
	assert.Equal(t, http.StatusNoContent, rec.Code, "nothing due is not an error")
}

func TestServer_BadRequests(t *testing.T) {
	s := NewServer([]*domain.Deck{newTestDeck(t)}, nil)

	tests := []struct {
		name        string
		method      string
		target      string
		body        string
		contentType string
		wantStatus  int
	}{
		{name: "bad n", method: http.MethodGet, target: "/decks/zh_CN/next?n=x", wantStatus: http.StatusBadRequest},
		{name: "missing quality", method: http.MethodPost, target: "/decks/zh_CN/answer", contentType: "application/x-www-form-urlencoded", wantStatus: http.StatusBadRequest},
		{name: "bad quality", method: http.MethodPost, target: "/decks/zh_CN/answer", body: "quality=good", contentType: "application/x-www-form-urlencoded", wantStatus: http.StatusBadRequest},
		{name: "bad json", method: http.MethodPost, target: "/decks/zh_CN/answer", body: "{", contentType: "application/json", wantStatus: http.StatusBadRequest},
		{name: "json without quality", method: http.MethodPost, target: "/decks/zh_CN/answer", body: "{}", contentType: "application/json", wantStatus: http.StatusBadRequest},
		{name: "unknown deck", method: http.MethodPost, target: "/decks/nope/answer", body: "quality=3", contentType: "application/x-www-form-urlencoded", wantStatus: http.StatusNotFound},
		{name: "wrong method", method: http.MethodGet, target: "/decks/zh_CN/answer", wantStatus: http.StatusMethodNotAllowed},
		{name: "sync not configured", method: http.MethodPost, target: "/sync", wantStatus: http.StatusNotImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := do(t, s, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestServer_Sync(t *testing.T) {
	first := newTestDeck(t)
	second, err := domain.New("fr_FR", domain.Options{Fields: []string{"text"}, Scheduler: dueScheduler{}})
	require.NoError(t, err)

	calls := 0
	reload := func(ctx context.Context) ([]*domain.Deck, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("network down")
		}
		return []*domain.Deck{first, second}, nil
	}
	s := NewServer([]*domain.Deck{first}, reload)

	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/sync", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]deckView](t, rec), 2)

	rec = do(t, s, httptest.NewRequest(http.MethodPost, "/sync", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]deckView](t, rec), 2, "a failed sync keeps the loaded decks")
}

func TestServer_NoScheduler(t *testing.T) {
	d := newTestDeck(t)
	d.SetScheduler(nil)
	s := NewServer([]*domain.Deck{d}, nil)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/decks/zh_CN/cards", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]cardView](t, rec))

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/decks/zh_CN/next", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestServer_SyncDoesNotBlockReviews(t *testing.T) {
	deck := newTestDeck(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	reload := func(ctx context.Context) ([]*domain.Deck, error) {
		close(entered)
		<-release
		return []*domain.Deck{deck}, nil
	}
	s := NewServer([]*domain.Deck{deck}, reload)

	synced := make(chan int)
	go func() {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sync", nil))
		synced <- rec.Code
	}()
	<-entered

	reviewed := make(chan int)
	go func() {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/decks/zh_CN/next", nil))
		reviewed <- rec.Code
	}()
	select {
	case code := <-reviewed:
		assert.Equal(t, http.StatusOK, code)
	case <-time.After(5 * time.Second):
		t.Fatal("review request blocked behind a running sync")
	}

	close(release)
	assert.Equal(t, http.StatusOK, <-synced)
}
