package web

import (
	"cmp"
	"maps"
	"regexp"
	"slices"

	"github.com/conorfennell/knoldeck/internal/domain"
)

type deckView struct {
	ID        string            `json:"id"`
	IDNum     int64             `json:"id_num"`
	Name      string            `json:"name"`
	Desc      string            `json:"desc"`
	Fields    []string          `json:"fields"`
	Watch     []string          `json:"watch"`
	Meta      map[string]string `json:"meta"`
	Scheduler string            `json:"scheduler,omitempty"`
	Notes     int               `json:"notes"`
	Templates int               `json:"templates"`
	Cards     int               `json:"cards"`
	Due       int               `json:"due"`
}

func newDeckView(d *domain.Deck) (deckView, error) {
	v := deckView{
		ID:        d.ID,
		IDNum:     d.IDNum,
		Name:      d.Name,
		Desc:      d.Desc,
		Fields:    d.Fields,
		Watch:     d.Watch,
		Meta:      d.Meta,
		Notes:     len(d.Notes()),
		Templates: len(d.Templates()),
	}
	if s := d.Scheduler(); s != nil {
		v.Scheduler = s.Name()
	}
	cards, err := d.Cards()
	if err != nil {
		return v, err
	}
	due, err := d.NextN(len(cards))
	if err != nil {
		return v, err
	}
	v.Cards, v.Due = len(cards), len(due)
	return v, nil
}

func sortedDecks(decks map[string]*domain.Deck) []*domain.Deck {
	out := slices.Collect(maps.Values(decks))
	slices.SortFunc(out, func(a, b *domain.Deck) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

type cardView struct {
	NoteID     string                  `json:"note_id"`
	TemplateID string                  `json:"template_id"`
	Type       domain.TemplateType     `json:"type"`
	Question   string                  `json:"question"`
	Answer     string                  `json:"answer"`
	Style      string                  `json:"style,omitempty"`
	Scheduling map[string]domain.State `json:"scheduling"`
}

func newCardView(c *domain.Card) cardView {
	return cardView{
		NoteID:     c.Note.ID,
		TemplateID: c.Template.ID,
		Type:       c.Template.Type,
		Question:   render(c.Template.Question, c.Note.Content),
		Answer:     render(c.Template.Answer, c.Note.Content),
		Style:      c.Template.Style,
		Scheduling: c.Scheduling,
	}
}

func newCardViews(cards []*domain.Card) []cardView {
	views := make([]cardView, 0, len(cards))
	for _, c := range cards {
		views = append(views, newCardView(c))
	}
	return views
}

type noteView struct {
	ID        string            `json:"id"`
	Content   map[string]string `json:"content"`
	Templates []string          `json:"templates,omitempty"`
}

type templateView struct {
	ID       string              `json:"id"`
	Question string              `json:"question"`
	Answer   string              `json:"answer"`
	Type     domain.TemplateType `json:"type"`
	Style    string              `json:"style,omitempty"`
}

func newTemplateView(t *domain.Template) templateView {
	return templateView{ID: t.ID, Question: t.Question, Answer: t.Answer, Type: t.Type, Style: t.Style}
}

var fieldRef = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// render substitutes {{field}} references with the note's values. Unknown
// fields are left as written.
func render(expr string, content map[string]string) string {
	return fieldRef.ReplaceAllStringFunc(expr, func(ref string) string {
		name := fieldRef.FindStringSubmatch(ref)[1]
		if v, ok := content[name]; ok {
			return v
		}
		return ref
	})
}
