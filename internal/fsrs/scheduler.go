// Package fsrs schedules cards with a simplified FSRS memory model.
package fsrs

import (
	"log/slog"
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
)

// Name is the key fsrs state is stored under.
const Name = "fsrs"

// Scheduler adapts Params to the domain.Scheduler contract.
type Scheduler struct {
	params *Params
	now    func() time.Time
}

// NewScheduler returns a scheduler using params, or DefaultParams when nil.
func NewScheduler(params *Params) *Scheduler {
	if params == nil {
		params = DefaultParams()
	}
	return &Scheduler{params: params, now: time.Now}
}

// WithClock returns a copy of s reading the time from now.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	return &Scheduler{params: s.params, now: now}
}

func (s *Scheduler) Name() string { return Name }

// Init decodes the state. An unseen card has no due date and is due at once.
func (s *Scheduler) Init(st domain.State) domain.State {
	return encode(s.decode(st))
}

func (s *Scheduler) Filter(st domain.State) bool {
	return !s.decode(st).Due.After(s.now())
}

// Sort puts the earliest due card first, then the one reviewed fewer times.
func (s *Scheduler) Sort(a, b domain.State) int {
	ca, cb := s.decode(a), s.decode(b)
	if c := ca.Due.Compare(cb.Due); c != 0 {
		return c
	}
	return ca.Reps - cb.Reps
}

func (s *Scheduler) Update(st domain.State, quality int) domain.State {
	next := s.params.NextState(s.decode(st), RatingFromQuality(quality), s.now())
	return encode(next)
}

func (s *Scheduler) decode(st domain.State) CardState {
	var cs CardState
	if err := domain.DecodeState(st, &cs); err != nil {
		slog.Warn("Discarding unreadable fsrs state", "error", err)
		cs = CardState{}
	}
	return cs
}

func encode(cs CardState) domain.State {
	st := domain.State{
		"stability":  cs.Stability,
		"difficulty": cs.Difficulty,
		"reps":       cs.Reps,
		"lapses":     cs.Lapses,
	}
	if !cs.Due.IsZero() {
		st["due"] = cs.Due.UTC().Format(time.RFC3339Nano)
	}
	if !cs.LastReview.IsZero() {
		st["last_review"] = cs.LastReview.UTC().Format(time.RFC3339Nano)
	}
	return st
}
