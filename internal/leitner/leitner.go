// Package leitner schedules cards in Leitner boxes: a correct answer moves a
// card up one box, a wrong answer sends it back to the first, and box n is
// reviewed every 2^(n-1) days.
package leitner

import (
	"log/slog"
	"math"
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
)

// Name is the key leitner state is stored under.
const Name = "leitner"

const (
	// PassingQuality is the lowest answer quality that counts as correct.
	PassingQuality = 3
	DefaultBoxes   = 5
)

// CardState is the per-card leitner state.
type CardState struct {
	Box int       `state:"box"`
	Due time.Time `state:"due"`
}

// Scheduler implements domain.Scheduler.
type Scheduler struct {
	boxes int
	now   func() time.Time
}

// New returns a scheduler with the given number of boxes, or DefaultBoxes
// when boxes < 1.
func New(boxes int) *Scheduler {
	if boxes < 1 {
		boxes = DefaultBoxes
	}
	return &Scheduler{boxes: boxes, now: time.Now}
}

// WithClock returns a copy of s reading the time from now.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	return &Scheduler{boxes: s.boxes, now: now}
}

func (s *Scheduler) Name() string { return Name }

func (s *Scheduler) Init(st domain.State) domain.State {
	return encode(s.decode(st))
}

func (s *Scheduler) Filter(st domain.State) bool {
	return !s.decode(st).Due.After(s.now())
}

// Sort reviews lower boxes first, then earlier due dates.
func (s *Scheduler) Sort(a, b domain.State) int {
	ca, cb := s.decode(a), s.decode(b)
	if ca.Box != cb.Box {
		return ca.Box - cb.Box
	}
	return ca.Due.Compare(cb.Due)
}

func (s *Scheduler) Update(st domain.State, quality int) domain.State {
	cs := s.decode(st)
	if quality >= PassingQuality {
		cs.Box = min(cs.Box+1, s.boxes)
	} else {
		cs.Box = 1
	}
	cs.Due = s.now().Add(Interval(cs.Box))
	return encode(cs)
}

// Interval is the review interval of a box.
func Interval(box int) time.Duration {
	days := math.Pow(2, float64(max(box, 1)-1))
	return time.Duration(days) * 24 * time.Hour
}

func (s *Scheduler) decode(st domain.State) CardState {
	cs := CardState{Box: 1}
	if err := domain.DecodeState(st, &cs); err != nil {
		slog.Warn("Discarding unreadable leitner state", "error", err)
		cs = CardState{Box: 1}
	}
	cs.Box = min(max(cs.Box, 1), s.boxes)
	return cs
}

func encode(cs CardState) domain.State {
	st := domain.State{"box": cs.Box}
	if !cs.Due.IsZero() {
		st["due"] = cs.Due.UTC().Format(time.RFC3339Nano)
	}
	return st
}
