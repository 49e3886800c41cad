package fsrs

import (
	"math"
	"time"
)

// Rating is the user's response to a card review.
type Rating int

const (
	Again Rating = 1
	Hard  Rating = 2
	Good  Rating = 3
	Easy  Rating = 4
)

// RatingFromQuality clamps an answer quality onto the four ratings.
func RatingFromQuality(quality int) Rating {
	switch {
	case quality <= int(Again):
		return Again
	case quality >= int(Easy):
		return Easy
	}
	return Rating(quality)
}

// Params holds the parameters for the FSRS algorithm.
type Params struct {
	A                float64 `koanf:"a" validate:"gt=0"`                       // scales the overall memory increase
	B                float64 `koanf:"b" validate:"gte=0"`                      // difficulty exponent
	C                float64 `koanf:"c" validate:"gte=0"`                      // stability exponent
	D                float64 `koanf:"d" validate:"gt=0"`                       // retention effect scaler
	DesiredRetention float64 `koanf:"desired_retention" validate:"gt=0,lt=1"` // desired retention rate (e.g., 0.9 for 90%)
}

// DefaultParams provides a set of sensible default parameters to start with.
func DefaultParams() *Params {
	return &Params{
		A:                0.2,
		B:                0.5,
		C:                0.1,
		D:                4.0,
		DesiredRetention: 0.9,
	}
}

// CardState holds the memory state of a card.
type CardState struct {
	Stability  float64   `state:"stability"`
	Difficulty float64   `state:"difficulty"`
	Due        time.Time `state:"due"`
	LastReview time.Time `state:"last_review"`
	Reps       int       `state:"reps"`
	Lapses     int       `state:"lapses"`
}

// NextState calculates the next stability and difficulty based on a review
// made at now. The due date follows from the new stability.
func (p *Params) NextState(currentState CardState, rating Rating, now time.Time) CardState {
	next := CardState{
		LastReview: now,
		Reps:       currentState.Reps + 1,
		Lapses:     currentState.Lapses,
	}

	if rating == Again {
		// If the user forgot, reset stability. Difficulty might increase.
		next.Stability = 1
		next.Difficulty = math.Min(10, currentState.Difficulty+0.5)
		next.Lapses++
		next.Due = NextDueDate(next.Stability, now)
		return next
	}

	// For successful reviews (Hard, Good, Easy)
	next.Stability = p.calculateNewStability(currentState.Stability, currentState.Difficulty)
	next.Difficulty = currentState.Difficulty
	switch rating {
	case Hard:
		next.Difficulty = math.Min(10, next.Difficulty+0.1)
	case Easy:
		next.Difficulty = math.Max(1, next.Difficulty-0.1)
	}
	next.Due = NextDueDate(next.Stability, now)
	return next
}

// calculateNewStability applies the core FSRS formula for a successful review.
func (p *Params) calculateNewStability(stability, difficulty float64) float64 {
	// Formula: S' = S * (1 + a * D^(-b) * S^c * (e^(d * (1-R)) - 1))
	if stability < 1 {
		stability = 1 // Ensure stability is at least 1 to avoid issues with pow
	}
	if difficulty < 1 {
		difficulty = 1 // Ensure difficulty is at least 1
	}

	factor := p.A * math.Pow(difficulty, -p.B) * math.Pow(stability, p.C)
	exponent := p.D * (1 - p.DesiredRetention)
	multiplier := math.Exp(exponent) - 1

	return stability * (1 + factor*multiplier)
}

// NextDueDate calculates the next review date based on the new stability.
func NextDueDate(newStability float64, now time.Time) time.Time {
	// The next review is scheduled 'newStability' days from now.
	daysToAdd := time.Duration(math.Round(newStability))
	return now.Add(daysToAdd * 24 * time.Hour)
}
