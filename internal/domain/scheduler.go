package domain

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// State is the opaque per-card blob owned by one scheduler.
type State map[string]any

// Scheduler is a pluggable review policy. Name namespaces the policy's state
// inside each card, so several schedulers can track the same card at once.
type Scheduler interface {
	Name() string
	// Init normalizes a possibly nil state, filling in defaults.
	Init(s State) State
	// Filter reports whether the card is due.
	Filter(s State) bool
	// Sort orders two initialized states; negative puts a first.
	Sort(a, b State) int
	// Update returns the state after an answer of the given quality.
	Update(s State, quality int) State
}

// DecodeState decodes a state blob into out, a pointer to a policy's typed
// state. Numbers are weakly typed and RFC3339 strings become time.Time, so
// blobs that went through JSON decode the same as in-memory ones.
func DecodeState(s State, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		WeaklyTypedInput: true,
		TagName:          "state",
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to build state decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(s)); err != nil {
		return fmt.Errorf("failed to decode scheduling state: %w", err)
	}
	return nil
}
