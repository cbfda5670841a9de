package engine

import (
	"context"
	"fmt"
)

// Era is a named age of the island as told by a narrator.
type Era struct {
	Name        string `json:"age_name"`
	Description string `json:"description"`
	Modifier    string `json:"modifier"`
}

// Narrator composes an era for a snapshot. Implementations may be slow or
// fail; callers fall back to FallbackEra.
type Narrator interface {
	Narrate(ctx context.Context, state GameState) (Era, error)
}

// eraBand is the width of a biodiversity band. Crossing a band boundary is
// a milestone.
const eraBand = 20

// ShouldNarrate reports whether the turn from old to next deserves a new era:
// biodiversity moved into another band of twenty, or the game ended.
func ShouldNarrate(old, next GameState) bool {
	if next.Status != StatusPlaying {
		return true
	}
	return old.Biodiversity/eraBand != next.Biodiversity/eraBand
}

// FallbackEra picks a stock era from the current state.
func FallbackEra(s GameState) Era {
	switch {
	case s.Status == StatusLost:
		return Era{"The Great Wither", "Balance has been lost. Dust returns.", "Desolation"}
	case s.Biodiversity > 60:
		return Era{"Golden Era", "The ecosystem is in perfect harmony.", "Abundance"}
	case s.Biodiversity > 20:
		return Era{"Age of Green", "First sprouts are taking hold.", "Growth"}
	default:
		return Era{"Age of Silence", "The island is barren. Waiting for a spark.", "Potential"}
	}
}

// modifierLog is the log line announcing a new era.
func modifierLog(e Era) string {
	return fmt.Sprintf("The Cosmos Shifts: \"%s\"", e.Modifier)
}

// Validate rejects an era with any empty field.
func (e Era) Validate() error {
	switch {
	case e.Name == "":
		return fmt.Errorf("era has no name")
	case e.Description == "":
		return fmt.Errorf("era %q has no description", e.Name)
	case e.Modifier == "":
		return fmt.Errorf("era %q has no modifier", e.Name)
	}
	return nil
}
