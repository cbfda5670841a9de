package steward

import (
	"fmt"
	"log/slog"
)

// maxStreak is how many cycles in a row the steward repeats a paid action
// before moving down its preference list.
const maxStreak = 3

// Decision is the action the steward wants played this cycle.
type Decision struct {
	Action    string `json:"action"` // Empty means no turn is played
	Rationale string `json:"rationale"`
}

// None reports whether the decision plays no turn.
func (d *Decision) None() bool {
	return d.Action == ""
}

type situation struct {
	level   string
	concern Concern
}

// preferences lists actions to try in order, cheapest remedy last. WAIT
// costs nothing so every list ends in it.
var preferences = map[situation][]string{
	{LevelCritical, ConcernStability}: {"CALM", "WAIT"},
	{LevelCritical, ConcernBarren}:    {"BLESS", "RAIN", "WAIT"},
	{LevelWarning, ConcernStability}:  {"CALM", "WAIT"},
	{LevelWarning, ConcernDiversity}:  {"BLESS", "SUN", "RAIN", "WAIT"},
	{LevelWatch, ConcernStability}:    {"CALM", "WAIT"},
	{LevelWatch, ConcernDiversity}:    {"SUN", "RAIN", "WAIT"},
	{LevelHealthy, ConcernNone}:       {"WAIT"},
}

// Decide picks an affordable action for the triaged island. mem may be nil.
func Decide(snap *Snapshot, h *Health, mem *Memory) *Decision {
	if !snap.Status.Playing() {
		return &Decision{Rationale: fmt.Sprintf("the island is %s; nothing left to tend", snap.Status.Status)}
	}

	affordable := make(map[string]bool, len(snap.Actions))
	for _, a := range snap.Actions {
		affordable[a.Action] = a.Affordable
	}

	prefs, ok := preferences[situation{h.Level, h.Concern}]
	if !ok {
		prefs = []string{"WAIT"}
	}
	for _, action := range prefs {
		if action != "WAIT" && !affordable[action] {
			continue
		}
		if action != "WAIT" && mem != nil && mem.Streak(action) >= maxStreak {
			slog.Debug("steward avoiding repeat", "action", action, "streak", mem.Streak(action))
			continue
		}
		return &Decision{
			Action:    action,
			Rationale: rationale(h, action),
		}
	}
	return &Decision{Action: "WAIT", Rationale: rationale(h, "WAIT")}
}

func rationale(h *Health, action string) string {
	switch {
	case h.Level == LevelHealthy:
		return "island healthy; saving mana"
	case action == "WAIT":
		return fmt.Sprintf("%s %s but no remedy affordable; waiting for mana", h.Level, h.Concern)
	case h.Concern == ConcernStability:
		return fmt.Sprintf("%s: stability %d", h.Level, h.Stability)
	default:
		return fmt.Sprintf("%s: biodiversity %d with %d years to go", h.Level, h.Biodiversity, h.YearsToWin)
	}
}
