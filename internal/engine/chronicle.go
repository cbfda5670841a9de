package engine

import "fmt"

// Destabilization is the global stability line whose crossing is announced.
const Destabilization = 30

// TurnLog composes the log line for a resolved turn. Milestones take
// priority over the action message; the first one that applies wins.
func TurnLog(action Action, old, next GameState) string {
	switch {
	case old.HumanPopulation == 0 && next.HumanPopulation > 0:
		return fmt.Sprintf("Year %d: THE FIRST VILLAGE! Humans have awoken.", next.Year)
	case old.HumanPopulation > 0 && next.HumanPopulation == 0:
		return fmt.Sprintf("Year %d: CIVILIZATION COLLAPSED. Silence returns.", next.Year)
	case old.GlobalStability >= Destabilization && next.GlobalStability < Destabilization:
		return fmt.Sprintf("Year %d: WARNING! The island is destabilizing.", next.Year)
	}
	return fmt.Sprintf("Year %d: %s", next.Year, action.logMessage())
}

// pushLog prepends line and trims the log to capacity entries.
func pushLog(logs []string, line string, capacity int) []string {
	out := make([]string, 0, len(logs)+1)
	out = append(out, line)
	out = append(out, logs...)
	if capacity > 0 && len(out) > capacity {
		out = out[:capacity]
	}
	return out
}
