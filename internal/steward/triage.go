package steward

import (
	"github.com/Bluenot3/Tiny-God/internal/engine"
)

// Crisis levels, most severe first.
const (
	LevelCritical = "CRITICAL"
	LevelWarning  = "WARNING"
	LevelWatch    = "WATCH"
	LevelHealthy  = "HEALTHY"
)

// Concern names the signal that drove the crisis level.
type Concern string

const (
	ConcernNone      Concern = ""
	ConcernStability Concern = "stability"
	ConcernBarren    Concern = "barren"
	ConcernDiversity Concern = "diversity"
)

const (
	criticalStability = 20 // Humans abandon tiles below this
	watchStability    = 50
	warningDiversity  = 15
	winDiversity      = 60 // Victory needs strictly more
	finalStretch      = 20 // Years before the win year when diversity matters
)

// Health holds derived diagnostic signals computed from a Snapshot.
// Runs before any action is chosen; deterministic and free.
type Health struct {
	Level        string
	Concern      Concern
	LifePerLand  float64
	YearsToWin   int
	Biodiversity int
	Stability    int
}

// Triage computes a Health from the snapshot's status.
func Triage(snap *Snapshot) *Health {
	s := snap.Status
	h := &Health{
		Level:        LevelHealthy,
		YearsToWin:   max(engine.WinYear-s.Year, 0),
		Biodiversity: s.Biodiversity,
		Stability:    s.GlobalStability,
	}
	if s.Land > 0 {
		h.LifePerLand = float64(s.TotalLife) / float64(s.Land)
	}

	switch {
	case s.GlobalStability < criticalStability:
		h.Level, h.Concern = LevelCritical, ConcernStability
	case s.Year > 0 && s.Biodiversity == 0 && s.Year >= engine.LossGraceYears-3:
		// Loss is declared once the grace years run out with nothing alive.
		h.Level, h.Concern = LevelCritical, ConcernBarren
	case s.GlobalStability < engine.Destabilization:
		h.Level, h.Concern = LevelWarning, ConcernStability
	case s.Year > 0 && s.Biodiversity < warningDiversity:
		h.Level, h.Concern = LevelWarning, ConcernDiversity
	case s.GlobalStability < watchStability:
		h.Level, h.Concern = LevelWatch, ConcernStability
	case h.YearsToWin <= finalStretch && s.Biodiversity <= winDiversity:
		h.Level, h.Concern = LevelWatch, ConcernDiversity
	}
	return h
}
