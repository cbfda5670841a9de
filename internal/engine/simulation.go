// Simulation ties the turn engine, the PRNG and the narrator together and
// keeps the chronicle.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/Bluenot3/Tiny-God/internal/entropy"
	"github.com/Bluenot3/Tiny-God/internal/world"
)

// Config holds the orchestration knobs that are not part of the rules.
type Config struct {
	LogCapacity      int           // Chronicle lines kept, most recent first
	NarrationTimeout time.Duration // Deadline for one Narrate call
}

// DefaultConfig returns the standard orchestration settings.
func DefaultConfig() Config {
	return Config{
		LogCapacity:      6,
		NarrationTimeout: 15 * time.Second,
	}
}

// Simulation holds one running game. It is not safe for concurrent use;
// the API server serialises access.
type Simulation struct {
	State    GameState
	RNG      entropy.Stateful
	Narrator Narrator // Nil uses the stock eras
	Config   Config

	Seed int64 // Seed the current island was generated from
}

// TurnResult describes what one Play call did.
type TurnResult struct {
	Action   Action  `json:"action"`
	Outcome  Outcome `json:"outcome"`
	Year     int     `json:"year"`
	Log      string  `json:"log,omitempty"`
	Era      *Era    `json:"era,omitempty"` // Set when the turn opened a new era
	Fallback bool    `json:"fallback,omitempty"`
}

// Applied reports whether the turn advanced the game.
func (r TurnResult) Applied() bool {
	return r.Outcome == OutcomeApplied
}

// NewSimulation creates a Simulation around an existing state and PRNG.
func NewSimulation(state GameState, rng entropy.Stateful, narrator Narrator, cfg Config) *Simulation {
	if cfg.LogCapacity <= 0 {
		cfg.LogCapacity = DefaultConfig().LogCapacity
	}
	return &Simulation{
		State:    state,
		RNG:      rng,
		Narrator: narrator,
		Config:   cfg,
	}
}

// Play resolves one action, writes the chronicle and, on a milestone, asks
// the narrator for a new era. A narrator failure never undoes the turn.
func (s *Simulation) Play(ctx context.Context, action Action) TurnResult {
	result, due := s.Resolve(action)
	if due {
		era, fallback := s.NarrateEra(ctx, s.State)
		s.ApplyEra(&result, era, fallback)
	}
	return result
}

// Resolve applies one action and writes its chronicle line. The bool
// reports that the turn opened a new era, which NarrateEra and ApplyEra
// complete. Callers that hold a lock around Resolve can release it while
// the narrator runs.
func (s *Simulation) Resolve(action Action) (TurnResult, bool) {
	old := s.State
	next, outcome := Step(old, action, s.RNG)
	result := TurnResult{Action: action, Outcome: outcome, Year: old.Year}
	if outcome != OutcomeApplied {
		slog.Debug("turn rejected", "action", action, "outcome", outcome, "year", old.Year, "mana", old.Mana)
		return result, false
	}

	result.Year = next.Year
	result.Log = TurnLog(action, old, next)
	next.Logs = pushLog(next.Logs, result.Log, s.Config.LogCapacity)
	s.State = next

	slog.Debug("turn",
		"year", next.Year,
		"action", action,
		"mana", next.Mana,
		"biodiversity", next.Biodiversity,
		"stability", next.GlobalStability,
		"humans", next.HumanPopulation,
		"life", next.TotalLife,
	)
	if next.Status != StatusPlaying {
		slog.Info("game over", "year", next.Year, "status", next.Status, "biodiversity", next.Biodiversity)
	}
	return result, ShouldNarrate(old, next)
}

// NarrateEra asks the narrator for an era describing state. It neither
// reads nor writes s.State. The bool is true when the stock era was used.
func (s *Simulation) NarrateEra(ctx context.Context, state GameState) (Era, bool) {
	if s.Narrator == nil {
		return FallbackEra(state), true
	}
	if s.Config.NarrationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Config.NarrationTimeout)
		defer cancel()
	}
	era, err := s.Narrator.Narrate(ctx, state)
	if err == nil {
		err = era.Validate()
	}
	if err != nil {
		slog.Warn("narration failed, using fallback era", "year", state.Year, "error", err)
		return FallbackEra(state), true
	}
	return era, false
}

// ApplyEra installs era on the current state and records it on result.
func (s *Simulation) ApplyEra(result *TurnResult, era Era, fallback bool) {
	s.State.EraName = era.Name
	s.State.EraDescription = era.Description
	s.State.Logs = pushLog(s.State.Logs, modifierLog(era), s.Config.LogCapacity)
	result.Era = &era
	result.Fallback = fallback

	slog.Info("new era",
		"year", s.State.Year,
		"era", era.Name,
		"modifier", era.Modifier,
		"biodiversity", s.State.Biodiversity,
		"status", s.State.Status,
		"fallback", fallback,
	)
}

// Reset replaces the game with a freshly generated island.
func (s *Simulation) Reset(cfg world.GenConfig) {
	if cfg.Seed == 0 {
		cfg.Seed = entropy.RandomSeed()
	}
	state, rng := NewGame(cfg)
	s.State = state
	s.RNG = rng
	s.Seed = cfg.Seed
	slog.Info("island generated", "seed", cfg.Seed, "size", state.GridSize, "land", state.Land())
}

// Regen reports the mana the current island restores per turn.
func (s *Simulation) Regen() int {
	return Regen(s.State)
}

// CanAfford reports whether action is playable right now.
func (s *Simulation) CanAfford(action Action) bool {
	return action.Valid() && (s.State.Year == 0 || s.State.Mana >= action.Cost())
}
