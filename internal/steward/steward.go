package steward

import (
	"context"
	"fmt"
	"log/slog"
)

// Steward runs observe, triage, decide and act against one API.
type Steward struct {
	Observer *Observer
	Actor    *Actor
	Memory   *Memory
}

// New creates a Steward for the API at baseURL. memoryPath may be empty.
func New(baseURL, adminKey, memoryPath string) *Steward {
	return &Steward{
		Observer: NewObserver(baseURL),
		Actor:    NewActor(baseURL, adminKey),
		Memory:   LoadMemory(memoryPath),
	}
}

// RunCycle executes one cycle and returns what was decided.
func (s *Steward) RunCycle(ctx context.Context) (*Decision, error) {
	snap, err := s.Observer.Observe(ctx)
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	h := Triage(snap)
	slog.Info("observation complete",
		"year", snap.Status.Year,
		"crisis", h.Level,
		"biodiversity", h.Biodiversity,
		"stability", h.Stability,
		"mana", snap.Status.Mana,
	)

	d := Decide(snap, h, s.Memory)
	slog.Info("decision made", "action", d.Action, "rationale", d.Rationale)
	if d.None() {
		return d, nil
	}

	res, err := s.Actor.Act(ctx, d)
	if err != nil {
		return d, fmt.Errorf("play %s: %w", d.Action, err)
	}
	s.Memory.Record(CycleRecord{
		GameID:       snap.Status.GameID,
		Year:         res.Status.Year,
		Action:       d.Action,
		CrisisLevel:  h.Level,
		Biodiversity: res.Status.Biodiversity,
		Stability:    res.Status.GlobalStability,
		Rationale:    d.Rationale,
	})
	s.Memory.Save()
	slog.Info("turn played", "year", res.Status.Year, "log", res.Result.Log, "mana", res.Status.Mana)
	return d, nil
}
