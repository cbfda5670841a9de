package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Action is one of the seven divine interventions a player can issue per turn.
type Action uint8

const (
	ActionRain Action = iota
	ActionSun
	ActionCalm
	ActionStir
	ActionBless
	ActionSmite
	ActionWait
)

// ErrUnknownAction is returned by ParseAction for tokens that name no action.
var ErrUnknownAction = errors.New("unknown action")

// Effect is the per-tile delta an action applies to every land tile.
type Effect struct {
	Moisture    float64 `json:"moisture"`
	Stability   float64 `json:"stability"`
	Fertility   float64 `json:"fertility"`
	Vegetation  float64 `json:"vegetation"`
	Temperature float64 `json:"temperature"`
}

type actionDef struct {
	token  string
	cost   int
	effect Effect
	log    string
}

var actionTable = [...]actionDef{
	ActionRain:  {"RAIN", 20, Effect{Moisture: 30, Stability: -2, Fertility: -2, Vegetation: 5, Temperature: -5}, "Rain falls."},
	ActionSun:   {"SUN", 20, Effect{Moisture: -20, Stability: 5, Fertility: 0, Vegetation: 15, Temperature: 10}, "Sun shines."},
	ActionCalm:  {"CALM", 15, Effect{Moisture: -5, Stability: 25, Fertility: 5, Vegetation: 2, Temperature: 0}, "Winds calm."},
	ActionStir:  {"STIR", 15, Effect{Moisture: 0, Stability: -20, Fertility: 15, Vegetation: 0, Temperature: -2}, "Winds stir."},
	ActionBless: {"BLESS", 50, Effect{Moisture: 10, Stability: 10, Fertility: 50, Vegetation: 20, Temperature: 0}, "DIVINE BLESSING!"},
	ActionSmite: {"SMITE", 40, Effect{Moisture: -10, Stability: 30, Fertility: -20, Vegetation: -100, Temperature: 20}, "DIVINE WRATH!"},
	ActionWait:  {"WAIT", 0, Effect{Moisture: -2, Stability: 2, Fertility: 1, Vegetation: 1, Temperature: 0}, "Time passes."},
}

// Actions returns every action in table order.
func Actions() []Action {
	out := make([]Action, len(actionTable))
	for i := range actionTable {
		out[i] = Action(i)
	}
	return out
}

// Valid reports whether a is one of the seven actions.
func (a Action) Valid() bool {
	return int(a) < len(actionTable)
}

// Cost is the mana price of the action.
func (a Action) Cost() int {
	if !a.Valid() {
		return 0
	}
	return actionTable[a].cost
}

// Effect returns the per-tile deltas of the action.
func (a Action) Effect() Effect {
	if !a.Valid() {
		return Effect{}
	}
	return actionTable[a].effect
}

// String returns the action token, e.g. "RAIN".
func (a Action) String() string {
	if !a.Valid() {
		return fmt.Sprintf("Action(%d)", uint8(a))
	}
	return actionTable[a].token
}

func (a Action) logMessage() string {
	if !a.Valid() {
		return ""
	}
	return actionTable[a].log
}

// MarshalText encodes the action by token.
func (a Action) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("invalid action %d", uint8(a))
	}
	return []byte(actionTable[a].token), nil
}

// UnmarshalText decodes an action token.
func (a *Action) UnmarshalText(b []byte) error {
	parsed, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAction resolves an exact action token. Case and surrounding space are
// ignored; anything else must match a token exactly.
func ParseAction(s string) (Action, error) {
	tok := strings.ToUpper(strings.TrimSpace(s))
	for i, def := range actionTable {
		if def.token == tok {
			return Action(i), nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownAction, s)
}
