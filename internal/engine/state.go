package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Bluenot3/Tiny-God/internal/entropy"
	"github.com/Bluenot3/Tiny-God/internal/world"
)

// Status is the win/loss state of a game.
type Status uint8

const (
	StatusPlaying Status = iota
	StatusWon
	StatusLost
)

var statusNames = [...]string{
	StatusPlaying: "playing",
	StatusWon:     "won",
	StatusLost:    "lost",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return int(s) < len(statusNames)
}

// MarshalText encodes the status as "playing", "won" or "lost".
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid status %d", uint8(s))
	}
	return []byte(statusNames[s]), nil
}

// UnmarshalText decodes a status name, rejecting anything unknown.
func (s *Status) UnmarshalText(b []byte) error {
	for i, name := range statusNames {
		if name == string(b) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(b))
}

// Starting values for a fresh game.
const (
	InitialMana      = 100
	BaseMaxMana      = 100
	InitialStability = 100
	WinYear          = 100
	LossGraceYears   = 10

	InitialEraName        = "The Primordial Soup"
	InitialEraDescription = "The world is formless and void."
	WelcomeLog            = "Welcome, Creator. Seed life."
)

// ErrInvalidState is wrapped by every Validate failure.
var ErrInvalidState = errors.New("invalid game state")

// GameState is a complete snapshot of one game between turns.
type GameState struct {
	Year     int          `json:"year"`
	GridSize int          `json:"gridSize"`
	Tiles    []world.Tile `json:"tiles"`

	// Island-wide aggregates, recomputed every turn.
	Biodiversity    int `json:"biodiversity"`
	GlobalStability int `json:"globalStability"`
	HumanPopulation int `json:"humanPopulation"`
	TotalLife       int `json:"totalLife"`

	Mana    int `json:"mana"`
	MaxMana int `json:"maxMana"`

	Status         Status   `json:"gameStatus"`
	EraName        string   `json:"eraName"`
	EraDescription string   `json:"eraDescription"`
	Logs           []string `json:"logs"` // Most recent first
}

// NewGame generates an island and returns its opening state together with
// the PRNG positioned just after generation. A zero seed picks one at random.
func NewGame(cfg world.GenConfig) (GameState, *entropy.LCG) {
	if cfg.Size <= 0 {
		cfg.Size = world.DefaultSize
	}
	if cfg.Seed == 0 {
		cfg.Seed = entropy.RandomSeed()
	}
	rng := entropy.NewLCG(cfg.Seed)
	tiles := world.Generate(cfg, rng)

	return GameState{
		Year:            0,
		GridSize:        cfg.Size,
		Tiles:           tiles,
		Biodiversity:    0,
		GlobalStability: InitialStability,
		HumanPopulation: 0,
		TotalLife:       0,
		Mana:            InitialMana,
		MaxMana:         BaseMaxMana,
		Status:          StatusPlaying,
		EraName:         InitialEraName,
		EraDescription:  InitialEraDescription,
		Logs:            []string{WelcomeLog},
	}, rng
}

// Clone returns a deep copy of s.
func (s GameState) Clone() GameState {
	out := s
	out.Tiles = slices.Clone(s.Tiles)
	out.Logs = slices.Clone(s.Logs)
	return out
}

// Land returns the number of tiles above sea level.
func (s GameState) Land() int {
	return world.LandCount(s.Tiles)
}

// Validate rejects snapshots no sequence of turns could have produced.
// It never repairs anything.
func (s GameState) Validate() error {
	if s.Year < 0 {
		return fmt.Errorf("%w: negative year %d", ErrInvalidState, s.Year)
	}
	if err := world.CheckGrid(s.Tiles, s.GridSize); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if s.Biodiversity < 0 || s.Biodiversity > 100 {
		return fmt.Errorf("%w: biodiversity %d outside [0, 100]", ErrInvalidState, s.Biodiversity)
	}
	if s.GlobalStability < 0 || s.GlobalStability > 100 {
		return fmt.Errorf("%w: global stability %d outside [0, 100]", ErrInvalidState, s.GlobalStability)
	}
	if s.HumanPopulation < 0 || s.TotalLife < s.HumanPopulation {
		return fmt.Errorf("%w: population %d with total life %d", ErrInvalidState, s.HumanPopulation, s.TotalLife)
	}
	if s.MaxMana != BaseMaxMana+2*s.HumanPopulation {
		return fmt.Errorf("%w: max mana %d does not match %d humans", ErrInvalidState, s.MaxMana, s.HumanPopulation)
	}
	if s.Mana < 0 || s.Mana > s.MaxMana {
		return fmt.Errorf("%w: mana %d outside [0, %d]", ErrInvalidState, s.Mana, s.MaxMana)
	}
	if !s.Status.Valid() {
		return fmt.Errorf("%w: status %d", ErrInvalidState, uint8(s.Status))
	}
	// Generation leaves sea tiles with ordinary moisture; the first turn floods them.
	if s.Year > 0 {
		for i := range s.Tiles {
			t := &s.Tiles[i]
			if t.IsWater() && (t.Moisture != world.StatMax || t.Stage != world.StageNone || t.Vegetation != 0) {
				return fmt.Errorf("%w: sea tile %d is not flooded", ErrInvalidState, t.ID)
			}
		}
	}
	return nil
}
