package engine

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/Bluenot3/Tiny-God/internal/entropy"
	"github.com/Bluenot3/Tiny-God/internal/world"
)

// uniformState builds an n×n island where every tile has the same climate.
func uniformState(n int, elevation float64, stage world.LifeStage) GameState {
	tiles := make([]world.Tile, n*n)
	for i := range tiles {
		x, y := world.Coord(i, n)
		tiles[i] = world.Tile{
			ID: i, X: x, Y: y,
			Elevation:   elevation,
			Moisture:    50,
			Temperature: 35,
			Fertility:   50,
			Vegetation:  50,
			Stability:   50,
			Stage:       stage,
		}
		tiles[i].Biome = world.Classify(elevation, 35, 50)
	}
	return GameState{
		GridSize:        n,
		Tiles:           tiles,
		GlobalStability: 50,
		Mana:            InitialMana,
		MaxMana:         BaseMaxMana,
		Status:          StatusPlaying,
		EraName:         InitialEraName,
		EraDescription:  InitialEraDescription,
		Logs:            []string{WelcomeLog},
	}
}

func waterState(n int) GameState {
	s := uniformState(n, 0.1, world.StageNone)
	for i := range s.Tiles {
		s.Tiles[i].Vegetation = 0
		s.Tiles[i].Stability = 80
	}
	s.GlobalStability = 80
	return s
}

var script = []Action{
	ActionRain, ActionBless, ActionWait, ActionSun, ActionCalm, ActionRain,
	ActionWait, ActionStir, ActionBless, ActionWait, ActionSmite, ActionCalm,
}

func TestStepDeterministic(t *testing.T) {
	cfg := world.DefaultGenConfig()
	cfg.Seed = 99
	s1, r1 := NewGame(cfg)
	s2, r2 := NewGame(cfg)

	for turn := 0; turn < 40; turn++ {
		action := script[turn%len(script)]
		s1, _ = Step(s1, action, r1)
		s2, _ = Step(s2, action, r2)
	}
	if !reflect.DeepEqual(s1, s2) {
		t.Fatal("same seed and actions must give identical states")
	}
	if r1.State() != r2.State() {
		t.Fatalf("PRNG diverged: %d vs %d", r1.State(), r2.State())
	}
}

func TestStepInvariants(t *testing.T) {
	cfg := world.DefaultGenConfig()
	cfg.Seed = 1234
	state, rng := NewGame(cfg)
	initial := state.Clone()

	for turn := 0; turn < 120 && state.Status == StatusPlaying; turn++ {
		action := script[turn%len(script)]
		next, outcome := Step(state, action, rng)

		switch outcome {
		case OutcomeApplied:
			if next.Year != state.Year+1 {
				t.Fatalf("turn %d: year %d -> %d", turn, state.Year, next.Year)
			}
		case OutcomeInsufficientMana:
			if next.Year != state.Year || next.Mana != state.Mana {
				t.Fatalf("turn %d: rejected turn changed the state", turn)
			}
			next, _ = Step(state, ActionWait, rng)
		default:
			t.Fatalf("turn %d: unexpected outcome %s", turn, outcome)
		}

		if err := next.Validate(); err != nil {
			t.Fatalf("turn %d (%s): %v", turn, action, err)
		}
		if next.MaxMana != BaseMaxMana+2*next.HumanPopulation {
			t.Fatalf("turn %d: max mana %d with %d humans", turn, next.MaxMana, next.HumanPopulation)
		}
		if next.Mana < 0 || next.Mana > next.MaxMana {
			t.Fatalf("turn %d: mana %d outside [0, %d]", turn, next.Mana, next.MaxMana)
		}
		for i := range next.Tiles {
			if next.Tiles[i].Elevation != initial.Tiles[i].Elevation {
				t.Fatalf("turn %d: tile %d elevation changed", turn, i)
			}
			if next.Tiles[i].IsWater() && (next.Tiles[i].Moisture != 100 || next.Tiles[i].Stage != world.StageNone || next.Tiles[i].Vegetation != 0) {
				t.Fatalf("turn %d: sea tile %d not flooded: %+v", turn, i, next.Tiles[i])
			}
		}
		state = next
	}
}

func TestStepDoesNotMutateInput(t *testing.T) {
	cfg := world.SmallTestConfig()
	state, rng := NewGame(cfg)
	before := state.Clone()
	Step(state, ActionBless, rng)
	if !reflect.DeepEqual(state, before) {
		t.Fatal("Step modified its input")
	}
}

func TestStepGuards(t *testing.T) {
	rng := entropy.NewSequence(0.5)

	over := waterState(3)
	over.Status = StatusLost
	over.Year = 20
	got, outcome := Step(over, ActionWait, rng)
	if outcome != OutcomeGameOver || !reflect.DeepEqual(got, over) {
		t.Fatalf("finished game: outcome=%s", outcome)
	}

	poor := waterState(3)
	poor.Year = 5
	poor.Mana = 10
	got, outcome = Step(poor, ActionBless, rng)
	if outcome != OutcomeInsufficientMana || got.Year != 5 || got.Mana != 10 {
		t.Fatalf("poor creator: outcome=%s year=%d mana=%d", outcome, got.Year, got.Mana)
	}

	_, outcome = Step(waterState(3), Action(42), rng)
	if outcome != OutcomeUnknownAction {
		t.Fatalf("bogus action: outcome=%s", outcome)
	}
	if rng.Draws() != 0 {
		t.Fatalf("guards must not draw, drew %d", rng.Draws())
	}
}

func TestFirstYearIgnoresCost(t *testing.T) {
	s := waterState(3)
	s.Mana = 10
	next, outcome := Step(s, ActionBless, entropy.NewSequence())
	if outcome != OutcomeApplied {
		t.Fatalf("year-zero action rejected: %s", outcome)
	}
	if next.Mana != 0 {
		t.Fatalf("mana=%d want 0 (10 - 50 + 5 clamped)", next.Mana)
	}
}

// An all-sea grid has no life and no land, so biodiversity is zero from the
// first turn. A generated island keeps some vegetation score under WAIT and
// would not lose this way.
func TestWaitOnBarrenSeaLosesAtYearEleven(t *testing.T) {
	state := waterState(3)
	rng := entropy.NewSequence()
	for year := 1; year <= 11; year++ {
		var outcome Outcome
		state, outcome = Step(state, ActionWait, rng)
		if outcome != OutcomeApplied {
			t.Fatalf("year %d: outcome %s", year, outcome)
		}
		want := StatusPlaying
		if year == 11 {
			want = StatusLost
		}
		if state.Status != want {
			t.Fatalf("year %d: status %s want %s", year, state.Status, want)
		}
		if state.Mana != InitialMana {
			t.Fatalf("year %d: mana %d should stay capped at %d", year, state.Mana, InitialMana)
		}
	}

	after, outcome := Step(state, ActionWait, rng)
	if outcome != OutcomeGameOver || after.Year != 11 {
		t.Fatalf("lost game advanced: outcome=%s year=%d", outcome, after.Year)
	}
}

func TestSmiteWipesHumans(t *testing.T) {
	state := uniformState(3, 0.5, world.StageNone)
	center := world.Index(1, 1, 3)
	state.Tiles[center].Stage = world.StageHumans
	state.Tiles[center].Stability = 80
	state.Tiles[center].Vegetation = 80
	state.Year = 30
	state.HumanPopulation = 1
	state.TotalLife = 1
	state.MaxMana = BaseMaxMana + 2

	rng := entropy.NewSequence(0.99)
	next, outcome := Step(state, ActionSmite, rng)
	if outcome != OutcomeApplied {
		t.Fatalf("outcome %s", outcome)
	}
	tile := next.Tiles[center]
	if tile.Stage != world.StageNone || tile.Vegetation != 0 {
		t.Fatalf("smitten tile survived: stage=%s veg=%v want None and 0 (80-100 clamped)", tile.Stage, tile.Vegetation)
	}
	if tile.Stability != 100 {
		t.Fatalf("stability=%v want 100 (80+30 clamped)", tile.Stability)
	}
	if next.HumanPopulation != 0 || next.MaxMana != BaseMaxMana {
		t.Fatalf("humans=%d maxMana=%d", next.HumanPopulation, next.MaxMana)
	}
	if next.Mana != 100-40+5 {
		t.Fatalf("mana=%d want 65", next.Mana)
	}
	if rng.Draws() != 0 {
		t.Fatalf("bare tiles must not roll, drew %d", rng.Draws())
	}
	if got := TurnLog(ActionSmite, state, next); got != "Year 31: CIVILIZATION COLLAPSED. Silence returns." {
		t.Fatalf("log=%q", got)
	}
}

// A tile that turns into Insects this turn must not count as an insect
// neighbour for the tiles visited after it.
func TestLifeReadsOnlyPhysicsGeneration(t *testing.T) {
	state := uniformState(3, 0.5, world.StagePlants)
	rng := entropy.NewSequence(0.9, 0, 0, 0, 0, 0, 0, 0, 0)

	next, _ := Step(state, ActionWait, rng)
	if next.Tiles[0].Stage != world.StageInsects {
		t.Fatalf("tile 0 stage=%s want Insects", next.Tiles[0].Stage)
	}
	for i := 1; i < len(next.Tiles); i++ {
		if next.Tiles[i].Stage != world.StagePlants {
			t.Fatalf("tile %d stage=%s: saw a neighbour from the same turn", i, next.Tiles[i].Stage)
		}
	}
	if rng.Draws() != 9 {
		t.Fatalf("draws=%d want one insect roll per tile", rng.Draws())
	}
}

func TestPhysicsPass(t *testing.T) {
	state := uniformState(1, 0.5, world.StageNone)
	state.Tiles[0].Temperature = 35.5 // Baseline at 0.5 is 35

	a := physicsPass(state.Tiles, ActionWait)
	tile := a[0]
	if tile.Moisture != 50-2-1 {
		t.Fatalf("moisture=%v want 47", tile.Moisture)
	}
	if tile.Temperature != 35 {
		t.Fatalf("temperature=%v must stop on the baseline", tile.Temperature)
	}
	if tile.Vegetation != 51 || tile.Fertility != 51 || tile.Stability != 52 {
		t.Fatalf("wait deltas not applied: %+v", tile)
	}

	hot := uniformState(1, 0.5, world.StageNone)
	hot.Tiles[0].Temperature = 99
	if got := physicsPass(hot.Tiles, ActionSmite)[0].Temperature; got != 99 {
		t.Fatalf("temperature=%v want 99 (clamped to 100 then drifted)", got)
	}
}

func TestSingleTileHasNoNeighbourGrowth(t *testing.T) {
	state := uniformState(1, 0.5, world.StageNone)
	next, _ := Step(state, ActionWait, entropy.NewSequence())
	// Wait adds 1, no neighbour spread, no action boost.
	if next.Tiles[0].Vegetation != 51 {
		t.Fatalf("veg=%v want 51", next.Tiles[0].Vegetation)
	}
}

func TestJSONRoundTripReplaysNextTurn(t *testing.T) {
	cfg := world.DefaultGenConfig()
	cfg.Seed = 777
	state, rng := NewGame(cfg)
	for i := 0; i < 15; i++ {
		state, _ = Step(state, script[i%len(script)], rng)
	}

	raw, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var loaded GameState
	if err := json.Unmarshal(raw, &loaded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := loaded.Validate(); err != nil {
		t.Fatalf("round-tripped state invalid: %v", err)
	}

	replay := entropy.NewLCG(0)
	if err := replay.Restore(rng.State()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	want, _ := Step(state, ActionRain, rng)
	got, _ := Step(loaded, ActionRain, replay)
	if !reflect.DeepEqual(want, got) {
		t.Fatal("reloaded game diverged on the next turn")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GameState)
	}{
		{"negative mana", func(s *GameState) { s.Mana = -1 }},
		{"mana above max", func(s *GameState) { s.Mana = s.MaxMana + 1 }},
		{"max mana mismatch", func(s *GameState) { s.MaxMana = 150 }},
		{"biodiversity", func(s *GameState) { s.Biodiversity = 101 }},
		{"short grid", func(s *GameState) { s.Tiles = s.Tiles[:3] }},
		{"bad stage", func(s *GameState) { s.Tiles[0].Stage = world.LifeStage(9) }},
		{"dry sea", func(s *GameState) { s.Year = 3; s.Tiles[0].Moisture = 40 }},
		{"status", func(s *GameState) { s.Status = Status(7) }},
	}
	for _, tc := range tests {
		s := waterState(3)
		tc.mutate(&s)
		if err := s.Validate(); err == nil {
			t.Fatalf("%s: expected Validate to fail", tc.name)
		}
	}
}

func TestParseAction(t *testing.T) {
	for _, a := range Actions() {
		got, err := ParseAction(" " + a.String() + " ")
		if err != nil || got != a {
			t.Fatalf("ParseAction(%q)=%s, %v", a.String(), got, err)
		}
	}
	if _, err := ParseAction("RAI"); err == nil {
		t.Fatal("prefixes are not exact tokens")
	}
	costs := []int{20, 20, 15, 15, 50, 40, 0}
	for i, a := range Actions() {
		if a.Cost() != costs[i] {
			t.Fatalf("%s cost=%d want %d", a, a.Cost(), costs[i])
		}
	}
}
