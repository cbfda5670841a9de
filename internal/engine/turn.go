// Turn resolution. A turn runs three passes over two tile generations:
// physics writes generation A from the input tiles, life writes generation B
// while reading neighbours only from A, and aggregation summarises B.
package engine

import (
	"fmt"
	"math"
	"slices"

	"github.com/Bluenot3/Tiny-God/internal/entropy"
	"github.com/Bluenot3/Tiny-God/internal/world"
)

// Outcome reports how Step treated an action.
type Outcome uint8

const (
	OutcomeApplied Outcome = iota
	OutcomeGameOver
	OutcomeInsufficientMana
	OutcomeUnknownAction
)

var outcomeNames = [...]string{
	OutcomeApplied:          "applied",
	OutcomeGameOver:         "game over",
	OutcomeInsufficientMana: "insufficient mana",
	OutcomeUnknownAction:    "unknown action",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome(%d)", uint8(o))
}

// Life thresholds.
const (
	growthNeighborVeg = 20.0
	growthMoisture    = 30.0
	growthFertility   = 20.0
	spreadGain        = 4.0
	sunGain           = 5.0
	rainGain          = 2.0

	plantsStarve  = 10.0
	insectsStarve = 20.0
	animalsStarve = 10.0
	carrionGain   = 10.0

	plantsVeg       = 20.0
	plantsFertility = 10.0
	insectsVeg      = 40.0
	insectsChance   = 0.6
	animalsStab     = 50.0
	animalsChance   = 0.7
	humansStab      = 70.0
	humansAnimals   = 2
	humansChance    = 0.8
	settleBonus     = 10.0

	humanGrazing   = 5.0
	humanStrain    = 3.0
	collapseStab   = 20.0
	humanCompost   = 2.0
	animalGrazing  = 8.0
	animalManure   = 3.0
	insectGrazing  = 2.0
	insectCompost  = 1.0
	evaporation    = 1.0
	manaRegenBase  = 5
	manaRegenBonus = 5
	bonusDiversity = 50.0
	wonDiversity   = 60.0
	lostStability  = 10.0
)

// Step resolves one turn. The input state is never modified. When the
// action cannot be applied the state is returned as given, year included,
// with an Outcome saying why.
func Step(state GameState, action Action, rng entropy.Source) (GameState, Outcome) {
	switch {
	case state.Status != StatusPlaying:
		return state, OutcomeGameOver
	case !action.Valid():
		return state, OutcomeUnknownAction
	case state.Mana < action.Cost() && state.Year > 0:
		return state, OutcomeInsufficientMana
	}

	a := physicsPass(state.Tiles, action)
	b := lifePass(a, state.GridSize, action, rng)

	next := state
	next.Tiles = b
	next.Logs = slices.Clone(state.Logs)
	aggregate(&next, state.Mana, action)
	return next, OutcomeApplied
}

// physicsPass applies the action deltas and natural drift, producing
// generation A.
func physicsPass(tiles []world.Tile, action Action) []world.Tile {
	eff := action.Effect()
	out := slices.Clone(tiles)
	for i := range out {
		t := &out[i]
		if t.IsWater() {
			t.Flood()
			continue
		}

		t.Moisture = world.Clamp(t.Moisture + eff.Moisture)
		t.Stability = world.Clamp(t.Stability + eff.Stability)
		t.Fertility = world.Clamp(t.Fertility + eff.Fertility)
		t.Vegetation = world.Clamp(t.Vegetation + eff.Vegetation)
		t.Temperature = world.Clamp(t.Temperature + eff.Temperature)
		if action == ActionSmite {
			t.Stage = world.StageNone
		}

		t.Biome = world.Classify(t.Elevation, t.Temperature, t.Moisture)

		t.Moisture = world.Clamp(t.Moisture - evaporation)
		t.Temperature = world.Clamp(relax(t.Temperature, world.BaselineTemperature(t.Elevation)))
	}
	return out
}

// relax moves v one unit toward target, stopping on it.
func relax(v, target float64) float64 {
	switch {
	case v > target:
		return math.Max(v-1, target)
	case v < target:
		return math.Min(v+1, target)
	}
	return v
}

// neighborhood summarises the generation-A tiles around one tile.
type neighborhood struct {
	meanVeg float64
	insects int
	animals int
	humans  int
}

func survey(a []world.Tile, idx []int) neighborhood {
	var nb neighborhood
	if len(idx) == 0 {
		return nb
	}
	total := 0.0
	for _, j := range idx {
		total += a[j].Vegetation
		switch a[j].Stage {
		case world.StageInsects:
			nb.insects++
		case world.StageAnimals:
			nb.animals++
		case world.StageHumans:
			nb.humans++
		}
	}
	nb.meanVeg = total / float64(len(idx))
	return nb
}

// lifePass grows vegetation and moves life stages, producing generation B.
// Neighbour reads go to a only, so the result does not depend on the order
// tiles are visited in. PRNG draws do follow index order.
func lifePass(a []world.Tile, n int, action Action, rng entropy.Source) []world.Tile {
	b := slices.Clone(a)
	nbrs := world.NeighborTable(n)
	for i := range b {
		t := &b[i]
		if t.IsWater() {
			continue
		}
		nb := survey(a, nbrs[i])

		grow(t, nb, action)
		regress(t)
		advance(t, nb, rng)
		upkeep(t, nb)
	}
	return b
}

func grow(t *world.Tile, nb neighborhood, action Action) {
	if nb.meanVeg > growthNeighborVeg && t.Moisture > growthMoisture && t.Fertility > growthFertility {
		t.Vegetation = world.Clamp(t.Vegetation + spreadGain)
	}
	switch action {
	case ActionSun:
		if t.Moisture > growthMoisture {
			t.Vegetation = world.Clamp(t.Vegetation + sunGain)
		}
	case ActionRain:
		t.Vegetation = world.Clamp(t.Vegetation + rainGain)
	}
}

// regress starves stages whose food supply has collapsed.
func regress(t *world.Tile) {
	switch {
	case t.Stage == world.StagePlants && t.Vegetation < plantsStarve:
		t.Stage = world.StageNone
	case t.Stage == world.StageInsects && t.Vegetation < insectsStarve:
		t.Stage = world.StagePlants
	case t.Stage == world.StageAnimals && t.Vegetation < animalsStarve:
		t.Stage = world.StageNone
		t.Fertility = world.Clamp(t.Fertility + carrionGain)
	}
}

// advance climbs the ladder. Each rung is checked in order, so a tile may
// rise several stages in one turn.
func advance(t *world.Tile, nb neighborhood, rng entropy.Source) {
	if t.Stage == world.StageNone && t.Vegetation > plantsVeg && t.Fertility > plantsFertility {
		t.Stage = world.StagePlants
	}
	if t.Stage == world.StagePlants && t.Vegetation > insectsVeg {
		if rng.Float() > insectsChance || nb.insects > 0 {
			t.Stage = world.StageInsects
		}
	}
	if t.Stage == world.StageInsects && t.Stability > animalsStab {
		if nb.insects >= 1 && rng.Float() > animalsChance {
			t.Stage = world.StageAnimals
		}
	}
	if t.Stage == world.StageAnimals && t.Stability > humansStab {
		if nb.animals >= humansAnimals || nb.humans >= 1 {
			if rng.Float() > humansChance {
				t.Stage = world.StageHumans
				t.Stability = world.Clamp(t.Stability + settleBonus)
			}
		}
	}
}

// upkeep charges the finalised stage for what it eats.
func upkeep(t *world.Tile, nb neighborhood) {
	switch t.Stage {
	case world.StageHumans:
		t.Vegetation = world.Clamp(t.Vegetation - humanGrazing)
		t.Stability = world.Clamp(t.Stability - humanStrain)
		if t.Stability < collapseStab {
			t.Stage = world.StageNone
			t.Fertility = 0
		}
		if nb.animals > 0 {
			t.Fertility = world.Clamp(t.Fertility + humanCompost)
		}
	case world.StageAnimals:
		t.Vegetation = world.Clamp(t.Vegetation - animalGrazing)
		t.Fertility = world.Clamp(t.Fertility + animalManure)
	case world.StageInsects:
		t.Vegetation = world.Clamp(t.Vegetation - insectGrazing)
		t.Fertility = world.Clamp(t.Fertility + insectCompost)
	}
}

// census is the island-wide tally of generation B.
type census struct {
	land, insects, animals, humans int
	landVeg, stability             float64
}

func count(tiles []world.Tile) census {
	var c census
	for i := range tiles {
		t := &tiles[i]
		c.stability += t.Stability
		if t.IsWater() {
			continue
		}
		c.land++
		c.landVeg += t.Vegetation
		switch t.Stage {
		case world.StageInsects:
			c.insects++
		case world.StageAnimals:
			c.animals++
		case world.StageHumans:
			c.humans++
		}
	}
	return c
}

// biodiversity is the unfloored island score in [0, 100]. Humans weigh most.
func (c census) biodiversity() float64 {
	if c.land == 0 {
		return 0
	}
	land := float64(c.land)
	score := (c.landVeg/land/100)*10 +
		float64(c.insects)/land*50 +
		float64(c.animals)/land*150 +
		float64(c.humans)/land*300
	return world.Clamp(score)
}

// aggregate recomputes the global figures, the mana economy and the status.
func aggregate(s *GameState, mana int, action Action) {
	c := count(s.Tiles)
	diversity := c.biodiversity()
	meanStab := 0.0
	if len(s.Tiles) > 0 {
		meanStab = c.stability / float64(len(s.Tiles))
	}

	regen := manaRegenBase + c.humans
	if diversity > bonusDiversity {
		regen += manaRegenBonus
	}
	s.MaxMana = BaseMaxMana + 2*c.humans
	s.Mana = min(max(mana-action.Cost()+regen, 0), s.MaxMana)

	s.Year++
	s.Biodiversity = int(math.Floor(diversity))
	s.GlobalStability = int(math.Floor(meanStab))
	s.HumanPopulation = c.humans
	s.TotalLife = c.insects + c.animals + c.humans

	switch {
	case diversity <= 0 && s.Year > LossGraceYears:
		s.Status = StatusLost
	case meanStab < lostStability && s.Year > LossGraceYears:
		s.Status = StatusLost
	case s.Year >= WinYear && diversity > wonDiversity:
		s.Status = StatusWon
	default:
		s.Status = StatusPlaying
	}
}

// Regen reports the mana the next turn would restore if the island stayed
// as it is: the base five, one per human, and five more when biodiversity
// is above 50.
func Regen(s GameState) int {
	regen := manaRegenBase + s.HumanPopulation
	if float64(s.Biodiversity) > bonusDiversity {
		regen += manaRegenBonus
	}
	return regen
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes an outcome name.
func (o *Outcome) UnmarshalText(b []byte) error {
	for i, name := range outcomeNames {
		if name == string(b) {
			*o = Outcome(i)
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", string(b))
}
