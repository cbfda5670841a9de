// Package world provides the island grid, its tiles and their climate.
// Tiles are stored row-major; a tile's index never changes during a game.
package world

import "fmt"

// Stat bounds shared by every continuous tile attribute.
const (
	StatMin = 0.0
	StatMax = 100.0
)

// WaterLevel is the elevation below which a tile is sea. Water never hosts life.
const WaterLevel = 0.3

// LifeStage is the ecological progression of a tile. The order matters:
// each stage can only be reached from the one before it.
type LifeStage uint8

const (
	StageNone LifeStage = iota
	StagePlants
	StageInsects
	StageAnimals
	StageHumans
)

var stageNames = [...]string{
	StageNone:    "None",
	StagePlants:  "Plants",
	StageInsects: "Insects",
	StageAnimals: "Animals",
	StageHumans:  "Humans",
}

// String returns the display name of the stage.
func (s LifeStage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("LifeStage(%d)", uint8(s))
}

// Valid reports whether s is one of the five known stages.
func (s LifeStage) Valid() bool {
	return int(s) < len(stageNames)
}

// MarshalText encodes the stage by name.
func (s LifeStage) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid life stage %d", uint8(s))
	}
	return []byte(stageNames[s]), nil
}

// UnmarshalText decodes a stage name, rejecting anything unknown.
func (s *LifeStage) UnmarshalText(b []byte) error {
	for i, name := range stageNames {
		if name == string(b) {
			*s = LifeStage(i)
			return nil
		}
	}
	return fmt.Errorf("unknown life stage %q", string(b))
}

// Tile is one grid cell.
type Tile struct {
	ID int `json:"id"` // Row-major index: Y*size + X
	X  int `json:"x"`
	Y  int `json:"y"`

	// Elevation is fixed at generation: 0.0 (sea floor) to 1.0 (peak).
	Elevation float64 `json:"height"`

	// Climate and soil, each kept within [StatMin, StatMax].
	Moisture    float64 `json:"moisture"`
	Temperature float64 `json:"temperature"`
	Fertility   float64 `json:"fertility"`
	Vegetation  float64 `json:"vegetation"`
	Stability   float64 `json:"stability"`

	Stage LifeStage `json:"lifeStage"`
	Biome Biome     `json:"biome"` // Derived from elevation and climate; a view, not state
}

// IsWater reports whether the tile lies below sea level.
func (t *Tile) IsWater() bool {
	return IsWater(t.Elevation)
}

// IsWater reports whether a given elevation is sea.
func IsWater(elevation float64) bool {
	return elevation < WaterLevel
}

// Flood applies the water invariant: sea tiles are saturated and lifeless.
func (t *Tile) Flood() {
	t.Moisture = StatMax
	t.Stage = StageNone
	t.Vegetation = 0
	t.Biome = Classify(t.Elevation, t.Temperature, t.Moisture)
}

// Clamp bounds a stat to [StatMin, StatMax].
func Clamp(v float64) float64 {
	if v < StatMin {
		return StatMin
	}
	if v > StatMax {
		return StatMax
	}
	return v
}

// Clamp01 bounds v to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// CheckRanges returns an error describing the first attribute outside its range.
func (t *Tile) CheckRanges() error {
	if !(t.Elevation >= 0 && t.Elevation <= 1) {
		return fmt.Errorf("tile %d: elevation %v outside [0, 1]", t.ID, t.Elevation)
	}
	stats := [...]struct {
		name string
		v    float64
	}{
		{"moisture", t.Moisture},
		{"temperature", t.Temperature},
		{"fertility", t.Fertility},
		{"vegetation", t.Vegetation},
		{"stability", t.Stability},
	}
	for _, s := range stats {
		// NaN fails both comparisons, so test the positive condition.
		if !(s.v >= StatMin && s.v <= StatMax) {
			return fmt.Errorf("tile %d: %s %v outside [%v, %v]", t.ID, s.name, s.v, StatMin, StatMax)
		}
	}
	if !t.Stage.Valid() {
		return fmt.Errorf("tile %d: invalid life stage %d", t.ID, uint8(t.Stage))
	}
	if !t.Biome.Valid() {
		return fmt.Errorf("tile %d: invalid biome %d", t.ID, uint8(t.Biome))
	}
	return nil
}
