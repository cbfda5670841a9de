package world

import (
	"encoding/json"
	"math"
	"slices"
	"testing"

	"github.com/Bluenot3/Tiny-God/internal/entropy"
)

func TestClassifyTable(t *testing.T) {
	tests := []struct {
		name       string
		e, temp, m float64
		want       Biome
	}{
		{"deep ocean", 0.1, 50, 50, BiomeDeepOcean},
		{"deep ocean boundary", 0.1999, 0, 0, BiomeDeepOcean},
		{"ocean at 0.2", 0.2, 50, 50, BiomeOcean},
		{"ocean just under land", 0.2999, 50, 50, BiomeOcean},
		{"beach at 0.3", 0.3, 50, 50, BiomeBeach},
		{"beach ignores cold", 0.34, 0, 0, BiomeBeach},
		{"land at 0.35", 0.35, 20, 30, BiomeGrassland},
		{"snow peak", 0.9, 5, 50, BiomeSnow},
		{"mountain at freezing line", 0.9, 10, 50, BiomeMountain},
		{"0.85 is not a peak", 0.85, 5, 50, BiomeTundra},
		{"tundra", 0.5, 9.99, 90, BiomeTundra},
		{"temperate desert", 0.5, 10, 19.99, BiomeDesert},
		{"grassland", 0.5, 29.99, 20, BiomeGrassland},
		{"forest", 0.5, 20, 50, BiomeForest},
		{"red desert", 0.5, 30, 10, BiomeRedDesert},
		{"shrubland", 0.5, 45, 59.99, BiomeShrubland},
		{"jungle", 0.5, 45, 60, BiomeJungle},
	}
	for _, tc := range tests {
		if got := Classify(tc.e, tc.temp, tc.m); got != tc.want {
			t.Fatalf("%s: Classify(%v, %v, %v)=%s want=%s", tc.name, tc.e, tc.temp, tc.m, got, tc.want)
		}
	}
}

func TestClassifyTotal(t *testing.T) {
	for e := 0.0; e <= 1.0; e += 0.05 {
		for temp := 0.0; temp <= 100; temp += 5 {
			for m := 0.0; m <= 100; m += 5 {
				if b := Classify(e, temp, m); !b.Valid() {
					t.Fatalf("Classify(%v, %v, %v) returned invalid biome %d", e, temp, m, b)
				}
			}
		}
	}
}

func TestNeighborCounts(t *testing.T) {
	n := 5
	tests := []struct {
		index int
		want  int
	}{
		{Index(0, 0, n), 3},
		{Index(4, 4, n), 3},
		{Index(4, 0, n), 3},
		{Index(2, 0, n), 5},
		{Index(0, 2, n), 5},
		{Index(2, 2, n), 8},
	}
	for _, tc := range tests {
		if got := len(Neighbors(tc.index, n)); got != tc.want {
			t.Fatalf("Neighbors(%d) has %d entries, want %d", tc.index, got, tc.want)
		}
	}
}

func TestNeighborsNoWraparound(t *testing.T) {
	n := 4
	got := Neighbors(Index(3, 1, n), n)
	for _, idx := range got {
		x, _ := Coord(idx, n)
		if x == 0 {
			t.Fatalf("neighbour %d of a right-edge tile wrapped to the left edge", idx)
		}
	}
	want := []int{Index(2, 1, n), Index(3, 0, n), Index(3, 2, n), Index(2, 0, n), Index(2, 2, n)}
	if !slices.Equal(got, want) {
		t.Fatalf("Neighbors=%v want=%v", got, want)
	}
}

func TestNeighborsSingleTile(t *testing.T) {
	if got := Neighbors(0, 1); len(got) != 0 {
		t.Fatalf("a 1×1 grid has no neighbours, got %v", got)
	}
}

func TestNeighborTableMatchesNeighbors(t *testing.T) {
	table := NeighborTable(6)
	if len(table) != 36 {
		t.Fatalf("table rows=%d want 36", len(table))
	}
	for i, row := range table {
		if !slices.Equal(row, Neighbors(i, 6)) {
			t.Fatalf("row %d=%v want %v", i, row, Neighbors(i, 6))
		}
	}
}

func TestGenConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  GenConfig
		ok   bool
	}{
		{"default", DefaultGenConfig(), true},
		{"zero size means default", GenConfig{}, true},
		{"largest", GenConfig{Size: MaxSize, Relief: MaxRelief}, true},
		{"too large", GenConfig{Size: MaxSize + 1}, false},
		{"huge", GenConfig{Size: 100000}, false},
		{"negative size", GenConfig{Size: -3}, false},
		{"negative relief", GenConfig{Size: 5, Relief: -0.1}, false},
		{"relief above one", GenConfig{Size: 5, Relief: 1.5}, false},
		{"NaN relief", GenConfig{Size: 5, Relief: math.NaN()}, false},
	}
	for _, tc := range tests {
		if err := tc.cfg.Validate(); (err == nil) != tc.ok {
			t.Fatalf("%s: Validate(%+v)=%v", tc.name, tc.cfg, err)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Seed = 4242

	a := Generate(cfg, entropy.NewLCG(cfg.Seed))
	b := Generate(cfg, entropy.NewLCG(cfg.Seed))
	if !slices.Equal(a, b) {
		t.Fatal("same seed must produce an identical island")
	}

	c := Generate(cfg, entropy.NewLCG(cfg.Seed+1))
	if slices.Equal(a, c) {
		t.Fatal("different seeds should produce different islands")
	}
}

func TestGenerateConsumesThreeDrawsPerTile(t *testing.T) {
	rng := entropy.NewSequence(0.5)
	cfg := GenConfig{Size: 7}
	Generate(cfg, rng)
	if got, want := rng.Draws(), 3*7*7; got != want {
		t.Fatalf("draws=%d want=%d", got, want)
	}
}

func TestGenerateFormula(t *testing.T) {
	// Jitter 0.5 cancels out, so elevation is the pure radial falloff.
	rng := entropy.NewSequence(0.5, 0.25, 0.75)
	cfg := GenConfig{Size: 5}
	tiles := Generate(cfg, rng)

	center := tiles[Index(2, 2, 5)]
	if center.Elevation != 1 {
		t.Fatalf("center elevation=%v want 1 (1.2 clamped)", center.Elevation)
	}
	if center.Moisture != 35 {
		t.Fatalf("moisture=%v want 35", center.Moisture)
	}
	if center.Temperature != 50+15-30 {
		t.Fatalf("temperature=%v want 35", center.Temperature)
	}
	corner := tiles[Index(0, 0, 5)]
	if corner.Elevation != 0 {
		t.Fatalf("corner elevation=%v want 0", corner.Elevation)
	}
	if corner.Fertility != 0 || center.Fertility != 50 {
		t.Fatalf("fertility corner=%v center=%v, want 0 and 50", corner.Fertility, center.Fertility)
	}
}

func TestGenerateInitialTiles(t *testing.T) {
	cfg := DefaultGenConfig()
	tiles := Generate(cfg, entropy.NewLCG(7))
	if err := CheckGrid(tiles, cfg.Size); err != nil {
		t.Fatalf("generated grid invalid: %v", err)
	}
	for _, tile := range tiles {
		if tile.Stage != StageNone || tile.Vegetation != 0 || tile.Stability != 80 {
			t.Fatalf("tile %d not pristine: %+v", tile.ID, tile)
		}
		if tile.Biome != Classify(tile.Elevation, tile.Temperature, tile.Moisture) {
			t.Fatalf("tile %d biome %s does not match its climate", tile.ID, tile.Biome)
		}
	}
	if LandCount(tiles) == 0 || LandCount(tiles) == len(tiles) {
		t.Fatalf("expected an island with both land and sea, land=%d", LandCount(tiles))
	}
}

func TestGenerateReliefKeepsPRNGStream(t *testing.T) {
	plain := entropy.NewLCG(11)
	rough := entropy.NewLCG(11)

	Generate(GenConfig{Size: 9, Seed: 11}, plain)
	tiles := Generate(GenConfig{Size: 9, Seed: 11, Relief: 0.2}, rough)

	if plain.State() != rough.State() {
		t.Fatal("relief must not consume the game PRNG")
	}
	if err := CheckGrid(tiles, 9); err != nil {
		t.Fatalf("relief grid invalid: %v", err)
	}
}

func TestEnumJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		S LifeStage `json:"s"`
		B Biome     `json:"b"`
	}{StageAnimals, BiomeRedDesert})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"s":"Animals","b":"Red Desert"}` {
		t.Fatalf("unexpected encoding %s", b)
	}

	var s LifeStage
	if err := json.Unmarshal([]byte(`"Dragons"`), &s); err == nil {
		t.Fatal("expected unknown stage to be rejected")
	}
	var bio Biome
	if err := json.Unmarshal([]byte(`"Jungle"`), &bio); err != nil || bio != BiomeJungle {
		t.Fatalf("decode Jungle: biome=%s err=%v", bio, err)
	}
}

func TestCheckRangesRejectsNaN(t *testing.T) {
	tile := Tile{Elevation: 0.5, Moisture: math.NaN()}
	if err := tile.CheckRanges(); err == nil {
		t.Fatal("NaN moisture must be rejected")
	}
}
