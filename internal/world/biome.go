package world

import "fmt"

// Biome is the display classification of a tile, derived from its
// elevation, temperature and moisture (a rough Whittaker diagram).
type Biome uint8

const (
	BiomeDeepOcean Biome = iota
	BiomeOcean
	BiomeBeach
	BiomeSnow
	BiomeMountain
	BiomeTundra
	BiomeDesert    // Temperate desert
	BiomeGrassland // Temperate grassland
	BiomeForest    // Temperate deciduous forest
	BiomeRedDesert // Subtropical desert
	BiomeShrubland
	BiomeJungle // Tropical rain forest
)

var biomeNames = [...]string{
	BiomeDeepOcean: "Deep Ocean",
	BiomeOcean:     "Ocean",
	BiomeBeach:     "Beach",
	BiomeSnow:      "Snow",
	BiomeMountain:  "Mountain",
	BiomeTundra:    "Tundra",
	BiomeDesert:    "Desert",
	BiomeGrassland: "Grassland",
	BiomeForest:    "Forest",
	BiomeRedDesert: "Red Desert",
	BiomeShrubland: "Shrubland",
	BiomeJungle:    "Jungle",
}

// Classification thresholds.
const (
	deepOceanLevel = 0.2
	beachLevel     = 0.35
	peakLevel      = 0.85

	freezingTemp = 10.0
	hotTemp      = 30.0

	aridMoisture      = 20.0
	temperateWetLevel = 50.0
	tropicalWetLevel  = 60.0
)

// Classify maps elevation, temperature and moisture to a biome.
// First match wins; every input yields a biome.
func Classify(elevation, temperature, moisture float64) Biome {
	switch {
	case elevation < deepOceanLevel:
		return BiomeDeepOcean
	case elevation < WaterLevel:
		return BiomeOcean
	case elevation < beachLevel:
		return BiomeBeach
	case elevation > peakLevel:
		if temperature < freezingTemp {
			return BiomeSnow
		}
		return BiomeMountain
	case temperature < freezingTemp:
		return BiomeTundra
	case temperature < hotTemp:
		switch {
		case moisture < aridMoisture:
			return BiomeDesert
		case moisture < temperateWetLevel:
			return BiomeGrassland
		default:
			return BiomeForest
		}
	default:
		switch {
		case moisture < aridMoisture:
			return BiomeRedDesert
		case moisture < tropicalWetLevel:
			return BiomeShrubland
		default:
			return BiomeJungle
		}
	}
}

// String returns the display name of the biome.
func (b Biome) String() string {
	if int(b) < len(biomeNames) {
		return biomeNames[b]
	}
	return fmt.Sprintf("Biome(%d)", uint8(b))
}

// Valid reports whether b is a known biome.
func (b Biome) Valid() bool {
	return int(b) < len(biomeNames)
}

// MarshalText encodes the biome by display name.
func (b Biome) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("invalid biome %d", uint8(b))
	}
	return []byte(biomeNames[b]), nil
}

// UnmarshalText decodes a biome display name, rejecting anything unknown.
func (b *Biome) UnmarshalText(text []byte) error {
	for i, name := range biomeNames {
		if name == string(text) {
			*b = Biome(i)
			return nil
		}
	}
	return fmt.Errorf("unknown biome %q", string(text))
}

// Biomes returns every biome in declaration order.
func Biomes() []Biome {
	out := make([]Biome, len(biomeNames))
	for i := range biomeNames {
		out[i] = Biome(i)
	}
	return out
}
