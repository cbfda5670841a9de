// Island generation: a radial height falloff jittered by the game PRNG,
// optionally roughened with simplex noise along the coast.
package world

import (
	"fmt"
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/Bluenot3/Tiny-God/internal/entropy"
)

// GenConfig holds island generation parameters.
type GenConfig struct {
	Size int   // Grid side length
	Seed int64 // PRNG seed (0 = random)

	// Relief adds simplex-noise elevation of up to ±Relief per tile.
	// Zero keeps the classic island. The noise is seeded from Seed and does
	// not consume the game PRNG.
	Relief float64
}

// DefaultGenConfig returns the standard 15×15 island.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Size:   DefaultSize,
		Seed:   0,
		Relief: 0,
	}
}

// Generation limits accepted from callers.
const (
	MaxSize   = 64 // Largest grid side; larger islands are refused
	MaxRelief = 1.0
)

// Validate rejects parameters Generate would not accept from a caller.
// Size 0 means DefaultSize.
func (c GenConfig) Validate() error {
	switch {
	case c.Size < 0 || c.Size > MaxSize:
		return fmt.Errorf("island size %d out of range (max %d)", c.Size, MaxSize)
	case math.IsNaN(c.Relief) || c.Relief < 0 || c.Relief > MaxRelief:
		return fmt.Errorf("relief %v out of range [0, %v]", c.Relief, MaxRelief)
	}
	return nil
}

// SmallTestConfig returns a tiny island for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Size: 5,
		Seed: 42,
	}
}

// Generation constants.
const (
	heightScale     = 1.2
	heightJitter    = 0.4
	moistureBase    = 30.0
	moistureSpread  = 20.0
	temperatureBase = 50.0
	temperatureSpan = 20.0
	lapseRate       = 30.0 // Degrees lost from sea level to peak
	soilLevel       = 0.2  // Elevation above which soil starts fertile
	startFertility  = 50.0
	startStability  = 80.0
	reliefFrequency = 0.35
)

// Generate creates the Size×Size island. Tiles are produced in y-major,
// x-minor order and each consumes exactly three values from rng: elevation
// jitter, moisture, temperature. That order is what makes a seed replayable.
func Generate(cfg GenConfig, rng entropy.Source) []Tile {
	n := cfg.Size
	if n <= 0 {
		n = DefaultSize
	}

	var relief opensimplex.Noise
	if cfg.Relief > 0 {
		relief = opensimplex.New(cfg.Seed)
	}

	center := n / 2
	maxDist := math.Sqrt(float64(center*center + center*center))

	tiles := make([]Tile, 0, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			dx := float64(x - center)
			dy := float64(y - center)
			normalized := 0.0
			if maxDist > 0 {
				normalized = math.Sqrt(dx*dx+dy*dy) / maxDist
			}

			height := (1 - normalized) * heightScale
			height += (rng.Float() - 0.5) * heightJitter
			if relief != nil {
				height += octaveNoise(relief, float64(x), float64(y), 3, reliefFrequency, 0.5) * cfg.Relief
			}
			height = Clamp01(height)

			moisture := moistureBase + rng.Float()*moistureSpread
			temperature := Clamp(temperatureBase + rng.Float()*temperatureSpan - height*lapseRate)

			fertility := 0.0
			if height > soilLevel {
				fertility = startFertility
			}

			tiles = append(tiles, Tile{
				ID:          Index(x, y, n),
				X:           x,
				Y:           y,
				Elevation:   height,
				Moisture:    moisture,
				Temperature: temperature,
				Fertility:   fertility,
				Vegetation:  0,
				Stability:   startStability,
				Stage:       StageNone,
				Biome:       Classify(height, temperature, moisture),
			})
		}
	}
	return tiles
}

// BaselineTemperature is the temperature a tile drifts back to when left
// alone: warm at sea level, cooler with height.
func BaselineTemperature(elevation float64) float64 {
	return temperatureBase - elevation*lapseRate
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
