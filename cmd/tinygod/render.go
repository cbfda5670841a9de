package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/Bluenot3/Tiny-God/internal/engine"
	"github.com/Bluenot3/Tiny-God/internal/world"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBlue   = "\x1b[34m"
	ansiCyan   = "\x1b[36m"
	ansiYellow = "\x1b[33m"
	ansiGreen  = "\x1b[32m"
	ansiWhite  = "\x1b[97m"
	ansiGrey   = "\x1b[90m"
	ansiRed    = "\x1b[31m"
	ansiBold   = "\x1b[1m"
)

var biomeGlyphs = map[world.Biome]byte{
	world.BiomeDeepOcean: '=',
	world.BiomeOcean:     '~',
	world.BiomeBeach:     '.',
	world.BiomeSnow:      '*',
	world.BiomeMountain:  '^',
	world.BiomeTundra:    '-',
	world.BiomeDesert:    ':',
	world.BiomeGrassland: ',',
	world.BiomeForest:    'T',
	world.BiomeRedDesert: ';',
	world.BiomeShrubland: '%',
	world.BiomeJungle:    '&',
}

var biomeColors = map[world.Biome]string{
	world.BiomeDeepOcean: ansiBlue,
	world.BiomeOcean:     ansiCyan,
	world.BiomeBeach:     ansiYellow,
	world.BiomeSnow:      ansiWhite,
	world.BiomeMountain:  ansiGrey,
	world.BiomeTundra:    ansiWhite,
	world.BiomeDesert:    ansiYellow,
	world.BiomeRedDesert: ansiRed,
}

// Life overrides the biome glyph.
var stageGlyphs = map[world.LifeStage]byte{
	world.StagePlants:  'p',
	world.StageInsects: 'i',
	world.StageAnimals: 'a',
	world.StageHumans:  'H',
}

func glyph(t world.Tile) (byte, string) {
	if g, ok := stageGlyphs[t.Stage]; ok {
		if t.Stage == world.StageHumans {
			return g, ansiBold
		}
		return g, ansiGreen
	}
	g, ok := biomeGlyphs[t.Biome]
	if !ok {
		g = '?'
	}
	c, ok := biomeColors[t.Biome]
	if !ok {
		c = ansiGreen
	}
	return g, c
}

// renderMap draws the grid one row per line, glyphs separated by spaces.
func renderMap(s engine.GameState, color bool) string {
	var b strings.Builder
	n := s.GridSize
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			g, c := glyph(s.Tiles[world.Index(x, y, n)])
			if x > 0 {
				b.WriteByte(' ')
			}
			if color {
				b.WriteString(c)
				b.WriteByte(g)
				b.WriteString(ansiReset)
			} else {
				b.WriteByte(g)
			}
		}
		b.WriteByte('\n')
	}
	b.WriteString("p plants  i insects  a animals  H humans  ~ sea  . beach  ^ mountain\n")
	return b.String()
}

// renderStatus prints the island dashboard and the chronicle.
func renderStatus(s engine.GameState, regen int) string {
	var b strings.Builder
	year := "Before time"
	if s.Year > 0 {
		year = fmt.Sprintf("The %s year", humanize.Ordinal(s.Year))
	}
	fmt.Fprintf(&b, "%s of %s (%s)\n", year, s.EraName, s.Status)
	fmt.Fprintf(&b, "  %s\n", s.EraDescription)
	fmt.Fprintf(&b, "Mana %d/%d (+%d/turn)  Biodiversity %d  Stability %d\n",
		s.Mana, s.MaxMana, regen, s.Biodiversity, s.GlobalStability)
	fmt.Fprintf(&b, "Life %s  Humans %s  Land %d tiles\n",
		humanize.Comma(int64(s.TotalLife)), humanize.Comma(int64(s.HumanPopulation)), s.Land())
	for _, line := range s.Logs {
		fmt.Fprintf(&b, "  | %s\n", line)
	}
	return b.String()
}

func renderActions(sim *engine.Simulation) string {
	var b strings.Builder
	b.WriteString("Actions:")
	for _, a := range engine.Actions() {
		mark := ""
		if !sim.CanAfford(a) {
			mark = "!"
		}
		fmt.Fprintf(&b, " %s(%d)%s", a, a.Cost(), mark)
	}
	b.WriteByte('\n')
	return b.String()
}
