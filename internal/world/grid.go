package world

import "fmt"

// DefaultSize is the side length of the standard island.
const DefaultSize = 15

// neighborOffsets lists the eight Moore-neighbourhood offsets (dx, dy).
// The order is fixed so neighbour aggregation is reproducible.
var neighborOffsets = [8][2]int{
	{-1, 0}, {1, 0}, {0, -1}, {0, 1},
	{-1, -1}, {1, 1}, {-1, 1}, {1, -1},
}

// Index returns the row-major index of (x, y) on a grid of side n.
func Index(x, y, n int) int {
	return y*n + x
}

// Coord returns the (x, y) position of a row-major index.
func Coord(index, n int) (int, int) {
	return index % n, index / n
}

// InBounds reports whether (x, y) lies on a grid of side n.
func InBounds(x, y, n int) bool {
	return x >= 0 && x < n && y >= 0 && y < n
}

// Neighbors returns the indices of the tiles adjacent to index, including
// diagonals. Edges are clipped: corner tiles have three neighbours, edge
// tiles five, interior tiles eight.
func Neighbors(index, n int) []int {
	x, y := Coord(index, n)
	out := make([]int, 0, len(neighborOffsets))
	for _, d := range neighborOffsets {
		nx, ny := x+d[0], y+d[1]
		if InBounds(nx, ny, n) {
			out = append(out, Index(nx, ny, n))
		}
	}
	return out
}

// NeighborTable precomputes Neighbors for every index on a grid of side n.
func NeighborTable(n int) [][]int {
	table := make([][]int, n*n)
	for i := range table {
		table[i] = Neighbors(i, n)
	}
	return table
}

// CheckGrid verifies that tiles form a complete row-major grid of side n.
func CheckGrid(tiles []Tile, n int) error {
	if n <= 0 {
		return fmt.Errorf("grid size %d must be positive", n)
	}
	if len(tiles) != n*n {
		return fmt.Errorf("grid of side %d needs %d tiles, got %d", n, n*n, len(tiles))
	}
	for i := range tiles {
		t := &tiles[i]
		x, y := Coord(i, n)
		if t.ID != i || t.X != x || t.Y != y {
			return fmt.Errorf("tile at index %d has id=%d pos=(%d,%d), want id=%d pos=(%d,%d)",
				i, t.ID, t.X, t.Y, i, x, y)
		}
		if err := t.CheckRanges(); err != nil {
			return err
		}
	}
	return nil
}

// CountBiomes returns a summary of the biome distribution.
func CountBiomes(tiles []Tile) map[Biome]int {
	counts := make(map[Biome]int)
	for i := range tiles {
		counts[tiles[i].Biome]++
	}
	return counts
}

// LandCount returns the number of tiles above sea level.
func LandCount(tiles []Tile) int {
	land := 0
	for i := range tiles {
		if !tiles[i].IsWater() {
			land++
		}
	}
	return land
}
