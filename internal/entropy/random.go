// Package entropy provides the pseudo-random sources that drive map generation
// and the life-stage rolls. Every source is an explicit handle so a caller
// can replay a game exactly or substitute a scripted sequence in tests.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// Source yields floats in [0, 1).
type Source interface {
	Float() float64
}

// Stateful sources can report and restore their position, which is what a
// save file needs to reproduce the next turn.
type Stateful interface {
	Source
	State() int64
	Restore(state int64) error
}

// LCG parameters. Changing any of these changes every generated island.
const (
	lcgMultiplier = 9301
	lcgIncrement  = 49297
	lcgModulus    = 233280
)

// LCG is the linear congruential generator the island has always used.
// Its state stays in [0, 233280) so the arithmetic is exact in int64.
type LCG struct {
	state int64
}

// NewLCG seeds a generator. Seeds outside [0, 233280) are reduced to their
// non-negative residue.
func NewLCG(seed int64) *LCG {
	return &LCG{state: reduce(seed)}
}

// Float advances the generator and returns the next value.
func (g *LCG) Float() float64 {
	g.state = (g.state*lcgMultiplier + lcgIncrement) % lcgModulus
	return float64(g.state) / lcgModulus
}

// State returns the current generator position.
func (g *LCG) State() int64 {
	return g.state
}

// Restore moves the generator to a previously saved position.
func (g *LCG) Restore(state int64) error {
	if state < 0 || state >= lcgModulus {
		return fmt.Errorf("lcg state %d out of range [0, %d)", state, lcgModulus)
	}
	g.state = state
	return nil
}

func reduce(seed int64) int64 {
	s := seed % lcgModulus
	if s < 0 {
		s += lcgModulus
	}
	return s
}

// Sequence replays a fixed list of values, cycling when exhausted.
// An empty Sequence always returns 0.
type Sequence struct {
	Values []float64
	next   int
}

// NewSequence returns a Sequence over vals.
func NewSequence(vals ...float64) *Sequence {
	return &Sequence{Values: vals}
}

// Float returns the next scripted value.
func (s *Sequence) Float() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	v := s.Values[s.next%len(s.Values)]
	s.next++
	return v
}

// Draws reports how many values have been consumed so far.
func (s *Sequence) Draws() int {
	return s.next
}

// RandomSeed returns a seed from crypto/rand, for games started without an
// explicit seed. The result is a valid, non-zero LCG seed.
func RandomSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// This should never happen; any fixed seed still yields a playable island.
		return 1
	}
	return int64(binary.LittleEndian.Uint64(buf[:])>>1)%(lcgModulus-1) + 1
}
