// Package meme models the unit of replication: a fixed-length binary
// pattern with an age counter, scored by Shannon entropy and, under the
// utility policy, by proximity to a configured set of reference patterns.
package meme

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// ErrInvalidPattern reports a pattern of the wrong length or with a
// non-binary element.
var ErrInvalidPattern = errors.New("invalid meme pattern")

// Pattern is an ordered sequence of bits, each element 0 or 1.
type Pattern []byte

// Clone returns an independent copy of the pattern.
func (p Pattern) Clone() Pattern {
	out := make(Pattern, len(p))
	copy(out, p)
	return out
}

// Key returns the pattern as a compact string, usable as a map key when
// counting structurally distinct patterns.
func (p Pattern) Key() string {
	var b strings.Builder
	b.Grow(len(p))
	for _, bit := range p {
		if bit == 0 {
			b.WriteByte('0')
		} else {
			b.WriteByte('1')
		}
	}
	return b.String()
}

// ParsePattern converts a string of '0' and '1' runes into a Pattern.
func ParsePattern(s string) (Pattern, error) {
	out := make(Pattern, 0, len(s))
	for _, r := range s {
		switch r {
		case '0':
			out = append(out, 0)
		case '1':
			out = append(out, 1)
		default:
			return nil, fmt.Errorf("%w: unexpected rune %q", ErrInvalidPattern, r)
		}
	}
	return out, nil
}

// Meme is an immutable pattern plus an age counter. The pattern is
// validated and copied at construction and never written afterwards;
// mutation always produces a new Meme. Entropy is computed eagerly so a
// Meme is safe to read from concurrent goroutines.
type Meme struct {
	pattern Pattern
	age     int
	entropy float64
}

// New validates pattern against length and binary-element constraints
// and returns a Meme of age zero.
func New(pattern Pattern, length int) (*Meme, error) {
	return NewWithAge(pattern, length, 0)
}

// NewWithAge is New with an explicit starting age, used when deep
// copying pools between generations. Lengths below 2 are rejected:
// complexity normalizes entropy by log2(L), which is zero at L = 1.
func NewWithAge(pattern Pattern, length, age int) (*Meme, error) {
	if length < 2 {
		return nil, fmt.Errorf("%w: length %d below minimum 2", ErrInvalidPattern, length)
	}
	if len(pattern) != length {
		return nil, fmt.Errorf("%w: length %d, want %d", ErrInvalidPattern, len(pattern), length)
	}
	for i, bit := range pattern {
		if bit != 0 && bit != 1 {
			return nil, fmt.Errorf("%w: element %d at position %d", ErrInvalidPattern, bit, i)
		}
	}
	if age < 0 {
		return nil, fmt.Errorf("%w: negative age %d", ErrInvalidPattern, age)
	}
	m := &Meme{pattern: pattern.Clone(), age: age}
	m.entropy = shannonEntropy(m.pattern)
	return m, nil
}

// Random returns a Meme with uniformly random bits, drawing one bit per
// position from rng. The caller is expected to pass a length of at
// least 2, as grid construction enforces.
func Random(length int, rng *rand.Rand) *Meme {
	pattern := make(Pattern, length)
	for i := range pattern {
		pattern[i] = byte(rng.Intn(2))
	}
	m := &Meme{pattern: pattern, age: 0}
	m.entropy = shannonEntropy(pattern)
	return m
}

// Pattern returns a copy of the meme's bit pattern.
func (m *Meme) Pattern() Pattern {
	return m.pattern.Clone()
}

// Len returns the pattern length L.
func (m *Meme) Len() int {
	return len(m.pattern)
}

// Age returns generations since this meme was created.
func (m *Meme) Age() int {
	return m.age
}

// IncrementAge advances the age counter by one generation.
func (m *Meme) IncrementAge() {
	m.age++
}

// Entropy returns the Shannon entropy of the bit frequency distribution,
// H = -(p0*log2(p0) + p1*log2(p1)), with 0*log2(0) taken as 0.
func (m *Meme) Entropy() float64 {
	return m.entropy
}

// Complexity returns entropy normalized by log2(L), so a uniform pattern
// scores 0 and a maximally bit-balanced one scores highest.
func (m *Meme) Complexity() float64 {
	return m.entropy / math.Log2(float64(len(m.pattern)))
}

// HammingDistance returns the fraction of positions at which the two
// patterns differ, in [0, 1]. Patterns of unequal length are a caller
// bug within a run where L is fixed.
func (m *Meme) HammingDistance(other *Meme) float64 {
	diff := 0
	for i, bit := range m.pattern {
		if bit != other.pattern[i] {
			diff++
		}
	}
	return float64(diff) / float64(len(m.pattern))
}

// Mutate copies the pattern, flipping every bit independently with
// probability muEff, and returns a new Meme of age zero. A muEff at or
// above 1 flips every bit since each position is a single threshold
// comparison. The draw schedule is exactly L calls to rng.Float64, one
// per position.
func (m *Meme) Mutate(muEff float64, rng *rand.Rand) *Meme {
	pattern := m.pattern.Clone()
	for i := range pattern {
		if rng.Float64() < muEff {
			pattern[i] = 1 - pattern[i]
		}
	}
	out := &Meme{pattern: pattern, age: 0}
	out.entropy = shannonEntropy(pattern)
	return out
}

// Copy returns an independent Meme with the same pattern and age.
func (m *Meme) Copy() *Meme {
	return &Meme{pattern: m.pattern.Clone(), age: m.age, entropy: m.entropy}
}

func (m *Meme) String() string {
	return fmt.Sprintf("Meme(pattern=%s, H=%.3f, age=%d)", m.pattern.Key(), m.entropy, m.age)
}

func shannonEntropy(p Pattern) float64 {
	ones := 0
	for _, bit := range p {
		ones += int(bit)
	}
	total := float64(len(p))
	p1 := float64(ones) / total
	p0 := 1 - p1

	entropy := 0.0
	if p0 > 0 {
		entropy -= p0 * math.Log2(p0)
	}
	if p1 > 0 {
		entropy -= p1 * math.Log2(p1)
	}
	return entropy
}
