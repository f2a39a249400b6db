package meme

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func mustMeme(t *testing.T, pattern string) *Meme {
	t.Helper()
	p, err := ParsePattern(pattern)
	if err != nil {
		t.Fatalf("parse pattern %q: %v", pattern, err)
	}
	m, err := New(p, len(p))
	if err != nil {
		t.Fatalf("new meme %q: %v", pattern, err)
	}
	return m
}

func TestNewRejectsInvalidPatterns(t *testing.T) {
	if _, err := New(Pattern{0, 1, 0}, 4); !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("expected invalid pattern for length mismatch, got %v", err)
	}
	if _, err := New(Pattern{0, 1, 2, 1}, 4); !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("expected invalid pattern for non-binary element, got %v", err)
	}
	if _, err := NewWithAge(Pattern{0, 1}, 2, -1); !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("expected invalid pattern for negative age, got %v", err)
	}
}

// Complexity divides entropy by log2(L), so a length of 1 would make
// every score NaN; construction has to reject it.
func TestNewRejectsLengthsBelowTwo(t *testing.T) {
	if _, err := New(Pattern{1}, 1); !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("expected invalid pattern for length 1, got %v", err)
	}
	if _, err := New(Pattern{}, 0); !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("expected invalid pattern for length 0, got %v", err)
	}
	m, err := New(Pattern{0, 1}, 2)
	if err != nil {
		t.Fatalf("length 2 must be accepted: %v", err)
	}
	if c := m.Complexity(); math.IsNaN(c) || math.IsInf(c, 0) {
		t.Fatalf("complexity = %v, want finite", c)
	}
}

func TestParsePatternRejectsNonBinaryRunes(t *testing.T) {
	if _, err := ParsePattern("0102"); !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("expected invalid pattern, got %v", err)
	}
}

func TestEntropyZeroOnlyForUniformPatterns(t *testing.T) {
	if h := mustMeme(t, "00000000").Entropy(); h != 0 {
		t.Fatalf("all-zero entropy = %v, want 0", h)
	}
	if h := mustMeme(t, "11111111").Entropy(); h != 0 {
		t.Fatalf("all-one entropy = %v, want 0", h)
	}
	if h := mustMeme(t, "00001111").Entropy(); math.Abs(h-1) > 1e-12 {
		t.Fatalf("balanced entropy = %v, want 1", h)
	}
	if h := mustMeme(t, "00000001").Entropy(); h <= 0 || h >= 1 {
		t.Fatalf("mixed entropy = %v, want in (0, 1)", h)
	}
}

func TestComplexityRange(t *testing.T) {
	patterns := []string{"0000000000000000", "0101010101010101", "1110001011010011", "1111111111111111"}
	for _, s := range patterns {
		c := mustMeme(t, s).Complexity()
		if c < 0 || c > 1 {
			t.Fatalf("complexity(%s) = %v, want in [0, 1]", s, c)
		}
	}
	if c := mustMeme(t, "0000").Complexity(); c != 0 {
		t.Fatalf("uniform complexity = %v, want 0", c)
	}
}

func TestHammingDistanceProperties(t *testing.T) {
	a := mustMeme(t, "00001111")
	b := mustMeme(t, "11110000")
	c := mustMeme(t, "00001110")

	if d := a.HammingDistance(a); d != 0 {
		t.Fatalf("self distance = %v, want 0", d)
	}
	if d := a.HammingDistance(b); d != 1 {
		t.Fatalf("complement distance = %v, want 1", d)
	}
	if a.HammingDistance(c) != c.HammingDistance(a) {
		t.Fatal("hamming distance is not symmetric")
	}
	if d := a.HammingDistance(c); math.Abs(d-0.125) > 1e-12 {
		t.Fatalf("distance = %v, want 0.125", d)
	}
}

func TestMutateZeroRateIsIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	m := mustMeme(t, "1010011010100110")
	out := m.Mutate(0, rng)
	if out.Pattern().Key() != m.Pattern().Key() {
		t.Fatalf("mu=0 changed pattern: %s -> %s", m.Pattern().Key(), out.Pattern().Key())
	}
	if out.Age() != 0 {
		t.Fatalf("mutated meme age = %d, want 0", out.Age())
	}
}

func TestMutateSaturatedRateFlipsEveryBit(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	m := mustMeme(t, "1010011010100110")
	out := m.Mutate(1, rng)
	if d := m.HammingDistance(out); d != 1 {
		t.Fatalf("mu=1 distance = %v, want 1", d)
	}
}

func TestMutateDrawsExactlyOneFloatPerPosition(t *testing.T) {
	m := mustMeme(t, "0000000000000000")

	rngA := rand.New(rand.NewSource(99))
	m.Mutate(0.3, rngA)
	rngB := rand.New(rand.NewSource(99))
	for i := 0; i < m.Len(); i++ {
		rngB.Float64()
	}
	if rngA.Int63() != rngB.Int63() {
		t.Fatal("mutate consumed a different number of rng draws than L")
	}
}

func TestMutateDoesNotShareStorage(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := mustMeme(t, "0101")
	before := m.Pattern().Key()
	m.Mutate(1, rng)
	if m.Pattern().Key() != before {
		t.Fatal("mutate modified the source meme")
	}
}

func TestCopyIsIndependent(t *testing.T) {
	m := mustMeme(t, "0101")
	m.IncrementAge()
	cp := m.Copy()
	if cp.Age() != 1 || cp.Pattern().Key() != "0101" {
		t.Fatalf("unexpected copy: %s age=%d", cp.Pattern().Key(), cp.Age())
	}
	m.IncrementAge()
	if cp.Age() != 1 {
		t.Fatal("copy shares age with source")
	}
}

func TestRandomUsesOneIntnPerBit(t *testing.T) {
	rngA := rand.New(rand.NewSource(5))
	Random(16, rngA)
	rngB := rand.New(rand.NewSource(5))
	for i := 0; i < 16; i++ {
		rngB.Intn(2)
	}
	if rngA.Int63() != rngB.Int63() {
		t.Fatal("random meme consumed a different number of rng draws than L")
	}
}
