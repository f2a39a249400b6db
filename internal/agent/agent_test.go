package agent

import (
	"errors"
	"math/rand"
	"testing"

	"memesim/internal/meme"
)

func mustMeme(t *testing.T, pattern string) *meme.Meme {
	t.Helper()
	p, err := meme.ParsePattern(pattern)
	if err != nil {
		t.Fatalf("parse pattern %q: %v", pattern, err)
	}
	m, err := meme.New(p, len(p))
	if err != nil {
		t.Fatalf("new meme %q: %v", pattern, err)
	}
	return m
}

func fidelityPolicy(t *testing.T) meme.Policy {
	t.Helper()
	policy, err := meme.NewPolicy(meme.KindFidelity, 0.5, 0.5, 0.5, nil, 8)
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}
	return policy
}

func utilityPolicy(t *testing.T, refs ...string) meme.Policy {
	t.Helper()
	patterns := make([]meme.Pattern, 0, len(refs))
	for _, s := range refs {
		p, err := meme.ParsePattern(s)
		if err != nil {
			t.Fatalf("parse reference %q: %v", s, err)
		}
		patterns = append(patterns, p)
	}
	policy, err := meme.NewPolicy(meme.KindUtility, 0.5, 0.5, 0.5, patterns, 8)
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}
	return policy
}

func TestNewRejectsEmptyConfigurations(t *testing.T) {
	policy := fidelityPolicy(t)
	if _, err := New(0, 0, 0, policy, []*meme.Meme{mustMeme(t, "00000000")}); !errors.Is(err, ErrEmptyPool) {
		t.Fatalf("expected empty pool error for capacity 0, got %v", err)
	}
	if _, err := New(0, 0, 3, policy, nil); !errors.Is(err, ErrEmptyPool) {
		t.Fatalf("expected empty pool error for empty initial pool, got %v", err)
	}
}

func TestNewTruncatesOversizedInitialPool(t *testing.T) {
	policy := fidelityPolicy(t)
	initial := []*meme.Meme{
		mustMeme(t, "00000000"),
		mustMeme(t, "00000001"),
		mustMeme(t, "00000011"),
	}
	a, err := New(0, 0, 2, policy, initial)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	if a.PoolSize() != 2 {
		t.Fatalf("pool size = %d, want 2", a.PoolSize())
	}
	pool := a.Pool()
	if pool[0].Pattern().Key() != "00000000" || pool[1].Pattern().Key() != "00000001" {
		t.Fatalf("truncation broke insertion order: %v, %v", pool[0], pool[1])
	}
}

func TestPoolSizeStaysWithinBounds(t *testing.T) {
	policy := fidelityPolicy(t)
	rng := rand.New(rand.NewSource(11))
	a, err := NewRandom(0, 0, 5, 8, policy, rng)
	if err != nil {
		t.Fatalf("new random agent: %v", err)
	}

	for i := 0; i < 200; i++ {
		a.Rehearse(0.1, rng)
		if n := a.PoolSize(); n < 1 || n > 5 {
			t.Fatalf("pool size %d out of [1, 5] after insert %d", n, i)
		}
	}
}

func TestDominantFidelityPicksLowestComplexity(t *testing.T) {
	policy := fidelityPolicy(t)
	a, err := New(0, 0, 3, policy, []*meme.Meme{
		mustMeme(t, "00001111"),
		mustMeme(t, "00000000"),
		mustMeme(t, "00000111"),
	})
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	if got := a.Dominant().Pattern().Key(); got != "00000000" {
		t.Fatalf("dominant = %s, want 00000000", got)
	}
}

func TestDominantTieGoesToEarliestInserted(t *testing.T) {
	policy := fidelityPolicy(t)
	a, err := New(0, 0, 3, policy, []*meme.Meme{
		mustMeme(t, "11111111"),
		mustMeme(t, "00000000"),
	})
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	// both score 0 complexity; the first insert wins
	if got := a.Dominant().Pattern().Key(); got != "11111111" {
		t.Fatalf("dominant = %s, want the earliest-inserted 11111111", got)
	}
}

func TestInsertEvictsWorstScored(t *testing.T) {
	policy := utilityPolicy(t, "00001111")
	a, err := New(0, 0, 2, policy, []*meme.Meme{
		mustMeme(t, "00001111"), // utility 1
		mustMeme(t, "00001110"), // utility 0.875
	})
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}

	a.Insert(mustMeme(t, "00110011")) // utility 0.5, the new worst
	if a.PoolSize() != 2 {
		t.Fatalf("pool size = %d, want 2", a.PoolSize())
	}
	for _, m := range a.Pool() {
		if m.Pattern().Key() == "00110011" {
			t.Fatal("expected the lowest-scored insert to be evicted")
		}
	}
}

func TestInsertEvictionTieGoesToEarliestInserted(t *testing.T) {
	policy := fidelityPolicy(t)
	a, err := New(0, 0, 2, policy, []*meme.Meme{
		mustMeme(t, "00001111"),
		mustMeme(t, "11110000"),
	})
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}

	// the incumbents tie on complexity and both score worse than the insert
	a.Insert(mustMeme(t, "00000000"))
	pool := a.Pool()
	if pool[0].Pattern().Key() != "11110000" || pool[1].Pattern().Key() != "00000000" {
		t.Fatalf("expected the earliest tied member evicted, got %s, %s",
			pool[0].Pattern().Key(), pool[1].Pattern().Key())
	}
}

func TestRehearseDrawsSourceThenMutates(t *testing.T) {
	policy := fidelityPolicy(t)
	a, err := New(0, 0, 3, policy, []*meme.Meme{
		mustMeme(t, "00000000"),
		mustMeme(t, "11111111"),
	})
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}

	rngA := rand.New(rand.NewSource(21))
	a.Rehearse(0.3, rngA)

	rngB := rand.New(rand.NewSource(21))
	rngB.Intn(2)
	for i := 0; i < 8; i++ {
		rngB.Float64()
	}
	if rngA.Int63() != rngB.Int63() {
		t.Fatal("rehearse draw schedule is not one Intn plus L Float64 calls")
	}
}

func TestReceiveDoesNotMutateSource(t *testing.T) {
	policy := fidelityPolicy(t)
	rng := rand.New(rand.NewSource(2))
	a, err := New(0, 0, 2, policy, []*meme.Meme{mustMeme(t, "00000000")})
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}

	source := mustMeme(t, "01010101")
	a.Receive(source, 1, rng)
	if source.Pattern().Key() != "01010101" {
		t.Fatal("receive mutated the source meme")
	}
}

func TestAgeAll(t *testing.T) {
	policy := fidelityPolicy(t)
	a, err := New(0, 0, 2, policy, []*meme.Meme{
		mustMeme(t, "00000000"),
		mustMeme(t, "00000001"),
	})
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	a.AgeAll()
	a.AgeAll()
	for _, m := range a.Pool() {
		if m.Age() != 2 {
			t.Fatalf("age = %d, want 2", m.Age())
		}
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	policy := fidelityPolicy(t)
	a, err := New(3, 4, 2, policy, []*meme.Meme{mustMeme(t, "00000000")})
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}

	snap := a.Snapshot()
	if snap.X() != 3 || snap.Y() != 4 {
		t.Fatalf("snapshot position = (%d, %d), want (3, 4)", snap.X(), snap.Y())
	}

	a.AgeAll()
	if snap.Pool()[0].Age() != 0 {
		t.Fatal("snapshot shares meme state with the source agent")
	}

	rng := rand.New(rand.NewSource(9))
	snap.Insert(meme.Random(8, rng))
	if a.PoolSize() != 1 {
		t.Fatal("insert into snapshot changed the source pool")
	}
}
