// Package agent implements a lattice cell: a bounded, ordered pool of
// memes with policy-driven dominance selection and eviction.
package agent

import (
	"errors"
	"fmt"
	"math/rand"

	"memesim/internal/meme"
)

// ErrEmptyPool reports a configuration or operation that would leave an
// agent without any meme.
var ErrEmptyPool = errors.New("agent pool must hold at least one meme")

// Agent owns every meme in its pool exclusively; no meme is ever shared
// between two agents. The pool keeps insertion order, which is what the
// policy tie-breaks run on.
type Agent struct {
	x, y     int
	capacity int
	policy   meme.Policy
	pool     []*meme.Meme
}

// New builds an agent at (x, y) from an initial pool. It fails with
// ErrEmptyPool when capacity < 1 or the initial pool is empty; an
// initial pool longer than capacity is truncated to the first capacity
// entries, keeping insertion order.
func New(x, y, capacity int, policy meme.Policy, initial []*meme.Meme) (*Agent, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: capacity %d", ErrEmptyPool, capacity)
	}
	if len(initial) == 0 {
		return nil, fmt.Errorf("%w: empty initial pool", ErrEmptyPool)
	}
	if len(initial) > capacity {
		initial = initial[:capacity]
	}
	pool := make([]*meme.Meme, len(initial))
	copy(pool, initial)
	return &Agent{x: x, y: y, capacity: capacity, policy: policy, pool: pool}, nil
}

// NewRandom builds an agent whose pool is capacity independently random
// memes of the given length.
func NewRandom(x, y, capacity, length int, policy meme.Policy, rng *rand.Rand) (*Agent, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: capacity %d", ErrEmptyPool, capacity)
	}
	pool := make([]*meme.Meme, capacity)
	for i := range pool {
		pool[i] = meme.Random(length, rng)
	}
	return &Agent{x: x, y: y, capacity: capacity, policy: policy, pool: pool}, nil
}

// X returns the agent's fixed column coordinate.
func (a *Agent) X() int { return a.x }

// Y returns the agent's fixed row coordinate.
func (a *Agent) Y() int { return a.y }

// PoolSize returns the current pool size, always in [1, capacity].
func (a *Agent) PoolSize() int { return len(a.pool) }

// Pool returns the pool members in insertion order. The slice is a copy;
// the memes are the agent's own and must not be mutated by callers.
func (a *Agent) Pool() []*meme.Meme {
	out := make([]*meme.Meme, len(a.pool))
	copy(out, a.pool)
	return out
}

// Dominant returns the pool member with the best policy score. Ties go
// to the earliest-inserted member. The pool is never empty, so this
// always succeeds.
func (a *Agent) Dominant() *meme.Meme {
	best := a.pool[0]
	bestScore := a.policy.Score(best)
	for _, m := range a.pool[1:] {
		if s := a.policy.Score(m); s > bestScore {
			best, bestScore = m, s
		}
	}
	return best
}

// Rehearse draws one pool member uniformly at random (one rng.Intn
// draw), produces a mutated copy at the internal base rate, and inserts
// it. Models internal memory drift.
func (a *Agent) Rehearse(muInternal float64, rng *rand.Rand) {
	source := a.pool[rng.Intn(len(a.pool))]
	a.Insert(a.policy.Mutate(source, muInternal, rng))
}

// Receive copies a neighbor's dominant meme with external transmission
// noise and inserts the copy.
func (a *Agent) Receive(source *meme.Meme, muExternal float64, rng *rand.Rand) {
	a.Insert(a.policy.Mutate(source, muExternal, rng))
}

// Insert appends m and, if the pool now exceeds capacity, evicts exactly
// one member: the one with the worst policy score, ties broken by
// earliest insertion. The pool size therefore never leaves [1, capacity]
// at observable times.
func (a *Agent) Insert(m *meme.Meme) {
	a.pool = append(a.pool, m)
	if len(a.pool) <= a.capacity {
		return
	}
	worst := 0
	worstScore := a.policy.Score(a.pool[0])
	for i, member := range a.pool[1:] {
		if s := a.policy.Score(member); s < worstScore {
			worst, worstScore = i+1, s
		}
	}
	a.pool = append(a.pool[:worst], a.pool[worst+1:]...)
}

// AgeAll increments the age of every pool member by one generation.
func (a *Agent) AgeAll() {
	for _, m := range a.pool {
		m.IncrementAge()
	}
}

// Snapshot returns a new agent at the same position whose pool is a
// deep, fully independent copy: same patterns and ages, no shared meme
// ownership. The external phase's double buffering relies on this.
func (a *Agent) Snapshot() *Agent {
	pool := make([]*meme.Meme, len(a.pool))
	for i, m := range a.pool {
		pool[i] = m.Copy()
	}
	return &Agent{x: a.x, y: a.y, capacity: a.capacity, policy: a.policy, pool: pool}
}
