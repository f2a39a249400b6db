package meme

import (
	"errors"
	"fmt"
	"math/rand"
)

// Kind selects which scoring family a Policy applies.
type Kind string

const (
	// KindFidelity selects and evicts by complexity alone and scales
	// mutation by raw entropy.
	KindFidelity Kind = "fidelity"
	// KindUtility selects and evicts by the combined score
	// alpha*utility - beta*complexity and scales mutation by complexity.
	KindUtility Kind = "utility"
)

var ErrInvalidPolicy = errors.New("invalid selection policy")

// Policy is the selection/eviction/mutation configuration for a run. It
// bundles the scoring function, the mutation-rate basis, the weights and
// the reference pattern set, so the agent and engine code stays
// identical across both variants.
type Policy struct {
	Kind        Kind
	Alpha       float64
	Beta        float64
	ScaleFactor float64 // k in muEff = muBase + k*basis

	references []*Meme
}

// NewPolicy validates kind and builds reference memes from the given
// patterns. References are required to share the run's meme length and
// are only meaningful under the utility kind, but a fidelity policy may
// carry them for reporting.
func NewPolicy(kind Kind, alpha, beta, scaleFactor float64, references []Pattern, length int) (Policy, error) {
	switch kind {
	case KindFidelity, KindUtility:
	default:
		return Policy{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidPolicy, kind)
	}
	refs := make([]*Meme, 0, len(references))
	for i, pattern := range references {
		ref, err := New(pattern, length)
		if err != nil {
			return Policy{}, fmt.Errorf("reference pattern %d: %w", i, err)
		}
		refs = append(refs, ref)
	}
	return Policy{
		Kind:        kind,
		Alpha:       alpha,
		Beta:        beta,
		ScaleFactor: scaleFactor,
		references:  refs,
	}, nil
}

// References returns the configured reference memes.
func (p Policy) References() []*Meme {
	return p.references
}

// Utility returns 1 minus the minimum normalized Hamming distance from m
// to any reference pattern, or 0 when no references are configured.
func (p Policy) Utility(m *Meme) float64 {
	if len(p.references) == 0 {
		return 0
	}
	minDistance := 1.0
	for _, ref := range p.references {
		if d := m.HammingDistance(ref); d < minDistance {
			minDistance = d
		}
	}
	return 1 - minDistance
}

// CombinedScore returns alpha*utility - beta*complexity.
func (p Policy) CombinedScore(m *Meme) float64 {
	return p.Alpha*p.Utility(m) - p.Beta*m.Complexity()
}

// Score returns the meme's selection score under the policy. Higher is
// always better: the fidelity kind negates complexity so both kinds
// share one comparison direction.
func (p Policy) Score(m *Meme) float64 {
	if p.Kind == KindUtility {
		return p.CombinedScore(m)
	}
	return -m.Complexity()
}

// MutationBasis returns the policy's basis term for the effective
// mutation rate: raw entropy under fidelity, normalized complexity under
// utility.
func (p Policy) MutationBasis(m *Meme) float64 {
	if p.Kind == KindUtility {
		return m.Complexity()
	}
	return m.Entropy()
}

// Mutate produces a noisy copy of m with effective flip probability
// muBase + ScaleFactor*basis, where basis is policy-dependent.
func (p Policy) Mutate(m *Meme, muBase float64, rng *rand.Rand) *Meme {
	return m.Mutate(muBase+p.ScaleFactor*p.MutationBasis(m), rng)
}
