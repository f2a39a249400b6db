// Package grid manages the N x N toroidal lattice of agents. The grid
// owns its cell array outright; the only way its visible state changes
// wholesale is ReplaceAll, which makes the engine's double-buffering
// contract structural rather than a caller discipline.
package grid

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"memesim/internal/agent"
	"memesim/internal/meme"
)

// ErrCountMismatch reports a ReplaceAll call with other than N*N agents.
// It signals a bug in phase orchestration, never a recoverable state.
var ErrCountMismatch = errors.New("replacement agent count mismatch")

// Grid holds one agent per (x, y) in row-major order, x outer and y
// inner. Every accessor that cares about draw-order determinism
// traverses cells in that canonical order.
type Grid struct {
	size  int
	cells []*agent.Agent
}

// New fills every cell with a fresh agent whose pool is capacity
// independently random memes. Grid sizes below 3 cannot produce eight
// distinct Moore neighbors and are rejected.
func New(size, capacity, length int, policy meme.Policy, rng *rand.Rand) (*Grid, error) {
	if size < 3 {
		return nil, fmt.Errorf("grid size must be >= 3, got %d", size)
	}
	if length < 2 {
		return nil, fmt.Errorf("%w: length %d below minimum 2", meme.ErrInvalidPattern, length)
	}
	cells := make([]*agent.Agent, size*size)
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			a, err := agent.NewRandom(x, y, capacity, length, policy, rng)
			if err != nil {
				return nil, err
			}
			cells[x*size+y] = a
		}
	}
	return &Grid{size: size, cells: cells}, nil
}

// Size returns the lattice dimension N.
func (g *Grid) Size() int { return g.size }

// AgentAt returns the agent at (x, y). Coordinates are expected in
// [0, N); out-of-range access is a caller bug.
func (g *Grid) AgentAt(x, y int) *agent.Agent {
	return g.cells[x*g.size+y]
}

// All returns the agents as a flat slice copy in canonical row-major
// order (x outer, y inner).
func (g *Grid) All() []*agent.Agent {
	out := make([]*agent.Agent, len(g.cells))
	copy(out, g.cells)
	return out
}

// MooreNeighbors returns the eight toroidal neighbors of (x, y),
// excluding the cell itself, in fixed (dx, dy) scan order.
func (g *Grid) MooreNeighbors(x, y int) []*agent.Agent {
	neighbors := make([]*agent.Agent, 0, 8)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx := (x + dx + g.size) % g.size
			ny := (y + dy + g.size) % g.size
			neighbors = append(neighbors, g.cells[nx*g.size+ny])
		}
	}
	return neighbors
}

// ReplaceAll atomically swaps in a full new generation. The replacement
// must contain exactly N*N agents in canonical order; anything else
// fails with ErrCountMismatch and leaves the grid untouched.
func (g *Grid) ReplaceAll(agents []*agent.Agent) error {
	if len(agents) != len(g.cells) {
		return fmt.Errorf("%w: got %d, want %d", ErrCountMismatch, len(agents), len(g.cells))
	}
	cells := make([]*agent.Agent, len(agents))
	copy(cells, agents)
	g.cells = cells
	return nil
}

// InjectPattern builds a meme from pattern and inserts it into one
// uniformly chosen cell through the cell's normal insert, so capacity
// and eviction rules apply unchanged.
func (g *Grid) InjectPattern(pattern meme.Pattern, length int, rng *rand.Rand) error {
	m, err := meme.New(pattern, length)
	if err != nil {
		return err
	}
	x := rng.Intn(g.size)
	y := rng.Intn(g.size)
	g.AgentAt(x, y).Insert(m)
	return nil
}

// DominantPatterns returns a copy of every cell's dominant pattern in
// canonical order. Reshaping into a display grid is the consumer's
// concern.
func (g *Grid) DominantPatterns() []meme.Pattern {
	out := make([]meme.Pattern, len(g.cells))
	for i, a := range g.cells {
		out[i] = a.Dominant().Pattern()
	}
	return out
}

// Statistics is the aggregate reduction over all cells after a step.
type Statistics struct {
	DominantComplexityMean float64
	DominantComplexityStd  float64
	DominantComplexityMin  float64
	DominantComplexityMax  float64

	DominantUtilityMean float64
	DominantUtilityStd  float64
	DominantUtilityMin  float64
	DominantUtilityMax  float64
	DominantScoreMean   float64

	PoolComplexityMean float64
	PoolEntropyMean    float64
	PoolUtilityMean    float64

	UniquePatterns int
	TotalPatterns  int
	Diversity      float64
}

// Statistics computes the aggregate over all cells with no mutation.
// Utility-family fields are populated only under the utility policy.
func (g *Grid) Statistics(policy meme.Policy) Statistics {
	dominantComplexities := make([]float64, 0, len(g.cells))
	dominantUtilities := make([]float64, 0, len(g.cells))
	dominantScores := make([]float64, 0, len(g.cells))

	var poolComplexity, poolEntropy, poolUtility float64
	unique := make(map[string]struct{})
	total := 0

	utilityKind := policy.Kind == meme.KindUtility
	for _, a := range g.cells {
		dominant := a.Dominant()
		dominantComplexities = append(dominantComplexities, dominant.Complexity())
		if utilityKind {
			dominantUtilities = append(dominantUtilities, policy.Utility(dominant))
			dominantScores = append(dominantScores, policy.CombinedScore(dominant))
		}
		for _, m := range a.Pool() {
			poolComplexity += m.Complexity()
			poolEntropy += m.Entropy()
			if utilityKind {
				poolUtility += policy.Utility(m)
			}
			unique[m.Pattern().Key()] = struct{}{}
			total++
		}
	}

	stats := Statistics{
		UniquePatterns: len(unique),
		TotalPatterns:  total,
	}
	stats.DominantComplexityMean, stats.DominantComplexityStd = meanStd(dominantComplexities)
	stats.DominantComplexityMin, stats.DominantComplexityMax = minMax(dominantComplexities)
	if utilityKind {
		stats.DominantUtilityMean, stats.DominantUtilityStd = meanStd(dominantUtilities)
		stats.DominantUtilityMin, stats.DominantUtilityMax = minMax(dominantUtilities)
		stats.DominantScoreMean, _ = meanStd(dominantScores)
	}
	if total > 0 {
		stats.PoolComplexityMean = poolComplexity / float64(total)
		stats.PoolEntropyMean = poolEntropy / float64(total)
		if utilityKind {
			stats.PoolUtilityMean = poolUtility / float64(total)
		}
		stats.Diversity = float64(len(unique)) / float64(total)
	}
	return stats
}

// Map returns the statistics as the name-to-value mapping the reporter
// layer consumes.
func (s Statistics) Map() map[string]float64 {
	return map[string]float64{
		"dominant_complexity_mean": s.DominantComplexityMean,
		"dominant_complexity_std":  s.DominantComplexityStd,
		"dominant_complexity_min":  s.DominantComplexityMin,
		"dominant_complexity_max":  s.DominantComplexityMax,
		"dominant_utility_mean":    s.DominantUtilityMean,
		"dominant_utility_std":     s.DominantUtilityStd,
		"dominant_utility_min":     s.DominantUtilityMin,
		"dominant_utility_max":     s.DominantUtilityMax,
		"dominant_score_mean":      s.DominantScoreMean,
		"pool_complexity_mean":     s.PoolComplexityMean,
		"pool_entropy_mean":        s.PoolEntropyMean,
		"pool_utility_mean":        s.PoolUtilityMean,
		"unique_patterns":          float64(s.UniquePatterns),
		"total_patterns":           float64(s.TotalPatterns),
		"diversity":                s.Diversity,
	}
}

func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	for _, v := range values {
		std += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(std / float64(len(values)))
}

func minMax(values []float64) (minV, maxV float64) {
	if len(values) == 0 {
		return 0, 0
	}
	minV, maxV = values[0], values[0]
	for _, v := range values[1:] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	return minV, maxV
}
