// Package engine drives discrete generations over the grid: an in-place
// internal rehearsal phase followed by a double-buffered external
// transmission phase, published atomically so every agent observes the
// same generation-t neighborhood.
package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"memesim/internal/agent"
	"memesim/internal/grid"
	"memesim/internal/meme"
)

// Config carries the per-run parameters the engine needs beyond the
// grid itself.
type Config struct {
	// MuInternal and MuExternal are the base bit-flip probabilities for
	// self-rehearsal and neighbor transmission.
	MuInternal float64
	MuExternal float64
	Policy     meme.Policy
	Seed       int64
	// Workers > 1 runs both phases through a worker pool with
	// deterministic per-cell substreams keyed by (seed, generation, x,
	// y). Workers <= 1 issues every draw from the single run RNG in
	// canonical row-major order:
	//   phase 1, per agent: one source-meme draw, then L flip draws;
	//   phase 2, per agent: one neighbor draw, then L flip draws.
	// Both modes are reproducible; they follow different draw schedules.
	Workers int
}

// Engine owns the grid and the run's random source for the run's
// lifetime. Nothing else advances the generation counter.
type Engine struct {
	grid *grid.Grid
	cfg  Config
	rng  *rand.Rand

	generation int
	stats      grid.Statistics
}

// New validates cfg and binds the engine to its grid. The initial
// statistics are computed immediately so generation 0 is observable
// before the first step.
func New(g *grid.Grid, cfg Config) (*Engine, error) {
	if g == nil {
		return nil, errors.New("grid is required")
	}
	if cfg.MuInternal < 0 || cfg.MuExternal < 0 {
		return nil, fmt.Errorf("mutation rates must be >= 0: internal=%v external=%v", cfg.MuInternal, cfg.MuExternal)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	e := &Engine{
		grid: g,
		cfg:  cfg,
		rng:  rand.New(rand.NewSource(cfg.Seed)),
	}
	e.stats = g.Statistics(cfg.Policy)
	return e, nil
}

// Generation returns the number of completed steps.
func (e *Engine) Generation() int { return e.generation }

// Grid returns the engine's grid for read-only consumers.
func (e *Engine) Grid() *grid.Grid { return e.grid }

// Statistics returns the aggregate computed after the most recent step
// (or at construction, for generation 0).
func (e *Engine) Statistics() grid.Statistics { return e.stats }

// DominantPatterns returns every cell's dominant pattern in canonical
// order, the renderer-facing view of the current generation.
func (e *Engine) DominantPatterns() []meme.Pattern {
	return e.grid.DominantPatterns()
}

// Step executes exactly one generation. From any external observer's
// view it is atomic: the grid's visible state changes only at the single
// ReplaceAll publication, and the generation counter moves by exactly
// one afterwards.
func (e *Engine) Step() error {
	if e.cfg.Workers > 1 {
		e.internalPhaseParallel()
	} else {
		e.internalPhase()
	}

	var next []*agent.Agent
	if e.cfg.Workers > 1 {
		next = e.externalPhaseParallel()
	} else {
		next = e.externalPhase()
	}
	if err := e.grid.ReplaceAll(next); err != nil {
		return fmt.Errorf("publish generation %d: %w", e.generation+1, err)
	}

	e.generation++
	e.stats = e.grid.Statistics(e.cfg.Policy)
	return nil
}

// internalPhase rehearses and ages every agent in place. No cross-agent
// reads occur, so traversal order affects only RNG draw order.
func (e *Engine) internalPhase() {
	for _, a := range e.grid.All() {
		a.Rehearse(e.cfg.MuInternal, e.rng)
		a.AgeAll()
	}
}

func (e *Engine) internalPhaseParallel() {
	agents := e.grid.All()
	e.forEachCell(agents, func(a *agent.Agent, rng *rand.Rand) {
		a.Rehearse(e.cfg.MuInternal, rng)
		a.AgeAll()
	}, phaseInternal)
}

// externalPhase computes the next generation against the current grid as
// the immutable source of truth: one snapshot copy per old agent in
// canonical order, one uniform neighbor draw per cell resolved on the
// old state, and no reads of any new agent by any other. The caller
// publishes the whole slice at once.
func (e *Engine) externalPhase() []*agent.Agent {
	old := e.grid.All()
	next := make([]*agent.Agent, len(old))
	for i, a := range old {
		next[i] = a.Snapshot()
	}
	for _, a := range next {
		e.transmit(a, e.rng)
	}
	return next
}

func (e *Engine) externalPhaseParallel() []*agent.Agent {
	old := e.grid.All()
	next := make([]*agent.Agent, len(old))
	e.forEachCell(old, func(a *agent.Agent, rng *rand.Rand) {
		fresh := a.Snapshot()
		e.transmit(fresh, rng)
		next[a.X()*e.grid.Size()+a.Y()] = fresh
	}, phaseExternal)
	return next
}

// transmit draws one old-grid neighbor of the new agent's cell and
// delivers that neighbor's dominant meme with external noise. The grid
// still holds generation-t state here; it is only replaced after every
// new agent has been computed.
func (e *Engine) transmit(a *agent.Agent, rng *rand.Rand) {
	neighbors := e.grid.MooreNeighbors(a.X(), a.Y())
	source := neighbors[rng.Intn(len(neighbors))]
	a.Receive(source.Dominant(), e.cfg.MuExternal, rng)
}

const (
	phaseInternal = 1
	phaseExternal = 2
)

// forEachCell fans the per-cell work out over the worker pool. Each cell
// gets its own RNG substream so the result is independent of scheduling;
// writes stay disjoint because every cell owns its slot.
func (e *Engine) forEachCell(agents []*agent.Agent, fn func(*agent.Agent, *rand.Rand), phase int) {
	workerCount := e.cfg.Workers
	if workerCount > len(agents) {
		workerCount = len(agents)
	}

	jobs := make(chan *agent.Agent)
	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for a := range jobs {
				rng := rand.New(rand.NewSource(cellSeed(e.cfg.Seed, e.generation, phase, a.X(), a.Y())))
				fn(a, rng)
			}
		}()
	}
	for _, a := range agents {
		jobs <- a
	}
	close(jobs)
	wg.Wait()
}

// cellSeed derives a deterministic substream seed from the run seed plus
// (generation, phase, x, y), using splitmix64-style finalization.
func cellSeed(seed int64, generation, phase, x, y int) int64 {
	h := mix64(uint64(seed) ^ 0x9e3779b97f4a7c15)
	h = mix64(h ^ uint64(generation)*0xbf58476d1ce4e5b9)
	h = mix64(h ^ uint64(phase)*0x94d049bb133111eb)
	h = mix64(h ^ uint64(x)<<32 ^ uint64(uint32(y)))
	return int64(h)
}

func mix64(v uint64) uint64 {
	v ^= v >> 30
	v *= 0xbf58476d1ce4e5b9
	v ^= v >> 27
	v *= 0x94d049bb133111eb
	v ^= v >> 31
	return v
}
