// Package memesim is the embedding API for the simulation: it wires the
// core (grid, engine, policy) to the reporter layer (store, artifacts)
// and applies run defaults.
package memesim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"memesim/internal/engine"
	"memesim/internal/grid"
	"memesim/internal/meme"
	"memesim/internal/model"
	"memesim/internal/stats"
	"memesim/internal/storage"
)

const (
	defaultBenchmarksDir = "benchmarks"
	defaultExportsDir    = "exports"
	defaultDBPath        = "memesim.db"
)

// DefaultReferencePatterns are the stock 16-bit utility targets:
// alternating blocks, half and half, checkerboard, square with a hole,
// and a cross.
var DefaultReferencePatterns = []string{
	"0000111100001111",
	"1111111100000000",
	"0101101001011010",
	"1111100110011111",
	"1001011001101001",
}

type Options struct {
	StoreKind     string
	DBPath        string
	BenchmarksDir string
	ExportsDir    string
}

type Client struct {
	store storage.Store

	benchmarksDir string
	exportsDir    string
}

// RunRequest configures one simulation run. Structural zero fields
// (grid size, meme length, pool capacity, policy, generations, workers)
// take defaults in Run; the mutation rates, scale factor and score
// weights are used exactly as given, so a zero rate means a frozen,
// mutation-free run. DefaultRunRequest supplies the stock values.
type RunRequest struct {
	RunID             string
	GridSize          int
	MemeLength        int
	PoolCapacity      int
	MuInternal        float64
	MuExternal        float64
	ScaleFactor       float64
	Policy            string
	Alpha             float64
	Beta              float64
	ReferencePatterns []string
	InjectReferences  bool
	Seed              int64
	Generations       int
	Workers           int
	StartPaused       bool
	AutoContinueAfter time.Duration
	Control           <-chan engine.Command
}

// DefaultRunRequest returns the stock parameter set: a 30x30 grid of
// 16-bit memes, pools of 5, mutation rates 0.1/0.5 scaled by k=0.5, and
// the utility policy weighted 0.5/0.5.
func DefaultRunRequest() RunRequest {
	return RunRequest{
		GridSize:     30,
		MemeLength:   16,
		PoolCapacity: 5,
		MuInternal:   0.1,
		MuExternal:   0.5,
		ScaleFactor:  0.5,
		Policy:       string(meme.KindUtility),
		Alpha:        0.5,
		Beta:         0.5,
		Seed:         42,
		Generations:  100,
		Workers:      1,
	}
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	Generations  int
	Final        model.GenerationStats
	FinalGrid    string
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	CreatedAtUTC string
	Policy       string
	GridSize     int
	Generations  int
	Seed         int64
	Diversity    float64
}

type HistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type ShowRequest struct {
	RunID  string
	Latest bool
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	benchmarksDir := opts.BenchmarksDir
	if benchmarksDir == "" {
		benchmarksDir = defaultBenchmarksDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:         store,
		benchmarksDir: benchmarksDir,
		exportsDir:    exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

// Run builds the grid and engine from req, runs the requested number of
// generations, persists the statistics history and writes run artifacts.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.GridSize == 0 {
		req.GridSize = 30
	}
	if req.MemeLength == 0 {
		req.MemeLength = 16
	}
	if req.PoolCapacity == 0 {
		req.PoolCapacity = 5
	}
	if req.Policy == "" {
		req.Policy = string(meme.KindUtility)
	}
	if req.Generations <= 0 {
		req.Generations = 100
	}
	if req.Workers <= 0 {
		req.Workers = 1
	}
	if req.MemeLength < 2 {
		return RunSummary{}, fmt.Errorf("meme length must be >= 2, got %d", req.MemeLength)
	}
	kind := meme.Kind(req.Policy)
	if kind == meme.KindUtility && len(req.ReferencePatterns) == 0 && req.MemeLength == 16 {
		req.ReferencePatterns = DefaultReferencePatterns
	}

	references := make([]meme.Pattern, 0, len(req.ReferencePatterns))
	for _, s := range req.ReferencePatterns {
		pattern, err := meme.ParsePattern(s)
		if err != nil {
			return RunSummary{}, err
		}
		references = append(references, pattern)
	}

	policy, err := meme.NewPolicy(kind, req.Alpha, req.Beta, req.ScaleFactor, references, req.MemeLength)
	if err != nil {
		return RunSummary{}, err
	}

	if err := c.store.Init(ctx); err != nil {
		return RunSummary{}, err
	}

	rng := rand.New(rand.NewSource(req.Seed))
	g, err := grid.New(req.GridSize, req.PoolCapacity, req.MemeLength, policy, rng)
	if err != nil {
		return RunSummary{}, err
	}
	if req.InjectReferences {
		for _, pattern := range references {
			if err := g.InjectPattern(pattern, req.MemeLength, rng); err != nil {
				return RunSummary{}, err
			}
		}
	}

	eng, err := engine.New(g, engine.Config{
		MuInternal: req.MuInternal,
		MuExternal: req.MuExternal,
		Policy:     policy,
		Seed:       req.Seed,
		Workers:    req.Workers,
	})
	if err != nil {
		return RunSummary{}, err
	}

	now := time.Now().UTC()
	runID := req.RunID
	if runID == "" {
		runID = fmt.Sprintf("%s-%d-%d", req.Policy, req.Seed, now.Unix())
	}

	history := make([]model.GenerationStats, 0, req.Generations+1)
	history = append(history, toGenerationStats(0, eng.Statistics()))

	executed, err := eng.Run(ctx, engine.LoopConfig{
		Generations:       req.Generations,
		StartPaused:       req.StartPaused,
		AutoContinueAfter: req.AutoContinueAfter,
		Control:           req.Control,
		OnGeneration: func(generation int, s grid.Statistics) {
			history = append(history, toGenerationStats(generation, s))
		},
	})
	if err != nil {
		return RunSummary{}, err
	}

	record := model.RunRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		ID:                runID,
		GridSize:          req.GridSize,
		MemeLength:        req.MemeLength,
		PoolCapacity:      req.PoolCapacity,
		MuInternal:        req.MuInternal,
		MuExternal:        req.MuExternal,
		ScaleFactor:       req.ScaleFactor,
		Policy:            req.Policy,
		Alpha:             req.Alpha,
		Beta:              req.Beta,
		ReferencePatterns: append([]string(nil), req.ReferencePatterns...),
		InjectReferences:  req.InjectReferences,
		Seed:              req.Seed,
		Generations:       executed,
		Workers:           req.Workers,
		CreatedAtUTC:      now.Format(time.RFC3339Nano),
	}
	if err := c.store.SaveRun(ctx, record); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveStatsHistory(ctx, runID, history); err != nil {
		return RunSummary{}, err
	}

	finalGrid := stats.DominantGridReport(eng.DominantPatterns(), g.Size())
	runDir, err := stats.WriteRunArtifacts(c.benchmarksDir, stats.RunArtifacts{
		Config:       record,
		StatsHistory: history,
		FinalGrid:    finalGrid,
	})
	if err != nil {
		return RunSummary{}, err
	}

	final := history[len(history)-1]
	if err := stats.AppendRunIndex(c.benchmarksDir, stats.RunIndexEntry{
		RunID:        runID,
		Policy:       req.Policy,
		GridSize:     req.GridSize,
		MemeLength:   req.MemeLength,
		PoolCapacity: req.PoolCapacity,
		Generations:  executed,
		Seed:         req.Seed,
		Workers:      req.Workers,
		Diversity:    final.Diversity,
		CreatedAtUTC: record.CreatedAtUTC,
	}); err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:        runID,
		ArtifactsDir: filepath.Clean(runDir),
		Generations:  executed,
		Final:        final,
		FinalGrid:    finalGrid,
	}, nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.benchmarksDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:        e.RunID,
			CreatedAtUTC: e.CreatedAtUTC,
			Policy:       e.Policy,
			GridSize:     e.GridSize,
			Generations:  e.Generations,
			Seed:         e.Seed,
			Diversity:    e.Diversity,
		})
	}
	return out, nil
}

// History returns the per-generation statistics of a run, preferring the
// store and falling back to the run's artifacts directory.
func (c *Client) History(ctx context.Context, req HistoryRequest) ([]model.GenerationStats, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}

	if err := c.store.Init(ctx); err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetStatsHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		history, err = stats.ReadStatsHistory(c.benchmarksDir, runID)
		if err != nil {
			return nil, fmt.Errorf("stats history not found for run id %s: %w", runID, err)
		}
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return history, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}

	exportedDir, err := stats.ExportRunArtifacts(c.benchmarksDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// Show returns the ASCII dominant-grid report written with a run's
// artifacts.
func (c *Client) Show(_ context.Context, req ShowRequest) (string, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return "", err
	}
	report, err := stats.ReadGridReport(c.benchmarksDir, runID)
	if err != nil {
		return "", fmt.Errorf("grid report not found for run id %s: %w", runID, err)
	}
	return report, nil
}

func (c *Client) resolveRunID(runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("run id or latest is required")
	}
	entries, err := stats.ListRunIndex(c.benchmarksDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func toGenerationStats(generation int, s grid.Statistics) model.GenerationStats {
	return model.GenerationStats{
		Generation:             generation,
		DominantComplexityMean: s.DominantComplexityMean,
		DominantComplexityStd:  s.DominantComplexityStd,
		DominantComplexityMin:  s.DominantComplexityMin,
		DominantComplexityMax:  s.DominantComplexityMax,
		DominantUtilityMean:    s.DominantUtilityMean,
		DominantUtilityStd:     s.DominantUtilityStd,
		DominantUtilityMin:     s.DominantUtilityMin,
		DominantUtilityMax:     s.DominantUtilityMax,
		DominantScoreMean:      s.DominantScoreMean,
		PoolComplexityMean:     s.PoolComplexityMean,
		PoolEntropyMean:        s.PoolEntropyMean,
		PoolUtilityMean:        s.PoolUtilityMean,
		UniquePatterns:         s.UniquePatterns,
		TotalPatterns:          s.TotalPatterns,
		Diversity:              s.Diversity,
	}
}
