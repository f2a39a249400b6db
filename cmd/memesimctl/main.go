package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"memesim/internal/storage"
	memeapi "memesim/pkg/memesim"
)

const (
	benchmarksDir = "benchmarks"
	exportsDir    = "exports"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "history":
		return runHistory(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: memesimctl <init|reset|run|runs|history|show|export> [flags]", msg)
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "memesim.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storage.NewStore(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	if err := store.Init(ctx); err != nil {
		return err
	}

	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "memesim.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storage.NewStore(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	resetter, ok := store.(storage.Resetter)
	if !ok {
		return fmt.Errorf("store %s does not support reset", *storeKind)
	}
	if err := resetter.Reset(ctx); err != nil {
		return err
	}

	fmt.Printf("reset store=%s\n", *storeKind)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config JSON path")
	runID := fs.String("run-id", "", "explicit run id (optional)")
	gridSize := fs.Int("grid-size", 30, "toroidal grid side length")
	memeLength := fs.Int("meme-length", 16, "meme pattern length in bits")
	poolCapacity := fs.Int("pool-capacity", 5, "meme pool capacity per agent")
	muInternal := fs.Float64("mu-internal", 0.1, "base internal mutation rate")
	muExternal := fs.Float64("mu-external", 0.5, "base external mutation rate")
	scaleFactor := fs.Float64("scale-factor", 0.5, "mutation scaling factor k")
	policy := fs.String("policy", "utility", "selection policy: fidelity|utility")
	alpha := fs.Float64("alpha", 0.5, "utility weight in the combined score")
	beta := fs.Float64("beta", 0.5, "complexity weight in the combined score")
	references := fs.String("references", "", "comma-separated reference bit patterns (utility policy)")
	injectReferences := fs.Bool("inject-references", false, "seed reference patterns into random cells before stepping")
	seed := fs.Int64("seed", 42, "rng seed")
	generations := fs.Int("gens", 100, "generation count")
	workers := fs.Int("workers", 1, "worker count (1 preserves the serial draw order)")
	startPaused := fs.Bool("start-paused", false, "start the run loop paused (requires -auto-continue-ms)")
	autoContinueMS := fs.Int("auto-continue-ms", 0, "resume a start-paused run after N milliseconds")
	every := fs.Int("every", 10, "print statistics every N generations (0 prints final only)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "memesim.db", "sqlite database path")
	showGrid := fs.Bool("show-grid", false, "print the final dominant-grid report")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		req = memeapi.RunRequest{
			RunID:             *runID,
			GridSize:          *gridSize,
			MemeLength:        *memeLength,
			PoolCapacity:      *poolCapacity,
			MuInternal:        *muInternal,
			MuExternal:        *muExternal,
			ScaleFactor:       *scaleFactor,
			Policy:            *policy,
			Alpha:             *alpha,
			Beta:              *beta,
			ReferencePatterns: splitPatterns(*references),
			InjectReferences:  *injectReferences,
			Seed:              *seed,
			Generations:       *generations,
			Workers:           *workers,
			StartPaused:       *startPaused,
			AutoContinueAfter: time.Duration(*autoContinueMS) * time.Millisecond,
		}
	} else {
		err := overrideFromFlags(&req, setFlags, map[string]any{
			"run-id":            *runID,
			"grid-size":         *gridSize,
			"meme-length":       *memeLength,
			"pool-capacity":     *poolCapacity,
			"mu-internal":       *muInternal,
			"mu-external":       *muExternal,
			"scale-factor":      *scaleFactor,
			"policy":            *policy,
			"alpha":             *alpha,
			"beta":              *beta,
			"references":        *references,
			"inject-references": *injectReferences,
			"seed":              *seed,
			"gens":              *generations,
			"workers":           *workers,
			"start-paused":      *startPaused,
			"auto-continue-ms":  *autoContinueMS,
		})
		if err != nil {
			return err
		}
	}

	client, err := memeapi.New(memeapi.Options{
		StoreKind:     *storeKind,
		DBPath:        *dbPath,
		BenchmarksDir: benchmarksDir,
		ExportsDir:    exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runSummary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("run completed run_id=%s policy=%s grid=%d gens=%d seed=%d\n",
		runSummary.RunID, req.Policy, req.GridSize, runSummary.Generations, req.Seed)

	history, err := client.History(ctx, memeapi.HistoryRequest{RunID: runSummary.RunID})
	if err != nil {
		return err
	}
	for _, row := range history {
		if *every <= 0 || row.Generation%*every != 0 {
			continue
		}
		fmt.Printf("generation=%d dominant_complexity_mean=%.6f dominant_utility_mean=%.6f diversity=%.6f\n",
			row.Generation, row.DominantComplexityMean, row.DominantUtilityMean, row.Diversity)
	}
	fmt.Printf("final generation=%d unique_patterns=%d total_patterns=%d diversity=%.6f\n",
		runSummary.Final.Generation,
		runSummary.Final.UniquePatterns,
		runSummary.Final.TotalPatterns,
		runSummary.Final.Diversity,
	)
	if *showGrid {
		fmt.Print(runSummary.FinalGrid)
	}
	fmt.Printf("artifacts_dir=%s\n", runSummary.ArtifactsDir)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := memeapi.New(memeapi.Options{BenchmarksDir: benchmarksDir, ExportsDir: exportsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Runs(ctx, memeapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	for _, item := range items {
		fmt.Printf("run_id=%s created_at=%s policy=%s grid=%d gens=%d seed=%d diversity=%.6f\n",
			item.RunID,
			item.CreatedAtUTC,
			item.Policy,
			item.GridSize,
			item.Generations,
			item.Seed,
			item.Diversity,
		)
	}
	return nil
}

func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show statistics for the most recent run from run index")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit statistics history as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "memesim.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := memeapi.New(memeapi.Options{
		StoreKind:     *storeKind,
		DBPath:        *dbPath,
		BenchmarksDir: benchmarksDir,
		ExportsDir:    exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	limitValue := *limit
	if limitValue < 0 {
		limitValue = 0
	}
	history, err := client.History(ctx, memeapi.HistoryRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  limitValue,
	})
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no statistics history")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(history)
	}

	for _, row := range history {
		fmt.Printf("generation=%d dominant_complexity_mean=%.6f dominant_complexity_std=%.6f dominant_utility_mean=%.6f dominant_score_mean=%.6f pool_entropy_mean=%.6f unique=%d total=%d diversity=%.6f\n",
			row.Generation,
			row.DominantComplexityMean,
			row.DominantComplexityStd,
			row.DominantUtilityMean,
			row.DominantScoreMean,
			row.PoolEntropyMean,
			row.UniquePatterns,
			row.TotalPatterns,
			row.Diversity,
		)
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show the most recent run from run index")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := memeapi.New(memeapi.Options{BenchmarksDir: benchmarksDir, ExportsDir: exportsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	report, err := client.Show(ctx, memeapi.ShowRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	fmt.Print(report)
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", exportsDir, "export output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}

	client, err := memeapi.New(memeapi.Options{BenchmarksDir: benchmarksDir, ExportsDir: exportsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Export(ctx, memeapi.ExportRequest{
		RunID:  *runID,
		Latest: *latest,
		OutDir: *outDir,
	})
	if err != nil {
		return err
	}

	fmt.Printf("exported run_id=%s to=%s\n", summary.RunID, summary.Directory)
	return nil
}

func splitPatterns(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
