// Package stats writes run artifacts: per-run directories holding the
// run configuration, the per-generation statistics history as JSON and
// CSV, and an ASCII report of the final dominant grid, plus an index of
// all runs. This is the reporter layer; the core performs no I/O.
package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"memesim/internal/model"
)

const runIndexFile = "run_index.json"

// RunArtifacts is everything persisted for one run.
type RunArtifacts struct {
	Config       model.RunRecord         `json:"config"`
	StatsHistory []model.GenerationStats `json:"stats_history"`
	FinalGrid    string                  `json:"-"`
}

// RunIndexEntry is one row of the cross-run index, newest first.
type RunIndexEntry struct {
	RunID        string  `json:"run_id"`
	Policy       string  `json:"policy"`
	GridSize     int     `json:"grid_size"`
	MemeLength   int     `json:"meme_length"`
	PoolCapacity int     `json:"pool_capacity"`
	Generations  int     `json:"generations"`
	Seed         int64   `json:"seed"`
	Workers      int     `json:"workers"`
	Diversity    float64 `json:"diversity"`
	CreatedAtUTC string  `json:"created_at_utc"`
}

// WriteRunArtifacts creates baseDir/<runID> and writes config.json,
// stats.json, stats.csv and grid.txt. It returns the run directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.ID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "stats.json"), artifacts.StatsHistory); err != nil {
		return "", err
	}
	if err := writeStatsCSV(filepath.Join(runDir, "stats.csv"), artifacts.StatsHistory); err != nil {
		return "", err
	}
	if artifacts.FinalGrid != "" {
		if err := os.WriteFile(filepath.Join(runDir, "grid.txt"), []byte(artifacts.FinalGrid), 0o644); err != nil {
			return "", err
		}
	}

	return runDir, nil
}

// ReadStatsHistory loads baseDir/<runID>/stats.json.
func ReadStatsHistory(baseDir, runID string) ([]model.GenerationStats, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runID, "stats.json"))
	if err != nil {
		return nil, err
	}
	var history []model.GenerationStats
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// ReadGridReport loads baseDir/<runID>/grid.txt.
func ReadGridReport(baseDir, runID string) (string, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runID, "grid.txt"))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// ExportRunArtifacts copies a run directory into outDir and returns the
// destination.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	files := []string{"config.json", "stats.json", "stats.csv"}
	for _, file := range files {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	gridPath := filepath.Join(src, "grid.txt")
	if _, err := os.Stat(gridPath); err == nil {
		if err := copyFile(gridPath, filepath.Join(dst, "grid.txt")); err != nil {
			return "", err
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	return dst, nil
}

var statsCSVHeader = []string{
	"generation",
	"dominant_complexity_mean",
	"dominant_complexity_std",
	"dominant_complexity_min",
	"dominant_complexity_max",
	"dominant_utility_mean",
	"dominant_utility_std",
	"dominant_utility_min",
	"dominant_utility_max",
	"dominant_score_mean",
	"pool_complexity_mean",
	"pool_entropy_mean",
	"pool_utility_mean",
	"unique_patterns",
	"total_patterns",
	"diversity",
}

func writeStatsCSV(path string, history []model.GenerationStats) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(statsCSVHeader); err != nil {
		return err
	}
	for _, row := range history {
		record := []string{
			strconv.Itoa(row.Generation),
			formatFloat(row.DominantComplexityMean),
			formatFloat(row.DominantComplexityStd),
			formatFloat(row.DominantComplexityMin),
			formatFloat(row.DominantComplexityMax),
			formatFloat(row.DominantUtilityMean),
			formatFloat(row.DominantUtilityStd),
			formatFloat(row.DominantUtilityMin),
			formatFloat(row.DominantUtilityMax),
			formatFloat(row.DominantScoreMean),
			formatFloat(row.PoolComplexityMean),
			formatFloat(row.PoolEntropyMean),
			formatFloat(row.PoolUtilityMean),
			strconv.Itoa(row.UniquePatterns),
			strconv.Itoa(row.TotalPatterns),
			formatFloat(row.Diversity),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return file.Sync()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
