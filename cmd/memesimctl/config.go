package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	memeapi "memesim/pkg/memesim"
)

func loadRunRequestFromConfig(path string) (memeapi.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return memeapi.RunRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return memeapi.RunRequest{}, err
	}

	// Start from the stock parameters so a key left out of the file keeps
	// its default, while an explicit zero (e.g. "mu_internal": 0) sticks.
	req := memeapi.DefaultRunRequest()
	if v, ok := asString(raw["run_id"]); ok {
		req.RunID = v
	}
	if v, ok := asInt(raw["grid_size"]); ok {
		req.GridSize = v
	}
	if v, ok := asInt(raw["meme_length"]); ok {
		req.MemeLength = v
	}
	if v, ok := asInt(raw["pool_capacity"]); ok {
		req.PoolCapacity = v
	}
	if v, ok := asFloat64(raw["mu_internal"]); ok {
		req.MuInternal = v
	}
	if v, ok := asFloat64(raw["mu_external"]); ok {
		req.MuExternal = v
	}
	if v, ok := asFloat64(raw["scale_factor"]); ok {
		req.ScaleFactor = v
	}
	if v, ok := asString(raw["policy"]); ok {
		req.Policy = v
	}
	if v, ok := asFloat64(raw["alpha"]); ok {
		req.Alpha = v
	}
	if v, ok := asFloat64(raw["beta"]); ok {
		req.Beta = v
	}
	if v, ok := asStringSlice(raw["reference_patterns"]); ok {
		req.ReferencePatterns = v
	}
	if v, ok := asBool(raw["inject_references"]); ok {
		req.InjectReferences = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asInt(raw["generations"]); ok {
		req.Generations = v
	}
	if v, ok := asInt(raw["workers"]); ok {
		req.Workers = v
	}
	if v, ok := asBool(raw["start_paused"]); ok {
		req.StartPaused = v
	}
	if v, ok := asInt(raw["auto_continue_ms"]); ok {
		req.AutoContinueAfter = time.Duration(v) * time.Millisecond
	}

	return req, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

func asStringSlice(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func overrideFromFlags(req *memeapi.RunRequest, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "run-id":
			req.RunID = v.(string)
		case "grid-size":
			req.GridSize = v.(int)
		case "meme-length":
			req.MemeLength = v.(int)
		case "pool-capacity":
			req.PoolCapacity = v.(int)
		case "mu-internal":
			req.MuInternal = v.(float64)
		case "mu-external":
			req.MuExternal = v.(float64)
		case "scale-factor":
			req.ScaleFactor = v.(float64)
		case "policy":
			req.Policy = v.(string)
		case "alpha":
			req.Alpha = v.(float64)
		case "beta":
			req.Beta = v.(float64)
		case "references":
			req.ReferencePatterns = splitPatterns(v.(string))
		case "inject-references":
			req.InjectReferences = v.(bool)
		case "seed":
			req.Seed = v.(int64)
		case "gens":
			req.Generations = v.(int)
		case "workers":
			req.Workers = v.(int)
		case "start-paused":
			req.StartPaused = v.(bool)
		case "auto-continue-ms":
			req.AutoContinueAfter = time.Duration(v.(int)) * time.Millisecond
		}
	}
	return nil
}

func loadOrDefaultRunRequest(configPath string) (memeapi.RunRequest, error) {
	if configPath == "" {
		return memeapi.RunRequest{}, nil
	}
	req, err := loadRunRequestFromConfig(configPath)
	if err != nil {
		return memeapi.RunRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}
