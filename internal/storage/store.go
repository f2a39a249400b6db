package storage

import (
	"context"

	"memesim/internal/model"
)

// Store persists the external reporter layer's records: run
// configurations and per-generation statistics history. Grid state is
// never stored.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRunIDs(ctx context.Context) ([]string, error)
	SaveStatsHistory(ctx context.Context, runID string, history []model.GenerationStats) error
	GetStatsHistory(ctx context.Context, runID string) ([]model.GenerationStats, bool, error)
}

// Resetter is implemented by stores that can drop all persisted state.
type Resetter interface {
	Reset(ctx context.Context) error
}
