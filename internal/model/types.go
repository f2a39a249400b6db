package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord is the persisted configuration of one simulation run.
type RunRecord struct {
	VersionedRecord
	ID                string   `json:"id"`
	GridSize          int      `json:"grid_size"`
	MemeLength        int      `json:"meme_length"`
	PoolCapacity      int      `json:"pool_capacity"`
	MuInternal        float64  `json:"mu_internal"`
	MuExternal        float64  `json:"mu_external"`
	ScaleFactor       float64  `json:"scale_factor"`
	Policy            string   `json:"policy"`
	Alpha             float64  `json:"alpha"`
	Beta              float64  `json:"beta"`
	ReferencePatterns []string `json:"reference_patterns,omitempty"`
	InjectReferences  bool     `json:"inject_references"`
	Seed              int64    `json:"seed"`
	Generations       int      `json:"generations"`
	Workers           int      `json:"workers"`
	CreatedAtUTC      string   `json:"created_at_utc"`
}

// GenerationStats is one row of the aggregate-statistics mapping the
// core exposes after each step. Generation 0 describes the initial grid.
type GenerationStats struct {
	Generation int `json:"generation"`

	DominantComplexityMean float64 `json:"dominant_complexity_mean"`
	DominantComplexityStd  float64 `json:"dominant_complexity_std"`
	DominantComplexityMin  float64 `json:"dominant_complexity_min"`
	DominantComplexityMax  float64 `json:"dominant_complexity_max"`

	DominantUtilityMean float64 `json:"dominant_utility_mean"`
	DominantUtilityStd  float64 `json:"dominant_utility_std"`
	DominantUtilityMin  float64 `json:"dominant_utility_min"`
	DominantUtilityMax  float64 `json:"dominant_utility_max"`
	DominantScoreMean   float64 `json:"dominant_score_mean"`

	PoolComplexityMean float64 `json:"pool_complexity_mean"`
	PoolEntropyMean    float64 `json:"pool_entropy_mean"`
	PoolUtilityMean    float64 `json:"pool_utility_mean"`

	UniquePatterns int     `json:"unique_patterns"`
	TotalPatterns  int     `json:"total_patterns"`
	Diversity      float64 `json:"diversity"`
}
