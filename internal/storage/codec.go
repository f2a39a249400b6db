package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"memesim/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeRun(r model.RunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeStatsHistory(history []model.GenerationStats) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeStatsHistory(data []byte) ([]model.GenerationStats, error) {
	var history []model.GenerationStats
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion {
		return fmt.Errorf("%w: schema %d, want %d", ErrVersionMismatch, v.SchemaVersion, CurrentSchemaVersion)
	}
	if v.CodecVersion != CurrentCodecVersion {
		return fmt.Errorf("%w: codec %d, want %d", ErrVersionMismatch, v.CodecVersion, CurrentCodecVersion)
	}
	return nil
}
