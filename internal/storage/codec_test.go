package storage

import (
	"errors"
	"testing"

	"memesim/internal/model"
)

func TestRunRecordCodecRoundTrip(t *testing.T) {
	input := testRunRecord("run-codec")
	input.ReferencePatterns = []string{"0101", "1100"}

	data, err := EncodeRun(input)
	if err != nil {
		t.Fatalf("encode run: %v", err)
	}
	output, err := DecodeRun(data)
	if err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if output.ID != input.ID || output.MemeLength != input.MemeLength {
		t.Fatalf("unexpected run: %+v", output)
	}
	if len(output.ReferencePatterns) != 2 || output.ReferencePatterns[1] != "1100" {
		t.Fatalf("unexpected reference patterns: %+v", output.ReferencePatterns)
	}
}

func TestDecodeRunRejectsSchemaMismatch(t *testing.T) {
	input := testRunRecord("run-bad")
	input.SchemaVersion = CurrentSchemaVersion + 1

	data, err := EncodeRun(input)
	if err != nil {
		t.Fatalf("encode run: %v", err)
	}
	if _, err := DecodeRun(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
}

func TestDecodeRunRejectsCodecMismatch(t *testing.T) {
	input := testRunRecord("run-bad")
	input.CodecVersion = CurrentCodecVersion + 1

	data, err := EncodeRun(input)
	if err != nil {
		t.Fatalf("encode run: %v", err)
	}
	if _, err := DecodeRun(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
}

func TestStatsHistoryCodecRoundTrip(t *testing.T) {
	input := []model.GenerationStats{
		{Generation: 0, DominantComplexityMean: 0.9, UniquePatterns: 12, TotalPatterns: 45},
		{Generation: 1, DominantComplexityMean: 0.8, UniquePatterns: 10, TotalPatterns: 45},
	}

	data, err := EncodeStatsHistory(input)
	if err != nil {
		t.Fatalf("encode history: %v", err)
	}
	output, err := DecodeStatsHistory(data)
	if err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(output) != 2 || output[1].UniquePatterns != 10 {
		t.Fatalf("unexpected history: %+v", output)
	}
}
