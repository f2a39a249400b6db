package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"memesim/internal/grid"
)

func TestRunExecutesRequestedGenerations(t *testing.T) {
	policy := fidelityPolicy(t, 0.5, 8)
	e := newEngine(t, 3, policy, 42, 7, 1)

	var seen []int
	executed, err := e.Run(context.Background(), LoopConfig{
		Generations: 5,
		OnGeneration: func(generation int, _ grid.Statistics) {
			seen = append(seen, generation)
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if executed != 5 || e.Generation() != 5 {
		t.Fatalf("executed = %d, generation = %d, want 5", executed, e.Generation())
	}
	if len(seen) != 5 || seen[0] != 1 || seen[4] != 5 {
		t.Fatalf("unexpected callback generations: %v", seen)
	}
}

func TestRunRejectsNegativeGenerations(t *testing.T) {
	policy := fidelityPolicy(t, 0.5, 8)
	e := newEngine(t, 3, policy, 42, 7, 1)
	if _, err := e.Run(context.Background(), LoopConfig{Generations: -1}); err == nil {
		t.Fatal("expected error for negative generations")
	}
}

func TestRunRejectsUnresumablePause(t *testing.T) {
	policy := fidelityPolicy(t, 0.5, 8)
	e := newEngine(t, 3, policy, 42, 7, 1)
	if _, err := e.Run(context.Background(), LoopConfig{
		Generations: 5,
		StartPaused: true,
	}); err == nil {
		t.Fatal("expected error for a pause with no control channel and no auto-continue")
	}
}

func TestRunStopsOnCommand(t *testing.T) {
	policy := fidelityPolicy(t, 0.5, 8)
	e := newEngine(t, 3, policy, 42, 7, 1)

	control := make(chan Command, 1)
	control <- CommandStop
	executed, err := e.Run(context.Background(), LoopConfig{Generations: 100, Control: control})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if executed != 0 {
		t.Fatalf("executed = %d, want 0 after immediate stop", executed)
	}
}

func TestRunPauseThenContinue(t *testing.T) {
	policy := fidelityPolicy(t, 0.5, 8)
	e := newEngine(t, 3, policy, 42, 7, 1)

	control := make(chan Command, 2)
	control <- CommandPause
	control <- CommandContinue
	executed, err := e.Run(context.Background(), LoopConfig{Generations: 3, Control: control})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if executed != 3 {
		t.Fatalf("executed = %d, want 3 after pause and continue", executed)
	}
}

func TestRunStartPausedAutoContinues(t *testing.T) {
	policy := fidelityPolicy(t, 0.5, 8)
	e := newEngine(t, 3, policy, 42, 7, 1)

	executed, err := e.Run(context.Background(), LoopConfig{
		Generations:       2,
		StartPaused:       true,
		AutoContinueAfter: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if executed != 2 {
		t.Fatalf("executed = %d, want 2 after auto-continue", executed)
	}
}

func TestRunStartPausedStopsWhenControlCloses(t *testing.T) {
	policy := fidelityPolicy(t, 0.5, 8)
	e := newEngine(t, 3, policy, 42, 7, 1)

	control := make(chan Command)
	close(control)
	executed, err := e.Run(context.Background(), LoopConfig{
		Generations: 10,
		StartPaused: true,
		Control:     control,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if executed != 0 {
		t.Fatalf("executed = %d, want 0 when nothing can resume the loop", executed)
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	policy := fidelityPolicy(t, 0.5, 8)
	e := newEngine(t, 3, policy, 42, 7, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	executed, err := e.Run(ctx, LoopConfig{Generations: 10})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if executed != 0 {
		t.Fatalf("executed = %d, want 0 after pre-cancelled context", executed)
	}
}
