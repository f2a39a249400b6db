package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"memesim/internal/grid"
)

// Command steers a running loop between steps. A step is never
// interrupted mid-flight; commands take effect at step boundaries, so
// pausing or stopping can never corrupt grid state.
type Command string

const (
	CommandPause    Command = "pause"
	CommandContinue Command = "continue"
	CommandStop     Command = "stop"
)

// LoopConfig drives Run. OnGeneration, when set, is called after every
// completed step with the new generation number and its statistics.
// StartPaused requires a resume path: a Control channel or a positive
// AutoContinueAfter.
type LoopConfig struct {
	Generations       int
	StartPaused       bool
	AutoContinueAfter time.Duration
	Control           <-chan Command
	OnGeneration      func(generation int, stats grid.Statistics)
}

// Run executes up to cfg.Generations steps, honoring pause/continue/stop
// commands and context cancellation between steps. It returns the number
// of steps executed.
func (e *Engine) Run(ctx context.Context, cfg LoopConfig) (int, error) {
	if cfg.Generations < 0 {
		return 0, fmt.Errorf("generations must be >= 0, got %d", cfg.Generations)
	}
	if cfg.StartPaused && cfg.Control == nil && cfg.AutoContinueAfter <= 0 {
		return 0, errors.New("starting paused needs a control channel or an auto-continue interval")
	}

	paused := cfg.StartPaused
	executed := 0
	for executed < cfg.Generations {
		if err := ctx.Err(); err != nil {
			return executed, err
		}

		if paused {
			resumed, err := e.awaitResume(ctx, cfg)
			if err != nil {
				return executed, err
			}
			if !resumed {
				return executed, nil
			}
			paused = false
			continue
		}

		select {
		case cmd, ok := <-cfg.Control:
			if !ok {
				cfg.Control = nil
				break
			}
			switch cmd {
			case CommandStop:
				return executed, nil
			case CommandPause:
				paused = true
				continue
			case CommandContinue:
			}
		default:
		}

		if err := e.Step(); err != nil {
			return executed, err
		}
		executed++
		if cfg.OnGeneration != nil {
			cfg.OnGeneration(e.Generation(), e.Statistics())
		}
	}
	return executed, nil
}

// awaitResume blocks until a continue command, the auto-continue
// deadline, context cancellation, or a stop. It reports whether the loop
// should keep stepping.
func (e *Engine) awaitResume(ctx context.Context, cfg LoopConfig) (bool, error) {
	var autoContinue <-chan time.Time
	if cfg.AutoContinueAfter > 0 {
		timer := time.NewTimer(cfg.AutoContinueAfter)
		defer timer.Stop()
		autoContinue = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-autoContinue:
			return true, nil
		case cmd, ok := <-cfg.Control:
			if !ok {
				// Control closed while paused: nothing can ever resume us.
				return false, nil
			}
			switch cmd {
			case CommandContinue:
				return true, nil
			case CommandStop:
				return false, nil
			case CommandPause:
			}
		}
	}
}
