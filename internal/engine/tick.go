// Package engine provides the tick-based growth loop and the simulation state
// it advances.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Default callback periods, in ticks.
const (
	DefaultCheckpointTicks = 300
	DefaultReportTicks     = 50
)

// Engine drives the simulation forward.
type Engine struct {
	Tick     uint64        // Current tick counter (monotonic, never resets)
	Interval time.Duration // Base tick interval at speed 1

	CheckpointTicks uint64
	ReportTicks     uint64

	// Callbacks for each tick layer, populated during setup.
	OnTick       func(tick uint64) // Every tick (one growth step)
	OnCheckpoint func(tick uint64) // Every CheckpointTicks
	OnReport     func(tick uint64) // Every ReportTicks

	speedMu sync.RWMutex
	speed   float64 // Multiplier: 1.0 = real-time, 0 = paused
	running atomic.Bool
	cancel  context.CancelFunc
	stopMu  sync.Mutex
}

// NewEngine creates a simulation engine with default settings.
func NewEngine(interval time.Duration) *Engine {
	return &Engine{
		Interval:        interval,
		CheckpointTicks: DefaultCheckpointTicks,
		ReportTicks:     DefaultReportTicks,
		speed:           1.0,
	}
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.speedMu.RLock()
	defer e.speedMu.RUnlock()
	return e.speed
}

// SetSpeed changes the speed multiplier. Zero pauses the loop.
func (e *Engine) SetSpeed(speed float64) {
	e.speedMu.Lock()
	e.speed = speed
	e.speedMu.Unlock()
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Run starts the simulation loop. Blocks until Stop is called or ctx is done.
func (e *Engine) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.stopMu.Lock()
	e.cancel = cancel
	e.stopMu.Unlock()
	defer cancel()

	e.running.Store(true)
	defer e.running.Store(false)
	slog.Info("growth engine started", "tick", e.Tick, "speed", e.Speed())

	for {
		speed := e.Speed()
		if speed <= 0 {
			// Paused: sleep briefly and check again.
			if !sleep(ctx, 100*time.Millisecond) {
				break
			}
			continue
		}

		start := time.Now()

		e.Step()

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		wait := time.Duration(0)
		if elapsed < target {
			wait = target - elapsed
		}
		if !sleep(ctx, wait) {
			break
		}
	}

	slog.Info("growth engine stopped", "tick", e.Tick)
}

// Stop halts the simulation loop.
func (e *Engine) Stop() {
	e.stopMu.Lock()
	defer e.stopMu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// Step advances the simulation by one tick.
func (e *Engine) Step() {
	e.Tick++

	if e.OnTick != nil {
		e.OnTick(e.Tick)
	}
	if e.ReportTicks > 0 && e.Tick%e.ReportTicks == 0 && e.OnReport != nil {
		e.OnReport(e.Tick)
	}
	if e.CheckpointTicks > 0 && e.Tick%e.CheckpointTicks == 0 && e.OnCheckpoint != nil {
		e.OnCheckpoint(e.Tick)
	}
}

// sleep waits for d or until ctx is done; it reports false on cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// SimTime returns a human-readable time string for a tick at the given interval.
func SimTime(tick uint64, interval time.Duration) string {
	elapsed := time.Duration(tick) * interval
	return fmt.Sprintf("tick %d (%s)", tick, elapsed.Round(time.Millisecond))
}
