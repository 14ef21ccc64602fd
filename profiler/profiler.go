// Package profiler records per-stage timings of classification calls.
package profiler

import (
	"sync"
	"time"
)

// Stage names one step of a classification call.
type Stage string

const (
	// StagePreprocess covers crop, resample and normalization.
	StagePreprocess Stage = "preprocess"
	// StageInference covers the engine run.
	StageInference Stage = "inference"
	// StagePostprocess covers score normalization, labeling and filtering.
	StagePostprocess Stage = "postprocess"
)

// Stages lists the stages in call order.
var Stages = []Stage{StagePreprocess, StageInference, StagePostprocess}

// TimeTracker tracks operation timing statistics.
type TimeTracker struct {
	Last  time.Duration
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
	Count int64
}

// Mean returns the average duration, or zero before the first sample.
func (t TimeTracker) Mean() time.Duration {
	if t.Count == 0 {
		return 0
	}
	return t.Total / time.Duration(t.Count)
}

// Profiler accumulates timings per stage. Safe for concurrent use.
type Profiler struct {
	mu     sync.RWMutex
	stages map[Stage]*TimeTracker
}

// New creates an empty profiler.
func New() *Profiler {
	return &Profiler{stages: make(map[Stage]*TimeTracker)}
}

// StartOperation begins timing a stage.
//
// Arguments:
// - stage: The stage to track
//
// Returns:
// - A function to call when the stage completes; it returns the measured duration
func (p *Profiler) StartOperation(stage Stage) func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		d := time.Since(start)
		p.Record(stage, d)
		return d
	}
}

// Record adds one sample for a stage.
func (p *Profiler) Record(stage Stage, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.stages[stage]
	if !ok {
		t = &TimeTracker{Min: d, Max: d}
		p.stages[stage] = t
	}
	t.Last = d
	t.Total += d
	t.Count++
	if d < t.Min {
		t.Min = d
	}
	if d > t.Max {
		t.Max = d
	}
}

// Get returns a copy of the statistics for a stage.
func (p *Profiler) Get(stage Stage) (TimeTracker, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	t, ok := p.stages[stage]
	if !ok {
		return TimeTracker{}, false
	}
	return *t, true
}

// Last returns the most recent duration of every recorded stage.
func (p *Profiler) Last() map[Stage]time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[Stage]time.Duration, len(p.stages))
	for s, t := range p.stages {
		out[s] = t.Last
	}
	return out
}

// Reset drops every sample.
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stages = make(map[Stage]*TimeTracker)
}
