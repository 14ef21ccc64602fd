package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRecord validates min, max, mean and last tracking.
func TestRecord(t *testing.T) {
	p := New()
	p.Record(StageInference, 30*time.Millisecond)
	p.Record(StageInference, 10*time.Millisecond)
	p.Record(StageInference, 20*time.Millisecond)

	got, ok := p.Get(StageInference)
	require.True(t, ok)
	assert.Equal(t, int64(3), got.Count)
	assert.Equal(t, 10*time.Millisecond, got.Min)
	assert.Equal(t, 30*time.Millisecond, got.Max)
	assert.Equal(t, 20*time.Millisecond, got.Mean())
	assert.Equal(t, 20*time.Millisecond, got.Last)

	_, ok = p.Get(StagePreprocess)
	assert.False(t, ok)
}

// TestStartOperation validates that the stop function records and returns the elapsed time.
func TestStartOperation(t *testing.T) {
	p := New()
	stop := p.StartOperation(StagePreprocess)
	time.Sleep(time.Millisecond)
	d := stop()

	assert.GreaterOrEqual(t, d, time.Millisecond)
	assert.Equal(t, map[Stage]time.Duration{StagePreprocess: d}, p.Last())

	p.Reset()
	assert.Empty(t, p.Last())
	assert.Equal(t, time.Duration(0), TimeTracker{}.Mean())
}
