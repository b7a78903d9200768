package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickMeasuresFPS(t *testing.T) {
	p := NewProfiler()
	start := time.Unix(100, 0)
	clock := start
	p.windowStart = start
	p.now = func() time.Time { return clock }

	for range 29 {
		clock = clock.Add(time.Second / 60)
		assert.False(t, p.Tick())
	}
	assert.Zero(t, p.FPS(), "no interval has closed yet")

	clock = start.Add(time.Second)
	assert.True(t, p.Tick())
	assert.InDelta(t, 30.0, p.FPS(), 1e-9)
}

func TestTickLogsWhenEnabled(t *testing.T) {
	p := NewProfiler()
	p.SetLogging(true)
	clock := time.Unix(0, 0)
	p.windowStart = clock
	p.now = func() time.Time { return clock }

	clock = clock.Add(2 * time.Second)
	assert.True(t, p.Tick())
	assert.InDelta(t, 0.5, p.FPS(), 1e-9)
}

func TestPausesSince(t *testing.T) {
	p := NewProfiler()
	last, longest := p.pausesSince(0)
	assert.Zero(t, last)
	assert.Zero(t, longest)

	p.mem.NumGC = 3
	p.mem.PauseNs[0] = 500
	p.mem.PauseNs[1] = 9000
	p.mem.PauseNs[2] = 2000

	last, longest = p.pausesSince(0)
	assert.Equal(t, 2*time.Microsecond, last)
	assert.Equal(t, 9*time.Microsecond, longest)

	_, longest = p.pausesSince(2)
	assert.Equal(t, 2*time.Microsecond, longest)

	p.mem.NumGC = pauseRing + 10
	p.mem.PauseNs[9%pauseRing] = 1
	_, longest = p.pausesSince(0)
	assert.Equal(t, 9*time.Microsecond, longest, "collections older than the ring are skipped")
}
