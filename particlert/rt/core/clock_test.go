package core

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrameClock_UsesHostDelta(t *testing.T) {
	c := NewFrameClock(0.25)
	step, clamped := c.Tick(1000, 16)
	assert.False(t, clamped)
	assert.InDelta(t, 0.016, step, 1e-6)
	assert.Equal(t, 16*time.Millisecond, c.Dt)
	assert.Equal(t, time.Second, c.Time)
	assert.Equal(t, uint64(1), c.Frames)
}

func TestFrameClock_FallsBackToTimestamps(t *testing.T) {
	c := NewFrameClock(0.25)
	step, _ := c.Tick(500, 0)
	assert.Equal(t, float32(0), step, "first frame has no previous timestamp")

	step, clamped := c.Tick(550, 0)
	assert.False(t, clamped)
	assert.InDelta(t, 0.05, step, 1e-6)
}

func TestFrameClock_ClampsStalls(t *testing.T) {
	c := NewFrameClock(0.25)
	step, clamped := c.Tick(0, 5000)
	assert.True(t, clamped)
	assert.Equal(t, float32(0.25), step)

	step, clamped = c.Tick(10, math.NaN())
	assert.True(t, clamped)
	assert.Equal(t, float32(0), step)
	assert.Equal(t, uint64(2), c.Clamped)
}
