package core

import (
	"time"
)

// FrameClock tracks host frame timing. The host supplies timestamps in
// milliseconds; the clock turns them into a clamped simulation step in seconds.
type FrameClock struct {
	Time     time.Duration // host timestamp of the current frame
	Dt       time.Duration // raw host delta
	Step     float32       // clamped step fed to the update pass, seconds
	MaxStep  float32
	Frames   uint64
	Clamped  uint64
	lastTime time.Duration
}

func NewFrameClock(maxStep float32) *FrameClock {
	return &FrameClock{MaxStep: maxStep}
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// Tick records one frame and returns the clamped step. A non-positive deltaMs
// falls back to the distance from the previous timestamp.
// The second result reports whether the step had to be clamped.
func (c *FrameClock) Tick(timestampMs, deltaMs float64) (float32, bool) {
	now := msToDuration(timestampMs)
	if deltaMs <= 0 && c.Frames > 0 {
		deltaMs = float64(now-c.lastTime) / float64(time.Millisecond)
	}
	c.Time = now
	c.Dt = msToDuration(deltaMs)
	c.lastTime = now
	c.Frames++

	step, clamped := ClampDelta(float32(deltaMs/1000.0), c.MaxStep)
	if clamped {
		c.Clamped++
	}
	c.Step = step
	return step, clamped
}
