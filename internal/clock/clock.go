// Package clock holds the simulator's monotonic simulated time (spec §4.1).
package clock

import "time"

// Clock advances simulated time by fixed ticks, optionally pacing against
// wall time for interactive/visual runs.
type Clock struct {
	currentTimeS   float64
	tickCount      int
	tickIntervalS  float64
	realtimeFactor float64
}

// New builds a Clock starting at t=0.
func New(tickIntervalS, realtimeFactor float64) *Clock {
	return &Clock{
		tickIntervalS:  tickIntervalS,
		realtimeFactor: realtimeFactor,
	}
}

// Tick advances simulated time by one tick interval, sleeping
// tickIntervalS*realtimeFactor wall seconds if realtimeFactor > 0.
func (c *Clock) Tick() {
	c.currentTimeS += c.tickIntervalS
	c.tickCount++
	if c.realtimeFactor > 0 {
		time.Sleep(time.Duration(c.tickIntervalS * c.realtimeFactor * float64(time.Second)))
	}
}

// Reset zeroes the clock's time and tick count.
func (c *Clock) Reset() {
	c.currentTimeS = 0
	c.tickCount = 0
}

// Now returns the current simulated time in seconds.
func (c *Clock) Now() float64 { return c.currentTimeS }

// TickCount returns the number of ticks advanced since the last reset.
func (c *Clock) TickCount() int { return c.tickCount }

// TickIntervalS returns the configured simulated seconds per tick.
func (c *Clock) TickIntervalS() float64 { return c.tickIntervalS }

// HourOfDay returns the hour-of-day (0-24) implied by the current time,
// used by the thermal ambient curve and the carbon diurnal curves.
func (c *Clock) HourOfDay() float64 {
	secondsInDay := 86400.0
	t := c.currentTimeS
	t -= secondsInDay * float64(int(t/secondsInDay))
	return t / 3600.0
}
