// Package pulsetest provides a simulated clock and square wave for testing
// code that times digital pulses.
package pulsetest

import (
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Clock is a manually advanced clock. Waiting on a Wave advances it.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock starting at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Now returns the simulated time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Sleep advances the clock instead of sleeping.
func (c *Clock) Sleep(d time.Duration) {
	c.Advance(d)
}

// Wave is a square wave sampled against a simulated Clock.
// With High or Low set to zero the line is stuck at Idle.
type Wave struct {
	mu    sync.Mutex
	clock *Clock
	epoch time.Time
	high  time.Duration
	low   time.Duration
	idle  gpio.Level
	edges int
}

// NewWave creates a wave with the given high and low durations.
func NewWave(clock *Clock, high, low time.Duration) *Wave {
	return &Wave{
		clock: clock,
		epoch: clock.Now(),
		high:  high,
		low:   low,
	}
}

// SetPeriod changes the wave shape. The new wave starts at the current
// instant at the beginning of a high segment.
func (w *Wave) SetPeriod(high, low time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.high = high
	w.low = low
	w.epoch = w.clock.Now()
}

// SetHz sets a 50% duty cycle wave at the given frequency. Zero stops it.
func (w *Wave) SetHz(hz float64) {
	if hz <= 0 {
		w.SetPeriod(0, 0)
		return
	}
	half := time.Duration(float64(time.Second) / hz / 2)
	w.SetPeriod(half, half)
}

// Stick stops the wave at the given level.
func (w *Wave) Stick(level gpio.Level) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.high = 0
	w.low = 0
	w.idle = level
}

// Edges returns the number of edges delivered by WaitForEdge.
func (w *Wave) Edges() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.edges
}

// Read returns the level at the current simulated time.
func (w *Wave) Read() gpio.Level {
	w.mu.Lock()
	defer w.mu.Unlock()
	level, _ := w.at(w.clock.Now())
	return level
}

// WaitForEdge advances the clock to the next edge if it occurs within
// timeout, otherwise by timeout.
func (w *Wave) WaitForEdge(timeout time.Duration) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clock.Now()
	_, next := w.at(now)
	if next.IsZero() || next.Sub(now) > timeout {
		w.clock.Advance(timeout)
		return false
	}
	w.clock.Advance(next.Sub(now))
	w.edges++
	return true
}

// at returns the level at t and the time of the following edge. The edge
// time is zero when the line is stuck.
func (w *Wave) at(t time.Time) (gpio.Level, time.Time) {
	period := w.high + w.low
	if w.high <= 0 || w.low <= 0 {
		return w.idle, time.Time{}
	}
	pos := t.Sub(w.epoch) % period
	if pos < w.high {
		return gpio.High, t.Add(w.high - pos)
	}
	return gpio.Low, t.Add(period - pos)
}
