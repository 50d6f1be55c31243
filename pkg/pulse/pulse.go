// Package pulse measures duty-cycle encoded digital signals.
//
// All measurements are blocking calls bounded by the meter timeout. A pulse
// that does not complete before the deadline yields a zero measurement; the
// meter never returns an error and never waits indefinitely.
package pulse

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

// DefaultTimeout bounds a single PulseIn call.
const DefaultTimeout = 60 * time.Millisecond

// Input is a source of digital level transitions. gpio.PinIn configured
// with gpio.BothEdges satisfies it.
type Input interface {
	Read() gpio.Level
	// WaitForEdge blocks until an edge is detected or timeout elapses.
	// It returns false on timeout.
	WaitForEdge(timeout time.Duration) bool
}

// Clock provides the time base used to time pulses.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option configures a Meter.
type Option func(*Meter)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(m *Meter) {
		m.clock = c
	}
}

// Meter times pulses on a single input.
type Meter struct {
	in      Input
	clock   Clock
	timeout time.Duration
}

// New creates a Meter. A non-positive timeout selects DefaultTimeout.
func New(in Input, timeout time.Duration, opts ...Option) *Meter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	m := &Meter{
		in:      in,
		clock:   systemClock{},
		timeout: timeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Timeout returns the per pulse deadline.
func (m *Meter) Timeout() time.Duration {
	return m.timeout
}

// PulseIn returns the duration of the next complete pulse at the given level.
// A pulse already in progress is skipped. Returns 0 if the pulse does not
// start and finish within the timeout. Worst case latency is one timeout.
func (m *Meter) PulseIn(level gpio.Level) time.Duration {
	deadline := m.clock.Now().Add(m.timeout)

	if !m.waitWhile(level, deadline) {
		return 0
	}
	if !m.waitWhile(!level, deadline) {
		return 0
	}
	start := m.clock.Now()
	if !m.waitWhile(level, deadline) {
		return 0
	}
	return m.clock.Now().Sub(start)
}

// Frequency measures one high and one low pulse and returns
// 1e6 / (highUs + lowUs). Returns 0 if either pulse times out.
// Worst case latency is two timeouts.
func (m *Meter) Frequency() float32 {
	high := m.PulseIn(gpio.High)
	if high == 0 {
		return 0
	}
	low := m.PulseIn(gpio.Low)
	if low == 0 {
		return 0
	}
	return 1e6 / microseconds(high+low)
}

// PulseWidth returns the width of the next high pulse in µs, 0 on timeout.
func (m *Meter) PulseWidth() float32 {
	return microseconds(m.PulseIn(gpio.High))
}

// waitWhile blocks while the input reads level. It returns false once the
// deadline passes.
func (m *Meter) waitWhile(level gpio.Level, deadline time.Time) bool {
	for m.in.Read() == level {
		remaining := deadline.Sub(m.clock.Now())
		if remaining <= 0 {
			return false
		}
		// Spurious edges are fine, the level is checked again.
		if !m.in.WaitForEdge(remaining) {
			return false
		}
	}
	return true
}

func microseconds(d time.Duration) float32 {
	return float32(d.Nanoseconds()) / 1e3
}
