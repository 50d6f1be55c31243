// Package trend keeps a time window of received readings and extracts
// per-channel series for plotting.
package trend

import (
	"math"
	"sync"
	"time"

	"github.com/itohio/aquaprobe/pkg/link"
	"github.com/itohio/aquaprobe/pkg/probe"
)

// Channel is a plottable quantity of a reading.
type Channel int

const (
	Temperature Channel = iota
	PH
	Level
	ColorHz
	ColorR
	ColorG
	ColorB
)

// Channels lists every channel in display order.
var Channels = []Channel{Temperature, PH, Level, ColorHz, ColorR, ColorG, ColorB}

func (c Channel) String() string {
	switch c {
	case Temperature:
		return "Temperature"
	case PH:
		return "pH"
	case Level:
		return "Level"
	case ColorHz:
		return "Clear"
	case ColorR:
		return "Red"
	case ColorG:
		return "Green"
	case ColorB:
		return "Blue"
	default:
		return "unknown"
	}
}

// Unit returns the unit suffix of the channel values.
func (c Channel) Unit() string {
	switch c {
	case Temperature:
		return "°C"
	case ColorHz:
		return "Hz"
	default:
		return ""
	}
}

// ParseChannel finds a channel by its String name.
func ParseChannel(s string) (Channel, bool) {
	for _, c := range Channels {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// Value extracts the channel value from r. It reports false when the
// channel faulted in r.
func (c Channel) Value(r probe.Reading) (float64, bool) {
	switch c {
	case Temperature:
		return float64(r.TemperatureC), !r.Flags.Has(probe.FlagTemperatureInvalid)
	case PH:
		return float64(r.PH), !math.IsNaN(float64(r.PH))
	case Level:
		return float64(r.Level()), true
	case ColorHz:
		return float64(r.ColorHz), true
	case ColorR:
		return float64(r.ColorR), true
	case ColorG:
		return float64(r.ColorG), true
	case ColorB:
		return float64(r.ColorB), true
	}
	return 0, false
}

// Point is one value of a series.
type Point struct {
	Timestamp time.Time
	Value     float64
}

// Series extracts the channel from samples into dst, skipping faulted
// values. dst is reused when it has enough capacity.
func Series(dst []Point, samples []link.Sample, c Channel) []Point {
	if cap(dst) >= len(samples) {
		dst = dst[:0]
	} else {
		dst = make([]Point, 0, len(samples))
	}
	for _, s := range samples {
		if v, ok := c.Value(s.Reading); ok {
			dst = append(dst, Point{Timestamp: s.Timestamp, Value: v})
		}
	}
	return dst
}

// Stats summarizes a series.
type Stats struct {
	Count int
	Min   float64
	Max   float64
	Mean  float64
	Last  float64
}

// Summarize computes statistics of points. An empty series yields zero Stats.
func Summarize(points []Point) Stats {
	if len(points) == 0 {
		return Stats{}
	}
	s := Stats{
		Count: len(points),
		Min:   points[0].Value,
		Max:   points[0].Value,
		Last:  points[len(points)-1].Value,
	}
	var sum float64
	for _, p := range points {
		s.Min = math.Min(s.Min, p.Value)
		s.Max = math.Max(s.Max, p.Value)
		sum += p.Value
	}
	s.Mean = sum / float64(len(points))
	return s
}

// History is a FIFO of samples within a time window, ordered oldest first.
// Removal is based on timestamp, not on count.
type History struct {
	window time.Duration

	mu       sync.RWMutex
	samples  []link.Sample
	shutdown bool

	cbMu      sync.RWMutex
	callbacks []func(samples []link.Sample)
}

// New creates a History keeping window worth of samples.
func New(window time.Duration) *History {
	return &History{window: window}
}

// Window returns the history length.
func (h *History) Window() time.Duration {
	return h.window
}

// Process adds samples from in until it closes. After that no callbacks run.
func (h *History) Process(in <-chan link.Sample) {
	for s := range in {
		h.Add(s)
	}
	h.mu.Lock()
	h.shutdown = true
	h.mu.Unlock()
}

// ResetShutdown allows Add again after a previous Process returned.
func (h *History) ResetShutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shutdown = false
}

// Add appends s, drops samples older than the window and notifies callbacks.
func (h *History) Add(s link.Sample) {
	h.mu.Lock()
	if h.shutdown {
		h.mu.Unlock()
		return
	}
	h.samples = append(h.samples, s)

	cutoff := s.Timestamp.Add(-h.window)
	drop := 0
	for drop < len(h.samples) && !h.samples[drop].Timestamp.After(cutoff) {
		drop++
	}
	if drop > 0 {
		h.samples = append(h.samples[:0], h.samples[drop:]...)
	}
	snapshot := make([]link.Sample, len(h.samples))
	copy(snapshot, h.samples)
	h.mu.Unlock()

	h.cbMu.RLock()
	callbacks := h.callbacks
	h.cbMu.RUnlock()
	for _, cb := range callbacks {
		cb(snapshot)
	}
}

// Samples returns a copy of the samples, oldest first.
func (h *History) Samples() []link.Sample {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]link.Sample, len(h.samples))
	copy(out, h.samples)
	return out
}

// Clear removes every sample.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = h.samples[:0]
}

// OnUpdate registers a callback run with a snapshot after every Add.
func (h *History) OnUpdate(cb func(samples []link.Sample)) {
	h.cbMu.Lock()
	defer h.cbMu.Unlock()
	h.callbacks = append(h.callbacks, cb)
}
