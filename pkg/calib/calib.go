// Package calib holds the calibration constants shared by the channel
// converters. Constants are built once from configuration and never written
// afterwards, so they can be read from anywhere without locking.
package calib

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/itohio/aquaprobe/pkg/config"
)

// Mode selects how the color sensor output is measured.
type Mode int

const (
	// ModeFrequency measures a full high+low period and reports Hz.
	// Brighter light gives a higher frequency.
	ModeFrequency Mode = iota
	// ModePulseWidth measures the high pulse in µs.
	// Brighter light gives a shorter pulse.
	ModePulseWidth
)

func (m Mode) String() string {
	switch m {
	case ModeFrequency:
		return config.ModeFrequency
	case ModePulseWidth:
		return config.ModePulseWidth
	default:
		return "unknown"
	}
}

// ParseMode converts a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case config.ModeFrequency:
		return ModeFrequency, nil
	case config.ModePulseWidth:
		return ModePulseWidth, nil
	}
	return 0, errors.Errorf("unknown color mode %q", s)
}

// Unit is the domain the pH linear calibration is applied to.
type Unit int

const (
	UnitVolts Unit = iota
	UnitCounts
)

// Linear is y = Slope*x + Offset.
type Linear struct {
	Slope  float32
	Offset float32
}

// Apply evaluates the mapping at x.
func (l Linear) Apply(x float32) float32 {
	return l.Slope*x + l.Offset
}

// Point is a known (raw, value) pair used for two-point calibration.
type Point struct {
	Raw   float32
	Value float32
}

// TwoPoint derives the line through two calibration points.
func TwoPoint(a, b Point) (Linear, error) {
	dx := b.Raw - a.Raw
	if dx == 0 || math32.IsNaN(dx) {
		return Linear{}, errors.New("calibration points must have distinct raw values")
	}
	slope := (b.Value - a.Value) / dx
	return Linear{
		Slope:  slope,
		Offset: a.Value - slope*a.Raw,
	}, nil
}

// Range is an inclusive plausibility window.
type Range struct {
	Min float32
	Max float32
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float32) bool {
	return v >= r.Min && v <= r.Max
}

// Reference is a dark/bright calibration pair for one color channel.
type Reference struct {
	Dark   float32
	Bright float32
}

// Degenerate reports whether the pair cannot define a mapping in mode m.
func (r Reference) Degenerate(m Mode) bool {
	if m == ModePulseWidth {
		return r.Bright >= r.Dark
	}
	return r.Bright <= r.Dark
}

// Constants is the full set of calibration values for one probe.
type Constants struct {
	PH     Linear
	PHUnit Unit

	TemperatureOffset float32
	TemperatureRange  Range

	Mode  Mode
	Red   Reference
	Green Reference
	Blue  Reference
}

// New builds Constants from configuration. Buffer points, when present,
// take precedence over the configured slope and offset.
func New(cfg *config.Config) (*Constants, error) {
	mode, err := ParseMode(cfg.Color.Mode)
	if err != nil {
		return nil, err
	}

	c := &Constants{
		PH: Linear{
			Slope:  float32(cfg.PH.Slope),
			Offset: float32(cfg.PH.Offset),
		},
		TemperatureOffset: float32(cfg.Temperature.Offset),
		TemperatureRange: Range{
			Min: float32(cfg.Temperature.Min),
			Max: float32(cfg.Temperature.Max),
		},
		Mode:  mode,
		Red:   reference(cfg.Color.Red),
		Green: reference(cfg.Color.Green),
		Blue:  reference(cfg.Color.Blue),
	}

	switch cfg.PH.Unit {
	case config.UnitVolts:
		c.PHUnit = UnitVolts
	case config.UnitCounts:
		c.PHUnit = UnitCounts
	default:
		return nil, errors.Errorf("unknown pH unit %q", cfg.PH.Unit)
	}

	if len(cfg.PH.Points) == 2 {
		a, b := cfg.PH.Points[0], cfg.PH.Points[1]
		lin, err := TwoPoint(
			Point{Raw: float32(a.Raw), Value: float32(a.PH)},
			Point{Raw: float32(b.Raw), Value: float32(b.PH)},
		)
		if err != nil {
			return nil, errors.Wrap(err, "pH buffer points")
		}
		c.PH = lin
	}

	return c, nil
}

func reference(r config.Reference) Reference {
	return Reference{Dark: float32(r.Dark), Bright: float32(r.Bright)}
}
