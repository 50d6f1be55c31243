package sensor

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"

	"github.com/itohio/aquaprobe/pkg/calib"
	"github.com/itohio/aquaprobe/pkg/colormap"
	"github.com/itohio/aquaprobe/pkg/filter"
	"github.com/itohio/aquaprobe/pkg/pulse"
)

// MaxIntensity is the top of the per channel intensity scale.
const MaxIntensity = colormap.Max

// Filter is a photodiode group of the color sensor.
type Filter int

const (
	FilterRed Filter = iota
	FilterBlue
	FilterClear
	FilterGreen
)

// ReadOrder is the order filters are measured in during a cycle.
var ReadOrder = [...]Filter{FilterClear, FilterRed, FilterGreen, FilterBlue}

func (f Filter) String() string {
	switch f {
	case FilterRed:
		return "red"
	case FilterBlue:
		return "blue"
	case FilterClear:
		return "clear"
	case FilterGreen:
		return "green"
	default:
		return "unknown"
	}
}

// lines returns the S2, S3 levels selecting the filter.
func (f Filter) lines() (gpio.Level, gpio.Level) {
	return f&2 != 0, f&1 != 0
}

// Scaling is the output frequency scaling of the color sensor.
type Scaling int

const (
	ScalingOff Scaling = iota
	Scaling2
	Scaling20
	Scaling100
)

// ParseScaling converts a percentage to a Scaling.
func ParseScaling(percent int) (Scaling, error) {
	switch percent {
	case 0:
		return ScalingOff, nil
	case 2:
		return Scaling2, nil
	case 20:
		return Scaling20, nil
	case 100:
		return Scaling100, nil
	}
	return 0, errors.Errorf("unsupported color scaling %d%%", percent)
}

// lines returns the S0, S1 levels selecting the scaling.
func (s Scaling) lines() (gpio.Level, gpio.Level) {
	return s&2 != 0, s&1 != 0
}

// Output is a digital control line. gpio.PinOut satisfies it.
type Output interface {
	Out(l gpio.Level) error
}

// FilterSelector drives the color sensor control lines. S0 and S1 may be nil
// when the scaling lines are hard wired.
type FilterSelector struct {
	S0, S1 Output
	S2, S3 Output
}

// Select activates a photodiode filter.
func (fs *FilterSelector) Select(f Filter) error {
	s2, s3 := f.lines()
	if err := fs.S2.Out(s2); err != nil {
		return errors.Wrapf(err, "select %s filter: S2", f)
	}
	if err := fs.S3.Out(s3); err != nil {
		return errors.Wrapf(err, "select %s filter: S3", f)
	}
	return nil
}

// SetScaling sets the output frequency scaling. ScalingOff powers the sensor
// down.
func (fs *FilterSelector) SetScaling(s Scaling) error {
	if fs.S0 == nil || fs.S1 == nil {
		return nil
	}
	s0, s1 := s.lines()
	if err := fs.S0.Out(s0); err != nil {
		return errors.Wrap(err, "set scaling: S0")
	}
	if err := fs.S1.Out(s1); err != nil {
		return errors.Wrap(err, "set scaling: S1")
	}
	return nil
}

// Strategy measures one raw color value and maps it to an intensity.
type Strategy interface {
	Mode() calib.Mode
	// Measure takes one raw measurement, 0 on timeout.
	Measure() float32
	// Intensity maps a raw value to 0..MaxIntensity.
	Intensity(raw float32, ref calib.Reference) int
	// Hz converts a raw clear channel value to Hz.
	Hz(raw float32) float32
}

// NewStrategy returns the strategy for mode.
func NewStrategy(mode calib.Mode, m *pulse.Meter) Strategy {
	if mode == calib.ModePulseWidth {
		return PulseWidthStrategy{Meter: m}
	}
	return FrequencyStrategy{Meter: m}
}

// FrequencyStrategy measures the output frequency in Hz.
type FrequencyStrategy struct {
	Meter *pulse.Meter
}

// Mode returns calib.ModeFrequency.
func (FrequencyStrategy) Mode() calib.Mode { return calib.ModeFrequency }

// Measure returns the output frequency, 0 on timeout.
func (s FrequencyStrategy) Measure() float32 { return s.Meter.Frequency() }

// Hz returns raw unchanged.
func (FrequencyStrategy) Hz(raw float32) float32 { return raw }

// Intensity maps dark..bright linearly onto 0..255, truncating.
func (FrequencyStrategy) Intensity(raw float32, ref calib.Reference) int {
	return colormap.Frequency(raw, ref.Dark, ref.Bright)
}

// PulseWidthStrategy measures the high pulse width in µs. A shorter pulse
// means more light.
type PulseWidthStrategy struct {
	Meter *pulse.Meter
}

// Mode returns calib.ModePulseWidth.
func (PulseWidthStrategy) Mode() calib.Mode { return calib.ModePulseWidth }

// Measure returns the high pulse width in µs, 0 on timeout.
func (s PulseWidthStrategy) Measure() float32 { return s.Meter.PulseWidth() }

// Hz converts a pulse width in µs to 1e6/pw, 0 for a missing pulse.
func (PulseWidthStrategy) Hz(raw float32) float32 {
	if raw <= 0 {
		return 0
	}
	return 1e6 / raw
}

// Intensity maps dark..bright onto 0..255 with integer arithmetic.
func (PulseWidthStrategy) Intensity(raw float32, ref calib.Reference) int {
	return colormap.PulseWidth(raw, ref.Dark, ref.Bright)
}

// Normalize scales intensities to fractions of their sum. A zero sum yields
// all zeros.
func Normalize(r, g, b int) (float32, float32, float32) {
	return colormap.Normalize(r, g, b)
}

// ColorReading is the result of one color measurement cycle.
type ColorReading struct {
	ClearHz float32
	R, G, B float32
	// Intensities are the per channel values before normalization.
	Intensities [3]int
}

// NoSignal reports whether no channel produced light.
func (c ColorReading) NoSignal() bool {
	return c.Intensities == [3]int{}
}

// RawColor holds the filtered raw value of every filter in strategy units.
type RawColor struct {
	Clear, Red, Green, Blue float32
}

// Color reads the color sensor.
type Color struct {
	sel      *FilterSelector
	strategy Strategy
	c        *calib.Constants
	samples  int
	settle   time.Duration
	sleep    func(time.Duration)
	log      logrus.FieldLogger
}

// ColorOptions are the acquisition parameters of the color sensor.
type ColorOptions struct {
	Samples int
	Settle  time.Duration
}

// NewColor creates a color converter.
func NewColor(sel *FilterSelector, strategy Strategy, c *calib.Constants, co ColorOptions, opts ...Option) *Color {
	o := newOptions(opts)
	if co.Samples < 1 {
		co.Samples = 1
	}
	return &Color{
		sel:      sel,
		strategy: strategy,
		c:        c,
		samples:  co.Samples,
		settle:   co.Settle,
		sleep:    o.sleep,
		log:      o.log.WithField("channel", "color"),
	}
}

// Capture measures the median raw value of every filter.
func (c *Color) Capture() RawColor {
	var raw RawColor
	for _, f := range ReadOrder {
		v := c.measure(f)
		switch f {
		case FilterClear:
			raw.Clear = v
		case FilterRed:
			raw.Red = v
		case FilterGreen:
			raw.Green = v
		case FilterBlue:
			raw.Blue = v
		}
	}
	return raw
}

// Read measures all filters and returns normalized chromaticity.
func (c *Color) Read() ColorReading {
	raw := c.Capture()

	r := c.strategy.Intensity(raw.Red, c.c.Red)
	g := c.strategy.Intensity(raw.Green, c.c.Green)
	b := c.strategy.Intensity(raw.Blue, c.c.Blue)

	out := ColorReading{
		ClearHz:     c.strategy.Hz(raw.Clear),
		Intensities: [3]int{r, g, b},
	}
	out.R, out.G, out.B = Normalize(r, g, b)

	if out.NoSignal() {
		c.log.WithFields(logrus.Fields{
			"mode":  c.strategy.Mode(),
			"red":   raw.Red,
			"green": raw.Green,
			"blue":  raw.Blue,
		}).Warn("Color sensor has no signal")
	}
	return out
}

func (c *Color) measure(f Filter) float32 {
	if err := c.sel.Select(f); err != nil {
		c.log.WithError(err).Warn("Filter select failed")
		return 0
	}
	if c.settle > 0 {
		c.sleep(c.settle)
	}
	return filter.MedianOf(c.samples, c.strategy.Measure)
}
