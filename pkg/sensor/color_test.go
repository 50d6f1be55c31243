package sensor

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"

	"github.com/itohio/aquaprobe/pkg/calib"
	"github.com/itohio/aquaprobe/pkg/pulse"
	"github.com/itohio/aquaprobe/pkg/pulse/pulsetest"
)

type line struct {
	level  gpio.Level
	writes int
	err    error
	onOut  func()
}

func (l *line) Out(level gpio.Level) error {
	if l.err != nil {
		return l.err
	}
	l.level = level
	l.writes++
	if l.onOut != nil {
		l.onOut()
	}
	return nil
}

// rig is a simulated color sensor whose output frequency follows the
// selected filter.
type rig struct {
	clock *pulsetest.Clock
	wave  *pulsetest.Wave
	sel   *FilterSelector
	hz    map[Filter]float64
	order []Filter
}

func newRig(hz map[Filter]float64) *rig {
	clock := pulsetest.NewClock()
	r := &rig{
		clock: clock,
		wave:  pulsetest.NewWave(clock, 0, 0),
		hz:    hz,
	}
	s2 := &line{}
	s3 := &line{}
	s3.onOut = func() {
		f := Filter(0)
		if s2.level {
			f |= 2
		}
		if s3.level {
			f |= 1
		}
		r.order = append(r.order, f)
		r.wave.SetHz(r.hz[f])
	}
	r.sel = &FilterSelector{S0: &line{}, S1: &line{}, S2: s2, S3: s3}
	return r
}

func (r *rig) color(mode calib.Mode, c *calib.Constants, opts ...Option) *Color {
	meter := pulse.New(r.wave, pulse.DefaultTimeout, pulse.WithClock(r.clock))
	opts = append([]Option{WithSleep(r.clock.Sleep)}, opts...)
	return NewColor(r.sel, NewStrategy(mode, meter), c, ColorOptions{Samples: 5, Settle: 10 * time.Millisecond}, opts...)
}

func colorConstants() *calib.Constants {
	ref := calib.Reference{Dark: 0, Bright: 10000}
	return &calib.Constants{
		Mode:  calib.ModeFrequency,
		Red:   ref,
		Green: ref,
		Blue:  ref,
	}
}

func TestFilterSelector_Select(t *testing.T) {
	tests := []struct {
		filter Filter
		s2, s3 gpio.Level
	}{
		{FilterRed, gpio.Low, gpio.Low},
		{FilterBlue, gpio.Low, gpio.High},
		{FilterClear, gpio.High, gpio.Low},
		{FilterGreen, gpio.High, gpio.High},
	}

	for _, tt := range tests {
		t.Run(tt.filter.String(), func(t *testing.T) {
			s2, s3 := &line{}, &line{}
			sel := &FilterSelector{S2: s2, S3: s3}

			require.NoError(t, sel.Select(tt.filter))
			assert.Equal(t, tt.s2, s2.level)
			assert.Equal(t, tt.s3, s3.level)
		})
	}
}

func TestFilterSelector_SetScaling(t *testing.T) {
	tests := []struct {
		percent int
		s0, s1  gpio.Level
	}{
		{0, gpio.Low, gpio.Low},
		{2, gpio.Low, gpio.High},
		{20, gpio.High, gpio.Low},
		{100, gpio.High, gpio.High},
	}

	for _, tt := range tests {
		s0, s1 := &line{}, &line{}
		sel := &FilterSelector{S0: s0, S1: s1}

		scaling, err := ParseScaling(tt.percent)
		require.NoError(t, err)
		require.NoError(t, sel.SetScaling(scaling))
		assert.Equal(t, tt.s0, s0.level, "%d%%", tt.percent)
		assert.Equal(t, tt.s1, s1.level, "%d%%", tt.percent)
	}

	_, err := ParseScaling(50)
	assert.Error(t, err)

	// Hard wired scaling lines are skipped.
	assert.NoError(t, (&FilterSelector{}).SetScaling(Scaling100))
}

func TestFrequencyStrategy_Intensity(t *testing.T) {
	ref := calib.Reference{Dark: 2000, Bright: 10000}
	tests := []struct {
		name string
		raw  float32
		ref  calib.Reference
		want int
	}{
		{"no signal", 0, ref, 0},
		{"dark", 2000, ref, 0},
		{"below dark", 1000, ref, 0},
		{"half", 6000, ref, 127},
		{"quarter", 4000, ref, 63},
		{"bright", 10000, ref, 255},
		{"above bright", 20000, ref, 255},
		{"degenerate equal", 6000, calib.Reference{Dark: 5000, Bright: 5000}, 0},
		{"degenerate inverted", 6000, calib.Reference{Dark: 10000, Bright: 2000}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FrequencyStrategy{}.Intensity(tt.raw, tt.ref))
		})
	}
}

func TestPulseWidthStrategy_Intensity(t *testing.T) {
	ref := calib.Reference{Dark: 1000, Bright: 200}
	tests := []struct {
		name string
		raw  float32
		ref  calib.Reference
		want int
	}{
		{"no signal", 0, ref, 0},
		{"dark", 1000, ref, 0},
		{"longer than dark", 1500, ref, 0},
		{"half", 600, ref, 127},
		{"bright", 200, ref, 255},
		{"shorter than bright", 100, ref, 255},
		{"degenerate", 600, calib.Reference{Dark: 200, Bright: 1000}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PulseWidthStrategy{}.Intensity(tt.raw, tt.ref))
		})
	}
}

func TestStrategy_Hz(t *testing.T) {
	assert.Equal(t, float32(8000), FrequencyStrategy{}.Hz(8000))
	assert.Equal(t, float32(8000), PulseWidthStrategy{}.Hz(125))
	assert.Equal(t, float32(0), PulseWidthStrategy{}.Hz(0))
}

func TestNormalize(t *testing.T) {
	r, g, b := Normalize(100, 50, 50)
	assert.Equal(t, float32(0.5), r)
	assert.Equal(t, float32(0.25), g)
	assert.Equal(t, float32(0.25), b)

	r, g, b = Normalize(0, 0, 0)
	assert.Zero(t, r)
	assert.Zero(t, g)
	assert.Zero(t, b)

	r, g, b = Normalize(255, 0, 0)
	assert.Equal(t, float32(1), r)
	assert.Zero(t, g)
	assert.Zero(t, b)
}

func TestColor_ReadFrequency(t *testing.T) {
	r := newRig(map[Filter]float64{
		FilterClear: 8000,
		FilterRed:   10000,
		FilterGreen: 5000,
		FilterBlue:  2500,
	})
	color := r.color(calib.ModeFrequency, colorConstants())

	got := color.Read()

	assert.Equal(t, []Filter{FilterClear, FilterRed, FilterGreen, FilterBlue}, r.order)
	assert.Equal(t, float32(8000), got.ClearHz)
	assert.Equal(t, [3]int{255, 127, 63}, got.Intensities)
	assert.InDelta(t, 255.0/445, got.R, 1e-6)
	assert.InDelta(t, 127.0/445, got.G, 1e-6)
	assert.InDelta(t, 63.0/445, got.B, 1e-6)
	assert.InDelta(t, 1.0, got.R+got.G+got.B, 1e-6)
	assert.False(t, got.NoSignal())
}

func TestColor_NoSignal(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := newRig(map[Filter]float64{})
	color := r.color(calib.ModeFrequency, colorConstants(), WithLogger(logger))

	start := r.clock.Now()
	got := color.Read()

	assert.Equal(t, ColorReading{}, got)
	assert.True(t, got.NoSignal())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Color sensor has no signal", hook.LastEntry().Message)

	// Four filters, five samples, two bounded pulses each, plus settle time.
	bound := 4 * (10*time.Millisecond + 5*2*pulse.DefaultTimeout)
	assert.LessOrEqual(t, r.clock.Now().Sub(start), bound)
}

func TestColor_ReadPulseWidth(t *testing.T) {
	r := newRig(map[Filter]float64{
		FilterClear: 4000, // 125µs high
		FilterRed:   2500, // 200µs high
		FilterGreen: 1250, // 400µs high
		FilterBlue:  500,  // 1000µs high
	})
	c := &calib.Constants{
		Mode:  calib.ModePulseWidth,
		Red:   calib.Reference{Dark: 1000, Bright: 200},
		Green: calib.Reference{Dark: 1000, Bright: 200},
		Blue:  calib.Reference{Dark: 1000, Bright: 200},
	}
	color := r.color(calib.ModePulseWidth, c)

	got := color.Read()

	assert.Equal(t, float32(8000), got.ClearHz)
	assert.Equal(t, [3]int{255, 191, 0}, got.Intensities)
	assert.InDelta(t, 255.0/446, got.R, 1e-6)
	assert.InDelta(t, 191.0/446, got.G, 1e-6)
	assert.Zero(t, got.B)
}

func TestColor_Capture(t *testing.T) {
	r := newRig(map[Filter]float64{
		FilterClear: 8000,
		FilterRed:   4000,
		FilterGreen: 2000,
		FilterBlue:  1000,
	})
	color := r.color(calib.ModeFrequency, colorConstants())

	assert.Equal(t, RawColor{Clear: 8000, Red: 4000, Green: 2000, Blue: 1000}, color.Capture())
}

func TestColor_SelectFailure(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := newRig(map[Filter]float64{FilterClear: 8000})
	r.sel.S2 = &line{err: errors.New("gpio busy")}
	color := r.color(calib.ModeFrequency, colorConstants(), WithLogger(logger))

	got := color.Read()

	assert.Equal(t, float32(0), got.ClearHz)
	assert.True(t, got.NoSignal())
	assert.NotEmpty(t, hook.AllEntries())
}
