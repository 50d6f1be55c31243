package calib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/aquaprobe/pkg/config"
)

func TestLinear_Apply(t *testing.T) {
	l := Linear{Slope: 12.0, Offset: -7.0}
	assert.Equal(t, float32(5.0), l.Apply(1.0))
	assert.Equal(t, float32(-7.0), l.Apply(0.0))
}

func TestTwoPoint(t *testing.T) {
	lin, err := TwoPoint(Point{Raw: 2.0, Value: 7.0}, Point{Raw: 2.5, Value: 4.0})
	require.NoError(t, err)

	assert.InDelta(t, -6.0, lin.Slope, 1e-5)
	assert.InDelta(t, 19.0, lin.Offset, 1e-5)
	assert.InDelta(t, 7.0, lin.Apply(2.0), 1e-5)
	assert.InDelta(t, 4.0, lin.Apply(2.5), 1e-5)
}

func TestTwoPoint_SameRaw(t *testing.T) {
	_, err := TwoPoint(Point{Raw: 1, Value: 7}, Point{Raw: 1, Value: 4})
	assert.Error(t, err)
}

func TestReference_Degenerate(t *testing.T) {
	tests := []struct {
		name string
		ref  Reference
		mode Mode
		want bool
	}{
		{"frequency ok", Reference{Dark: 100, Bright: 1000}, ModeFrequency, false},
		{"frequency equal", Reference{Dark: 100, Bright: 100}, ModeFrequency, true},
		{"frequency inverted", Reference{Dark: 1000, Bright: 100}, ModeFrequency, true},
		{"pulse width ok", Reference{Dark: 1000, Bright: 100}, ModePulseWidth, false},
		{"pulse width equal", Reference{Dark: 100, Bright: 100}, ModePulseWidth, true},
		{"pulse width inverted", Reference{Dark: 100, Bright: 1000}, ModePulseWidth, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ref.Degenerate(tt.mode))
		})
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("frequency")
	require.NoError(t, err)
	assert.Equal(t, ModeFrequency, m)

	m, err = ParseMode("pulse_width")
	require.NoError(t, err)
	assert.Equal(t, ModePulseWidth, m)
	assert.Equal(t, "pulse_width", m.String())

	_, err = ParseMode("analog")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	cfg := config.Default()
	cfg.PH.Slope = 12
	cfg.PH.Offset = -7
	cfg.PH.Unit = config.UnitCounts
	cfg.Temperature.Offset = 0.5

	c, err := New(cfg)
	require.NoError(t, err)

	assert.Equal(t, Linear{Slope: 12, Offset: -7}, c.PH)
	assert.Equal(t, UnitCounts, c.PHUnit)
	assert.Equal(t, float32(0.5), c.TemperatureOffset)
	assert.Equal(t, Range{Min: -55, Max: 125}, c.TemperatureRange)
	assert.Equal(t, ModeFrequency, c.Mode)
	assert.Equal(t, Reference{Dark: 1500, Bright: 12000}, c.Red)
}

func TestNew_BufferPoints(t *testing.T) {
	cfg := config.Default()
	cfg.PH.Points = []config.PHPoint{
		{Raw: 2.0, PH: 7.0},
		{Raw: 2.5, PH: 4.0},
	}

	c, err := New(cfg)
	require.NoError(t, err)
	assert.InDelta(t, -6.0, c.PH.Slope, 1e-5)
	assert.InDelta(t, 19.0, c.PH.Offset, 1e-5)
}

func TestNew_InvalidMode(t *testing.T) {
	cfg := config.Default()
	cfg.Color.Mode = "analog"

	c, err := New(cfg)
	assert.Error(t, err)
	assert.Nil(t, c)
}

func TestRange_Contains(t *testing.T) {
	r := Range{Min: -55, Max: 125}
	assert.True(t, r.Contains(-55))
	assert.True(t, r.Contains(125))
	assert.True(t, r.Contains(20))
	assert.False(t, r.Contains(-127))
	assert.False(t, r.Contains(125.5))
}
