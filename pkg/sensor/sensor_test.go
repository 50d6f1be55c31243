package sensor

import (
	"errors"
	"testing"
	"time"

	"github.com/chewxy/math32"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"

	"github.com/itohio/aquaprobe/pkg/calib"
	"github.com/itohio/aquaprobe/pkg/config"
)

type fakeThermometer struct {
	celsius float64
	err     error
}

func (f fakeThermometer) Celsius() (float64, error) { return f.celsius, f.err }

type fakeADC struct {
	counts int32
	fail   func(call int) bool
	calls  int
}

func (f *fakeADC) ReadRaw() (int32, error) {
	f.calls++
	if f.fail != nil && f.fail(f.calls) {
		return 0, errors.New("i2c: no ack")
	}
	return f.counts, nil
}

type fakeLevel gpio.Level

func (f fakeLevel) Read() gpio.Level { return gpio.Level(f) }

func constants() *calib.Constants {
	return &calib.Constants{
		PH:                calib.Linear{Slope: 12, Offset: -7},
		PHUnit:            calib.UnitCounts,
		TemperatureOffset: 0.5,
		TemperatureRange:  calib.Range{Min: -55, Max: 125},
	}
}

func TestTemperature_Read(t *testing.T) {
	tests := []struct {
		name      string
		dev       fakeThermometer
		want      float32
		quality   Quality
		wantEntry bool
	}{
		{"valid", fakeThermometer{celsius: 24.25}, 24.75, QualityOK, false},
		{"range edge", fakeThermometer{celsius: 125}, 125.5, QualityOK, false},
		{"driver error", fakeThermometer{err: errors.New("crc mismatch")}, InvalidTemperature, QualityInvalid, true},
		{"disconnected code", fakeThermometer{celsius: -127}, InvalidTemperature, QualityInvalid, true},
		{"implausible high", fakeThermometer{celsius: 130}, 130.5, QualityImplausible, true},
		{"implausible low", fakeThermometer{celsius: -60}, -59.5, QualityImplausible, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, hook := test.NewNullLogger()
			temp := NewTemperature(tt.dev, constants(), WithLogger(logger))

			got, q := temp.Read()
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.quality, q)

			if !tt.wantEntry {
				assert.Empty(t, hook.AllEntries())
				return
			}
			require.NotNil(t, hook.LastEntry())
			assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
			assert.Equal(t, "temperature", hook.LastEntry().Data["channel"])
		})
	}
}

func TestTemperature_ImplausibleFields(t *testing.T) {
	logger, hook := test.NewNullLogger()
	temp := NewTemperature(fakeThermometer{celsius: 200}, constants(), WithLogger(logger))

	temp.Read()

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, float32(200), entry.Data["celsius"])
	assert.Equal(t, float32(-55), entry.Data["min"])
	assert.Equal(t, float32(125), entry.Data["max"])
}

func phConfig(samples int) config.PHConfig {
	return config.PHConfig{
		Samples:     samples,
		SampleDelay: 150 * time.Microsecond,
		ADC:         config.ADCConfig{FullScale: 4.096, Bits: 15},
	}
}

func TestPH_LinearCounts(t *testing.T) {
	adc := &fakeADC{counts: 1}
	ph := NewPH(adc, constants(), phConfig(64), WithSleep(func(time.Duration) {}))

	got, err := ph.Read()
	require.NoError(t, err)
	assert.Equal(t, float32(5), got)
	assert.Equal(t, 64, adc.calls)
}

func TestPH_Volts(t *testing.T) {
	c := constants()
	c.PHUnit = calib.UnitVolts
	c.PH = calib.Linear{Slope: -5.70, Offset: 21.34}

	var slept time.Duration
	ph := NewPH(&fakeADC{counts: 16384}, c, phConfig(64), WithSleep(func(d time.Duration) { slept += d }))

	assert.InDelta(t, 2.048, ph.Volts(16384), 1e-3)
	assert.InDelta(t, 4.096, ph.Volts(32767), 1e-6)

	got, err := ph.Read()
	require.NoError(t, err)
	assert.InDelta(t, -5.70*2.048+21.34, got, 1e-2)
	assert.Equal(t, 64*150*time.Microsecond, slept)
}

func TestPH_NotClamped(t *testing.T) {
	adc := &fakeADC{counts: 2}
	ph := NewPH(adc, constants(), phConfig(4), WithSleep(func(time.Duration) {}))

	got, err := ph.Read()
	require.NoError(t, err)
	assert.Equal(t, float32(17), got)
}

func TestPH_PartialFailure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	adc := &fakeADC{counts: 1, fail: func(call int) bool { return call%4 == 0 }}
	ph := NewPH(adc, constants(), phConfig(64), WithSleep(func(time.Duration) {}), WithLogger(logger))

	got, err := ph.Read()
	require.NoError(t, err)
	assert.Equal(t, float32(5), got)
}

func TestPH_AllSamplesFail(t *testing.T) {
	logger, hook := test.NewNullLogger()
	adc := &fakeADC{fail: func(int) bool { return true }}
	ph := NewPH(adc, constants(), phConfig(8), WithSleep(func(time.Duration) {}), WithLogger(logger))

	got, err := ph.Read()
	assert.Error(t, err)
	assert.True(t, math32.IsNaN(got))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestLevel_Wet(t *testing.T) {
	tests := []struct {
		name     string
		wetLevel string
		line     gpio.Level
		want     bool
	}{
		{"pull-up switch closed", config.LevelLow, gpio.Low, true},
		{"pull-up switch open", config.LevelLow, gpio.High, false},
		{"active high wet", config.LevelHigh, gpio.High, true},
		{"active high dry", config.LevelHigh, gpio.Low, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLevel(fakeLevel(tt.line), WetLevel(tt.wetLevel))
			assert.Equal(t, tt.want, l.Wet())
		})
	}
}
