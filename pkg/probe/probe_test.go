package probe

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
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
	"github.com/itohio/aquaprobe/pkg/pulse"
	"github.com/itohio/aquaprobe/pkg/pulse/pulsetest"
	"github.com/itohio/aquaprobe/pkg/sensor"
)

type thermometer struct {
	celsius float64
	err     error
}

func (t thermometer) Celsius() (float64, error) { return t.celsius, t.err }

type adc struct {
	counts int32
	err    error
}

func (a adc) ReadRaw() (int32, error) { return a.counts, a.err }

type levelPin gpio.Level

func (l levelPin) Read() gpio.Level { return gpio.Level(l) }

type line struct {
	level gpio.Level
	onOut func()
}

func (l *line) Out(level gpio.Level) error {
	l.level = level
	if l.onOut != nil {
		l.onOut()
	}
	return nil
}

type bench struct {
	therm thermometer
	adc   adc
	level gpio.Level
	hz    map[sensor.Filter]float64
}

func (b bench) components(log logrus.FieldLogger) Components {
	c := &calib.Constants{
		PH:                calib.Linear{Slope: 12, Offset: -7},
		PHUnit:            calib.UnitCounts,
		TemperatureOffset: -0.25,
		TemperatureRange:  calib.Range{Min: -55, Max: 125},
		Mode:              calib.ModeFrequency,
		Red:               calib.Reference{Dark: 0, Bright: 10000},
		Green:             calib.Reference{Dark: 0, Bright: 10000},
		Blue:              calib.Reference{Dark: 0, Bright: 10000},
	}

	clock := pulsetest.NewClock()
	wave := pulsetest.NewWave(clock, 0, 0)
	s2, s3 := &line{}, &line{}
	s3.onOut = func() {
		f := sensor.Filter(0)
		if s2.level {
			f |= 2
		}
		if s3.level {
			f |= 1
		}
		wave.SetHz(b.hz[f])
	}

	opts := []sensor.Option{sensor.WithSleep(clock.Sleep), sensor.WithLogger(log)}
	meter := pulse.New(wave, pulse.DefaultTimeout, pulse.WithClock(clock))
	phCfg := config.PHConfig{Samples: 64, ADC: config.ADCConfig{FullScale: 4.096, Bits: 15}}

	return Components{
		Temperature: sensor.NewTemperature(b.therm, c, opts...),
		PH:          sensor.NewPH(b.adc, c, phCfg, opts...),
		Level:       sensor.NewLevel(levelPin(b.level), gpio.Low),
		Color: sensor.NewColor(
			&sensor.FilterSelector{S2: s2, S3: s3},
			sensor.NewStrategy(c.Mode, meter),
			c,
			sensor.ColorOptions{Samples: 5, Settle: 10 * time.Millisecond},
			opts...,
		),
	}
}

func healthyBench() bench {
	return bench{
		therm: thermometer{celsius: 21.5},
		adc:   adc{counts: 1},
		level: gpio.Low,
		hz: map[sensor.Filter]float64{
			sensor.FilterClear: 8000,
			sensor.FilterRed:   10000,
			sensor.FilterGreen: 5000,
			sensor.FilterBlue:  2500,
		},
	}
}

func TestAcquire(t *testing.T) {
	logger, _ := test.NewNullLogger()
	p := New(healthyBench().components(logger), logger)

	r := p.Acquire()

	assert.Equal(t, float32(21.25), r.TemperatureC)
	assert.Equal(t, float32(5), r.PH)
	assert.True(t, r.LevelWet)
	assert.Equal(t, float32(8000), r.ColorHz)
	assert.InDelta(t, 255.0/445, r.ColorR, 1e-6)
	assert.InDelta(t, 127.0/445, r.ColorG, 1e-6)
	assert.InDelta(t, 63.0/445, r.ColorB, 1e-6)
	assert.Equal(t, Flag(0), r.Flags)
}

func TestAcquire_Deterministic(t *testing.T) {
	logger, _ := test.NewNullLogger()
	p := New(healthyBench().components(logger), logger)

	first := p.Acquire()
	second := p.Acquire()
	assert.True(t, first == second, "%+v != %+v", first, second)
}

func TestAcquire_Faults(t *testing.T) {
	logger, hook := test.NewNullLogger()
	b := bench{
		therm: thermometer{err: errors.New("no presence pulse")},
		adc:   adc{err: errors.New("i2c: no ack")},
		level: gpio.High,
	}
	p := New(b.components(logger), logger)

	r := p.Acquire()

	assert.Equal(t, sensor.InvalidTemperature, r.TemperatureC)
	assert.True(t, math32.IsNaN(r.PH))
	assert.False(t, r.LevelWet)
	assert.Zero(t, r.ColorHz)
	assert.Zero(t, r.ColorR+r.ColorG+r.ColorB)
	assert.True(t, r.Flags.Has(FlagTemperatureInvalid|FlagPHFault|FlagColorNoSignal))
	assert.False(t, r.Flags.Has(FlagTemperatureImplausible))
	assert.Len(t, hook.AllEntries(), 3)
}

func TestAcquire_ImplausibleTemperature(t *testing.T) {
	logger, _ := test.NewNullLogger()
	b := healthyBench()
	b.therm = thermometer{celsius: 150}
	p := New(b.components(logger), logger)

	r := p.Acquire()

	assert.Equal(t, float32(149.75), r.TemperatureC)
	assert.Equal(t, FlagTemperatureImplausible, r.Flags)
}

func TestNotifiers(t *testing.T) {
	var calls []string
	failing := errors.New("broker down")
	ns := Notifiers{
		NotifierFunc(func(Reading) error { calls = append(calls, "a"); return nil }),
		NotifierFunc(func(Reading) error { calls = append(calls, "b"); return failing }),
		NotifierFunc(func(Reading) error { calls = append(calls, "c"); return nil }),
	}

	err := ns.Notify(Reading{})
	assert.ErrorIs(t, err, failing)
	assert.Equal(t, []string{"a", "b", "c"}, calls)

	assert.NoError(t, Notifiers{}.Notify(Reading{}))
}

func TestRun(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	p := New(healthyBench().components(logger), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var count atomic.Int32
	readings := make(chan Reading, 8)
	n := NotifierFunc(func(r Reading) error {
		readings <- r
		if count.Add(1) == 3 {
			cancel()
		}
		return errors.New("sink offline")
	})

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, time.Millisecond, n) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Equal(t, int32(3), count.Load())
	first := <-readings
	assert.Equal(t, float32(5), first.PH)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "Notify failed" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestReading_Fields(t *testing.T) {
	r := Reading{
		TemperatureC: 23.456,
		PH:           7.019,
		LevelWet:     true,
		ColorHz:      8123.6,
		ColorR:       0.5,
		ColorG:       0.25,
		ColorB:       0.25,
	}

	assert.Equal(t, []Field{
		{FieldTemperature, "23.46"},
		{FieldPH, "7.02"},
		{FieldLevel, "1"},
		{FieldColorHz, "8124"},
		{FieldColorR, "0.500"},
		{FieldColorG, "0.250"},
		{FieldColorB, "0.250"},
	}, r.Fields())
	assert.Equal(t, "8124,0.500,0.250,0.250", r.Color())

	r.LevelWet = false
	assert.Equal(t, "0", r.Fields()[2].Value)
}

func TestFlag_String(t *testing.T) {
	assert.Equal(t, "", Flag(0).String())
	assert.Equal(t, "ph_fault", FlagPHFault.String())
	assert.Equal(t, "temperature_invalid|color_no_signal", (FlagTemperatureInvalid | FlagColorNoSignal).String())
}

func TestReading_JSON(t *testing.T) {
	r := Reading{TemperatureC: 20, PH: 7, ColorHz: 100, Flags: FlagColorNoSignal}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"temperature_c":20,"ph":7,"level_wet":false,"color_hz":100,"color_r":0,"color_g":0,"color_b":0,"flags":["color_no_signal"]}`, string(data))

	var back Reading
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r, back)
}

func TestReading_JSONFaultedPH(t *testing.T) {
	r := Reading{PH: math32.NaN(), Flags: FlagPHFault}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ph":null`)

	var back Reading
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, math32.IsNaN(back.PH))
	assert.Equal(t, FlagPHFault, back.Flags)
}
