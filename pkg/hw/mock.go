package hw

import (
	"math"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/itohio/aquaprobe/pkg/config"
	"github.com/itohio/aquaprobe/pkg/pulse/pulsetest"
	"github.com/itohio/aquaprobe/pkg/sensor"
)

// Mock simulates the probe peripherals for development without hardware.
// Color pulses run on a simulated clock, so a cycle completes instantly.
type Mock struct {
	mu  sync.RWMutex
	cfg config.MockConfig

	fullScale float64
	maxCount  float64
	wetLevel  gpio.Level
	startTime time.Time
	now       func() time.Time

	clock  *pulsetest.Clock
	wave   *pulsetest.Wave
	s2, s3 gpio.Level
}

// NewMock creates a simulated board from the mock and ADC configuration.
func NewMock(cfg *config.Config) (*Mock, *Board) {
	clock := pulsetest.NewClock()
	m := &Mock{
		cfg:       cfg.Mock,
		fullScale: cfg.PH.ADC.FullScale,
		maxCount:  float64(uint32(1)<<cfg.PH.ADC.Bits - 1),
		wetLevel:  sensor.WetLevel(cfg.Level.WetLevel),
		startTime: time.Now(),
		now:       time.Now,
		clock:     clock,
		wave:      pulsetest.NewWave(clock, 0, 0),
	}

	b := &Board{
		Thermometer: mockThermometer{m},
		ADC:         mockADC{m},
		Level:       mockLevel{m},
		Selector: &sensor.FilterSelector{
			S0: mockLine{},
			S1: mockLine{},
			S2: mockLine{set: func(l gpio.Level) { m.selectLine(&m.s2, l) }},
			S3: mockLine{set: func(l gpio.Level) { m.selectLine(&m.s3, l) }},
		},
		ColorOut: m.wave,
		Clock:    clock,
		Sleep:    clock.Sleep,
	}
	return m, b
}

// Set replaces the simulated sensor values.
func (m *Mock) Set(cfg config.MockConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
}

// SetLevelWet changes the float switch state.
func (m *Mock) SetLevelWet(wet bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.LevelWet = wet
}

// noise returns a deterministic disturbance in [-level, level] relative to v.
func (m *Mock) noise(v float64) float64 {
	elapsed := float64(m.now().Sub(m.startTime).Nanoseconds())
	return (math.Sin(elapsed*0.001) + math.Cos(elapsed*0.0013)) * m.cfg.NoiseLevel * 0.5 * v
}

func (m *Mock) selectLine(dst *gpio.Level, l gpio.Level) {
	m.mu.Lock()
	*dst = l
	f := sensor.Filter(0)
	if m.s2 {
		f |= 2
	}
	if m.s3 {
		f |= 1
	}
	hz := m.filterHz(f)
	if hz > 0 {
		hz += m.noise(hz)
	}
	m.mu.Unlock()

	m.wave.SetHz(hz)
}

func (m *Mock) filterHz(f sensor.Filter) float64 {
	switch f {
	case sensor.FilterRed:
		return m.cfg.RedHz
	case sensor.FilterGreen:
		return m.cfg.GreenHz
	case sensor.FilterBlue:
		return m.cfg.BlueHz
	default:
		return m.cfg.ClearHz
	}
}

type mockThermometer struct{ m *Mock }

func (t mockThermometer) Celsius() (float64, error) {
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	v := t.m.cfg.TemperatureC
	return v + t.m.noise(1), nil
}

type mockADC struct{ m *Mock }

func (a mockADC) ReadRaw() (int32, error) {
	a.m.mu.RLock()
	defer a.m.mu.RUnlock()
	if a.m.fullScale <= 0 {
		return 0, nil
	}
	v := a.m.cfg.PHVolts + a.m.noise(a.m.cfg.PHVolts)
	counts := v / a.m.fullScale * a.m.maxCount
	return int32(math.Max(0, math.Min(counts, a.m.maxCount))), nil
}

type mockLevel struct{ m *Mock }

func (l mockLevel) Read() gpio.Level {
	l.m.mu.RLock()
	defer l.m.mu.RUnlock()
	if l.m.cfg.LevelWet {
		return l.m.wetLevel
	}
	return !l.m.wetLevel
}

type mockLine struct {
	set func(gpio.Level)
}

func (l mockLine) Out(level gpio.Level) error {
	if l.set != nil {
		l.set(level)
	}
	return nil
}
