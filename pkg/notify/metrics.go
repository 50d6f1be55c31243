package notify

import (
	"github.com/chewxy/math32"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/itohio/aquaprobe/pkg/probe"
)

// Metrics exposes readings as Prometheus gauges labelled by probe name.
type Metrics struct {
	name string

	temperature *prometheus.GaugeVec
	ph          *prometheus.GaugeVec
	level       *prometheus.GaugeVec
	colorHz     *prometheus.GaugeVec
	color       *prometheus.GaugeVec
	readings    *prometheus.CounterVec
	flags       *prometheus.CounterVec
}

func newGauge(name string, help string, labels ...string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		append([]string{"probe"}, labels...),
	)
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, name string) (*Metrics, error) {
	m := &Metrics{
		name:        name,
		temperature: newGauge("water_temperature", "Water temperature (units: degrees Celsius)"),
		ph:          newGauge("water_ph", "Water pH"),
		level:       newGauge("water_level_wet", "Float switch state (1 wet, 0 dry)"),
		colorHz:     newGauge("water_color_clear_hz", "Color sensor clear channel (units: Hz)"),
		color:       newGauge("water_color_fraction", "Normalized color channel", "channel"),
		readings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "probe_readings_total",
			Help: "Acquisition cycles completed",
		}, []string{"probe"}),
		flags: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "probe_warnings_total",
			Help: "Warnings raised during acquisition",
		}, []string{"probe", "flag"}),
	}

	for _, c := range []prometheus.Collector{
		m.temperature, m.ph, m.level, m.colorHz, m.color, m.readings, m.flags,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Notify updates the gauges. Faulted channels keep their last value.
func (m *Metrics) Notify(r probe.Reading) error {
	m.readings.WithLabelValues(m.name).Inc()
	for _, f := range probe.AllFlags {
		if r.Flags.Has(f) {
			m.flags.WithLabelValues(m.name, f.Name()).Inc()
		}
	}

	if !r.Flags.Has(probe.FlagTemperatureInvalid) {
		m.temperature.WithLabelValues(m.name).Set(float64(r.TemperatureC))
	}
	if !math32.IsNaN(r.PH) {
		m.ph.WithLabelValues(m.name).Set(float64(r.PH))
	}
	m.level.WithLabelValues(m.name).Set(float64(r.Level()))
	m.colorHz.WithLabelValues(m.name).Set(float64(r.ColorHz))
	m.color.WithLabelValues(m.name, "red").Set(float64(r.ColorR))
	m.color.WithLabelValues(m.name, "green").Set(float64(r.ColorG))
	m.color.WithLabelValues(m.name, "blue").Set(float64(r.ColorB))
	return nil
}
