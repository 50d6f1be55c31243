package sensor

import (
	"github.com/sirupsen/logrus"

	"github.com/itohio/aquaprobe/pkg/calib"
)

// InvalidTemperature is reported when the one-wire probe does not answer.
// It matches the DS18B20 "disconnected" code.
const InvalidTemperature float32 = -127

// Quality marks how trustworthy a temperature value is.
type Quality int

const (
	QualityOK Quality = iota
	// QualityImplausible is a value outside the sensor range. It is still
	// reported.
	QualityImplausible
	// QualityInvalid is a failed read, the value is InvalidTemperature.
	QualityInvalid
)

// Thermometer is a digital temperature probe.
type Thermometer interface {
	Celsius() (float64, error)
}

// Temperature reads and calibrates the water temperature.
type Temperature struct {
	dev Thermometer
	c   *calib.Constants
	log logrus.FieldLogger
}

// NewTemperature creates a temperature converter.
func NewTemperature(dev Thermometer, c *calib.Constants, opts ...Option) *Temperature {
	o := newOptions(opts)
	return &Temperature{
		dev: dev,
		c:   c,
		log: o.log.WithField("channel", "temperature"),
	}
}

// Read returns the calibrated temperature in °C.
func (t *Temperature) Read() (float32, Quality) {
	v, err := t.dev.Celsius()
	if err != nil {
		t.log.WithError(err).Warn("Temperature read failed")
		return InvalidTemperature, QualityInvalid
	}
	raw := float32(v)
	if raw == InvalidTemperature {
		t.log.Warn("Temperature probe disconnected")
		return InvalidTemperature, QualityInvalid
	}

	q := QualityOK
	if !t.c.TemperatureRange.Contains(raw) {
		t.log.WithFields(logrus.Fields{
			"celsius": raw,
			"min":     t.c.TemperatureRange.Min,
			"max":     t.c.TemperatureRange.Max,
		}).Warn("Temperature outside sensor range")
		q = QualityImplausible
	}
	return raw + t.c.TemperatureOffset, q
}
