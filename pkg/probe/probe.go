// Package probe runs acquisition cycles over all probe channels and hands the
// resulting readings to notifiers.
package probe

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/itohio/aquaprobe/pkg/sensor"
)

// Notifier receives every Reading.
type Notifier interface {
	Notify(r Reading) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(r Reading) error

func (f NotifierFunc) Notify(r Reading) error { return f(r) }

// Notifiers fans a Reading out to every notifier. All notifiers are called
// even when some fail.
type Notifiers []Notifier

func (ns Notifiers) Notify(r Reading) error {
	var errs []error
	for _, n := range ns {
		if err := n.Notify(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Components are the channel converters of a probe. All are required.
type Components struct {
	Temperature *sensor.Temperature
	PH          *sensor.PH
	Level       *sensor.Level
	Color       *sensor.Color
}

// Probe acquires readings.
type Probe struct {
	c   Components
	log logrus.FieldLogger
}

// New creates a probe.
func New(c Components, log logrus.FieldLogger) *Probe {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Probe{c: c, log: log}
}

// Acquire runs one cycle: temperature, pH, level and color, in that order.
// It blocks for the whole cycle and never fails; faults are recorded in
// Reading.Flags.
func (p *Probe) Acquire() Reading {
	var r Reading

	var q sensor.Quality
	r.TemperatureC, q = p.c.Temperature.Read()
	switch q {
	case sensor.QualityInvalid:
		r.Flags |= FlagTemperatureInvalid
	case sensor.QualityImplausible:
		r.Flags |= FlagTemperatureImplausible
	}

	var err error
	if r.PH, err = p.c.PH.Read(); err != nil {
		r.Flags |= FlagPHFault
	}

	r.LevelWet = p.c.Level.Wet()

	color := p.c.Color.Read()
	r.ColorHz = color.ClearHz
	r.ColorR, r.ColorG, r.ColorB = color.R, color.G, color.B
	if color.NoSignal() {
		r.Flags |= FlagColorNoSignal
	}

	return r
}

// Run acquires a reading immediately and then every interval until ctx is
// done. Notifier errors are logged.
func (p *Probe) Run(ctx context.Context, interval time.Duration, n Notifier) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for ctx.Err() == nil {
		p.cycle(n)

		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
	return ctx.Err()
}

func (p *Probe) cycle(n Notifier) {
	start := time.Now()
	r := p.Acquire()

	fields := logrus.Fields{"took": time.Since(start)}
	for _, f := range r.Fields() {
		fields[f.Name] = f.Value
	}
	if r.Flags != 0 {
		fields["flags"] = r.Flags.String()
	}
	p.log.WithFields(fields).Debug("Reading acquired")

	if err := n.Notify(r); err != nil {
		p.log.WithError(err).Warn("Notify failed")
	}
}
