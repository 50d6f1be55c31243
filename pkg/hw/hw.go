// Package hw binds the probe channel converters to hardware: periph.io
// drivers on a Linux host, or a simulated board.
package hw

import (
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/itohio/aquaprobe/pkg/calib"
	"github.com/itohio/aquaprobe/pkg/config"
	"github.com/itohio/aquaprobe/pkg/probe"
	"github.com/itohio/aquaprobe/pkg/pulse"
	"github.com/itohio/aquaprobe/pkg/sensor"
)

// Board is the set of hardware collaborators the converters need.
type Board struct {
	Thermometer sensor.Thermometer
	ADC         sensor.ADC
	Level       sensor.LevelInput
	Selector    *sensor.FilterSelector
	ColorOut    pulse.Input

	// Clock times color pulses. Nil selects the system clock.
	Clock pulse.Clock
	// Sleep waits for settle delays. Nil selects time.Sleep.
	Sleep func(time.Duration)

	closers []io.Closer
}

// Close releases the buses held by the board.
func (b *Board) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// Components builds the channel converters on top of the board and applies
// the configured color scaling.
func (b *Board) Components(cfg *config.Config, c *calib.Constants, log logrus.FieldLogger) (probe.Components, error) {
	scaling, err := sensor.ParseScaling(cfg.Color.Scaling)
	if err != nil {
		return probe.Components{}, err
	}
	if err := b.Selector.SetScaling(scaling); err != nil {
		return probe.Components{}, err
	}

	if log == nil {
		log = logrus.StandardLogger()
	}
	opts := []sensor.Option{sensor.WithLogger(log)}
	if b.Sleep != nil {
		opts = append(opts, sensor.WithSleep(b.Sleep))
	}
	var meterOpts []pulse.Option
	if b.Clock != nil {
		meterOpts = append(meterOpts, pulse.WithClock(b.Clock))
	}
	meter := pulse.New(b.ColorOut, cfg.Color.Timeout, meterOpts...)

	return probe.Components{
		Temperature: sensor.NewTemperature(b.Thermometer, c, opts...),
		PH:          sensor.NewPH(b.ADC, c, cfg.PH, opts...),
		Level:       sensor.NewLevel(b.Level, sensor.WetLevel(cfg.Level.WetLevel)),
		Color: sensor.NewColor(b.Selector, sensor.NewStrategy(c.Mode, meter), c, sensor.ColorOptions{
			Samples: cfg.Color.Samples,
			Settle:  cfg.Color.Settle,
		}, opts...),
	}, nil
}
