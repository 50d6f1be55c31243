package sensor

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/itohio/aquaprobe/pkg/calib"
	"github.com/itohio/aquaprobe/pkg/config"
	"github.com/itohio/aquaprobe/pkg/filter"
)

// ADC is a single analog input returning raw conversion counts.
type ADC interface {
	ReadRaw() (int32, error)
}

// PH averages the pH electrode voltage and maps it to pH.
type PH struct {
	adc       ADC
	c         *calib.Constants
	avg       filter.Averager
	fullScale float32
	maxCount  float32
	log       logrus.FieldLogger
}

// NewPH creates a pH converter sampling adc as described by cfg.
func NewPH(adc ADC, c *calib.Constants, cfg config.PHConfig, opts ...Option) *PH {
	o := newOptions(opts)
	return &PH{
		adc: adc,
		c:   c,
		avg: filter.Averager{
			Samples: cfg.Samples,
			Delay:   cfg.SampleDelay,
			Sleep:   o.sleep,
		},
		fullScale: float32(cfg.ADC.FullScale),
		maxCount:  float32(uint32(1)<<cfg.ADC.Bits - 1),
		log:       o.log.WithField("channel", "ph"),
	}
}

// Volts converts a mean ADC count to volts.
func (p *PH) Volts(counts float32) float32 {
	return counts / p.maxCount * p.fullScale
}

// Read returns the pH value. It returns NaN and an error only when every
// ADC sample of the cycle failed. The value is not clamped.
func (p *PH) Read() (float32, error) {
	mean, n, err := filter.MeanOf(p.avg, p.adc.ReadRaw)
	if n == 0 {
		p.log.WithError(err).Warn("pH ADC read failed")
		return math32.NaN(), errors.Wrap(err, "pH ADC")
	}
	if n < p.avg.Samples {
		p.log.WithFields(logrus.Fields{
			"used":    n,
			"samples": p.avg.Samples,
		}).Debug("pH ADC dropped samples")
	}

	x := float32(mean)
	if p.c.PHUnit == calib.UnitVolts {
		x = p.Volts(x)
	}
	return p.c.PH.Apply(x), nil
}
