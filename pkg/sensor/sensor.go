// Package sensor converts raw hardware measurements of the probe channels to
// calibrated engineering units.
//
// Converters never fail a cycle. Hardware faults are reported through sentinel
// values and quality markers and logged as warnings.
package sensor

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Option configures a converter.
type Option func(*options)

type options struct {
	sleep func(time.Duration)
	log   logrus.FieldLogger
}

// WithSleep replaces time.Sleep for settle delays.
func WithSleep(sleep func(time.Duration)) Option {
	return func(o *options) {
		o.sleep = sleep
	}
}

// WithLogger sets the logger warnings are written to.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		o.log = log
	}
}

func newOptions(opts []Option) options {
	o := options{
		sleep: time.Sleep,
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
