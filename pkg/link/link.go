// Package link receives probe readings from a remote probe over a serial line.
package link

import (
	"time"

	"github.com/itohio/aquaprobe/pkg/probe"
)

// DefaultBufferSize is the default size of the samples channel.
const DefaultBufferSize = 100

// Sample is a reading stamped with its arrival time.
type Sample struct {
	Timestamp time.Time
	Reading   probe.Reading
}

// Device is a source of readings, real or simulated.
type Device interface {
	Connect() error
	Close() error
	Samples() <-chan Sample
	IsConnected() bool
}

var (
	_ Device = (*Serial)(nil)
	_ Device = (*Mock)(nil)
)
