//go:build !linux

package notify

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/itohio/aquaprobe/pkg/probe"
)

// BLE is only available on Linux.
type BLE struct{}

// StartBLE always fails on this platform.
func StartBLE(name string, log logrus.FieldLogger) (*BLE, error) {
	return nil, errors.New("BLE peripheral requires linux")
}

func (b *BLE) Notify(r probe.Reading) error { return nil }

func (b *BLE) Close() error { return nil }
