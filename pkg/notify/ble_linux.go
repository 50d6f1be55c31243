//go:build linux

package notify

import (
	"context"
	"time"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/itohio/aquaprobe/pkg/probe"
)

// BLE serves readings from a GATT peripheral.
type BLE struct {
	latest *Latest
	subs   *Subscribers
	cancel context.CancelFunc
	done   chan struct{}
}

// StartBLE opens the HCI device, registers the service and advertises until
// Close is called.
func StartBLE(name string, log logrus.FieldLogger) (*BLE, error) {
	d, err := linux.NewDevice()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open ble")
	}
	ble.SetDefaultDevice(d)

	b := &BLE{
		latest: NewLatest(),
		subs:   NewSubscribers(),
		done:   make(chan struct{}),
	}
	if err := ble.AddService(NewService(b.latest, b.subs)); err != nil {
		ble.Stop()
		return nil, errors.Wrap(err, "add GATT service")
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	go func() {
		defer close(b.done)
		for ctx.Err() == nil {
			err := ble.AdvertiseNameAndServices(ctx, name, ServiceUUID)
			if err != nil && ctx.Err() == nil {
				log.WithError(err).Warn("BLE advertising stopped, restarting")
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
			}
		}
	}()
	log.WithField("name", name).Info("Advertising BLE service")
	return b, nil
}

// Notify updates the characteristics and notifies subscribers.
func (b *BLE) Notify(r probe.Reading) error {
	b.latest.Notify(r)
	return b.subs.Notify(r)
}

// Close stops advertising and releases the device.
func (b *BLE) Close() error {
	b.cancel()
	<-b.done
	return ble.Stop()
}
