// Package notify delivers probe readings to transports: MQTT, BLE GATT,
// Prometheus, a serial line, websocket clients and an OLED display.
//
// Every sink implements probe.Notifier and receives a copy of each Reading.
package notify

import (
	"sync"
	"time"

	"github.com/itohio/aquaprobe/pkg/probe"
)

// Latest keeps the most recent reading for sinks that serve it on demand.
type Latest struct {
	mu  sync.RWMutex
	r   probe.Reading
	at  time.Time
	ok  bool
	now func() time.Time
}

// NewLatest creates an empty Latest.
func NewLatest() *Latest {
	return &Latest{now: time.Now}
}

// Notify stores r.
func (l *Latest) Notify(r probe.Reading) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r = r
	l.at = l.now()
	l.ok = true
	return nil
}

// Get returns the latest reading, when it arrived, and whether any reading
// arrived yet.
func (l *Latest) Get() (probe.Reading, time.Time, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.r, l.at, l.ok
}
