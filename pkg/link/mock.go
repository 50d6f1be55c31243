package link

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/itohio/aquaprobe/pkg/probe"
)

// Acquirer produces readings on demand. *probe.Probe satisfies it.
type Acquirer interface {
	Acquire() probe.Reading
}

// Mock delivers readings acquired from a local probe, usually running on
// simulated hardware.
type Mock struct {
	src      Acquirer
	interval time.Duration

	samples   chan Sample
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	done      chan struct{}
}

// NewMock creates a mock link acquiring from src every interval.
func NewMock(src Acquirer, interval time.Duration) *Mock {
	if interval <= 0 {
		interval = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Mock{
		src:      src,
		interval: interval,
		samples:  make(chan Sample, DefaultBufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Connect starts generating samples.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return errors.New("already connected")
	}
	m.connected = true
	m.done = make(chan struct{})
	go m.generateSamples(m.done)
	return nil
}

// Close stops generating samples and closes the samples channel.
func (m *Mock) Close() error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil
	}
	m.cancel()
	m.connected = false
	done := m.done
	m.mu.Unlock()

	<-done
	close(m.samples)
	return nil
}

// Samples returns the channel readings are delivered on.
func (m *Mock) Samples() <-chan Sample {
	return m.samples
}

// IsConnected reports whether samples are being generated.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

func (m *Mock) generateSamples(done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			s := Sample{Timestamp: time.Now(), Reading: m.src.Acquire()}
			select {
			case m.samples <- s:
			case <-m.ctx.Done():
				return
			default:
				// Channel full, skip
			}
		}
	}
}
