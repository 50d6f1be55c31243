package link

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// DefaultBaudRate is the UART speed of the probe firmware.
const DefaultBaudRate = 115200

// Port is a serial port available on the host.
type Port struct {
	Name        string
	Description string
}

// Ports lists the serial ports of the host.
func Ports() ([]Port, error) {
	names, err := serial.GetPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list serial ports")
	}

	result := make([]Port, 0, len(names))
	for _, name := range names {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}

// Opener opens a serial port. serial.Open satisfies it.
type Opener func(name string, mode *serial.Mode) (serial.Port, error)

// Serial reads readings from a probe connected over a serial port.
type Serial struct {
	port     string
	baudRate int
	open     Opener
	log      logrus.FieldLogger

	conn      io.ReadWriteCloser
	samples   chan Sample
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	done      chan struct{}
}

// New creates a serial link. Zero baudRate and bufSize select defaults.
func New(port string, baudRate int, bufSize int, log logrus.FieldLogger) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		open:     serial.Open,
		log:      log.WithField("port", port),
		samples:  make(chan Sample, bufSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Connect opens the port and starts reading lines.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return errors.New("already connected")
	}

	port, err := d.open(d.port, &serial.Mode{BaudRate: d.baudRate})
	if err != nil {
		return errors.Wrapf(err, "failed to open serial port %s", d.port)
	}

	d.attach(port)
	return nil
}

func (d *Serial) attach(conn io.ReadWriteCloser) {
	d.conn = conn
	d.connected = true
	d.done = make(chan struct{})
	go d.readSamples(conn, d.done)
}

// Close closes the port and the samples channel.
func (d *Serial) Close() error {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return nil
	}

	d.cancel()
	if err := d.conn.Close(); err != nil {
		d.log.WithError(err).Warn("Error closing serial port")
	}
	d.conn = nil
	d.connected = false
	done := d.done
	d.mu.Unlock()

	<-done
	close(d.samples)
	return nil
}

// Samples returns the channel readings are delivered on.
func (d *Serial) Samples() <-chan Sample {
	return d.samples
}

// IsConnected reports whether the port is open.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

func (d *Serial) readSamples(conn io.Reader, done chan struct{}) {
	defer close(done)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		r, err := Parse(line)
		if err != nil {
			d.log.WithError(err).WithField("line", line).Debug("Failed to parse line")
			continue
		}

		select {
		case d.samples <- Sample{Timestamp: time.Now(), Reading: r}:
		case <-d.ctx.Done():
			return
		default:
			d.log.Warn("Samples channel full, dropping sample")
		}
	}
	if err := scanner.Err(); err != nil && d.ctx.Err() == nil {
		d.log.WithError(err).Warn("Error reading from serial port")
	}
}
