package notify

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"go.bug.st/serial"

	"github.com/itohio/aquaprobe/pkg/config"
	"github.com/itohio/aquaprobe/pkg/link"
	"github.com/itohio/aquaprobe/pkg/probe"
)

// Line writes every reading as one text line.
type Line struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLine writes lines to w.
func NewLine(w io.Writer) *Line {
	return &Line{w: w}
}

// OpenSerial opens the configured serial port for line output.
func OpenSerial(cfg config.SerialConfig) (*Line, error) {
	baud := cfg.BaudRate
	if baud == 0 {
		baud = link.DefaultBaudRate
	}
	port, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open serial port %s", cfg.Port)
	}
	return NewLine(port), nil
}

// Notify writes the encoded reading.
func (l *Line) Notify(r probe.Reading) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := io.WriteString(l.w, link.Encode(r)); err != nil {
		return errors.Wrap(err, "write line")
	}
	return nil
}

// Close closes the underlying writer when it is closable.
func (l *Line) Close() error {
	if c, ok := l.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
