package notify

import (
	"fmt"
	"image"

	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/itohio/aquaprobe/pkg/config"
	"github.com/itohio/aquaprobe/pkg/probe"
)

// Screen is a monochrome display. *ssd1306.Dev satisfies it.
type Screen interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// Display renders readings on an OLED screen.
type Display struct {
	screen Screen
	title  string
	bus    i2c.BusCloser
}

// OpenDisplay opens an SSD1306 on the configured I2C bus.
func OpenDisplay(cfg config.DisplayConfig, title string) (*Display, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "periph host init")
	}
	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, errors.Wrap(err, "open display I2C bus")
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, errors.Wrap(err, "ssd1306")
	}

	d := NewDisplay(dev, title)
	d.bus = bus
	return d, nil
}

// NewDisplay renders on screen.
func NewDisplay(screen Screen, title string) *Display {
	return &Display{screen: screen, title: title}
}

// Lines returns the text shown for r.
func (d *Display) Lines(r probe.Reading) []string {
	level := "dry"
	if r.LevelWet {
		level = "wet"
	}
	temp := fmt.Sprintf("T  %.2f C", r.TemperatureC)
	if r.Flags.Has(probe.FlagTemperatureInvalid) {
		temp = "T  --"
	}
	ph := fmt.Sprintf("pH %.2f", r.PH)
	if r.Flags.Has(probe.FlagPHFault) {
		ph = "pH --"
	}
	return []string{
		d.title,
		temp,
		ph + "  " + level,
		fmt.Sprintf("C  %.0f Hz", r.ColorHz),
		fmt.Sprintf("%.2f %.2f %.2f", r.ColorR, r.ColorG, r.ColorB),
	}
}

// Render draws r into a new frame.
func (d *Display) Render(r probe.Reading) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(d.screen.Bounds())
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range d.Lines(r) {
		drawer.Dot = fixed.P(0, 12+i*13)
		drawer.DrawString(line)
	}
	return img
}

// Notify shows r.
func (d *Display) Notify(r probe.Reading) error {
	img := d.Render(r)
	if err := d.screen.Draw(d.screen.Bounds(), img, image.Point{}); err != nil {
		return errors.Wrap(err, "draw display")
	}
	return nil
}

// Close releases the I2C bus.
func (d *Display) Close() error {
	if d.bus != nil {
		return d.bus.Close()
	}
	return nil
}
