package hw

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/onewire/onewirereg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/devices/v3/ds18b20"
	"periph.io/x/host/v3"

	"github.com/itohio/aquaprobe/pkg/config"
	"github.com/itohio/aquaprobe/pkg/sensor"
)

// Open initializes the host drivers and opens every probe peripheral.
func Open(cfg *config.Config, log logrus.FieldLogger) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "periph host init")
	}

	b := &Board{}
	if err := b.openThermometer(cfg.Temperature, log); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.openADC(cfg.PH.ADC); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.openGPIO(cfg); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *Board) openThermometer(cfg config.TemperatureConfig, log logrus.FieldLogger) error {
	bus, err := onewirereg.Open("")
	if err != nil {
		return errors.Wrap(err, "open one-wire bus")
	}
	b.closers = append(b.closers, bus)

	addr, err := thermometerAddress(bus, cfg.Address, log)
	if err != nil {
		return err
	}

	dev, err := ds18b20.New(bus, addr, cfg.Resolution)
	if err != nil {
		return errors.Wrapf(err, "ds18b20 %s", FormatAddress(addr))
	}
	b.Thermometer = &thermometer{dev: dev}
	return nil
}

func (b *Board) openADC(cfg config.ADCConfig) error {
	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return errors.Wrap(err, "open ADC I2C bus")
	}
	b.closers = append(b.closers, bus)

	opts := ads1x15.DefaultOpts
	opts.I2cAddress = cfg.Address
	dev, err := ads1x15.NewADS1115(bus, &opts)
	if err != nil {
		return errors.Wrap(err, "ads1115")
	}

	maxV := physic.ElectricPotential(cfg.FullScale * float64(physic.Volt))
	pin, err := dev.PinForChannel(ads1x15.Channel(cfg.Channel), maxV, 860*physic.Hertz, ads1x15.BestQuality)
	if err != nil {
		return errors.Wrapf(err, "ads1115 channel %d", cfg.Channel)
	}
	b.ADC = &adc{pin: pin}
	return nil
}

func (b *Board) openGPIO(cfg *config.Config) error {
	level, err := pin(cfg.Level.Pin)
	if err != nil {
		return err
	}
	pull, err := ParsePull(cfg.Level.Pull)
	if err != nil {
		return err
	}
	if err := level.In(pull, gpio.NoEdge); err != nil {
		return errors.Wrapf(err, "configure level pin %s", cfg.Level.Pin)
	}
	b.Level = level

	pins := cfg.Color.Pins
	sel := &FilterPins{}
	for _, p := range []struct {
		name string
		dst  *gpio.PinIO
	}{
		{pins.S0, &sel.S0}, {pins.S1, &sel.S1}, {pins.S2, &sel.S2}, {pins.S3, &sel.S3},
	} {
		if p.name == "" {
			continue
		}
		if *p.dst, err = pin(p.name); err != nil {
			return err
		}
		if err := (*p.dst).Out(gpio.Low); err != nil {
			return errors.Wrapf(err, "configure color pin %s", p.name)
		}
	}
	if sel.S2 == nil || sel.S3 == nil {
		return errors.New("color pins s2 and s3 are required")
	}
	b.Selector = sel.Selector()

	out, err := pin(pins.Out)
	if err != nil {
		return err
	}
	if err := out.In(gpio.Float, gpio.BothEdges); err != nil {
		return errors.Wrapf(err, "configure color output pin %s", pins.Out)
	}
	b.ColorOut = out
	return nil
}

// thermometerAddress returns the configured address, or the first device
// found on the bus when none is configured.
func thermometerAddress(bus onewire.Bus, configured string, log logrus.FieldLogger) (onewire.Address, error) {
	if configured != "" {
		return ParseAddress(configured)
	}
	addrs, err := bus.Search(false)
	if err != nil {
		return 0, errors.Wrap(err, "search one-wire bus")
	}
	if len(addrs) == 0 {
		return 0, errors.New("no one-wire devices found")
	}
	log.WithField("address", FormatAddress(addrs[0])).Info("Using first one-wire device")
	return addrs[0], nil
}

func pin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, errors.Errorf("unknown pin %q", name)
	}
	return p, nil
}

// ParsePull converts a configured pull resistor name.
func ParsePull(s string) (gpio.Pull, error) {
	switch s {
	case "up":
		return gpio.PullUp, nil
	case "down":
		return gpio.PullDown, nil
	case "float", "":
		return gpio.Float, nil
	}
	return gpio.PullNoChange, errors.Errorf("unknown pull %q", s)
}

// ParseAddress parses a one-wire ROM address written in hex, with or without
// a 0x prefix.
func ParseAddress(s string) (onewire.Address, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "one-wire address %q", s)
	}
	return onewire.Address(v), nil
}

// FormatAddress formats a one-wire address the way ParseAddress reads it.
func FormatAddress(a onewire.Address) string {
	return "0x" + strconv.FormatUint(uint64(a), 16)
}

// FilterPins are the color sensor control lines. Unused scaling pins stay nil.
type FilterPins struct {
	S0, S1, S2, S3 gpio.PinIO
}

// Selector wraps the pins in a sensor.FilterSelector.
func (p *FilterPins) Selector() *sensor.FilterSelector {
	sel := &sensor.FilterSelector{S2: p.S2, S3: p.S3}
	if p.S0 != nil && p.S1 != nil {
		sel.S0, sel.S1 = p.S0, p.S1
	}
	return sel
}

type thermometer struct {
	dev *ds18b20.Dev
}

func (t *thermometer) Celsius() (float64, error) {
	var e physic.Env
	if err := t.dev.Sense(&e); err != nil {
		return 0, errors.Wrap(err, "ds18b20 sense")
	}
	return e.Temperature.Celsius(), nil
}

type adc struct {
	pin ads1x15.PinADC
}

func (a *adc) ReadRaw() (int32, error) {
	s, err := a.pin.Read()
	if err != nil {
		return 0, errors.Wrap(err, "ads1115 read")
	}
	return s.Raw, nil
}
