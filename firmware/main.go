//go:build tinygo && esp32

//go:generate tinygo flash -target=esp32-coreboard-v2

package main

import (
	"machine"
	"strconv"
	"time"

	"tinygo.org/x/drivers/ds18b20"
	"tinygo.org/x/drivers/onewire"

	"github.com/itohio/aquaprobe/pkg/colormap"
	"github.com/itohio/aquaprobe/pkg/filter"
)

const invalidTemperature = -127

var (
	uart        = machine.UART0
	adcPH       machine.ADC
	thermometer ds18b20.Device

	line []byte
)

func main() {
	uart.Configure(machine.UARTConfig{BaudRate: UART_BAUD_RATE})

	ow := onewire.New(PIN_ONEWIRE)
	thermometer = ds18b20.New(ow)

	machine.InitADC()
	adcPH = machine.ADC{Pin: PIN_PH}
	adcPH.Configure(machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	})

	PIN_LEVEL.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	PIN_OUT.Configure(machine.PinConfig{Mode: machine.PinInput})
	for _, p := range []machine.Pin{PIN_S0, PIN_S1, PIN_S2, PIN_S3} {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	}
	// 20% output frequency scaling
	PIN_S0.High()
	PIN_S1.Low()

	for {
		start := time.Now()

		temp := readTemperature()
		ph := readPH()
		wet := PIN_LEVEL.Get() != LEVEL_WET_LOW
		clearHz, r, g, b := readColor()

		writeLine(temp, ph, wet, clearHz, r, g, b)

		if d := time.Duration(CYCLE_MS)*time.Millisecond - time.Since(start); d > 0 {
			time.Sleep(d)
		}
	}
}

// readTemperature returns °C, or -127 when the sensor does not answer.
func readTemperature() float32 {
	thermometer.RequestTemperature(nil)
	time.Sleep(750 * time.Millisecond)
	mc, err := thermometer.ReadTemperature(nil)
	if err != nil {
		return invalidTemperature
	}
	t := float32(mc) / 1000
	if t == invalidTemperature {
		return t
	}
	return t + TEMPERATURE_OFFSET
}

func readPH() float32 {
	var sum uint32
	for range PH_SAMPLES {
		sum += uint32(adcPH.Get())
		time.Sleep(PH_SAMPLE_DELAY * time.Microsecond)
	}
	counts := float32(sum) / PH_SAMPLES
	volts := counts * ADC_REFERENCE_MV / 1000 / ADC_MAX
	return PH_SLOPE*volts + PH_OFFSET
}

// TCS3200 filter selection on S2 and S3.
func selectFilter(s2, s3 bool) {
	PIN_S2.Set(s2)
	PIN_S3.Set(s3)
	time.Sleep(FILTER_SETTLE_MS * time.Millisecond)
}

func readColor() (clearHz, r, g, b float32) {
	selectFilter(true, false)
	clearHz = filter.MedianOf(COLOR_SAMPLES, frequency)
	selectFilter(false, false)
	red := filter.MedianOf(COLOR_SAMPLES, frequency)
	selectFilter(true, true)
	green := filter.MedianOf(COLOR_SAMPLES, frequency)
	selectFilter(false, true)
	blue := filter.MedianOf(COLOR_SAMPLES, frequency)

	ri := colormap.Frequency(red, RED_DARK, RED_BRIGHT)
	gi := colormap.Frequency(green, GREEN_DARK, GREEN_BRIGHT)
	bi := colormap.Frequency(blue, BLUE_DARK, BLUE_BRIGHT)
	r, g, b = colormap.Normalize(ri, gi, bi)
	return clearHz, r, g, b
}

// frequency measures one high and one low pulse, 0 on timeout.
func frequency() float32 {
	high := pulseIn(true)
	if high == 0 {
		return 0
	}
	low := pulseIn(false)
	if low == 0 {
		return 0
	}
	return 1e6 / float32(high+low)
}

// pulseIn returns the width in µs of the next complete pulse at level.
// machine.Pin has no edge wait, so this polls where pulse.Meter blocks.
func pulseIn(level bool) int64 {
	deadline := time.Now().Add(PULSE_TIMEOUT_US * time.Microsecond)
	waitWhile := func(l bool) bool {
		for PIN_OUT.Get() == l {
			if time.Now().After(deadline) {
				return false
			}
		}
		return true
	}

	if !waitWhile(level) || !waitWhile(!level) {
		return 0
	}
	start := time.Now()
	if !waitWhile(level) {
		return 0
	}
	return time.Since(start).Microseconds()
}

func writeLine(temp, ph float32, wet bool, clearHz, r, g, b float32) {
	line = line[:0]
	line = strconv.AppendFloat(line, float64(temp), 'f', 2, 32)
	line = append(line, ',')
	line = strconv.AppendFloat(line, float64(ph), 'f', 2, 32)
	line = append(line, ',')
	if wet {
		line = append(line, '1')
	} else {
		line = append(line, '0')
	}
	line = append(line, ',')
	line = strconv.AppendFloat(line, float64(clearHz), 'f', 0, 32)
	for _, v := range []float32{r, g, b} {
		line = append(line, ',')
		line = strconv.AppendFloat(line, float64(v), 'f', 3, 32)
	}
	line = append(line, '\n')
	uart.Write(line)
}
