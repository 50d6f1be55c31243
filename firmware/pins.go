//go:build tinygo && esp32

package main

import "machine"

const (
	// Sampling configuration
	PH_SAMPLES       = 64  // ADC reads averaged per pH reading
	PH_SAMPLE_DELAY  = 150 // Microseconds between pH ADC reads
	COLOR_SAMPLES    = 5   // Median filter length per color channel, odd
	PULSE_TIMEOUT_US = 60000
	FILTER_SETTLE_MS = 10
	CYCLE_MS         = 2000

	// ADC configuration
	ADC_REFERENCE_MV = 3300
	ADC_RESOLUTION   = 12
	ADC_MAX          = 1<<16 - 1 // machine.ADC.Get scales to 16 bits

	// pH calibration, pH = slope * volts + offset
	PH_SLOPE  = -5.70
	PH_OFFSET = 21.34

	// Temperature offset added to every DS18B20 reading (°C)
	TEMPERATURE_OFFSET = 0.0

	// Float switch reads low when wet
	LEVEL_WET_LOW = true

	// Color references in Hz: dark and bright per filter
	RED_DARK, RED_BRIGHT     = 1500, 12000
	GREEN_DARK, GREEN_BRIGHT = 1400, 11000
	BLUE_DARK, BLUE_BRIGHT   = 1800, 14000

	// Pins
	PIN_ONEWIRE = machine.GPIO26
	PIN_PH      = machine.GPIO35
	PIN_LEVEL   = machine.GPIO5
	PIN_S0      = machine.GPIO16
	PIN_S1      = machine.GPIO17
	PIN_S2      = machine.GPIO18
	PIN_S3      = machine.GPIO19
	PIN_OUT     = machine.GPIO34

	// Output format: "temp,ph,level,clear_hz,r,g,b\n", ~45 bytes per line
	UART_BAUD_RATE = 115200
)
