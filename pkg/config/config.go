package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Measurement modes of the color sensor.
const (
	ModeFrequency  = "frequency"
	ModePulseWidth = "pulse_width"
)

// Level polarities.
const (
	LevelLow  = "low"
	LevelHigh = "high"
)

// pH calibration units.
const (
	UnitVolts  = "volts"
	UnitCounts = "counts"
)

// MaxFilterSamples bounds the color median filter length.
const MaxFilterSamples = 21

// Config represents the application configuration.
type Config struct {
	Probe       ProbeConfig       `yaml:"probe"`
	Temperature TemperatureConfig `yaml:"temperature"`
	PH          PHConfig          `yaml:"ph"`
	Level       LevelConfig       `yaml:"level"`
	Color       ColorConfig       `yaml:"color"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	BLE         BLEConfig         `yaml:"ble"`
	HTTP        HTTPConfig        `yaml:"http"`
	Serial      SerialConfig      `yaml:"serial"`
	Display     DisplayConfig     `yaml:"display"`
	Mock        MockConfig        `yaml:"mock"`
	Monitor     MonitorConfig     `yaml:"monitor"`
	Log         LogConfig         `yaml:"log"`
}

// ProbeConfig contains acquisition loop parameters.
type ProbeConfig struct {
	Name     string        `yaml:"name"`
	Interval time.Duration `yaml:"interval"`
}

// TemperatureConfig contains the DS18B20 probe parameters.
type TemperatureConfig struct {
	Offset     float64 `yaml:"offset"` // Added to every reading (°C)
	Min        float64 `yaml:"min"`    // Lowest plausible reading (°C)
	Max        float64 `yaml:"max"`    // Highest plausible reading (°C)
	Address    string  `yaml:"address"`
	Resolution int     `yaml:"resolution"` // Conversion resolution in bits (9-12)
}

// PHConfig contains pH conversion and calibration parameters.
type PHConfig struct {
	Slope       float64       `yaml:"slope"`
	Offset      float64       `yaml:"offset"`
	Unit        string        `yaml:"unit"`   // "volts" or "counts": what slope/offset apply to
	Points      []PHPoint     `yaml:"points"` // Two buffer points override slope/offset when present
	Samples     int           `yaml:"samples"`
	SampleDelay time.Duration `yaml:"sample_delay"`
	ADC         ADCConfig     `yaml:"adc"`
}

// PHPoint is a buffer-solution calibration point.
type PHPoint struct {
	Raw float64 `yaml:"raw"` // Measured value in the configured unit
	PH  float64 `yaml:"ph"`
}

// ADCConfig describes the analog front end used by the pH probe.
type ADCConfig struct {
	Bus       string  `yaml:"bus"`
	Address   uint16  `yaml:"address"`
	Channel   int     `yaml:"channel"`
	FullScale float64 `yaml:"full_scale"` // Volts at full-scale count
	Bits      int     `yaml:"bits"`
}

// LevelConfig contains the float switch parameters.
type LevelConfig struct {
	Pin      string `yaml:"pin"`
	Pull     string `yaml:"pull"`      // "up", "down" or "float"
	WetLevel string `yaml:"wet_level"` // Logic level meaning wet: "low" or "high"
}

// ColorConfig contains TCS3200 parameters.
type ColorConfig struct {
	Mode    string        `yaml:"mode"`
	Samples int           `yaml:"samples"` // Median filter length, odd
	Timeout time.Duration `yaml:"timeout"` // Per pulse timeout
	Settle  time.Duration `yaml:"settle"`  // Wait after switching filters
	Scaling int           `yaml:"scaling"` // Output frequency scaling in percent: 0, 2, 20 or 100
	Pins    ColorPins     `yaml:"pins"`
	Red     Reference     `yaml:"red"`
	Green   Reference     `yaml:"green"`
	Blue    Reference     `yaml:"blue"`
}

// ColorPins names the TCS3200 control and output lines.
type ColorPins struct {
	S0  string `yaml:"s0"`
	S1  string `yaml:"s1"`
	S2  string `yaml:"s2"`
	S3  string `yaml:"s3"`
	Out string `yaml:"out"`
}

// Reference is a dark/bright calibration pair in Hz or µs depending on mode.
type Reference struct {
	Dark   float64 `yaml:"dark"`
	Bright float64 `yaml:"bright"`
}

// MQTTConfig contains the MQTT notifier parameters.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
	Retained    bool   `yaml:"retained"`
}

// BLEConfig contains the BLE GATT notifier parameters.
type BLEConfig struct {
	Enabled    bool   `yaml:"enabled"`
	DeviceName string `yaml:"device_name"`
}

// HTTPConfig contains the HTTP server parameters.
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// DisplayConfig contains the SSD1306 display parameters. The display is
// always addressed at 0x3C.
type DisplayConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bus     string `yaml:"bus"`
}

// MockConfig contains simulated hardware configuration.
type MockConfig struct {
	TemperatureC float64 `yaml:"temperature_c"`
	PHVolts      float64 `yaml:"ph_volts"`
	LevelWet     bool    `yaml:"level_wet"`
	ClearHz      float64 `yaml:"clear_hz"`
	RedHz        float64 `yaml:"red_hz"`
	GreenHz      float64 `yaml:"green_hz"`
	BlueHz       float64 `yaml:"blue_hz"`
	NoiseLevel   float64 `yaml:"noise_level"` // Relative noise amplitude
}

// MonitorConfig contains the desktop monitor parameters.
type MonitorConfig struct {
	Window  time.Duration `yaml:"window"`  // Length of the plotted history
	Smooth  int           `yaml:"smooth"`  // Moving average length, 0 disables
	Channel string        `yaml:"channel"` // Initially plotted channel
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Probe: ProbeConfig{
			Name:     "AquaProbe",
			Interval: 2 * time.Second,
		},
		Temperature: TemperatureConfig{
			Offset:     0.0,
			Min:        -55,
			Max:        125,
			Resolution: 12,
		},
		PH: PHConfig{
			Slope:       -5.70,
			Offset:      21.34,
			Unit:        UnitVolts,
			Samples:     64,
			SampleDelay: 150 * time.Microsecond,
			ADC: ADCConfig{
				Address:   0x48,
				Channel:   0,
				FullScale: 4.096,
				Bits:      15,
			},
		},
		Level: LevelConfig{
			Pin:      "GPIO5",
			Pull:     "up",
			WetLevel: LevelLow, // Switch closes to ground when wet
		},
		Color: ColorConfig{
			Mode:    ModeFrequency,
			Samples: 5,
			Timeout: 60 * time.Millisecond,
			Settle:  10 * time.Millisecond,
			Scaling: 20,
			Pins: ColorPins{
				S0:  "GPIO16",
				S1:  "GPIO17",
				S2:  "GPIO18",
				S3:  "GPIO19",
				Out: "GPIO24",
			},
			Red:   Reference{Dark: 1500, Bright: 12000},
			Green: Reference{Dark: 1400, Bright: 11000},
			Blue:  Reference{Dark: 1800, Bright: 14000},
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "aquaprobe",
			TopicPrefix: "aquaprobe",
			Retained:    true,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Listen:  ":8080",
		},
		Serial: SerialConfig{
			Port:     "/dev/ttyUSB0",
			BaudRate: 115200,
		},
		Mock: MockConfig{
			TemperatureC: 22.5,
			PHVolts:      2.5,
			LevelWet:     true,
			ClearHz:      9000,
			RedHz:        6000,
			GreenHz:      5000,
			BlueHz:       4000,
			NoiseLevel:   0.01,
		},
		Monitor: MonitorConfig{
			Window:  10 * time.Minute,
			Channel: "Temperature",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ensureDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks values that have no meaningful default.
func (c *Config) Validate() error {
	if c.Probe.Interval <= 0 {
		return fmt.Errorf("probe.interval must be positive, got %s", c.Probe.Interval)
	}
	switch c.Color.Mode {
	case ModeFrequency, ModePulseWidth:
	default:
		return fmt.Errorf("color.mode must be %q or %q, got %q", ModeFrequency, ModePulseWidth, c.Color.Mode)
	}
	if c.Color.Samples < 1 || c.Color.Samples > MaxFilterSamples || c.Color.Samples%2 == 0 {
		return fmt.Errorf("color.samples must be odd and within 1..%d, got %d", MaxFilterSamples, c.Color.Samples)
	}
	switch c.Color.Scaling {
	case 0, 2, 20, 100:
	default:
		return fmt.Errorf("color.scaling must be 0, 2, 20 or 100, got %d", c.Color.Scaling)
	}

	switch c.Level.WetLevel {
	case LevelLow, LevelHigh:
	default:
		return fmt.Errorf("level.wet_level must be %q or %q, got %q", LevelLow, LevelHigh, c.Level.WetLevel)
	}
	switch c.Level.Pull {
	case "up", "down", "float":
	default:
		return fmt.Errorf("level.pull must be up, down or float, got %q", c.Level.Pull)
	}

	switch c.PH.Unit {
	case UnitVolts, UnitCounts:
	default:
		return fmt.Errorf("ph.unit must be %q or %q, got %q", UnitVolts, UnitCounts, c.PH.Unit)
	}
	if c.PH.ADC.Bits < 1 || c.PH.ADC.Bits > 31 {
		return fmt.Errorf("ph.adc.bits must be within 1..31, got %d", c.PH.ADC.Bits)
	}
	if c.PH.ADC.FullScale <= 0 {
		return fmt.Errorf("ph.adc.full_scale must be positive, got %g", c.PH.ADC.FullScale)
	}
	if n := len(c.PH.Points); n != 0 && n != 2 {
		return fmt.Errorf("ph.points must hold exactly two buffer points, got %d", n)
	}
	if len(c.PH.Points) == 2 && c.PH.Points[0].Raw == c.PH.Points[1].Raw {
		return fmt.Errorf("ph.points must have distinct raw values")
	}

	if c.Temperature.Min >= c.Temperature.Max {
		return fmt.Errorf("temperature.min must be below temperature.max")
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Probe.Name == "" {
		c.Probe.Name = def.Probe.Name
	}
	if c.Probe.Interval == 0 {
		c.Probe.Interval = def.Probe.Interval
	}

	if c.Temperature.Min == 0 && c.Temperature.Max == 0 {
		c.Temperature.Min = def.Temperature.Min
		c.Temperature.Max = def.Temperature.Max
	}
	if c.Temperature.Resolution == 0 {
		c.Temperature.Resolution = def.Temperature.Resolution
	}

	if c.PH.Unit == "" {
		c.PH.Unit = def.PH.Unit
	}
	if c.PH.Samples == 0 {
		c.PH.Samples = def.PH.Samples
	}
	if c.PH.ADC.Address == 0 {
		c.PH.ADC.Address = def.PH.ADC.Address
	}
	if c.PH.ADC.FullScale == 0 {
		c.PH.ADC.FullScale = def.PH.ADC.FullScale
	}
	if c.PH.ADC.Bits == 0 {
		c.PH.ADC.Bits = def.PH.ADC.Bits
	}

	if c.Level.Pin == "" {
		c.Level.Pin = def.Level.Pin
	}
	if c.Level.Pull == "" {
		c.Level.Pull = def.Level.Pull
	}

	if c.Color.Mode == "" {
		c.Color.Mode = def.Color.Mode
	}
	if c.Color.Samples == 0 {
		c.Color.Samples = def.Color.Samples
	}
	if c.Color.Timeout == 0 {
		c.Color.Timeout = def.Color.Timeout
	}
	if c.Color.Settle == 0 {
		c.Color.Settle = def.Color.Settle
	}
	if c.Color.Pins == (ColorPins{}) {
		c.Color.Pins = def.Color.Pins
	}

	if c.MQTT.Broker == "" {
		c.MQTT.Broker = def.MQTT.Broker
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = def.MQTT.TopicPrefix
	}

	if c.BLE.DeviceName == "" {
		c.BLE.DeviceName = c.Probe.Name
	}
	if c.HTTP.Listen == "" {
		c.HTTP.Listen = def.HTTP.Listen
	}
	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Monitor.Window == 0 {
		c.Monitor.Window = def.Monitor.Window
	}
	if c.Monitor.Channel == "" {
		c.Monitor.Channel = def.Monitor.Channel
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}
