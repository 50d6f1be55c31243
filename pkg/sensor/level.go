package sensor

import (
	"periph.io/x/conn/v3/gpio"

	"github.com/itohio/aquaprobe/pkg/config"
)

// LevelInput is the float switch line.
type LevelInput interface {
	Read() gpio.Level
}

// Level reads the float switch.
type Level struct {
	in  LevelInput
	wet gpio.Level
}

// NewLevel creates a level converter. wet is the logic level meaning the
// switch is submerged.
func NewLevel(in LevelInput, wet gpio.Level) *Level {
	return &Level{in: in, wet: wet}
}

// WetLevel parses the configured polarity.
func WetLevel(s string) gpio.Level {
	return s == config.LevelHigh
}

// Wet reports whether the switch is submerged.
func (l *Level) Wet() bool {
	return l.in.Read() == l.wet
}
