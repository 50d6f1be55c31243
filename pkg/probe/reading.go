package probe

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chewxy/math32"
)

// Flag marks a condition raised while acquiring a Reading.
type Flag uint8

const (
	FlagTemperatureInvalid Flag = 1 << iota
	FlagTemperatureImplausible
	FlagPHFault
	FlagColorNoSignal
)

// AllFlags lists every flag in bit order.
var AllFlags = []Flag{
	FlagTemperatureInvalid,
	FlagTemperatureImplausible,
	FlagPHFault,
	FlagColorNoSignal,
}

// Has reports whether all bits of x are set.
func (f Flag) Has(x Flag) bool {
	return f&x == x
}

// Name returns the name of a single flag.
func (f Flag) Name() string {
	switch f {
	case FlagTemperatureInvalid:
		return "temperature_invalid"
	case FlagTemperatureImplausible:
		return "temperature_implausible"
	case FlagPHFault:
		return "ph_fault"
	case FlagColorNoSignal:
		return "color_no_signal"
	default:
		return fmt.Sprintf("flag_%d", uint8(f))
	}
}

func (f Flag) String() string {
	var names []string
	for _, x := range AllFlags {
		if f.Has(x) {
			names = append(names, x.Name())
		}
	}
	return strings.Join(names, "|")
}

// Reading is one complete acquisition cycle.
type Reading struct {
	TemperatureC float32
	PH           float32 // NaN when the ADC failed
	LevelWet     bool
	ColorHz      float32
	ColorR       float32
	ColorG       float32
	ColorB       float32
	Flags        Flag
}

// Field is a named text payload of a Reading.
type Field struct {
	Name  string
	Value string
}

// Field names, in payload order.
const (
	FieldTemperature = "temperature"
	FieldPH          = "ph"
	FieldLevel       = "level"
	FieldColorHz     = "color_hz"
	FieldColorR      = "color_r"
	FieldColorG      = "color_g"
	FieldColorB      = "color_b"
)

// Fields returns the text payloads of the reading.
func (r Reading) Fields() []Field {
	return []Field{
		{FieldTemperature, fmt.Sprintf("%.2f", r.TemperatureC)},
		{FieldPH, fmt.Sprintf("%.2f", r.PH)},
		{FieldLevel, fmt.Sprintf("%d", r.Level())},
		{FieldColorHz, fmt.Sprintf("%.0f", r.ColorHz)},
		{FieldColorR, fmt.Sprintf("%.3f", r.ColorR)},
		{FieldColorG, fmt.Sprintf("%.3f", r.ColorG)},
		{FieldColorB, fmt.Sprintf("%.3f", r.ColorB)},
	}
}

// Level returns 1 when wet, 0 when dry.
func (r Reading) Level() int {
	if r.LevelWet {
		return 1
	}
	return 0
}

// Color returns the color payload "hz,r,g,b".
func (r Reading) Color() string {
	return fmt.Sprintf("%.0f,%.3f,%.3f,%.3f", r.ColorHz, r.ColorR, r.ColorG, r.ColorB)
}

type readingJSON struct {
	TemperatureC float32  `json:"temperature_c"`
	PH           *float32 `json:"ph"`
	LevelWet     bool     `json:"level_wet"`
	ColorHz      float32  `json:"color_hz"`
	ColorR       float32  `json:"color_r"`
	ColorG       float32  `json:"color_g"`
	ColorB       float32  `json:"color_b"`
	Flags        []string `json:"flags,omitempty"`
}

// MarshalJSON encodes a faulted pH as null.
func (r Reading) MarshalJSON() ([]byte, error) {
	out := readingJSON{
		TemperatureC: r.TemperatureC,
		LevelWet:     r.LevelWet,
		ColorHz:      r.ColorHz,
		ColorR:       r.ColorR,
		ColorG:       r.ColorG,
		ColorB:       r.ColorB,
	}
	if !math32.IsNaN(r.PH) {
		ph := r.PH
		out.PH = &ph
	}
	for _, f := range AllFlags {
		if r.Flags.Has(f) {
			out.Flags = append(out.Flags, f.Name())
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the MarshalJSON format. A null pH becomes NaN.
func (r *Reading) UnmarshalJSON(data []byte) error {
	var in readingJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = Reading{
		TemperatureC: in.TemperatureC,
		PH:           math32.NaN(),
		LevelWet:     in.LevelWet,
		ColorHz:      in.ColorHz,
		ColorR:       in.ColorR,
		ColorG:       in.ColorG,
		ColorB:       in.ColorB,
	}
	if in.PH != nil {
		r.PH = *in.PH
	}
	for _, name := range in.Flags {
		for _, f := range AllFlags {
			if f.Name() == name {
				r.Flags |= f
			}
		}
	}
	return nil
}
