package link

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/itohio/aquaprobe/pkg/probe"
	"github.com/itohio/aquaprobe/pkg/sensor"
)

// lineFields is the number of comma separated values per line.
const lineFields = 7

// Encode formats a reading as one line.
// Format: temperature,ph,level,color_hz,color_r,color_g,color_b
// Example: 23.46,7.02,1,8124,0.500,0.250,0.250
func Encode(r probe.Reading) string {
	var b strings.Builder
	for i, f := range r.Fields() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.Value)
	}
	b.WriteByte('\n')
	return b.String()
}

// Parse parses a line produced by Encode. Flags that can be recovered from
// sentinel values are set.
func Parse(line string) (probe.Reading, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != lineFields {
		return probe.Reading{}, errors.Errorf("invalid line format: expected %d comma-separated values, got %d", lineFields, len(parts))
	}

	var (
		r      probe.Reading
		values [lineFields]float32
	)
	for i, p := range parts {
		if i == 2 {
			continue
		}
		v, err := strconv.ParseFloat(p, 32)
		if err != nil {
			return probe.Reading{}, errors.Wrapf(err, "invalid %s", fieldName(i))
		}
		values[i] = float32(v)
	}

	switch parts[2] {
	case "1":
		r.LevelWet = true
	case "0":
	default:
		return probe.Reading{}, errors.Errorf("invalid level: %q", parts[2])
	}

	r.TemperatureC = values[0]
	r.PH = values[1]
	r.ColorHz = values[3]
	r.ColorR, r.ColorG, r.ColorB = values[4], values[5], values[6]

	for i := 4; i < lineFields; i++ {
		if values[i] < 0 || values[i] > 1 {
			return probe.Reading{}, errors.Errorf("%s out of range: %s", fieldName(i), parts[i])
		}
	}

	if r.TemperatureC == sensor.InvalidTemperature {
		r.Flags |= probe.FlagTemperatureInvalid
	}
	if math32.IsNaN(r.PH) {
		r.Flags |= probe.FlagPHFault
	}
	if r.ColorR+r.ColorG+r.ColorB == 0 {
		r.Flags |= probe.FlagColorNoSignal
	}
	return r, nil
}

func fieldName(i int) string {
	names := [lineFields]string{
		probe.FieldTemperature,
		probe.FieldPH,
		probe.FieldLevel,
		probe.FieldColorHz,
		probe.FieldColorR,
		probe.FieldColorG,
		probe.FieldColorB,
	}
	if i < 0 || i >= lineFields {
		return fmt.Sprintf("field %d", i)
	}
	return names[i]
}
