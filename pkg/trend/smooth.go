package trend

import (
	"math"

	"github.com/itohio/aquaprobe/pkg/link"
	"github.com/itohio/aquaprobe/pkg/probe"
)

// Converter transforms a stream of samples.
type Converter func(in <-chan link.Sample) <-chan link.Sample

// Smooth returns a converter emitting the moving average of the last
// windowSize samples for every input sample. Level and flags follow the
// newest sample; faulted values are left out of their channel average.
// The output closes when the input closes.
func Smooth(windowSize int, bufSize int) Converter {
	if windowSize <= 0 {
		windowSize = 1
	}
	if bufSize <= 0 {
		bufSize = link.DefaultBufferSize
	}

	return func(in <-chan link.Sample) <-chan link.Sample {
		out := make(chan link.Sample, bufSize)

		go func() {
			defer close(out)

			buffer := make([]link.Sample, 0, windowSize+1)
			for s := range in {
				buffer = append(buffer, s)
				if len(buffer) > windowSize {
					buffer = buffer[1:]
				}
				out <- Average(buffer)
			}
		}()

		return out
	}
}

// Average combines samples into one, stamped with the newest timestamp.
func Average(samples []link.Sample) link.Sample {
	if len(samples) == 0 {
		return link.Sample{}
	}
	last := samples[len(samples)-1]

	avg := func(c Channel) (float32, bool) {
		var (
			sum float64
			n   int
		)
		for _, s := range samples {
			if v, ok := c.Value(s.Reading); ok {
				sum += v
				n++
			}
		}
		if n == 0 {
			return 0, false
		}
		return float32(sum / float64(n)), true
	}

	r := probe.Reading{
		TemperatureC: last.Reading.TemperatureC,
		PH:           float32(math.NaN()),
		LevelWet:     last.Reading.LevelWet,
		Flags:        last.Reading.Flags,
	}
	if v, ok := avg(Temperature); ok && !last.Reading.Flags.Has(probe.FlagTemperatureInvalid) {
		r.TemperatureC = v
	}
	if v, ok := avg(PH); ok {
		r.PH = v
		r.Flags &^= probe.FlagPHFault
	}
	r.ColorHz, _ = avg(ColorHz)
	r.ColorR, _ = avg(ColorR)
	r.ColorG, _ = avg(ColorG)
	r.ColorB, _ = avg(ColorB)

	return link.Sample{Timestamp: last.Timestamp, Reading: r}
}
