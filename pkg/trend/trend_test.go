package trend

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/aquaprobe/pkg/link"
	"github.com/itohio/aquaprobe/pkg/probe"
)

func sampleAt(t0 time.Time, offset time.Duration, temp float32) link.Sample {
	return link.Sample{
		Timestamp: t0.Add(offset),
		Reading: probe.Reading{
			TemperatureC: temp,
			PH:           7,
			LevelWet:     true,
			ColorHz:      8000,
			ColorR:       0.5,
			ColorG:       0.3,
			ColorB:       0.2,
		},
	}
}

func TestChannel_Value(t *testing.T) {
	r := probe.Reading{TemperatureC: 21.5, PH: 6.8, LevelWet: true, ColorHz: 9000, ColorR: 0.5, ColorG: 0.25, ColorB: 0.25}

	tests := []struct {
		ch   Channel
		want float64
	}{
		{Temperature, 21.5},
		{PH, 6.8},
		{Level, 1},
		{ColorHz, 9000},
		{ColorR, 0.5},
		{ColorG, 0.25},
		{ColorB, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.ch.String(), func(t *testing.T) {
			v, ok := tt.ch.Value(r)
			assert.True(t, ok)
			assert.InDelta(t, tt.want, v, 1e-6)
		})
	}
}

func TestChannel_ValueFaulted(t *testing.T) {
	r := probe.Reading{
		TemperatureC: -127,
		PH:           float32(math.NaN()),
		Flags:        probe.FlagTemperatureInvalid | probe.FlagPHFault,
	}

	_, ok := Temperature.Value(r)
	assert.False(t, ok)
	_, ok = PH.Value(r)
	assert.False(t, ok)
	_, ok = ColorHz.Value(r)
	assert.True(t, ok)
}

func TestParseChannel(t *testing.T) {
	for _, c := range Channels {
		got, ok := ParseChannel(c.String())
		require.True(t, ok, c.String())
		assert.Equal(t, c, got)
	}
	_, ok := ParseChannel("Turbidity")
	assert.False(t, ok)
}

func TestSeries_SkipsFaulted(t *testing.T) {
	t0 := time.Now()
	samples := []link.Sample{
		sampleAt(t0, 0, 20),
		sampleAt(t0, time.Second, 21),
		sampleAt(t0, 2*time.Second, 22),
	}
	samples[1].Reading.Flags = probe.FlagTemperatureInvalid

	points := Series(nil, samples, Temperature)
	require.Len(t, points, 2)
	assert.Equal(t, 20.0, points[0].Value)
	assert.Equal(t, 22.0, points[1].Value)
	assert.Equal(t, samples[2].Timestamp, points[1].Timestamp)

	dst := make([]Point, 0, 10)
	points = Series(dst, samples, PH)
	assert.Len(t, points, 3)
	assert.Equal(t, cap(dst), cap(points))
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Stats{}, Summarize(nil))

	s := Summarize([]Point{{Value: 3}, {Value: 1}, {Value: 5}, {Value: 3}})
	assert.Equal(t, Stats{Count: 4, Min: 1, Max: 5, Mean: 3, Last: 3}, s)
}

func TestHistory_WindowRemoval(t *testing.T) {
	h := New(time.Second)
	t0 := time.Now()

	h.Add(sampleAt(t0, 0, 20))
	h.Add(sampleAt(t0, 600*time.Millisecond, 21))
	h.Add(sampleAt(t0, 1500*time.Millisecond, 22))

	samples := h.Samples()
	require.Len(t, samples, 2)
	assert.Equal(t, float32(21), samples[0].Reading.TemperatureC)
	assert.Equal(t, float32(22), samples[1].Reading.TemperatureC)

	// A sample exactly one window old is removed.
	h.Add(sampleAt(t0, 2500*time.Millisecond, 23))
	samples = h.Samples()
	require.Len(t, samples, 1)
	assert.Equal(t, float32(23), samples[0].Reading.TemperatureC)
}

func TestHistory_WindowBoundary(t *testing.T) {
	h := New(time.Second)
	t0 := time.Now()

	h.Add(sampleAt(t0, 500*time.Millisecond, 21))
	h.Add(sampleAt(t0, 1500*time.Millisecond, 22))

	samples := h.Samples()
	require.Len(t, samples, 1)
	assert.Equal(t, float32(22), samples[0].Reading.TemperatureC)
}

func TestHistory_SamplesIsCopy(t *testing.T) {
	h := New(time.Minute)
	h.Add(sampleAt(time.Now(), 0, 20))

	samples := h.Samples()
	samples[0].Reading.TemperatureC = 99
	assert.Equal(t, float32(20), h.Samples()[0].Reading.TemperatureC)

	h.Clear()
	assert.Empty(t, h.Samples())
}

func TestHistory_OnUpdate(t *testing.T) {
	h := New(time.Minute)
	var got [][]link.Sample
	h.OnUpdate(func(samples []link.Sample) {
		got = append(got, samples)
	})

	t0 := time.Now()
	h.Add(sampleAt(t0, 0, 20))
	h.Add(sampleAt(t0, time.Second, 21))

	require.Len(t, got, 2)
	assert.Len(t, got[0], 1)
	assert.Len(t, got[1], 2)
}

func TestHistory_NoCallbacksAfterClose(t *testing.T) {
	h := New(time.Minute)

	var (
		mu    sync.Mutex
		count int
	)
	h.OnUpdate(func([]link.Sample) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	in := make(chan link.Sample, 3)
	t0 := time.Now()
	for i := range 3 {
		in <- sampleAt(t0, time.Duration(i)*time.Second, 20)
	}
	close(in)
	h.Process(in)

	h.Add(sampleAt(t0, 5*time.Second, 20))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, count)
	assert.Len(t, h.Samples(), 3)
}

func TestHistory_ResetShutdown(t *testing.T) {
	h := New(time.Minute)
	in := make(chan link.Sample)
	close(in)
	h.Process(in)

	h.Add(sampleAt(time.Now(), 0, 20))
	assert.Empty(t, h.Samples())

	h.ResetShutdown()
	h.Add(sampleAt(time.Now(), 0, 20))
	assert.Len(t, h.Samples(), 1)
}
