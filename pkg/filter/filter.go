// Package filter reduces repeated raw samples of one channel to a single
// representative value.
//
// Median suits fault-prone discrete pulse timing, where one wildly wrong
// sample must not move the result. Mean suits analog channels sampled many
// times.
package filter

import (
	"cmp"
	"slices"
	"time"
)

// Number is the set of sample types the mean accepts.
type Number interface {
	~int | ~int16 | ~int32 | ~int64 | ~uint16 | ~uint32 | ~float32 | ~float64
}

// Median returns the middle element of the sorted samples. For an even
// count it returns the upper middle element. The input is not modified.
// An empty input yields the zero value.
func Median[T cmp.Ordered](samples []T) T {
	if len(samples) == 0 {
		var zero T
		return zero
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)
	return sorted[len(sorted)/2]
}

// MedianOf collects n samples sequentially and returns their median.
// Total latency is n times the latency of sample.
func MedianOf[T cmp.Ordered](n int, sample func() T) T {
	if n < 1 {
		n = 1
	}
	samples := make([]T, n)
	for i := range samples {
		samples[i] = sample()
	}
	return Median(samples)
}

// Mean returns the arithmetic mean of samples, 0 for an empty input.
func Mean[T Number](samples []T) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s)
	}
	return sum / float64(len(samples))
}

// Averager takes the mean of repeated reads of an analog channel.
type Averager struct {
	// Samples is the number of reads per call.
	Samples int
	// Delay is waited after each read to let the input settle.
	Delay time.Duration
	// Sleep replaces time.Sleep when set.
	Sleep func(time.Duration)
}

// MeanOf reads Samples values and returns the mean of the successful ones
// together with their count. Failed reads are skipped; the last error is
// returned only when every read failed.
func MeanOf[T Number](a Averager, read func() (T, error)) (float64, int, error) {
	n := a.Samples
	if n < 1 {
		n = 1
	}
	sleep := a.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var (
		sum     float64
		count   int
		lastErr error
	)
	for range n {
		v, err := read()
		if err != nil {
			lastErr = err
		} else {
			sum += float64(v)
			count++
		}
		if a.Delay > 0 {
			sleep(a.Delay)
		}
	}

	if count == 0 {
		return 0, 0, lastErr
	}
	return sum / float64(count), count, nil
}
