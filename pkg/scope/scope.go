// Package scope is a Fyne widget plotting the trend of one probe channel.
package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/aquaprobe/pkg/link"
	"github.com/itohio/aquaprobe/pkg/trend"
)

const maxDisplayPoints = 1000

// ScopeWidget displays an oscilloscope-style graph of a trend channel and a
// swatch of the latest normalized color.
type ScopeWidget struct {
	widget.BaseWidget

	window time.Duration

	mu      sync.RWMutex
	channel trend.Channel
	samples []link.Sample
	series  []trend.Point
	display []trend.Point
	stats   trend.Stats
	swatch  color.NRGBA

	yMin, yMax float64
	xMin, xMax time.Time
}

// New creates a ScopeWidget showing ch over window.
func New(ch trend.Channel, window time.Duration) *ScopeWidget {
	s := &ScopeWidget{
		window:  window,
		channel: ch,
		series:  make([]trend.Point, 0, maxDisplayPoints),
		display: make([]trend.Point, 0, maxDisplayPoints),
	}
	s.ExtendBaseWidget(s)
	s.Refresh()
	return s
}

// Channel returns the plotted channel.
func (s *ScopeWidget) Channel() trend.Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channel
}

// SetChannel switches the plotted channel and redraws the last samples.
func (s *ScopeWidget) SetChannel(ch trend.Channel) {
	s.mu.Lock()
	s.channel = ch
	s.rebuild()
	s.mu.Unlock()
	s.Refresh()
}

// UpdateData replaces the plotted samples. Call it on the Fyne thread.
func (s *ScopeWidget) UpdateData(samples []link.Sample) {
	s.mu.Lock()
	s.samples = samples
	s.rebuild()
	s.mu.Unlock()
	s.Refresh()
}

// Stats returns statistics of the plotted series.
func (s *ScopeWidget) Stats() trend.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *ScopeWidget) rebuild() {
	s.series = trend.Series(s.series, s.samples, s.channel)
	s.display = trend.Downsample(s.display, s.series, maxDisplayPoints)
	s.stats = trend.Summarize(s.series)
	if n := len(s.samples); n > 0 {
		s.swatch = Swatch(s.samples[n-1])
	} else {
		s.swatch = color.NRGBA{}
	}
	s.yMin, s.yMax = autoScale(s.display)
	s.xMin, s.xMax = timeRange(s.display, s.window)
}

// Swatch renders the normalized color of a sample. The brightest channel
// maps to full intensity.
func Swatch(sample link.Sample) color.NRGBA {
	r := sample.Reading
	peak := max(r.ColorR, r.ColorG, r.ColorB)
	if peak <= 0 {
		return color.NRGBA{A: 255}
	}
	scale := func(v float32) uint8 {
		return uint8(v / peak * 255)
	}
	return color.NRGBA{R: scale(r.ColorR), G: scale(r.ColorG), B: scale(r.ColorB), A: 255}
}

// autoScale returns the Y range of points with a 10% margin.
func autoScale(points []trend.Point) (float64, float64) {
	if len(points) == 0 {
		return 0, 1
	}
	st := trend.Summarize(points)
	span := st.Max - st.Min
	if span == 0 {
		span = 1
	}
	margin := span * 0.1
	return st.Min - margin, st.Max + margin
}

// timeRange returns the X range of points, at least window wide.
func timeRange(points []trend.Point, window time.Duration) (time.Time, time.Time) {
	if len(points) == 0 {
		now := time.Now()
		return now, now.Add(window)
	}
	start := points[0].Timestamp
	end := points[len(points)-1].Timestamp
	if end.Sub(start) < window {
		end = start.Add(window)
	}
	return start, end
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	grid := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255})
	return &scopeRenderer{
		scope:   s,
		grid:    grid,
		objects: []fyne.CanvasObject{grid},
	}
}
