package scope

import (
	"fmt"
	"image/color"
	"math"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"github.com/itohio/aquaprobe/pkg/trend"
)

var (
	gridColor   = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor  = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	seriesColor = color.RGBA{R: 255, G: 165, B: 0, A: 255}
	statsColor  = color.RGBA{R: 200, G: 200, B: 200, A: 255}
)

type scopeRenderer struct {
	scope *ScopeWidget

	grid    *canvas.Rectangle
	objects []fyne.CanvasObject

	lastSize fyne.Size
}

func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

func (r *scopeRenderer) Layout(size fyne.Size) {
	r.grid.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	ch := r.scope.channel
	points := r.scope.display
	stats := r.scope.stats
	swatch := r.scope.swatch
	yMin, yMax := r.scope.yMin, r.scope.yMax
	xMin, xMax := r.scope.xMin, r.scope.xMax
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.grid}

	const (
		marginLeft   = 60
		marginRight  = 20
		marginTop    = 20
		marginBottom = 40
	)
	plot := plotArea{
		x:    marginLeft,
		y:    marginTop,
		w:    size.Width - marginLeft - marginRight,
		h:    size.Height - marginTop - marginBottom,
		yMin: yMin,
		yMax: yMax,
		xMin: xMin,
		xMax: xMax,
	}

	r.drawGrid(plot, ch)
	r.drawSeries(plot, points)
	r.drawStats(plot, ch, stats)
	r.drawSwatch(plot, swatch)
}

type plotArea struct {
	x, y, w, h float32
	yMin, yMax float64
	xMin, xMax time.Time
}

func (p plotArea) pos(pt trend.Point) fyne.Position {
	x := p.x + float32(pt.Timestamp.Sub(p.xMin).Seconds()/p.xMax.Sub(p.xMin).Seconds())*p.w
	y := p.y + p.h - float32((pt.Value-p.yMin)/(p.yMax-p.yMin))*p.h
	return fyne.NewPos(x, y)
}

func (r *scopeRenderer) line(c color.Color, width float32, a, b fyne.Position) {
	l := canvas.NewLine(c)
	l.Position1 = a
	l.Position2 = b
	l.StrokeWidth = width
	r.objects = append(r.objects, l)
}

func (r *scopeRenderer) text(s string, c color.Color, size float32, align fyne.TextAlign, pos fyne.Position) {
	t := canvas.NewText(s, c)
	t.TextSize = size
	t.Alignment = align
	t.Move(pos)
	r.objects = append(r.objects, t)
}

func (r *scopeRenderer) drawGrid(p plotArea, ch trend.Channel) {
	const numHLines = 8
	for i := range numHLines + 1 {
		y := p.y + float32(i)*p.h/numHLines
		r.line(gridColor, 1, fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.w, y))

		value := p.yMax - float64(i)*(p.yMax-p.yMin)/numHLines
		r.text(formatValue(value, ch), labelColor, 10, fyne.TextAlignTrailing, fyne.NewPos(p.x-5, y-6))
	}

	const numVLines = 10
	span := p.xMax.Sub(p.xMin)
	for i := range numVLines + 1 {
		x := p.x + float32(i)*p.w/numVLines
		r.line(gridColor, 1, fyne.NewPos(x, p.y), fyne.NewPos(x, p.y+p.h))

		offset := span * time.Duration(i) / numVLines
		r.text(formatTime(offset), labelColor, 10, fyne.TextAlignCenter, fyne.NewPos(x-20, p.y+p.h+5))
	}
}

func (r *scopeRenderer) drawSeries(p plotArea, points []trend.Point) {
	for i := 1; i < len(points); i++ {
		r.line(seriesColor, 1.5, p.pos(points[i-1]), p.pos(points[i]))
	}
}

func (r *scopeRenderer) drawStats(p plotArea, ch trend.Channel, st trend.Stats) {
	if st.Count == 0 {
		r.text(ch.String()+": no data", statsColor, 11, fyne.TextAlignLeading, fyne.NewPos(p.x+10, p.y+10))
		return
	}
	s := fmt.Sprintf("%s %s  min %s  max %s  mean %s",
		ch, formatValue(st.Last, ch), formatValue(st.Min, ch), formatValue(st.Max, ch), formatValue(st.Mean, ch))
	r.text(s, statsColor, 11, fyne.TextAlignLeading, fyne.NewPos(p.x+10, p.y+10))
}

func (r *scopeRenderer) drawSwatch(p plotArea, c color.NRGBA) {
	const side = 24
	rect := canvas.NewRectangle(c)
	rect.StrokeColor = labelColor
	rect.StrokeWidth = 1
	rect.Resize(fyne.NewSize(side, side))
	rect.Move(fyne.NewPos(p.x+p.w-side-5, p.y+5))
	r.objects = append(r.objects, rect)
}

func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *scopeRenderer) Destroy() {}

func formatValue(v float64, ch trend.Channel) string {
	if math.Abs(v) < 0.0005 {
		v = 0
	}
	var s string
	switch ch {
	case trend.ColorHz:
		s = fmt.Sprintf("%.0f", v)
	case trend.Temperature, trend.PH:
		s = fmt.Sprintf("%.2f", v)
	default:
		s = fmt.Sprintf("%.3f", v)
	}
	return s + ch.Unit()
}

func formatTime(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	if d >= 10*time.Minute {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	return fmt.Sprintf("%.0fs", d.Seconds())
}
