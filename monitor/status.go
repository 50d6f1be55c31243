package main

import (
	"fmt"
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/aquaprobe/pkg/link"
	"github.com/itohio/aquaprobe/pkg/probe"
)

// statusBar shows the latest reading and its fault flags.
type statusBar struct {
	container   fyne.CanvasObject
	temperature *widget.Label
	ph          *widget.Label
	level       *widget.Label
	color       *widget.Label
	flags       map[probe.Flag]*widget.Button

	last probe.Flag
}

func newStatusBar() *statusBar {
	s := &statusBar{
		temperature: widget.NewLabel(""),
		ph:          widget.NewLabel(""),
		level:       widget.NewLabel(""),
		color:       widget.NewLabel(""),
		flags:       make(map[probe.Flag]*widget.Button),
	}

	indicators := container.NewHBox()
	for _, f := range probe.AllFlags {
		btn := widget.NewButton(f.Name(), nil)
		btn.Disable()
		s.flags[f] = btn
		indicators.Add(btn)
	}

	s.container = container.NewBorder(
		nil,
		nil,
		container.NewHBox(s.temperature, s.ph, s.level, s.color),
		indicators,
		nil,
	)
	s.Reset()
	return s
}

// Reset clears the labels.
func (s *statusBar) Reset() {
	s.temperature.SetText("T: --")
	s.ph.SetText("pH: --")
	s.level.SetText("Level: --")
	s.color.SetText("Color: --")
	s.last = 0
	s.updateFlags(0)
}

// Show displays r.
func (s *statusBar) Show(r probe.Reading) {
	if r.Flags.Has(probe.FlagTemperatureInvalid) {
		s.temperature.SetText("T: invalid")
	} else {
		s.temperature.SetText(fmt.Sprintf("T: %.2f °C", r.TemperatureC))
	}
	if math.IsNaN(float64(r.PH)) {
		s.ph.SetText("pH: fault")
	} else {
		s.ph.SetText(fmt.Sprintf("pH: %.2f", r.PH))
	}
	if r.LevelWet {
		s.level.SetText("Level: wet")
	} else {
		s.level.SetText("Level: dry")
	}
	s.color.SetText(fmt.Sprintf("Color: %.0f Hz R%.2f G%.2f B%.2f", r.ColorHz, r.ColorR, r.ColorG, r.ColorB))

	if r.Flags != s.last {
		s.last = r.Flags
		s.updateFlags(r.Flags)
	}
}

func (s *statusBar) updateFlags(flags probe.Flag) {
	for f, btn := range s.flags {
		updateFlagButton(btn, flags.Has(f))
	}
}

// updateFlagButton highlights a raised fault flag.
func updateFlagButton(btn *widget.Button, raised bool) {
	if raised {
		btn.Importance = widget.DangerImportance
	} else {
		btn.Importance = widget.LowImportance
	}
	btn.Refresh()
}

// updateStatusFromSample shows the sample on the main thread.
func updateStatusFromSample(state *appState, s link.Sample) {
	fyne.Do(func() {
		state.status.Show(s.Reading)
	})
}
