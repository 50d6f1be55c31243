package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/aquaprobe/pkg/link"
)

// showSettingsDialog displays a settings dialog with tabs for the monitor options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createDisplayTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

func saveConfig(state *appState) {
	if err := state.cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
	}
}

// reconnect restarts the measurement chain if it is running.
func reconnect(state *appState) {
	if state.device == nil || !state.device.IsConnected() {
		return
	}
	closeMeasurementChain(state.chain)
	state.chain = nil
	state.device = nil
	handleConnect(state)
}

func createSerialTab(state *appState) *container.TabItem {
	ports, err := link.Ports()
	portOptions := []string{}
	portMap := make(map[string]string)

	if err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
		}
	}

	currentPort := state.cfg.Serial.Port
	currentDisplay := currentPort
	found := false
	for _, opt := range portOptions {
		if portMap[opt] == currentPort {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
		portMap[currentPort] = currentPort
	}

	portSelect := widget.NewSelect(portOptions, nil)
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Serial.BaudRate))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
		},
		OnSubmit: func() {
			changed := false
			if portSelect.Selected != "" {
				selected := portMap[portSelect.Selected]
				if selected == "" {
					selected = portSelect.Selected
				}
				changed = state.cfg.Serial.Port != selected
				state.cfg.Serial.Port = selected
			}
			if baud, err := strconv.Atoi(baudEntry.Text); err == nil && baud > 0 {
				changed = changed || state.cfg.Serial.BaudRate != baud
				state.cfg.Serial.BaudRate = baud
			}
			saveConfig(state)
			if changed && !state.useMock {
				reconnect(state)
			}
		},
	}

	return container.NewTabItem("Serial", form)
}

func createDisplayTab(state *appState) *container.TabItem {
	windowEntry := widget.NewEntry()
	windowEntry.SetText(state.cfg.Monitor.Window.String())

	smoothEntry := widget.NewEntry()
	smoothEntry.SetText(strconv.Itoa(state.cfg.Monitor.Smooth))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "History Window", Widget: windowEntry},
			{Text: "Moving Average (0=disabled)", Widget: smoothEntry},
		},
		OnSubmit: func() {
			restart := false
			if w, err := time.ParseDuration(windowEntry.Text); err == nil && w > 0 && w != state.cfg.Monitor.Window {
				state.cfg.Monitor.Window = w
				restart = true
			}
			if n, err := strconv.Atoi(smoothEntry.Text); err == nil && n >= 0 && n != state.cfg.Monitor.Smooth {
				state.cfg.Monitor.Smooth = n
				restart = true
			}
			state.cfg.Monitor.Channel = state.scopeWidget.Channel().String()
			saveConfig(state)
			if restart {
				dialog.ShowInformation("Settings", "History settings apply after restart.", state.window)
			}
		},
	}

	return container.NewTabItem("Display", form)
}

func createMockTab(state *appState) *container.TabItem {
	entries := []struct {
		label string
		value *float64
		entry *widget.Entry
	}{
		{label: "Temperature (°C)", value: &state.cfg.Mock.TemperatureC},
		{label: "pH Probe (V)", value: &state.cfg.Mock.PHVolts},
		{label: "Clear (Hz)", value: &state.cfg.Mock.ClearHz},
		{label: "Red (Hz)", value: &state.cfg.Mock.RedHz},
		{label: "Green (Hz)", value: &state.cfg.Mock.GreenHz},
		{label: "Blue (Hz)", value: &state.cfg.Mock.BlueHz},
		{label: "Noise Level", value: &state.cfg.Mock.NoiseLevel},
	}

	form := &widget.Form{}
	for i := range entries {
		e := widget.NewEntry()
		e.SetText(strconv.FormatFloat(*entries[i].value, 'f', -1, 64))
		entries[i].entry = e
		form.Append(entries[i].label, e)
	}
	wetCheck := widget.NewCheck("", nil)
	wetCheck.SetChecked(state.cfg.Mock.LevelWet)
	form.Append("Level Wet", wetCheck)

	form.OnSubmit = func() {
		for _, e := range entries {
			if v, err := strconv.ParseFloat(e.entry.Text, 64); err == nil {
				*e.value = v
			}
		}
		state.cfg.Mock.LevelWet = wetCheck.Checked
		saveConfig(state)
		if state.chain != nil && state.chain.mock != nil {
			state.chain.mock.Set(state.cfg.Mock)
		}
	}

	return container.NewTabItem("Mock", form)
}
