package main

import (
	"flag"
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	log "github.com/sirupsen/logrus"

	"github.com/itohio/aquaprobe/pkg/calib"
	"github.com/itohio/aquaprobe/pkg/config"
	"github.com/itohio/aquaprobe/pkg/hw"
	"github.com/itohio/aquaprobe/pkg/link"
	"github.com/itohio/aquaprobe/pkg/probe"
	"github.com/itohio/aquaprobe/pkg/scope"
	"github.com/itohio/aquaprobe/pkg/trend"
)

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyUSB0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use a simulated probe instead of serial port")
		smoothFlag = flag.Int("smooth", -1, "Moving average length (0 = disabled, overrides config)")
	)
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *smoothFlag >= 0 {
		cfg.Monitor.Smooth = *smoothFlag
	}

	application := app.NewWithID("com.itohio.aquaprobe")

	window := application.NewWindow("AquaProbe Monitor")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	ch, ok := trend.ParseChannel(cfg.Monitor.Channel)
	if !ok {
		ch = trend.Temperature
	}

	state := &appState{
		cfg:        cfg,
		configPath: *configFlag,
		history:    trend.New(cfg.Monitor.Window),
		window:     window,
		useMock:    *mockFlag,
	}
	state.scopeWidget = scope.New(ch, cfg.Monitor.Window)
	state.status = newStatusBar()

	// Throttle scope updates to ~60 FPS.
	const updateInterval = 16 * time.Millisecond
	state.history.OnUpdate(func(samples []link.Sample) {
		state.updateMu.Lock()
		now := time.Now()
		if now.Sub(state.lastUpdateTime) < updateInterval {
			state.updateMu.Unlock()
			return
		}
		state.lastUpdateTime = now
		state.updateMu.Unlock()

		fyne.Do(func() {
			state.scopeWidget.UpdateData(samples)
		})
	})

	content := container.NewBorder(
		createToolbar(state, ch),
		state.status.container,
		nil,
		nil,
		state.scopeWidget,
	)

	window.SetContent(content)
	window.SetOnClosed(func() {
		closeMeasurementChain(state.chain)
	})
	window.ShowAndRun()
}

// measurementChain tracks the goroutines fed by a device for graceful shutdown.
type measurementChain struct {
	device      link.Device
	statusDone  chan struct{}
	historyDone chan struct{}
	// mock is set when the device is a simulated probe.
	mock *hw.Mock
}

type appState struct {
	cfg         *config.Config
	configPath  string
	device      link.Device
	history     *trend.History
	scopeWidget *scope.ScopeWidget
	status      *statusBar
	window      fyne.Window
	connectBtn  *widget.Button
	useMock     bool
	chain       *measurementChain

	lastUpdateTime time.Time
	updateMu       sync.Mutex
}

func createToolbar(state *appState, ch trend.Channel) fyne.CanvasObject {
	connectBtn := widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	clearBtn := widget.NewButtonWithIcon("", theme.ContentClearIcon(), func() {
		state.history.Clear()
		state.scopeWidget.UpdateData(nil)
	})

	names := make([]string, len(trend.Channels))
	for i, c := range trend.Channels {
		names[i] = c.String()
	}
	channelSelect := widget.NewSelect(names, func(selected string) {
		if c, ok := trend.ParseChannel(selected); ok {
			state.scopeWidget.SetChannel(c)
			state.scopeWidget.UpdateData(state.history.Samples())
		}
	})
	channelSelect.SetSelected(ch.String())

	return container.NewBorder(
		nil,
		nil,
		container.NewHBox(connectBtn, settingsBtn, clearBtn),
		channelSelect,
		nil,
	)
}

// closeMeasurementChain closes the device and waits for its consumers.
func closeMeasurementChain(chain *measurementChain) {
	if chain == nil {
		return
	}
	if chain.device != nil {
		chain.device.Close()
	}
	if chain.statusDone != nil {
		<-chain.statusDone
	}
	if chain.historyDone != nil {
		<-chain.historyDone
	}
}

// openDevice creates a serial or simulated link.
func openDevice(state *appState) (link.Device, *measurementChain, error) {
	if !state.useMock {
		d := link.New(state.cfg.Serial.Port, state.cfg.Serial.BaudRate, link.DefaultBufferSize, log.StandardLogger())
		return d, &measurementChain{device: d}, nil
	}

	constants, err := calib.New(state.cfg)
	if err != nil {
		return nil, nil, err
	}
	mock, board := hw.NewMock(state.cfg)
	components, err := board.Components(state.cfg, constants, log.StandardLogger())
	if err != nil {
		return nil, nil, err
	}
	p := probe.New(components, log.StandardLogger())
	d := link.NewMock(p, state.cfg.Probe.Interval)
	return d, &measurementChain{device: d, mock: mock}, nil
}

func handleConnect(state *appState) {
	if state.device != nil && state.device.IsConnected() {
		closeMeasurementChain(state.chain)
		state.chain = nil
		state.device = nil
		state.status.Reset()
		log.Info("Disconnected")
		return
	}

	device, chain, err := openDevice(state)
	if err != nil {
		dialog.ShowError(err, state.window)
		return
	}
	if err := device.Connect(); err != nil {
		if state.useMock {
			dialog.ShowError(fmt.Errorf("failed to start simulated probe: %w", err), state.window)
		} else {
			dialog.ShowError(fmt.Errorf("failed to connect to %s: %w", state.cfg.Serial.Port, err), state.window)
		}
		return
	}
	state.device = device
	state.chain = chain
	if state.useMock {
		log.Info("Connected to simulated probe")
	} else {
		log.WithField("port", state.cfg.Serial.Port).Info("Connected to probe")
	}

	samples := device.Samples()
	if state.cfg.Monitor.Smooth > 0 {
		samples = trend.Smooth(state.cfg.Monitor.Smooth, link.DefaultBufferSize)(samples)
	}
	forStatus, forHistory := teeChannel(samples)

	chain.statusDone = make(chan struct{})
	chain.historyDone = make(chan struct{})

	go func() {
		defer close(chain.statusDone)
		for s := range forStatus {
			updateStatusFromSample(state, s)
		}
	}()
	state.history.ResetShutdown()
	go func() {
		defer close(chain.historyDone)
		state.history.Process(forHistory)
	}()
}

// teeChannel copies every value of in to both outputs.
func teeChannel(in <-chan link.Sample) (<-chan link.Sample, <-chan link.Sample) {
	a := make(chan link.Sample, link.DefaultBufferSize)
	b := make(chan link.Sample, link.DefaultBufferSize)

	go func() {
		defer close(a)
		defer close(b)
		for s := range in {
			a <- s
			b <- s
		}
	}()

	return a, b
}
