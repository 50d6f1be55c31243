package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/common/version"
	log "github.com/sirupsen/logrus"

	"github.com/itohio/aquaprobe/pkg/calib"
	"github.com/itohio/aquaprobe/pkg/config"
	"github.com/itohio/aquaprobe/pkg/hw"
	"github.com/itohio/aquaprobe/pkg/probe"
)

func main() {
	var (
		configFlag  = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag    = flag.Bool("mock", false, "Use simulated hardware")
		captureFlag = flag.Int("capture", 0, "Print N raw color captures for calibration and exit")
		levelFlag   = flag.String("log-level", "", "Log level override (debug, info, warn, error)")
		versionFlag = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Print("aquaprobe"))
		return
	}

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *levelFlag != "" {
		cfg.Log.Level = *levelFlag
	}
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *mockFlag, *captureFlag); err != nil {
		log.WithError(err).Fatal("Probe stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, mock bool, capture int) error {
	logger := log.WithField("probe", cfg.Probe.Name)

	constants, err := calib.New(cfg)
	if err != nil {
		return err
	}

	var board *hw.Board
	if mock {
		_, board = hw.NewMock(cfg)
		logger.Info("Using simulated hardware")
	} else {
		board, err = hw.Open(cfg, logger)
		if err != nil {
			return err
		}
	}
	defer board.Close()

	components, err := board.Components(cfg, constants, logger)
	if err != nil {
		return err
	}

	if capture > 0 {
		return captureColor(ctx, components, capture)
	}

	s, err := openSinks(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close sinks")
		}
	}()

	p := probe.New(components, logger)
	logger.WithFields(log.Fields{
		"interval": cfg.Probe.Interval,
		"mode":     cfg.Color.Mode,
		"sinks":    len(s.notifiers),
	}).Info("Probe started")

	err = p.Run(ctx, cfg.Probe.Interval, s.notifiers)
	if errors.Is(err, context.Canceled) {
		logger.Info("Probe shutting down")
		return nil
	}
	return err
}

// captureColor prints raw filter measurements used to find dark and bright
// references.
func captureColor(ctx context.Context, c probe.Components, n int) error {
	fmt.Println("clear,red,green,blue")
	for i := 0; i < n && ctx.Err() == nil; i++ {
		raw := c.Color.Capture()
		fmt.Printf("%.0f,%.0f,%.0f,%.0f\n", raw.Clear, raw.Red, raw.Green, raw.Blue)
		select {
		case <-ctx.Done():
		case <-time.After(500 * time.Millisecond):
		}
	}
	return nil
}
