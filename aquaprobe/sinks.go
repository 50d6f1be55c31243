package main

import (
	"context"
	"errors"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"

	"github.com/itohio/aquaprobe/pkg/config"
	"github.com/itohio/aquaprobe/pkg/notify"
	"github.com/itohio/aquaprobe/pkg/probe"
	"github.com/itohio/aquaprobe/pkg/server"
)

// sinks holds every enabled reading consumer.
type sinks struct {
	notifiers probe.Notifiers
	closers   []io.Closer
	served    chan error
}

// openSinks starts the configured sinks. Optional sinks that fail to open are
// logged and skipped so the probe keeps measuring.
func openSinks(ctx context.Context, cfg *config.Config, logger log.FieldLogger) (*sinks, error) {
	s := &sinks{}

	latest := notify.NewLatest()
	s.add(latest, nil)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
	)
	metrics, err := notify.NewMetrics(reg, cfg.Probe.Name)
	if err != nil {
		return nil, err
	}
	s.add(metrics, nil)

	if cfg.MQTT.Enabled {
		m, err := notify.DialMQTT(cfg.MQTT, logger)
		if err != nil {
			logger.WithError(err).Warn("MQTT disabled")
		} else {
			s.add(m, m)
		}
	}

	if cfg.BLE.Enabled {
		b, err := notify.StartBLE(cfg.BLE.DeviceName, logger)
		if err != nil {
			logger.WithError(err).Warn("BLE disabled")
		} else {
			s.add(b, b)
		}
	}

	if cfg.Serial.Enabled {
		l, err := notify.OpenSerial(cfg.Serial)
		if err != nil {
			logger.WithError(err).Warn("Serial output disabled")
		} else {
			s.add(l, l)
		}
	}

	if cfg.Display.Enabled {
		d, err := notify.OpenDisplay(cfg.Display, cfg.Probe.Name)
		if err != nil {
			logger.WithError(err).Warn("Display disabled")
		} else {
			s.add(d, d)
		}
	}

	if cfg.HTTP.Enabled {
		hub := notify.NewHub(logger)
		s.add(hub, hub)

		h := server.NewHandler(server.Options{
			Name:     cfg.Probe.Name,
			Latest:   latest,
			Hub:      hub,
			Gatherer: reg,
			Stale:    3 * cfg.Probe.Interval,
			Log:      logger,
		})
		s.serve(func() error {
			return server.Serve(ctx, cfg.HTTP.Listen, h.Router(), logger)
		}, logger)
	}

	return s, nil
}

func (s *sinks) add(n probe.Notifier, c io.Closer) {
	s.notifiers = append(s.notifiers, n)
	if c != nil {
		s.closers = append(s.closers, c)
	}
}

// serve runs fn in the background. A failure is logged as soon as it happens
// and reported again by Close.
func (s *sinks) serve(fn func() error, logger log.FieldLogger) {
	s.served = make(chan error, 1)
	go func() {
		err := fn()
		if err != nil {
			logger.WithError(err).Warn("HTTP server stopped")
		}
		s.served <- err
	}()
}

// Close stops every sink, newest first, and waits for the HTTP server.
func (s *sinks) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.served != nil {
		if err := <-s.served; err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
