package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/aquaprobe/pkg/server"
)

func warned(hook *test.Hook) func() bool {
	return func() bool {
		for _, e := range hook.AllEntries() {
			if e.Level == log.WarnLevel && e.Message == "HTTP server stopped" {
				return true
			}
		}
		return false
	}
}

func TestSinks_ServeFailureLoggedBeforeClose(t *testing.T) {
	logger, hook := test.NewNullLogger()
	failure := errors.New("listen tcp :8080: address already in use")

	s := &sinks{}
	s.serve(func() error { return failure }, logger)

	assert.Eventually(t, warned(hook), time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, s.Close(), failure)
}

func TestSinks_ServeAddressInUse(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	logger, hook := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &sinks{}
	s.serve(func() error {
		return server.Serve(ctx, busy.Addr().String(), http.NotFoundHandler(), logger)
	}, logger)

	assert.Eventually(t, warned(hook), 2*time.Second, 5*time.Millisecond)
	assert.Error(t, s.Close())
}

func TestSinks_CleanShutdownNotLogged(t *testing.T) {
	logger, hook := test.NewNullLogger()

	s := &sinks{}
	s.serve(func() error { return nil }, logger)

	assert.NoError(t, s.Close())
	assert.False(t, warned(hook)())
}
