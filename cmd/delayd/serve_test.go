package main

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stuckServer struct {
	err error
}

func (s stuckServer) Shutdown(ctx context.Context) error {
	return s.err
}

func TestShutdownOnDone(t *testing.T) {
	t.Run("logs a failed shutdown", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		shutdownOnDone(ctx, stuckServer{err: errors.New("connections still active")}, zap.New(core))

		entries := logs.FilterMessage("failed to shutdown metrics server").All()
		require.Len(t, entries, 1)
		require.Equal(t, zapcore.WarnLevel, entries[0].Level)
		require.Equal(t, "connections still active", entries[0].ContextMap()["error"])
	})
	t.Run("stays quiet on a clean shutdown", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		shutdownOnDone(ctx, stuckServer{}, zap.New(core))

		require.Zero(t, logs.Len())
	})
}

func TestServeMetricsStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serveMetrics(ctx, 0, zap.NewNop())
	}()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}
