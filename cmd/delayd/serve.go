package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dartt0n/delaymap"
	"github.com/dartt0n/delaymap/server"
)

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// shutdownOnDone gracefully stops srv once ctx is done.
func shutdownOnDone(ctx context.Context, srv shutdowner, logger *zap.Logger) {
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shutdown metrics server", zap.Error(err))
	}
}

func serveMetrics(ctx context.Context, port int, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", port),
		Handler:           mux,
		ReadHeaderTimeout: time.Second,
	}

	go shutdownOnDone(ctx, srv, logger)

	logger.Info("serving metrics", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func serveCommand(config *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP timeout tracker",
		PreRun: func(cmd *cobra.Command, _ []string) {
			config.BindPFlag("addr", cmd.Flags().Lookup("addr"))
			config.BindPFlag("metrics-port", cmd.Flags().Lookup("metrics-port"))
			config.BindPFlag("history", cmd.Flags().Lookup("history"))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := getLogger(config)
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := []delaymap.Option{
				delaymap.WithLogger(logger.With(zap.String("component", "delaymap"))),
				delaymap.WithMapLimit(config.GetUint64("map-limit")),
			}
			if port := config.GetInt("metrics-port"); port > 0 {
				opts = append(opts, delaymap.WithMetrics(delaymap.NewMetrics(prometheus.DefaultRegisterer, "delayd")))
			}

			tracker := server.NewTracker(delaymap.New[string](opts...), config.GetInt("history"), logger)
			srv := server.New(config.GetString("addr"), tracker, logger)

			group, ctx := errgroup.WithContext(ctx)
			group.Go(func() error {
				tracker.Run(ctx)
				return nil
			})
			group.Go(func() error {
				return srv.Run(ctx)
			})
			group.Go(func() error {
				<-ctx.Done()
				logger.Info("closing all processes")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			if port := config.GetInt("metrics-port"); port > 0 {
				group.Go(func() error {
					return serveMetrics(ctx, port, logger)
				})
			}

			logger.Info("waiting for Ctrl-C to terminate")
			return group.Wait()
		},
	}
	cmd.Flags().String("addr", ":3567", "the address to listen on")
	cmd.Flags().Int("metrics-port", 0, "serve prometheus metrics on this port (disabled when 0)")
	cmd.Flags().Int("history", server.DefaultHistory, "number of expired keys kept until collected")

	return cmd
}
