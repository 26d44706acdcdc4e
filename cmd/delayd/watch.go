package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dartt0n/delaymap"
)

type timeout struct {
	key   string
	delay time.Duration
}

func parseTimeout(arg string) (timeout, error) {
	key, value, found := strings.Cut(arg, "=")
	if !found || key == "" {
		return timeout{}, errors.Errorf("invalid timeout %q: expected KEY=DURATION", arg)
	}

	delay, err := time.ParseDuration(value)
	if err != nil {
		return timeout{}, errors.Wrapf(err, "invalid timeout %q", arg)
	}
	if delay < 0 {
		return timeout{}, errors.Errorf("invalid timeout %q: negative duration", arg)
	}

	return timeout{key: key, delay: delay}, nil
}

func watchCommand(config *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:     "watch KEY=DURATION...",
		Short:   "Print keys as their timeouts elapse",
		Example: "  delayd watch first=15s second=5s third=10s",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := getLogger(config)
			defer logger.Sync()

			timeouts := make([]timeout, 0, len(args))
			for _, arg := range args {
				t, err := parseTimeout(arg)
				if err != nil {
					return err
				}
				timeouts = append(timeouts, t)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m := delaymap.New[string](
				delaymap.WithLogger(logger),
				delaymap.WithMapLimit(config.GetUint64("map-limit")),
			)

			start := time.Now()
			for _, t := range timeouts {
				if !m.Insert(t.key, t.delay) {
					logger.Warn("key already pending, keeping its first timeout", zap.String("key", t.key))
				}
			}

			for {
				key, ok := m.Next(ctx)
				if !ok {
					break
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s expired %s\n", key, humanize.RelTime(start, time.Now(), "after start", "before start"))
			}

			return ctx.Err()
		},
	}
}
