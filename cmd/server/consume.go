package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/ticket-marketplace/internal/config"
	"github.com/iliyamo/ticket-marketplace/internal/queue"
)

func consumeCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Drain booking.paid events into the settlement log",
		RunE: func(cmd *cobra.Command, args []string) error {
			qCfg := config.LoadQueueConfig()
			if dir != "" {
				qCfg.LogDir = dir
			}
			log := newLogger(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c := &queue.Consumer{URL: qCfg.URL, Queue: qCfg.QueueName, Dir: qCfg.LogDir, Log: log}
			log.Info("settlement consumer started", "queue", qCfg.QueueName, "dir", qCfg.LogDir)
			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "output directory (overrides SETTLEMENT_LOG_DIR)")
	return cmd
}
