package main

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/hotel-reservation/internal/logger"
	"github.com/iliyamo/hotel-reservation/internal/queue"
)

func auditCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "audit-consumer",
		Short: "Append booking events from the queue to a rotated audit log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, closeLog, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeLog()
			if cfg.RabbitURL == "" {
				return errors.New("RABBITMQ_URL is required for the audit consumer")
			}

			file := logger.NewRotatingFile(out)
			defer file.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c := &queue.AuditConsumer{URL: cfg.RabbitURL, Queue: cfg.EventsQueue, Out: file, Log: log}
			log.WithField("file", out).Info("audit consumer running")
			return c.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&out, "out", "booking-audit.log", "audit log file")
	return cmd
}
