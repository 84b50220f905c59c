package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ivr-voting/api"
	"ivr-voting/service"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the authenticate-voter and record-vote functions over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, coord, err := setup()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
		defer stop()

		queue := service.NewQueueProcessor(coord, cfg.Workers, cfg.QueueSize)
		return api.NewServer(coord, queue, log).Serve(ctx, cfg.ListenAddr)
	},
}
