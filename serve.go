package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tanpawarit/Chative-Account-Request/agent/server"
	configx "github.com/tanpawarit/Chative-Account-Request/pkg/config"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the account request bot over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := configx.New[server.Config]("APP")
			if err != nil {
				return err
			}
			svc, closeFn, err := buildService(ctx)
			if err != nil {
				return err
			}
			defer closeQuietly(closeFn)

			return server.Serve(ctx, *cfg, server.NewHandler(svc))
		},
	}
}
