package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/genius/internal/bootstrap"
	"github.com/at-ishikawa/genius/internal/server"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			deps, err := newDependencies(cfg)
			if err != nil {
				return err
			}
			srv, err := server.New(cfg.Server, cfg.Auth.JWTSecret, deps.services, deps.profiles, deps.contents)
			if err != nil {
				return errors.Join(err, deps.Close())
			}

			app := bootstrap.New()
			app.AddShutdownHook(func(ctx context.Context) error {
				return deps.Close()
			})
			return app.Run(cmd.Context(), srv.Run)
		},
	}
}
