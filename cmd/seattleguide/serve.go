package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/seattleguide/seattleguide/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
