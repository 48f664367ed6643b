package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/teamfinder/internal/app"
	"github.com/DoyleJ11/teamfinder/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot and the status site",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, a.Close()) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting", zap.String("service", cfg.ServiceName), zap.String("locale", cfg.Locale))
	if err := a.Run(ctx); err != nil {
		log.Error("stopped with error", zap.Error(err))
		return err
	}
	log.Info("stopped")
	return nil
}
