package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/briangreenhill/mapty/internal/app"
	"github.com/briangreenhill/mapty/internal/config"
	"github.com/briangreenhill/mapty/internal/controller"
	"github.com/briangreenhill/mapty/internal/localstore"
	"github.com/briangreenhill/mapty/internal/workout"
)

func main() {
	w := os.Stdout

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Error loading config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))

	ctx := context.Background()
	slot, err := localstore.Open(ctx, localstore.Options{
		Backend:       cfg.StorageBackend,
		SQLitePath:    cfg.SQLitePath,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisPrefix:   cfg.RedisPrefix,
	}, logger)
	if err != nil {
		logger.Error("Error opening storage", slog.Any("error", err))
		os.Exit(1)
	}

	store := workout.NewStore(slot)
	ctrl := controller.New(workout.NewFactory(), store, logger, controller.Options{Zoom: cfg.MapZoom})

	err = run(ctx, w, os.Args[1:], cfg, logger, ctrl)
	if cerr := slot.Close(); cerr != nil {
		logger.Error("Error closing storage", slog.Any("error", cerr))
	}
	if err != nil {
		logger.Error("Error running mapty", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, args []string, cfg config.Config, logger *slog.Logger, ctrl *controller.Controller) error {
	cli := app.NewCLI(w, logger, ctrl, cfg, args)

	if err := cli.Run(ctx); err != nil {
		return err
	}

	return nil
}
