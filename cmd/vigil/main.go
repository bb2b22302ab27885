package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"vigil/internal/app"
	"vigil/internal/config"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel()}))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := app.NewContainer(ctx, cfg, log)
	if err != nil {
		log.Error("build container", "err", err)
		os.Exit(1)
	}

	if err := c.Run(ctx); err != nil {
		log.Error("vigil stopped", "err", err)
		os.Exit(1)
	}
	log.Info("vigil stopped")
}

func logLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(os.Getenv("LOG_LEVEL"))); err != nil {
		return slog.LevelInfo
	}
	return l
}
