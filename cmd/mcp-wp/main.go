package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/edpreble/mcp-wp/pkg/config"
	"github.com/edpreble/mcp-wp/pkg/gateway"
	"github.com/edpreble/mcp-wp/pkg/toolreg"
	"github.com/edpreble/mcp-wp/pkg/wp"
	"github.com/edpreble/mcp-wp/pkg/wptools"
)

func main() {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := wp.NewClient(cfg.WordPressURL, cfg.WordPressUser, cfg.WordPressAppPassword)
	registry := toolreg.NewRegistry()
	if err := wptools.Register(registry, client); err != nil {
		logger.Error("registering tools", "error", err)
		os.Exit(1)
	}

	gw, err := gateway.New(registry, &gateway.Options{
		Addr:               cfg.Addr,
		BearerToken:        cfg.BearerToken,
		StreamByDefault:    cfg.StreamByDefault,
		SessionIdleTimeout: cfg.SessionTimeout,
		Logger:             logger,
	})
	if err != nil {
		logger.Error("building gateway", "error", err)
		os.Exit(1)
	}

	opts := gw.Options()
	logger.Info("gateway listening", "addr", opts.Addr, "path", opts.Path, "site", cfg.WordPressURL)
	if err := gw.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("gateway stopped", "error", err)
		os.Exit(1)
	}
}
