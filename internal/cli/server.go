package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cybertemp/dnsauthd/internal/app"
	"github.com/cybertemp/dnsauthd/internal/config"
)

// DefaultConfigPath is used when -c/--config is not given and CONFIG_PATH
// is not set, matching the original daemon's checked-in config location.
const DefaultConfigPath = "config/dns.toml"

// runServe loads configuration, wires every daemon component via
// internal/app, and blocks until a shutdown signal arrives or a component
// fails.
func runServe(configPath, redisURL string, daemon bool) error {
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if redisURL != "" {
		cfg.RedisURL = redisURL
	}

	if daemon {
		slog.Info("running in daemon mode", "pid", os.Getpid())
	}

	redisAddr := app.RedisAddr(cfg.RedisURL)
	if redisAddr == "" {
		slog.Info("Redis not configured - periodic scheduling runs in-process")
	} else {
		slog.Info("Redis configured", "addr", redisAddr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, redisAddr)
	if err != nil {
		slog.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- a.Run(ctx)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-stop:
		slog.Info("shutdown signal received")
		cancel()
		runErr = <-runErrCh
	case runErr = <-runErrCh:
		if runErr != nil {
			slog.Error("daemon component failed", "error", runErr)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := a.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	if runErr != nil {
		os.Exit(1)
	}
	return nil
}
