package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/NgTruc2025/python-ntt/internal/config"
	"github.com/NgTruc2025/python-ntt/internal/daemon"
)

const (
	pidFileName     = "pymasterd.pid"
	shutdownTimeout = 30 * time.Second
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("daemon error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	home, err := config.EnsurePyMasterDir()
	if err != nil {
		return fmt.Errorf("ensure pymaster dir: %w", err)
	}

	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logs := setupLogging(filepath.Join(home, "logs", "pymasterd.log"), parseLogLevel(cfg.Daemon.LogLevel))
	defer logs.Close()

	pidPath := filepath.Join(home, pidFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	// Canceled on shutdown; stops the tab cleanup loop.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := daemon.NewServer(ctx, daemon.ServerConfig{
		Config:  cfg,
		DataDir: home,
		Version: Version,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		slog.Info("received signal, shutting down", "signal", sig.String())
		cancel()

		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	slog.Info("daemon stopped")
	return nil
}

func writePIDFile(path string) error {
	return os.WriteFile(path, fmt.Appendf(nil, "%d\n", os.Getpid()), 0644)
}
