package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/NgTruc2025/python-ntt/internal/catalog"
	"github.com/NgTruc2025/python-ntt/internal/config"
	"github.com/NgTruc2025/python-ntt/internal/daemon"
	"github.com/NgTruc2025/python-ntt/internal/generation"
	"github.com/NgTruc2025/python-ntt/internal/llm"
	mcpserver "github.com/NgTruc2025/python-ntt/internal/mcp"
)

// cmdMCP starts the MCP server for editor integration. It runs standalone
// and does not need the daemon.
func cmdMCP(args []string) error {
	httpAddr := ""
	if len(args) > 0 {
		if args[0] != "--http" || len(args) < 2 {
			return fmt.Errorf("usage: pymaster mcp [--http <addr>]")
		}
		httpAddr = args[1]
	}

	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var content *catalog.Catalog
	if cfg.Content.Path != "" {
		content, err = catalog.LoadDir(cfg.Content.Path)
	} else {
		content, err = catalog.Load()
	}
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	registry := llm.NewRegistry()
	defer registry.Close()
	models := daemon.SetupLLMProviders(registry, cfg.LLM)

	srv := mcpserver.NewServer(mcpserver.Config{
		Catalog: content,
		Generator: generation.NewClient(generation.Config{
			Registry:    registry,
			Models:      models,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		}),
		Version: Version,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if httpAddr != "" {
		return srv.ServeHTTP(ctx, httpAddr)
	}
	return srv.ServeStdio(ctx)
}
