package main

import (
	"bufio"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/NgTruc2025/python-ntt/internal/config"
)

// cmdInit initializes PyMaster for first-time use
func cmdInit() error {
	fmt.Println("PyMaster - First-Time Setup")
	fmt.Println("===========================")
	fmt.Println()

	fmt.Print("Creating ~/.pymaster directory structure... ")
	home, err := config.EnsurePyMasterDir()
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	fmt.Println("✓")

	configPath := filepath.Join(home, "config.yaml")
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		fmt.Print("Creating default configuration... ")
		if err := config.SaveLocalConfig(config.DefaultLocalConfig()); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Println("✓")
	} else {
		fmt.Println("Configuration already exists ✓")
	}

	fmt.Println()
	fmt.Println("LLM Provider Setup")
	fmt.Println("------------------")
	fmt.Println("PyMaster supports: Gemini, Claude (Anthropic), OpenAI, and Ollama (local)")
	fmt.Println()

	cfg, _ := config.LoadLocalConfig()
	if cfg != nil && hasKey(cfg, "gemini") {
		fmt.Println("Gemini API key: already configured ✓")
	} else {
		fmt.Print("Enter Gemini API key (or press Enter to skip): ")
		key, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if key = strings.TrimSpace(key); key != "" {
			if err := config.SetProviderKey("gemini", key); err != nil {
				fmt.Printf("  ⚠ Failed to save: %v\n", err)
			} else {
				fmt.Println("  ✓ Saved")
			}
		}
	}

	fmt.Println()
	fmt.Println("Setup Complete!")
	fmt.Println("===============")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. pymaster start               # Start the daemon")
	fmt.Println("  2. pymaster register <name> <email>")
	fmt.Println("  3. pymaster topics              # Browse knowledge topics")
	fmt.Println()
	fmt.Println("For editor integration, configure MCP with the 'pymaster mcp' command")

	return nil
}

func hasKey(cfg *config.LocalConfig, name string) bool {
	p, ok := cfg.LLM.Providers[name]
	return ok && (p.APIKey != "" || name == "ollama")
}

// cmdDoctor checks providers and daemon
func cmdDoctor() error {
	fmt.Println("Checking system requirements...")
	allGood := true

	fmt.Print("Directory: ")
	home, err := config.PyMasterDir()
	switch {
	case err != nil:
		fmt.Printf("✗ %v\n", err)
		allGood = false
	case !exists(home):
		fmt.Println("✗ not created (run 'pymaster init')")
		allGood = false
	default:
		fmt.Printf("✓ %s\n", home)
	}

	fmt.Print("Config:    ")
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		allGood = false
	} else {
		fmt.Println("✓ loaded")

		ready := 0
		fmt.Println("\nLLM Providers:")
		for _, name := range slices.Sorted(maps.Keys(cfg.LLM.Providers)) {
			provider := cfg.LLM.Providers[name]
			if !provider.Enabled {
				continue
			}
			fmt.Printf("  %s: ", name)
			switch {
			case name == "ollama":
				if err := checkOllama(provider.URL); err != nil {
					fmt.Printf("✗ %v\n", err)
					continue
				}
				fmt.Printf("✓ available (model: %s)\n", provider.Model)
			case provider.APIKey != "":
				fmt.Printf("✓ configured (model: %s)\n", provider.Model)
			default:
				fmt.Printf("✗ no API key (run 'pymaster provider set-key %s')\n", name)
				continue
			}
			ready++
		}
		if ready == 0 {
			fmt.Println("  no provider ready: code analysis falls back to static feedback")
			allGood = false
		}
	}

	fmt.Print("\nDaemon:    ")
	if isRunning() {
		fmt.Println("✓ running")
		var status daemonStatus
		if err := call("GET", "/v1/status", nil, &status); err != nil {
			fmt.Printf("  status: ✗ %v\n", err)
			allGood = false
		} else if !printBackends(os.Stdout, status.Backends) {
			allGood = false
		}
	} else {
		fmt.Println("✗ not running (run 'pymaster start')")
	}

	fmt.Println()
	if allGood {
		fmt.Println("All checks passed! ✓")
	} else {
		fmt.Println("Some checks failed. Please fix the issues above.")
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func checkOllama(url string) error {
	if url == "" {
		url = "http://localhost:11434"
	}
	resp, err := httpClient.Get(url + "/api/tags")
	if err != nil {
		return fmt.Errorf("not reachable at %s", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}

// cmdConfig shows current configuration
func cmdConfig() error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Println("PyMaster Configuration")

	fmt.Println("\nDaemon:")
	fmt.Printf("  bind: %s:%d\n", cfg.Daemon.Bind, cfg.Daemon.Port)
	fmt.Printf("  log_level: %s\n", cfg.Daemon.LogLevel)

	fmt.Println("\nLLM:")
	fmt.Printf("  default_provider: %s\n", cfg.LLM.DefaultProvider)
	fmt.Printf("  retry: %t\n", cfg.LLM.Resilience.Retry)
	for _, name := range slices.Sorted(maps.Keys(cfg.LLM.Providers)) {
		provider := cfg.LLM.Providers[name]
		if !provider.Enabled {
			continue
		}
		keyStatus := "✗"
		if hasKey(cfg, name) {
			keyStatus = "✓"
		}
		fmt.Printf("  %s: model=%s fast_model=%s key=%s\n", name, provider.Model, provider.FastModel, keyStatus)
	}

	fmt.Println("\nStorage:")
	fmt.Printf("  backend: %s\n", cfg.Storage.Backend)
	fmt.Printf("  handoff: %s (ttl %s)\n", cfg.Handoff.Backend, cfg.Handoff.TTL)
	fmt.Printf("  events: %s\n", cfg.Events.Backend)

	fmt.Println("\nTabs:")
	fmt.Printf("  idle_timeout: %s\n", cfg.Tabs.IdleTimeout)
	fmt.Printf("  max_open: %d\n", cfg.Tabs.MaxOpen)

	if cfg.Content.Path != "" {
		fmt.Printf("\nContent overlay: %s\n", cfg.Content.Path)
	}

	home, _ := config.PyMasterDir()
	fmt.Printf("\nConfig path: %s\n", filepath.Join(home, "config.yaml"))
	return nil
}

// cmdProvider manages LLM provider API keys
func cmdProvider(args []string) error {
	if len(args) < 1 {
		fmt.Println(`Provider management commands:

  pymaster provider list              List configured providers
  pymaster provider set-key <name>    Set API key for a provider`)
		return nil
	}

	switch args[0] {
	case "list":
		return cmdProviderList()
	case "set-key":
		if len(args) < 2 {
			return fmt.Errorf("provider name required")
		}
		return cmdProviderSetKey(args[1])
	default:
		return fmt.Errorf("unknown provider command: %s", args[0])
	}
}

func cmdProviderList() error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Println("Configured LLM Providers:")
	for _, name := range slices.Sorted(maps.Keys(cfg.LLM.Providers)) {
		provider := cfg.LLM.Providers[name]
		status := "disabled"
		if provider.Enabled {
			status = "needs API key"
			if hasKey(cfg, name) {
				status = "ready"
			}
		}

		isDefault := ""
		if name == cfg.LLM.DefaultProvider {
			isDefault = " (default)"
		}

		fmt.Printf("  %s%s\n", name, isDefault)
		fmt.Printf("    status: %s\n", status)
		fmt.Printf("    model:  %s\n", provider.Model)
		if provider.FastModel != "" {
			fmt.Printf("    fast:   %s\n", provider.FastModel)
		}
		if name == "ollama" && provider.URL != "" {
			fmt.Printf("    url:    %s\n", provider.URL)
		}
		fmt.Println()
	}
	return nil
}

func cmdProviderSetKey(provider string) error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, ok := cfg.LLM.Providers[provider]; !ok {
		valid := slices.Sorted(maps.Keys(cfg.LLM.Providers))
		return fmt.Errorf("unknown provider: %s (valid: %s)", provider, strings.Join(valid, ", "))
	}
	if provider == "ollama" {
		fmt.Println("Ollama doesn't require an API key.")
		return nil
	}

	fmt.Printf("Enter %s API key: ", provider)
	key, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	if err := config.SetProviderKey(provider, key); err != nil {
		return fmt.Errorf("save secrets: %w", err)
	}

	fmt.Printf("✓ API key saved for %s\n", provider)
	fmt.Println("Restart the daemon for changes to take effect.")
	return nil
}
