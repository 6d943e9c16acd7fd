package main

import (
	"fmt"
	"os"

	"github.com/NgTruc2025/python-ntt/internal/config"
)

// Version is set at build time via ldflags
var Version = "dev"

const pidFile = "pymasterd.pid"

// daemonAddr follows daemon.port/bind from config when it loads.
var daemonAddr = "http://127.0.0.1:7433"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if cfg, err := config.LoadLocalConfig(); err == nil {
		daemonAddr = fmt.Sprintf("http://%s:%d", cfg.Daemon.Bind, cfg.Daemon.Port)
	}

	if err := dispatch(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func dispatch(command string, args []string) error {
	switch command {
	case "init":
		return cmdInit()
	case "start":
		return cmdStart()
	case "stop":
		return cmdStop()
	case "status":
		return cmdStatus()
	case "logs":
		return cmdLogs()
	case "doctor":
		return cmdDoctor()
	case "config":
		return cmdConfig()
	case "provider":
		return cmdProvider(args)
	case "register":
		return cmdRegister(args)
	case "whoami":
		return cmdWhoami()
	case "logout":
		return cmdLogout()
	case "lookup":
		return cmdLookup(args)
	case "libs":
		return cmdLibs(args)
	case "topics":
		return cmdTopics(args)
	case "exercise":
		return cmdExercise(args)
	case "activity":
		return cmdActivity(args)
	case "mcp":
		return cmdMCP(args)
	case "help", "-h", "--help":
		printUsage()
		return nil
	case "version", "-v", "--version":
		fmt.Printf("pymaster %s\n", Version)
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage() {
	fmt.Println(`PyMaster - Learn Python with an AI tutor

Usage:
  pymaster <command> [arguments]

Setup Commands:
  init            Initialize PyMaster (first-time setup)
  doctor          Check providers and daemon
  config          Show current configuration
  provider        Manage LLM providers

Daemon Commands:
  start           Start the PyMaster daemon
  stop            Stop the PyMaster daemon
  status          Show daemon status
  logs            View daemon logs

Learner Commands:
  register        Register as the local learner
  whoami          Show the registered learner
  logout          Remove the local profile

Content Commands:
  lookup [term]   Search built-in functions
  libs [term]     Search Python libraries
  topics [id]     List knowledge topics or show one
  exercise list   List practice exercises
  exercise info   Show exercise details
  activity        Show recent learning activity

Integration Commands:
  mcp [--http addr]  Start MCP server (stdio by default)

Other:
  help            Show this help message
  version         Show version information

Examples:
  pymaster start                       # Start daemon
  pymaster provider set-key gemini     # Configure Gemini API key
  pymaster register "Ada" ada@x.org    # Create the learner profile
  pymaster lookup enumerate            # Look up a built-in
  pymaster topics decorators           # Read a topic`)
}
