package main

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/NgTruc2025/python-ntt/internal/config"
)

const tailBytes = 4096

// cmdStart starts the daemon in the background
func cmdStart() error {
	if isRunning() {
		fmt.Println("✓ Daemon is already running")
		return nil
	}

	home, err := config.EnsurePyMasterDir()
	if err != nil {
		return fmt.Errorf("setup pymaster directory: %w", err)
	}

	daemonPath, err := findDaemonBinary()
	if err != nil {
		return fmt.Errorf("find daemon binary: %w", err)
	}

	cmd := exec.Command(daemonPath)
	cmd.Dir = home
	configureDaemonProcess(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	fmt.Print("Starting daemon...")
	for range 30 {
		time.Sleep(100 * time.Millisecond)
		if isRunning() {
			fmt.Println(" ✓")
			fmt.Printf("Daemon running at %s\n", daemonAddr)
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("daemon failed to start (check logs with 'pymaster logs')")
}

// cmdStop stops the daemon
func cmdStop() error {
	if !isRunning() {
		fmt.Println("Daemon is not running")
		return nil
	}

	home, err := config.PyMasterDir()
	if err != nil {
		return err
	}

	pid, err := readPID(filepath.Join(home, pidFile))
	if err != nil {
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process: %w", err)
	}

	fmt.Print("Stopping daemon...")
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("send signal: %w", err)
	}

	for range 50 {
		time.Sleep(100 * time.Millisecond)
		if !isRunning() {
			fmt.Println(" ✓")
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("daemon did not stop gracefully")
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse PID: %w", err)
	}
	return pid, nil
}

type daemonStatus struct {
	Status       string   `json:"status"`
	Version      string   `json:"version"`
	LLMProviders []string `json:"llm_providers"`
	Storage      string   `json:"storage"`
	Handoff      string   `json:"handoff"`
	Events       string   `json:"events"`
	OpenTabs     int      `json:"open_tabs"`
	Registered   bool     `json:"registered"`

	Backends map[string]string `json:"backends"`
}

// printBackends lists backend health in name order and reports whether
// every backend answered.
func printBackends(w io.Writer, health map[string]string) bool {
	ok := true
	for _, name := range slices.Sorted(maps.Keys(health)) {
		if health[name] == "ok" {
			fmt.Fprintf(w, "  %s: ✓ reachable\n", name)
			continue
		}
		fmt.Fprintf(w, "  %s: ✗ %s\n", name, health[name])
		ok = false
	}
	return ok
}

// cmdStatus shows daemon status
func cmdStatus() error {
	if !isRunning() {
		fmt.Println("Status: stopped")
		return nil
	}

	var status daemonStatus
	if err := call("GET", "/v1/status", nil, &status); err != nil {
		return fmt.Errorf("get status: %w", err)
	}

	fmt.Printf("Status:     %s\n", status.Status)
	fmt.Printf("Version:    %s\n", status.Version)
	fmt.Printf("Providers:  %s\n", strings.Join(status.LLMProviders, ", "))
	fmt.Printf("Storage:    %s\n", status.Storage)
	fmt.Printf("Handoff:    %s\n", status.Handoff)
	fmt.Printf("Events:     %s\n", status.Events)
	fmt.Printf("Open tabs:  %d\n", status.OpenTabs)
	fmt.Printf("Registered: %t\n", status.Registered)
	fmt.Printf("Address:    %s\n", daemonAddr)
	if len(status.Backends) > 0 {
		fmt.Println("Backends:")
		printBackends(os.Stdout, status.Backends)
	}

	return nil
}

// cmdLogs prints the tail of the daemon log
func cmdLogs() error {
	home, err := config.PyMasterDir()
	if err != nil {
		return err
	}

	file, err := os.Open(filepath.Join(home, "logs", "pymasterd.log"))
	if os.IsNotExist(err) {
		fmt.Println("No log file found. Start the daemon first.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	return tail(file, os.Stdout)
}

// tail writes the complete lines within the last tailBytes of f.
func tail(f *os.File, w io.Writer) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	offset := max(info.Size()-tailBytes, 0)
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	reader := bufio.NewReader(f)
	if offset > 0 {
		_, _ = reader.ReadString('\n')
	}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		fmt.Fprintln(w, scanner.Text())
	}
	return scanner.Err()
}

// findDaemonBinary locates the pymasterd binary
func findDaemonBinary() (string, error) {
	if path, err := exec.LookPath("pymasterd"); err == nil {
		return path, nil
	}

	if self, err := os.Executable(); err == nil {
		path := filepath.Join(filepath.Dir(self), "pymasterd")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	for _, path := range []string{"/usr/local/bin/pymasterd", "./pymasterd", "./cmd/pymasterd/pymasterd"} {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("pymasterd binary not found (build with 'go build ./cmd/pymasterd')")
}
