package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattjoyce/opgate/internal/api"
	"github.com/mattjoyce/opgate/internal/config"
	"github.com/mattjoyce/opgate/internal/disptable"
	"github.com/mattjoyce/opgate/internal/journal"
	"github.com/mattjoyce/opgate/internal/kvstore"
	"github.com/mattjoyce/opgate/internal/log"
	"github.com/mattjoyce/opgate/internal/protocol"
	"github.com/mattjoyce/opgate/internal/storage"
	"github.com/mattjoyce/opgate/internal/sysops"
	"github.com/mattjoyce/opgate/internal/tui/watch"
	"gopkg.in/yaml.v3"
)

var version = "0.1.0-dev"

const defaultConfigPath = "config.yaml"

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	switch cmd {
	// --- NOUNS ---
	case "system":
		return runSystemNoun(args)
	case "config":
		return runConfigNoun(args)
	case "op":
		return runOpNoun(args)

	// --- ROOT ALIASES ---
	case "start":
		return runStart(args)
	case "watch":
		return runWatch(args)
	case "version", "--version":
		fmt.Printf("opgate version %s\n", version)
		return 0
	case "help", "--help", "-h":
		printUsage()
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Print(`opgate - Opcode-indexed call dispatch gateway

Usage:
  opgate <noun> <action> [flags]

Core Resources (Nouns):
  system    Gateway lifecycle and health
  config    Configuration and integrity
  op        Registered operations

System Commands:
  system start      Start the gateway service in foreground
  system status     Show gateway health via the API
  system watch      Real-time monitoring TUI

Config Commands:
  config lock       Authorize current state (update integrity hash)
  config check      Validate syntax and integrity
  config show       Show the resolved configuration

Op Commands:
  op list           List registered operations
  op call <opcode>  Dispatch a call through the gateway

General:
  version           Show version information
  help              Show this help message

Use 'opgate <noun> help' for resource-specific flags.
`)
}

// --- NOUN DISPATCHERS ---

func runSystemNoun(args []string) int {
	if len(args) < 1 {
		printSystemNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printSystemNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "start":
		if hasHelpFlag(actionArgs) {
			printSystemStartHelp()
			return 0
		}
		return runStart(actionArgs)
	case "status":
		if hasHelpFlag(actionArgs) {
			printSystemStatusHelp()
			return 0
		}
		return runSystemStatus(actionArgs)
	case "watch":
		if hasHelpFlag(actionArgs) {
			printSystemWatchHelp()
			return 0
		}
		return runWatch(actionArgs)
	case "help":
		printSystemNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown system action: %s\n", action)
		return 1
	}
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "lock":
		if hasHelpFlag(actionArgs) {
			printConfigLockHelp()
			return 0
		}
		return runConfigLock(actionArgs)
	case "check":
		if hasHelpFlag(actionArgs) {
			printConfigCheckHelp()
			return 0
		}
		return runConfigCheck(actionArgs)
	case "show":
		if hasHelpFlag(actionArgs) {
			printConfigShowHelp()
			return 0
		}
		return runConfigShow(actionArgs)
	case "help":
		printConfigNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func runOpNoun(args []string) int {
	if len(args) < 1 {
		printOpNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printOpNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "list":
		if hasHelpFlag(actionArgs) {
			printOpListHelp()
			return 0
		}
		return runOpList(actionArgs)
	case "call":
		if hasHelpFlag(actionArgs) {
			printOpCallHelp()
			return 0
		}
		return runOpCall(actionArgs)
	case "help":
		printOpNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown op action: %s\n", action)
		return 1
	}
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

// --- HELP ---

func printSystemNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: opgate system <action>")
	fmt.Fprintln(w, "Actions: start, status, watch")
}

func printConfigNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: opgate config <action> [flags]")
	fmt.Fprintln(w, "Actions: lock, check, show")
}

func printOpNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: opgate op <action> [flags]")
	fmt.Fprintln(w, "Actions: list, call")
}

func printSystemStartHelp() {
	fmt.Println("Usage: opgate system start [--config PATH]")
	fmt.Println("Start the gateway service in the foreground.")
}

func printSystemStatusHelp() {
	fmt.Println("Usage: opgate system status [--api-url URL] [--json]")
	fmt.Println("Show gateway health via the API.")
}

func printSystemWatchHelp() {
	fmt.Println("Usage: opgate system watch [--api-url URL]")
	fmt.Println()
	fmt.Println("Real-time monitoring TUI.")
	fmt.Println("Shows gateway health, registered operations, and the call journal.")
	fmt.Println()
	fmt.Println("Keybindings:")
	fmt.Println("  q, Ctrl+C        Quit")
	fmt.Println("  ↑/↓, k/j         Navigate operations")
}

func printConfigLockHelp() {
	fmt.Println("Usage: opgate config lock [--config PATH]")
	fmt.Println("Authorize current configuration state by regenerating its integrity hash.")
}

func printConfigCheckHelp() {
	fmt.Println("Usage: opgate config check [--config PATH]")
	fmt.Println("Validate configuration syntax and integrity.")
}

func printConfigShowHelp() {
	fmt.Println("Usage: opgate config show [--config PATH] [--json]")
	fmt.Println("Show the resolved configuration.")
}

func printOpListHelp() {
	fmt.Println("Usage: opgate op list [--api-url URL] [--json]")
	fmt.Println("List operations registered on a running gateway.")
}

func printOpCallHelp() {
	fmt.Println("Usage: opgate op call <opcode-hex> [--args STRING | --args-hex HEX] [--api-url URL]")
	fmt.Println("Dispatch a call through a running gateway and print the response.")
}

// --- ACTION IMPLEMENTATIONS ---

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if err := config.VerifyChecksum(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Config integrity check failed: %v\n", err)
		fmt.Fprintln(os.Stderr, "Hint: run 'opgate config lock' after intentional edits.")
		return 1
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("opgate starting", "version", version, "config", *configPath)

	ctx := context.Background()
	db, err := storage.Open(ctx, cfg.Storage.DBPath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.Storage.DBPath, "error", err)
		return 1
	}
	defer db.Close()
	logger.Info("database opened", "path", cfg.Storage.DBPath)

	tbl, err := disptable.New(kvstore.NewMem(), protocol.ShapeChecker{})
	if err != nil {
		logger.Error("failed to create dispatch table", "error", err)
		return 1
	}
	defer tbl.Destroy()

	svc := sysops.New(version)
	if cfg.HasOpSet("sys") {
		if err := sysops.Register(tbl, svc); err != nil {
			logger.Error("failed to register sys operations", "error", err)
			return 1
		}
		logger.Info("operation set registered", "set", "sys", "ops", tbl.Len())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)

	apiServer := api.New(api.Config{Listen: cfg.Service.Listen},
		tbl, journal.New(db), svc, log.WithComponent("api"))
	go func() {
		if err := apiServer.Start(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("api: %w", err)
		}
	}()

	logger.Info("opgate running (press Ctrl+C to stop)", "listen", cfg.Service.Listen)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		cancel()
		return 1
	}

	logger.Info("opgate stopped")
	return 0
}

func runSystemStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	apiURL := fs.String("api-url", "http://localhost:8710", "Gateway API URL")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(*apiURL + "/healthz")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Gateway unreachable: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	var health api.HealthzResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		fmt.Fprintf(os.Stderr, "Malformed health response: %v\n", err)
		return 1
	}

	if *jsonOut {
		data, _ := json.MarshalIndent(health, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("status: %s\n", health.Status)
		fmt.Printf("uptime: %s\n", time.Duration(health.UptimeSeconds)*time.Second)
		fmt.Printf("ops:    %d\n", health.OpsRegistered)
	}

	if health.Status != "ok" {
		return 1
	}
	return 0
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	apiURL := fs.String("api-url", "http://localhost:8710", "Gateway API URL")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	m := watch.New(*apiURL)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return 1
	}
	return 0
}

func runConfigLock(args []string) int {
	fs := flag.NewFlagSet("lock", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	// Refuse to lock a config that does not parse.
	if _, err := config.Load(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v\n", err)
		return 1
	}

	hash, err := config.WriteChecksum(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to lock config: %v\n", err)
		return 1
	}
	fmt.Printf("Locked %s\n", *configPath)
	fmt.Printf("  blake3: %s\n", hash)
	return 0
}

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	if _, err := config.Load(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v\n", err)
		return 1
	}
	if err := config.VerifyChecksum(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Integrity check FAILED: %v\n", err)
		return 1
	}

	fmt.Println("Status: Configuration check PASSED.")
	return 0
}

func runConfigShow(args []string) int {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}

	if *jsonOut {
		data, _ := json.MarshalIndent(cfg, "", "  ")
		fmt.Println(string(data))
	} else {
		data, _ := yaml.Marshal(cfg)
		fmt.Print(string(data))
	}
	return 0
}

func runOpList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	apiURL := fs.String("api-url", "http://localhost:8710", "Gateway API URL")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(*apiURL + "/v1/ops")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Gateway unreachable: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	var payload struct {
		Ops []api.OpInfo `json:"ops"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		fmt.Fprintf(os.Stderr, "Malformed response: %v\n", err)
		return 1
	}

	if *jsonOut {
		data, _ := json.MarshalIndent(payload.Ops, "", "  ")
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("%-10s %-20s %-14s %-14s %s\n", "OPCODE", "NAME", "ARGS", "RET", "OWNER")
	for _, op := range payload.Ops {
		fmt.Printf("%-10s %-20s %-14s %-14s %s\n", op.Opcode, op.Name, op.Args, op.Ret, op.RetOwner)
	}
	return 0
}

func runOpCall(args []string) int {
	var apiURL, argsStr, argsHex string

	fs := flag.NewFlagSet("call", flag.ContinueOnError)
	fs.StringVar(&apiURL, "api-url", "http://localhost:8710", "Gateway API URL")
	fs.StringVar(&argsStr, "args", "", "Argument payload as a raw string")
	fs.StringVar(&argsHex, "args-hex", "", "Argument payload as hex bytes")

	// Support flags after the positional opcode, like 'op call 00000101 --args hi'.
	var opcodeArg string
	var remainingArgs []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") && opcodeArg == "" {
			opcodeArg = arg
		} else {
			remainingArgs = append(remainingArgs, arg)
		}
	}

	if err := fs.Parse(remainingArgs); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	if opcodeArg == "" {
		fmt.Fprintln(os.Stderr, "Usage: opgate op call <opcode-hex> [--args STRING | --args-hex HEX]")
		return 1
	}
	if argsStr != "" && argsHex != "" {
		fmt.Fprintln(os.Stderr, "Error: use only one of --args or --args-hex")
		return 1
	}

	opcode, err := strconv.ParseUint(strings.TrimPrefix(opcodeArg, "0x"), 16, 32)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid opcode %q: %v\n", opcodeArg, err)
		return 1
	}

	payload := []byte(argsStr)
	if argsHex != "" {
		payload, err = hex.DecodeString(argsHex)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid hex payload: %v\n", err)
			return 1
		}
	}

	req := &protocol.Request{
		Protocol: protocol.Version,
		Opcode:   uint32(opcode),
		Args:     payload,
	}
	var body bytes.Buffer
	if err := protocol.EncodeRequest(&body, req); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode request: %v\n", err)
		return 1
	}

	client := &http.Client{Timeout: 10 * time.Second}
	httpResp, err := client.Post(apiURL+"/v1/call", "application/json", &body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Gateway unreachable: %v\n", err)
		return 1
	}
	defer httpResp.Body.Close()

	resp, err := protocol.DecodeResponse(httpResp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Malformed response: %v\n", err)
		return 1
	}

	if !resp.OK() {
		fmt.Fprintf(os.Stderr, "Call failed (%s): %s\n", httpResp.Status, resp.Error)
		return 1
	}

	fmt.Printf("status: %d\n", resp.Code)
	if len(resp.Ret) > 0 {
		fmt.Printf("ret:    %s\n", hex.EncodeToString(resp.Ret))
	}
	return 0
}
