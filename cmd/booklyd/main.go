// Booklyd is the Bookly customer-support chat agent.
//
// It serves the storefront chat widget over WebSocket, answers with an
// LLM-driven agent that can look up orders, process returns, and
// recommend books, and records conversation analytics. Configuration is
// loaded from a single YAML file discovered automatically (see
// [config.DefaultSearchPaths]).
//
// Usage:
//
//	booklyd serve            Start the gateway server
//	booklyd version          Print version and build information
//	booklyd -o json version  Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bookly/support-agent/internal/agent"
	"github.com/bookly/support-agent/internal/analytics"
	"github.com/bookly/support-agent/internal/buildinfo"
	"github.com/bookly/support-agent/internal/config"
	"github.com/bookly/support-agent/internal/events"
	"github.com/bookly/support-agent/internal/llm"
	"github.com/bookly/support-agent/internal/session"
	"github.com/bookly/support-agent/internal/store"
	"github.com/bookly/support-agent/internal/tools"
	"github.com/bookly/support-agent/internal/ws"
)

// main constructs the OS-level environment and delegates to [run] so the
// full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the booklyd command. Arguments are
// parsed by hand; the flag package relies on package-level globals that
// interfere with calling run() concurrently from tests.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string
	var command string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Booklyd - Bookly Customer Support Agent")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: booklyd [flags] <command>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the gateway server")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/bookly/config.yaml, /etc/bookly/config.yaml")
	return nil
}

// runServe handles the "booklyd serve" subcommand. It loads config,
// opens the store, wires the agent loop, analytics collector, and
// WebSocket gateway, then blocks until a shutdown signal arrives.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo)
	logger.Info("starting booklyd", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	// API keys usually arrive via .env in development.
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using environment variables")
	}

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reconfigure the logger now that the desired level is known.
	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger = newLogger(stdout, level)
	}
	logger.Info("config loaded", "path", cfgPath, "port", cfg.Listen.Port)

	// --- Store ---
	// SQLite-backed catalog, customers, orders, policies, and analytics.
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database %s: %w", cfg.Database.Path, err)
	}
	defer st.Close()
	logger.Info("database opened", "path", cfg.Database.Path)

	if cfg.Database.Seed {
		if err := st.Seed(ctx); err != nil {
			return fmt.Errorf("seed database: %w", err)
		}
	}

	// --- Providers ---
	// Anthropic is the primary; OpenAI serves as the fallback when
	// configured. Missing keys are tolerated at startup so the demo
	// data can be explored, but the agent will fail on first message.
	anthropicKey := cfg.Anthropic.APIKey
	if anthropicKey == "" {
		anthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if anthropicKey == "" {
		logger.Warn("no Anthropic API key configured")
	}
	primary := llm.NewAnthropicClient(anthropicKey, logger)

	var secondary llm.Client
	openaiKey := cfg.OpenAI.APIKey
	if openaiKey == "" {
		openaiKey = os.Getenv("OPENAI_API_KEY")
	}
	if openaiKey != "" {
		secondary = llm.NewOpenAIClient(openaiKey, logger)
		logger.Info("OpenAI fallback configured", "model", cfg.OpenAI.Model)
	} else {
		logger.Warn("no OpenAI API key configured, provider fallback disabled")
	}

	// --- Event bus and analytics ---
	bus := events.New()
	collector := analytics.New(st, bus, logger)
	collector.Start()
	defer collector.Stop()

	// --- Tools and agent loop ---
	registry := tools.NewRegistry(st, time.Duration(cfg.Agent.ToolTimeoutSec)*time.Second, logger)

	loop := agent.New(agent.Config{
		Primary:         primary,
		PrimaryModel:    cfg.Anthropic.Model,
		Secondary:       secondary,
		SecondaryModel:  cfg.OpenAI.Model,
		Registry:        registry,
		Bus:             bus,
		MaxTurns:        cfg.Agent.MaxTurns,
		ProviderTimeout: time.Duration(cfg.Agent.ProviderTimeoutSec) * time.Second,
		Logger:          logger,
	})

	// --- Sessions ---
	sessions := session.NewStore(cfg.Agent.HistoryLimit)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Idle sessions are evicted in the background so abandoned chats
	// do not pile up.
	idleTimeout := time.Duration(cfg.Session.IdleTimeoutMin) * time.Minute
	if idleTimeout > 0 {
		go func() {
			ticker := time.NewTicker(idleTimeout / 4)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if removed := sessions.CleanupIdle(idleTimeout); len(removed) > 0 {
						logger.Info("idle sessions evicted", "count", len(removed))
					}
				}
			}
		}()
	}

	// --- Gateway ---
	gateway := ws.New(loop, sessions, st, bus, logger)

	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port),
		Handler:     gateway.Router(),
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: WebSocket connections are long-lived.
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("gateway listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("booklyd stopped")
	return nil
}

// newLogger creates a structured text logger writing to w.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// loadConfig locates and parses the YAML configuration file.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}
