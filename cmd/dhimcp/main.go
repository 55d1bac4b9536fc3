// Command dhimcp serves the Docker Hardened Images migration tools over
// stdio, including the interactive tools that elicit input from the
// connected user mid-call.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joeshaw/envdecode"

	"github.com/vvoland/dhimcp/dhitools"
	"github.com/vvoland/dhimcp/internal/docstore"
	"github.com/vvoland/dhimcp/mcp"
	"github.com/vvoland/dhimcp/mcpservice"
	"github.com/vvoland/dhimcp/stdio"
)

const serverVersion = "0.1.0"

type config struct {
	DocsDir       string        `env:"DHIMCP_DOCS_DIR"`
	LogLevel      string        `env:"DHIMCP_LOG_LEVEL,default=info"`
	ElicitTimeout time.Duration `env:"DHIMCP_ELICIT_TIMEOUT,default=0"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "dhimcp:", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("read environment: %w", err)
	}

	flag.StringVar(&cfg.DocsDir, "docs-dir", cfg.DocsDir, "directory of per-repository migration guides (optional)")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	flag.DurationVar(&cfg.ElicitTimeout, "elicit-timeout", cfg.ElicitTimeout, "bound on each elicitation round trip (0 waits indefinitely)")
	flag.Parse()

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	// Stdout carries the protocol stream, so all logging goes to stderr.
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	docs, err := docstore.New(
		docstore.WithDocsDir(cfg.DocsDir),
		docstore.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("open doc store: %w", err)
	}
	defer docs.Close()

	var toolOpts []dhitools.Option
	if cfg.ElicitTimeout > 0 {
		toolOpts = append(toolOpts, dhitools.WithElicitTimeout(cfg.ElicitTimeout))
	}

	server := mcpservice.NewServer(
		mcpservice.WithServerInfo(mcp.ImplementationInfo{Name: "dhimcp", Version: serverVersion}),
		mcpservice.WithInstructions("Tools for migrating images to Docker Hardened Images. Several tools ask the connected user for input before completing."),
		mcpservice.WithToolsCapability(dhitools.New(docs, toolOpts...)),
	)

	h := stdio.NewHandler(server, stdio.WithLogger(log))

	log.Info("dhimcp.start", slog.String("version", serverVersion))
	if err := h.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
