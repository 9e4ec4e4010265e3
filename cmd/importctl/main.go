// importctl imports POS exports into the catalog. It detects what a file
// contains, previews the extraction, runs transactional imports, and rolls
// batches back.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/counterworks/pos-import/pkg/config"
)

const usage = `Usage: importctl <command> [flags]

Commands:
  detect <file>       score the file against every registered extractor
  preview <file>      show what an import would create, without writing
  run <file>          import the file
  status <batch-id>   show a batch
  list                list recent batches
  rollback <batch-id> delete everything a batch created
  watch               poll a directory and import new files

Run 'importctl <command> -h' for command flags.`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "importctl: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.Observability)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	if err := dispatch(ctx, cmd, args, cfg, logger); err != nil {
		logger.Error("command failed", slog.String("command", cmd), slog.Any("error", err))
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, cmd string, args []string, cfg *config.Config, logger *slog.Logger) error {
	switch cmd {
	case "detect":
		return cmdDetect(ctx, args, cfg, logger)
	case "preview":
		return cmdPreview(ctx, args, cfg, logger)
	case "run":
		return cmdRun(ctx, args, cfg, logger)
	case "status":
		return cmdStatus(ctx, args, cfg, logger)
	case "list":
		return cmdList(ctx, args, cfg, logger)
	case "rollback":
		return cmdRollback(ctx, args, cfg, logger)
	case "watch":
		return cmdWatch(ctx, args, cfg, logger)
	case "help", "-h", "--help":
		fmt.Println(usage)
		return nil
	default:
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func newLogger(obs config.ObservabilityConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(obs.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(obs.LogFormat, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func parseBatchID(args []string) (uuid.UUID, error) {
	if len(args) < 1 {
		return uuid.Nil, fmt.Errorf("batch id required")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid batch id %q: %w", args[0], err)
	}
	return id, nil
}
