// Command lcm is the CLI entry point consumed by assistant hooks (spec.md
// §6): three subcommands, driven by CLAUDE_SESSION_ID and
// CLAUDE_TRANSCRIPT_PATH, structured the way cmd/goclaw/main.go
// structures its own subcommand dispatch — flag.FlagSet per verb,
// os.Args[1] switch, log/slog diagnostics, os.Exit(1) on usage error.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/basket/go-claw/internal/config"
	"github.com/basket/go-claw/internal/injection"
	"github.com/basket/go-claw/internal/ingest"
	"github.com/basket/go-claw/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "capture":
		os.Exit(runCapture(ctx))
	case "inject":
		os.Exit(runInject(ctx))
	case "init":
		os.Exit(runInit(ctx))
	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "lcm: unknown subcommand %q\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: lcm <capture|inject|init>

  capture   diff CLAUDE_TRANSCRIPT_PATH (or a discovered transcript) into
            the store, emitting a JSON stats line on stderr iff anything
            was captured
  inject    write the current context-recovery block to stdout
  init      report the session's stored message count on stderr

Environment:
  CLAUDE_SESSION_ID        session id (default "default")
  CLAUDE_TRANSCRIPT_PATH   explicit transcript path (capture only)
  LCM_DB_PATH              override the default ${HOME}/.lcm/lcm.db
`)
}

func sessionID() string {
	if v := os.Getenv("CLAUDE_SESSION_ID"); v != "" {
		return v
	}
	return "default"
}

func openStore() (*store.Store, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, cfg, err
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, cfg, err
	}
	return st, cfg, nil
}

// runCapture implements the `capture` CLI verb: §6 specifies a one-line
// JSON stats record on stderr iff any messages were captured, silence
// otherwise.
func runCapture(ctx context.Context) int {
	fs := flag.NewFlagSet("capture", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	st, cfg, err := openStore()
	if err != nil {
		slog.Error("capture: open store", "error", err)
		return 1
	}
	defer st.Close()

	session := sessionID()
	ing := ingest.New(st, cfg.StateDir, defaultSearchDirs())

	res, err := ing.CaptureNew(ctx, session, os.Getenv("CLAUDE_TRANSCRIPT_PATH"))
	if err != nil {
		slog.Error("capture: ingest", "session", session, "error", err)
		return 1
	}

	if res.Captured > 0 {
		line, err := json.Marshal(res)
		if err != nil {
			slog.Error("capture: marshal stats", "error", err)
			return 1
		}
		fmt.Fprintln(os.Stderr, string(line))
	}
	return 0
}

// runInject implements the `inject` CLI verb: write the injection block
// to stdout (empty output when the session has no top-level summaries
// yet).
func runInject(ctx context.Context) int {
	fs := flag.NewFlagSet("inject", flag.ExitOnError)
	maxTokens := fs.Int("max-tokens", injection.DefaultMaxTokens, "token budget for the injection block")
	fs.Parse(os.Args[2:])

	st, _, err := openStore()
	if err != nil {
		slog.Error("inject: open store", "error", err)
		return 1
	}
	defer st.Close()

	builder := injection.New(st)
	block, err := builder.BuildInjection(ctx, sessionID(), *maxTokens)
	if err != nil {
		slog.Error("inject: build", "error", err)
		return 1
	}
	fmt.Print(block)
	return 0
}

// runInit implements the `init` CLI verb: report the session's stored
// message count on stderr, per §6.
func runInit(ctx context.Context) int {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	st, _, err := openStore()
	if err != nil {
		slog.Error("init: open store", "error", err)
		return 1
	}
	defer st.Close()

	session := sessionID()
	count, err := st.CountMessages(ctx, session)
	if err != nil {
		slog.Error("init: count messages", "session", session, "error", err)
		return 1
	}
	slog.Info("lcm initialized", "session", session, "message_count", count)
	return 0
}

// defaultSearchDirs returns the directories CaptureNew walks to locate a
// transcript by session id when CLAUDE_TRANSCRIPT_PATH isn't set.
func defaultSearchDirs() []string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return []string{
		filepath.Join(home, ".claude", "projects"),
		filepath.Join(home, ".config", "claude", "projects"),
	}
}
