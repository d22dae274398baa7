// uploadsim runs a local upload pipeline: files are copied into a content store,
// an object-created event is raised and a simulated function analyzes the object
// and appends a metadata record.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"uploadsim/internal/config"
	"uploadsim/internal/logging"
	"uploadsim/internal/otel"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run parses flags, wires the pipeline and dispatches the subcommand. It returns the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()

	flagSet := pflag.NewFlagSet("uploadsim", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&cfg.ContentDir, "content-dir", cfg.ContentDir, "directory of the local content store")
	flagSet.StringVar(&cfg.RecordFile, "record-file", cfg.RecordFile, "JSON array file holding analysis records")
	flagSet.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "function log file (empty disables it)")
	flagSet.StringVar(&cfg.SamplesDir, "samples-dir", cfg.SamplesDir, "directory used by the demo command")
	flagSet.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "Prometheus textfile written on exit (empty disables it)")
	flagSet.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flagSet.StringVar(&cfg.StorageBackend, "storage", cfg.StorageBackend, "content store backend: local, minio or webdav")
	flagSet.StringVar(&cfg.RecordBackend, "records", cfg.RecordBackend, "record backend: jsonfile or postgres")
	flagSet.IntVar(&cfg.Analyzer.ChunkSize, "chunk-size", cfg.Analyzer.ChunkSize, "read size used when hashing objects")
	flagSet.BoolVar(&cfg.Analyzer.SniffContent, "sniff", cfg.Analyzer.SniffContent, "sniff content when the extension is unknown")
	flagSet.Usage = func() { printUsage(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printUsage(stderr, flagSet)
		return 2
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", rest[0])
		printUsage(stderr, flagSet)
		return 2
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	lg, closeLog, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer closeLog()

	shutdown, err := otel.Init(ctx, lg)
	if err != nil {
		lg.Warn("tracing disabled", zap.Error(err))
	} else {
		defer func() { _ = shutdown(context.Background()) }()
	}

	a, err := newApp(ctx, cfg, lg)
	if err != nil {
		lg.Error("startup failed", zap.Error(err))
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer a.Close()

	if err := cmd.run(ctx, a, rest[1:], stdout); err != nil {
		var ec exitCoder
		if errors.As(err, &ec) {
			return ec.ExitCode()
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `uploadsim simulates an upload pipeline on the local filesystem.

Usage:
  uploadsim [flags] <command> [args]

Commands:
`)
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %-28s %s\n", commands[name].usage, commands[name].help)
	}
	fmt.Fprintf(w, "\nFlags:\n%s", flagSet.FlagUsages())
}
