package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"uploadsim/internal/gateway"
	"uploadsim/internal/model"
	"uploadsim/internal/repository"
)

const (
	exampleName    = "example.txt"
	exampleContent = "Hello from example.txt\nThis is a sample text file.\nLine 3.\n"
)

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, a *app, args []string, w io.Writer) error
}

var commandOrder = []string{"upload", "demo", "invoke", "records", "logs"}

var commands = map[string]command{
	"upload":  {usage: "upload <path>...", help: "store each file and run the function on it", run: cmdUpload},
	"demo":    {usage: "demo", help: "seed the samples directory and upload every sample", run: cmdDemo},
	"invoke":  {usage: "invoke <event.json>", help: "run the function with a raw S3 event", run: cmdInvoke},
	"records": {usage: "records", help: "list analysis records", run: cmdRecords},
	"logs":    {usage: "logs", help: "print the function log", run: cmdLogs},
}

// exitCode ends the process with a status without printing an extra error line.
type exitCode int

func (e exitCode) Error() string { return "exit status " + strconv.Itoa(int(e)) }

func (e exitCode) ExitCode() int { return int(e) }

type exitCoder interface {
	ExitCode() int
}

func cmdUpload(ctx context.Context, a *app, args []string, w io.Writer) error {
	if len(args) == 0 {
		return errors.New("upload needs at least one path")
	}
	return uploadAll(ctx, a, args, w)
}

func cmdDemo(ctx context.Context, a *app, args []string, w io.Writer) error {
	if err := seedSamples(a.cfg.SamplesDir); err != nil {
		return fmt.Errorf("seed samples: %w", err)
	}
	paths, err := sampleFiles(a.cfg.SamplesDir)
	if err != nil {
		return fmt.Errorf("list samples: %w", err)
	}
	return uploadAll(ctx, a, paths, w)
}

func cmdInvoke(ctx context.Context, a *app, args []string, w io.Writer) error {
	if len(args) != 1 {
		return errors.New("invoke needs exactly one event file")
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read event: %w", err)
	}
	resp := gateway.Invoke(ctx, a.svc, raw)
	printResponse(w, "invoke "+args[0], resp)
	if resp.StatusCode != 200 {
		return exitCode(1)
	}
	return nil
}

func cmdRecords(ctx context.Context, a *app, args []string, w io.Writer) error {
	res, err := a.svc.Records(ctx)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	if res.State == repository.StateUnreadable {
		fmt.Fprintf(w, "warning: record store unreadable (%v), showing no records\n", res.Err)
	}
	if len(res.Items) == 0 {
		fmt.Fprintln(w, "No records yet.")
		return nil
	}

	hr(w, fmt.Sprintf("records (%d)", len(res.Items)))
	for i, r := range res.Items {
		fmt.Fprintln(w, summary(i+1, r))
	}
	hr(w, "raw")
	b, err := json.MarshalIndent(res.Items, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(b))
	return nil
}

func cmdLogs(ctx context.Context, a *app, args []string, w io.Writer) error {
	if a.cfg.LogFile == "" {
		fmt.Fprintln(w, "Function log is disabled.")
		return nil
	}
	b, err := os.ReadFile(a.cfg.LogFile)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(b) == 0) {
		fmt.Fprintln(w, "No logs yet.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read log: %w", err)
	}
	_, err = w.Write(b)
	return err
}

func uploadAll(ctx context.Context, a *app, paths []string, w io.Writer) error {
	failed := 0
	for _, p := range paths {
		resp := gateway.Upload(ctx, a.svc, p)
		printResponse(w, "upload "+p, resp)
		if resp.StatusCode != 200 {
			failed++
		}
	}
	if failed > 0 {
		return exitCode(1)
	}
	return nil
}

// seedSamples creates dir and the example file when they are missing.
func seedSamples(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	p := filepath.Join(dir, exampleName)
	if _, err := os.Stat(p); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(p, []byte(exampleContent), 0o644)
}

// sampleFiles lists the regular files of dir in name order.
func sampleFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func summary(n int, r model.AnalysisRecord) string {
	lines := "-"
	if r.LineCount != nil {
		lines = strconv.Itoa(*r.LineCount)
	}
	return fmt.Sprintf("%2d. %-24s %8d bytes  %-26s lines=%-5s %s  %s",
		n, r.Filename, r.SizeBytes, r.MimeType, lines, r.SHA256[:min(12, len(r.SHA256))], r.ProcessedUTC)
}

func printResponse(w io.Writer, title string, resp events.APIGatewayProxyResponse) {
	hr(w, title)
	fmt.Fprintf(w, "statusCode: %d\n%s\n", resp.StatusCode, resp.Body)
}

func hr(w io.Writer, title string) {
	const width = 70
	pad := max(0, width-len(title)-1)
	fmt.Fprintf(w, "%s %s\n", title, strings.Repeat("─", pad))
}
