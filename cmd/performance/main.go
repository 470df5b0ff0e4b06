// Command performance prints the value-weighted performance of a Solana wallet
// over the configured lookback window.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wallet-performance/internal/address"
	"github.com/wallet-performance/internal/app"
	"github.com/wallet-performance/internal/config"
	"github.com/wallet-performance/internal/logging"
	"github.com/wallet-performance/internal/report"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("performance", flag.ContinueOnError)
	fs.SetOutput(stderr)
	formatFlag := fs.String("format", "text", "Output format: text or json")
	daysFlag := fs.Int("days", 0, "Lookback in days (defaults to WINDOW_LOOKBACK)")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: performance [flags] [wallet]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	format, err := report.ParseFormat(*formatFlag)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if *daysFlag < 0 {
		fmt.Fprintln(stderr, "Error: -days cannot be negative")
		return 2
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "Error loading configuration: %v\n", err)
		return 1
	}
	if *daysFlag > 0 {
		cfg.Window.Lookback = time.Duration(*daysFlag) * 24 * time.Hour
	}

	wallet, err := resolveWallet(fs.Args(), cfg.DefaultWallet)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fs.Usage()
		return 1
	}

	level, err := logging.ParseLogLevel(cfg.Logging.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	logFormat, err := logging.ParseLogFormat(cfg.Logging.Format)
	if err != nil {
		logFormat = logging.FormatText
	}
	// Logs stay off stdout so the report can be piped
	logging.SetGlobalLogger(logging.NewLoggerWithOutput(level, logFormat, stderr))

	a, err := app.Build(cfg, app.Options{})
	if err != nil {
		fmt.Fprintf(stderr, "Error initializing services: %v\n", err)
		return 1
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := a.Performance.ComputeRecentPerformance(ctx, wallet)
	if err != nil {
		fmt.Fprintf(stderr, "Error computing performance for %s: %v\n", wallet, err)
		return 1
	}

	if err := report.Write(stdout, result, format); err != nil {
		fmt.Fprintf(stderr, "Error writing report: %v\n", err)
		return 1
	}
	return 0
}

// resolveWallet picks the positional wallet argument, falling back to the configured default
func resolveWallet(args []string, fallback string) (string, error) {
	if len(args) > 1 {
		return "", fmt.Errorf("expected one wallet address, got %d arguments", len(args))
	}

	wallet := fallback
	if len(args) == 1 {
		wallet = args[0]
	}
	wallet = address.Normalize(wallet)
	if wallet == "" {
		return "", fmt.Errorf("no wallet address given and DEFAULT_WALLET is not set")
	}
	if err := address.Validate(wallet); err != nil {
		return "", err
	}
	return wallet, nil
}
