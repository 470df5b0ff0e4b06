// Package report renders portfolio performance for terminals and JSON consumers.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/wallet-performance/internal/types"
)

// Format selects the rendering of a report
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat parses a report format name
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown report format %q", s)
	}
}

// Write renders p to w in the given format
func Write(w io.Writer, p *types.PortfolioPerformance, format Format) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}
	return WriteText(w, p)
}

// WriteText renders p as human-readable lines
func WriteText(w io.Writer, p *types.PortfolioPerformance) error {
	ew := &errWriter{w: w}

	days := WindowDays(p.Window)
	ew.printf("Analyzing wallet: %s\n", p.Wallet)
	ew.printf("Start date: %s\n", p.Window.Start.UTC().Format(time.RFC3339))
	ew.printf("End date: %s\n", p.Window.End.UTC().Format(time.RFC3339))

	switch p.Status {
	case types.StatusEmptyWallet:
		ew.printf("\nNo tokens found for this wallet.\n")
		return ew.err
	case types.StatusNoPriceData:
		ew.printf("\nNo token performances calculated: price data was unavailable for all %d tokens.\n", p.HoldingsCount)
		writeSkipped(ew, p.Skipped)
		return ew.err
	}

	ew.printf("\nWallet %d-Day Performance:\n", days)
	for _, t := range p.Tokens {
		ew.printf("%s: %s%% (Balance: %s)\n", t.Symbol, formatPercent(t.PercentChange), t.Quantity.StringFixed(2))
	}
	writeSkipped(ew, p.Skipped)

	ew.printf("\nWallet Net Worth %d days ago: $%.2f\n", days, p.StartValue)
	ew.printf("Current Wallet Net Worth: $%.2f\n", p.EndValue)

	if p.OverallPercent == nil {
		ew.printf("\nOverall Wallet Performance: undefined (included tokens have no current value)\n")
		return ew.err
	}
	ew.printf("\nOverall Wallet Performance: %s%%\n", formatPercent(*p.OverallPercent))
	return ew.err
}

func writeSkipped(ew *errWriter, skipped []types.SkippedToken) {
	if len(skipped) == 0 {
		return
	}
	ew.printf("\nSkipped %d token(s):\n", len(skipped))
	for _, s := range skipped {
		ew.printf("  %s (%s): %s\n", s.Symbol, s.TokenID, s.Reason)
	}
}

// WindowDays returns the window length in whole days, rounded
func WindowDays(w types.Window) int {
	return int(math.Round(w.End.Sub(w.Start).Hours() / 24))
}

// formatPercent prints two decimals and never renders negative zero
func formatPercent(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	if s == "-0.00" {
		return "0.00"
	}
	return s
}

// errWriter keeps the first write error and skips later writes
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
