// Command analyze_trades runs the historical behavior analysis over a trade
// export and prints the report. Input is a JSON array of trades, matching the
// /api/analysis/history request shape.
//
// Usage: analyze_trades -file trades.json -user u1 [-json]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"trading-psychology-engine/internal/analyzer"
)

func main() {
	godotenv.Load()

	file := flag.String("file", "", "path to a JSON file with the trade history")
	userID := flag.String("user", "local", "user id to stamp on the report")
	asJSON := flag.Bool("json", false, "print the raw report as JSON")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: analyze_trades -file trades.json [-user u1] [-json]")
		os.Exit(1)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", *file, err)
		os.Exit(1)
	}

	var trades []analyzer.Trade
	if err := json.Unmarshal(data, &trades); err != nil {
		fmt.Fprintf(os.Stderr, "invalid trade file: %v\n", err)
		os.Exit(1)
	}

	passive := analyzer.NewPassive(nil, zerolog.Nop())
	report := passive.Analyze(trades, *userID)

	if *asJSON {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to marshal report: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}

	printReport(report)
}

func printReport(r *analyzer.Report) {
	line := strings.Repeat("=", 72)

	fmt.Println(line)
	fmt.Println("BEHAVIORAL TRADE HISTORY ANALYSIS")
	fmt.Println(line)
	fmt.Printf("User:           %s\n", r.UserID)
	fmt.Printf("Period:         %s\n", r.Period)
	fmt.Printf("Total trades:   %d\n", r.TotalTrades)
	fmt.Printf("Win rate:       %.1f%%\n", r.WinRate*100)
	fmt.Printf("Profit factor:  %.2f\n", r.ProfitFactor)
	fmt.Printf("Avg pnl:        %.2f%%\n", r.AvgPnLPct)
	fmt.Printf("Max drawdown:   %.2f%%\n", r.MaxDrawdown)
	fmt.Printf("Risk score:     %.0f/100\n", r.RiskScore)

	if r.Intervals != nil {
		fmt.Println()
		fmt.Println("-- Re-entry intervals --")
		fmt.Printf("After a loss: %.0f min, after a win: %.0f min\n",
			r.Intervals.AvgIntervalAfterLoss, r.Intervals.AvgIntervalAfterWin)
		if r.Intervals.RushingAfterLoss {
			fmt.Println("!! Rushing back in after losses")
		}
	}
	if r.Sizing != nil && r.Sizing.RevengePatternDetected {
		fmt.Println()
		fmt.Println("-- Position sizing --")
		fmt.Printf("!! Size escalation after losses (severity %s, x%.2f)\n",
			r.Sizing.Severity, r.Sizing.AvgSizeIncreaseAfterLoss)
	}
	if r.Holds != nil && r.Holds.LossAversionDetected {
		fmt.Println()
		fmt.Println("-- Hold durations --")
		fmt.Printf("!! Losers held %.1fx longer than winners\n", r.Holds.LossAversionRatio)
	}
	if r.Times != nil && len(r.Times.BestHours) > 0 {
		fmt.Println()
		fmt.Println("-- Timing --")
		fmt.Printf("Best hours: %v, worst hours: %v\n", r.Times.BestHours, r.Times.WorstHours)
	}
	if r.Symbols != nil && len(r.Symbols.BestSymbols) > 0 {
		fmt.Println()
		fmt.Println("-- Symbols --")
		fmt.Printf("Best: %v, worst: %v\n", r.Symbols.BestSymbols, r.Symbols.WorstSymbols)
	}

	if len(r.Recommendations) > 0 {
		fmt.Println()
		fmt.Println(line)
		fmt.Println("RECOMMENDATIONS")
		fmt.Println(line)
		for _, rec := range r.Recommendations {
			fmt.Println(" " + rec)
		}
	}
}
