// Backtest tool: replay a cleaned transaction ledger through the fraud
// scorer and report monthly score and flag-rate trends.
//
// Usage:
//   go run cmd/backtest/main.go -input ./data/cleaned_transaction_data.csv -out ./data
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/opensource-finance/harrier/internal/backtest"
	"github.com/opensource-finance/harrier/internal/dataset"
	"github.com/opensource-finance/harrier/internal/fraud"
	"github.com/opensource-finance/harrier/internal/rules"
)

func main() {
	inputPath := flag.String("input", "./data/cleaned_transaction_data.csv", "Path to cleaned transaction CSV")
	outDir := flag.String("out", "./data", "Directory for backtest_summary.csv")
	flag.Parse()

	fmt.Println("Running backtest simulation...")
	fmt.Printf("Input: %s\n\n", *inputPath)

	txns, err := dataset.ReadTransactions(*inputPath)
	if err != nil {
		fmt.Printf("ERROR: failed to read transactions: %v\n", err)
		os.Exit(1)
	}

	scorer, err := fraud.NewScorer(rules.DefaultScoringConfig())
	if err != nil {
		fmt.Printf("ERROR: failed to build fraud scorer: %v\n", err)
		os.Exit(1)
	}

	scored, err := scorer.ScoreBatch(context.Background(), txns)
	if err != nil {
		fmt.Printf("ERROR: scoring failed: %v\n", err)
		os.Exit(1)
	}

	monthly := backtest.Monthly(scored)

	fmt.Println("Backtest results (monthly):")
	fmt.Printf("  %-8s  %14s  %10s  %15s  %13s\n",
		"Month", "Avg Risk Score", "Total Txns", "High Risk Flags", "Flag Rate %")
	for _, row := range monthly {
		fmt.Printf("  %-8s  %14.2f  %10d  %15d  %12.2f%%\n",
			row.Month, row.AvgRiskScore, row.TotalTxns, row.HighRiskFlags, row.FlagRatePct)
	}

	outPath := filepath.Join(*outDir, "backtest_summary.csv")
	if err := dataset.WriteBacktest(outPath, monthly); err != nil {
		fmt.Printf("ERROR: failed to write summary: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nBacktest summary saved to %s\n", outPath)
}
