package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"prop-trading-lab/internal/reporting"
	"prop-trading-lab/internal/storage"
	"prop-trading-lab/internal/storage/memory"
	pgstore "prop-trading-lab/internal/storage/postgres"
)

func main() {
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (empty report, for smoke tests)")
	format := flag.String("format", "markdown", "Output format: markdown, csv")
	outPath := flag.String("out", "", "Output file, stdout when empty")

	flag.Parse()

	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	ctx := context.Background()

	var runStore storage.RunStore = memory.NewRunStore()
	var tradeStore storage.TradeStore = memory.NewTradeStore()

	if !*useMemory {
		if *postgresDSN == "" {
			logger.Fatal("--postgres-dsn is required when not using --use-memory")
		}

		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()

		runStore = pgstore.NewRunStore(pool)
		tradeStore = pgstore.NewTradeStore(pool)
	}

	report, err := reporting.NewGenerator(runStore, tradeStore).Generate(ctx)
	if err != nil {
		logger.Fatalf("generate report: %v", err)
	}

	var output string
	switch strings.ToLower(*format) {
	case "markdown":
		output = reporting.RenderMarkdown(report)
	case "csv":
		output = reporting.RenderCSV(report.Runs)
	default:
		logger.Fatalf("invalid format: %s. Must be markdown or csv", *format)
	}

	if *outPath == "" {
		fmt.Print(output)
		return
	}

	if err := os.WriteFile(*outPath, []byte(output), 0o644); err != nil {
		logger.Fatalf("write %s: %v", *outPath, err)
	}
	logger.Printf("Wrote %s report covering %d runs to %s", *format, report.RunCount, *outPath)
}
