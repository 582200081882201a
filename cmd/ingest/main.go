package main

import (
	"context"
	"flag"
	"log"
	"os"
	ossignal "os/signal"
	"syscall"

	"prop-trading-lab/internal/ingestion"
	"prop-trading-lab/internal/storage"
	chstore "prop-trading-lab/internal/storage/clickhouse"
	"prop-trading-lab/internal/storage/memory"
	"prop-trading-lab/internal/storage/migrations"
)

func main() {
	dataPath := flag.String("data", "", "Indicator CSV file (required)")
	seriesID := flag.String("series", "", "Series ID to store the bars under (required)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (smoke tests only, nothing persists)")
	migrate := flag.Bool("migrate", false, "Apply ClickHouse schema migrations before loading")

	flag.Parse()

	logger := log.New(os.Stderr, "[ingest] ", log.LstdFlags)

	if *dataPath == "" {
		logger.Fatal("--data is required")
	}
	if *seriesID == "" {
		logger.Fatal("--series is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	var store storage.BarSeriesStore = memory.NewBarSeriesStore()

	if !*useMemory {
		if *clickhouseDSN == "" {
			logger.Fatal("--clickhouse-dsn is required when not using --use-memory")
		}

		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("connect to clickhouse: %v", err)
		}
		defer conn.Close()

		if *migrate {
			if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
				logger.Fatalf("apply migrations: %v", err)
			}
			logger.Print("Applied ClickHouse migrations")
		}

		store = chstore.NewBarSeriesStore(conn)
	}

	loader := ingestion.NewLoader(store, logger)
	n, err := loader.LoadCSV(ctx, *seriesID, *dataPath)
	if err != nil {
		logger.Fatalf("ingest: %v", err)
	}

	logger.Printf("Done: %d bars in series %s", n, *seriesID)
}
