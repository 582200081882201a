package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	ossignal "os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"prop-trading-lab/internal/costs"
	"prop-trading-lab/internal/domain"
	"prop-trading-lab/internal/feed"
	"prop-trading-lab/internal/signal"
	"prop-trading-lab/internal/simulator"
	"prop-trading-lab/internal/storage"
	chstore "prop-trading-lab/internal/storage/clickhouse"
	"prop-trading-lab/internal/storage/memory"
	pgstore "prop-trading-lab/internal/storage/postgres"
)

func main() {
	// Data
	dataPath := flag.String("data", "", "Indicator CSV file (required)")
	seriesID := flag.String("series", "", "Series ID, e.g. xauusd_h1 (required)")

	// Signal
	signalType := flag.String("signal", "EMA_CROSS", "Signal: EMA_CROSS, RSI_REVERSAL, MACD_CROSS, COMPOSITE")
	oversold := flag.Float64("oversold", 25, "RSI oversold level")
	overbought := flag.Float64("overbought", 75, "RSI overbought level")

	// Risk parameters
	capital := flag.Float64("capital", 10000, "Initial capital")
	risk := flag.Float64("risk", 0.02, "Risk fraction per trade")
	maxPosition := flag.Float64("max-position", 0.10, "Max position fraction of equity")
	stopMult := flag.Float64("stop-mult", 1.5, "Stop distance in volatility units")
	targetMult := flag.Float64("target-mult", 3.0, "Target distance in volatility units")
	trailMult := flag.Float64("trail-mult", 2.5, "Trailing distance in volatility units")
	trailActivation := flag.Float64("trail-activation", 1.0, "Favorable move before trailing activates")
	reversalExit := flag.Bool("reversal-exit", true, "Close on opposite signal")
	volColumn := flag.String("vol-column", domain.IndicatorATR, "Volatility indicator column")
	volFloor := flag.Float64("vol-floor", 0.01, "Volatility floor as fraction of close")

	// Cost model
	withCosts := flag.Bool("costs", false, "Apply transaction cost and margin model")
	spread := flag.Float64("spread", 0.30, "Bid-ask spread in price units")
	commission := flag.Float64("commission-per-lot", 7.0, "Round-trip commission per lot")
	slippage := flag.Float64("slippage", 0.05, "Adverse fill deviation per unit")
	leverage := flag.Float64("leverage", 100, "Account leverage")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")

	// Output
	outputJSON := flag.Bool("json", false, "Output as JSON")
	persistResult := flag.Bool("persist", false, "Persist run, trades and equity curve to storage")

	flag.Parse()

	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

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

	cfg := domain.SimulatorConfig{
		InitialCapital:          *capital,
		RiskFraction:            *risk,
		MaxPositionFraction:     *maxPosition,
		StopVolatilityMult:      *stopMult,
		TargetVolatilityMult:    *targetMult,
		TrailVolatilityMult:     *trailMult,
		TrailActivationMult:     *trailActivation,
		AllowSignalReversalExit: *reversalExit,
		VolatilityColumn:        *volColumn,
		VolatilityFloorFraction: *volFloor,
	}

	signalCfg, err := buildSignalConfig(*signalType, *oversold, *overbought)
	if err != nil {
		logger.Fatal(err)
	}

	gen, err := signal.FromConfig(signalCfg, signal.LevelsFromConfig(cfg))
	if err != nil {
		logger.Fatalf("build signal generator: %v", err)
	}

	var costModel *costs.Model
	if *withCosts {
		costCfg := domain.DefaultCostConfig()
		costCfg.Spread = *spread
		costCfg.CommissionPerLot = *commission
		costCfg.SlippagePerUnit = *slippage
		costCfg.Leverage = *leverage
		costModel = costs.NewModel(*costCfg)
	}

	f, err := feed.LoadCSV(*seriesID, *dataPath)
	if err != nil {
		logger.Fatalf("load bars: %v", err)
	}

	logger.Printf("Running backtest: series=%s signal=%s bars=%d", *seriesID, gen.ID(), f.Len())

	sim := simulator.New(simulator.Options{
		Config:    cfg,
		Generator: gen,
		Costs:     costModel,
		Logger:    logger,
	})

	result, err := sim.Run(f)
	if err != nil {
		logger.Fatalf("backtest failed: %v", err)
	}

	if *persistResult {
		if err := persist(ctx, logger, result, *seriesID, *postgresDSN, *clickhouseDSN, *useMemory); err != nil {
			logger.Fatalf("persist: %v", err)
		}
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
	} else {
		printResult(result)
	}
}

// buildSignalConfig maps the CLI flags to a signal config.
func buildSignalConfig(signalType string, oversold, overbought float64) (domain.SignalConfig, error) {
	st := domain.SignalType(strings.ToUpper(signalType))
	cfg := domain.SignalConfig{SignalType: st}

	switch st {
	case domain.SignalTypeEMACross, domain.SignalTypeMACDCross:
	case domain.SignalTypeRSIReversal:
		cfg.Oversold = &oversold
		cfg.Overbought = &overbought
	case domain.SignalTypeComposite:
		cfg.Members = []domain.SignalConfig{
			{SignalType: domain.SignalTypeEMACross},
			{SignalType: domain.SignalTypeRSIReversal, Oversold: &oversold, Overbought: &overbought},
		}
	default:
		return cfg, fmt.Errorf("invalid signal: %s. Must be EMA_CROSS, RSI_REVERSAL, MACD_CROSS, or COMPOSITE", signalType)
	}
	return cfg, nil
}

// persist writes the run record, trades and equity curve to storage.
func persist(ctx context.Context, logger *log.Logger, result *domain.RunResult, seriesID, postgresDSN, clickhouseDSN string, useMemory bool) error {
	var runStore storage.RunStore = memory.NewRunStore()
	var tradeStore storage.TradeStore = memory.NewTradeStore()
	var equityStore storage.EquityStore = memory.NewEquityStore()

	if !useMemory {
		if postgresDSN == "" {
			return fmt.Errorf("--postgres-dsn is required when not using --use-memory (runs and trades)")
		}
		if clickhouseDSN == "" {
			return fmt.Errorf("--clickhouse-dsn is required when not using --use-memory (equity curves)")
		}

		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		runStore = pgstore.NewRunStore(pool)
		tradeStore = pgstore.NewTradeStore(pool)

		conn, err := chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			return fmt.Errorf("connect to clickhouse: %w", err)
		}
		defer conn.Close()

		equityStore = chstore.NewEquityStore(conn)
	}

	record := domain.NewRunRecord(seriesID, result, time.Now().UTC())
	if err := runStore.Insert(ctx, record); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	if len(result.Trades) > 0 {
		if err := tradeStore.InsertBulk(ctx, result.Trades); err != nil {
			return fmt.Errorf("insert trades: %w", err)
		}
	}
	equity := make([]*domain.EquityPoint, len(result.Equity))
	for i := range result.Equity {
		equity[i] = &result.Equity[i]
	}
	if err := equityStore.InsertBulk(ctx, result.RunID, equity); err != nil {
		return fmt.Errorf("insert equity curve: %w", err)
	}

	logger.Printf("Persisted run %s: %d trades, %d equity points", record.RunID, len(result.Trades), len(equity))
	return nil
}

// printResult outputs human-readable run summary.
func printResult(r *domain.RunResult) {
	m := r.Report

	fmt.Println()
	fmt.Println("=== Backtest Result ===")
	fmt.Printf("Run ID:             %s\n", r.RunID)
	fmt.Printf("Strategy:           %s\n", r.StrategyID)
	fmt.Println()

	fmt.Println("Capital:")
	fmt.Printf("  Initial:          %.2f\n", m.InitialCapital)
	fmt.Printf("  Final:            %.2f\n", m.FinalCapital)
	fmt.Printf("  Net Profit:       %.2f (%.2f%%)\n", m.NetProfit, m.TotalReturn*100)
	fmt.Println()

	fmt.Println("Trades:")
	fmt.Printf("  Total:            %d (%d wins / %d losses)\n", m.TotalTrades, m.WinningTrades, m.LosingTrades)
	fmt.Printf("  Win Rate:         %.2f%%\n", m.WinRate*100)
	fmt.Printf("  Profit Factor:    %.4f\n", m.ProfitFactor)
	fmt.Printf("  Avg Win / Loss:   %.2f / %.2f\n", m.AvgWin, m.AvgLoss)
	fmt.Printf("  Risk:Reward:      %.4f\n", m.RiskReward)
	fmt.Println()

	fmt.Println("Risk:")
	fmt.Printf("  Max Drawdown:     %.2f%%\n", m.MaxDrawdown*100)
	fmt.Printf("  Sharpe Ratio:     %.4f\n", m.SharpeRatio)
	fmt.Println()

	if m.TotalCosts > 0 {
		fmt.Println("Costs:")
		fmt.Printf("  Spread:           %.2f\n", m.TotalSpreadCost)
		fmt.Printf("  Commission:       %.2f\n", m.TotalCommission)
		fmt.Printf("  Slippage:         %.2f\n", m.TotalSlippage)
		fmt.Printf("  Total:            %.2f\n", m.TotalCosts)
		fmt.Println()
	}

	if len(m.ExitReasons) > 0 {
		fmt.Println("Exit Reasons:")
		reasons := make([]string, 0, len(m.ExitReasons))
		for reason := range m.ExitReasons {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Printf("  %-18s %d\n", reason+":", m.ExitReasons[reason])
		}
		fmt.Println()
	}

	fmt.Println("Counters:")
	fmt.Printf("  Skipped Signals:  %d\n", r.SkippedSignals)
	fmt.Printf("  Margin Rejected:  %d\n", r.MarginRejected)
	fmt.Printf("  Volatility Floor: %d\n", r.VolatilityFloorUses)
}
