package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"prop-trading-lab/internal/challenge"
	"prop-trading-lab/internal/costs"
	"prop-trading-lab/internal/domain"
	"prop-trading-lab/internal/feed"
	"prop-trading-lab/internal/signal"
	"prop-trading-lab/internal/simulator"
	"prop-trading-lab/internal/storage"
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

	// Challenge rules
	profitTarget := flag.Float64("profit-target", 0.10, "Required gain, fraction of starting capital")
	maxDailyLoss := flag.Float64("max-daily-loss", 0.05, "Allowed same-day loss, fraction of starting capital")
	maxDrawdown := flag.Float64("max-drawdown", 0.10, "Allowed drawdown, fraction of starting capital")
	timeLimitBars := flag.Int("time-limit-bars", 0, "Bar count limit, 0 for none")
	minTrades := flag.Int("min-trades", 4, "Minimum closed trades before a pass")
	decideOnTimeout := flag.Bool("decide-on-timeout", false, "Settle pass/fail by profit at the time limit")

	// Cost model
	withCosts := flag.Bool("costs", true, "Apply transaction cost and margin model")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")

	// Output
	outputJSON := flag.Bool("json", false, "Output as JSON")
	persistResult := flag.Bool("persist", false, "Persist run record and trades")

	flag.Parse()

	logger := log.New(os.Stderr, "[challenge] ", log.LstdFlags)

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

	cfg := domain.DefaultSimulatorConfig()
	cfg.InitialCapital = *capital
	cfg.RiskFraction = *risk
	cfg.MaxPositionFraction = *maxPosition
	cfg.StopVolatilityMult = *stopMult
	cfg.TargetVolatilityMult = *targetMult
	cfg.TrailVolatilityMult = *trailMult
	cfg.TrailActivationMult = *trailActivation

	signalCfg := domain.SignalConfig{SignalType: domain.SignalType(strings.ToUpper(*signalType))}
	if signalCfg.SignalType == domain.SignalTypeRSIReversal {
		signalCfg.Oversold = oversold
		signalCfg.Overbought = overbought
	}

	gen, err := signal.FromConfig(signalCfg, signal.LevelsFromConfig(cfg))
	if err != nil {
		logger.Fatalf("build signal generator: %v", err)
	}

	var costModel *costs.Model
	if *withCosts {
		costModel = costs.NewModel(*domain.DefaultCostConfig())
	}

	challengeCfg := domain.ChallengeConfig{
		ProfitTarget:    *profitTarget,
		MaxDailyLoss:    *maxDailyLoss,
		MaxDrawdown:     *maxDrawdown,
		TimeLimitBars:   *timeLimitBars,
		MinTrades:       *minTrades,
		DecideOnTimeout: *decideOnTimeout,
	}
	evaluator := challenge.NewEvaluator(challengeCfg, cfg.InitialCapital)

	f, err := feed.LoadCSV(*seriesID, *dataPath)
	if err != nil {
		logger.Fatalf("load bars: %v", err)
	}

	logger.Printf("Running challenge: series=%s signal=%s target=%.1f%% daily-loss=%.1f%% drawdown=%.1f%%",
		*seriesID, gen.ID(), *profitTarget*100, *maxDailyLoss*100, *maxDrawdown*100)

	sim := simulator.New(simulator.Options{
		Config:    cfg,
		Generator: gen,
		Costs:     costModel,
		Hook:      evaluator,
		Logger:    logger,
	})

	result, err := sim.Run(f)
	if err != nil {
		logger.Fatalf("challenge run failed: %v", err)
	}

	if *persistResult {
		if err := persist(ctx, logger, result, *seriesID, *postgresDSN, *useMemory); err != nil {
			logger.Fatalf("persist: %v", err)
		}
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
	} else {
		printOutcome(result)
	}

	// Non-zero exit when the challenge was not passed, so scripts can
	// branch on the outcome.
	if result.Challenge == nil || result.Challenge.Status != domain.ChallengePassed {
		os.Exit(1)
	}
}

// persist writes the run record and trades to storage.
func persist(ctx context.Context, logger *log.Logger, result *domain.RunResult, seriesID, postgresDSN string, useMemory bool) error {
	var runStore storage.RunStore = memory.NewRunStore()
	var tradeStore storage.TradeStore = memory.NewTradeStore()

	if !useMemory {
		if postgresDSN == "" {
			return fmt.Errorf("--postgres-dsn is required when not using --use-memory")
		}

		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		runStore = pgstore.NewRunStore(pool)
		tradeStore = pgstore.NewTradeStore(pool)
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

	logger.Printf("Persisted run %s: %d trades", record.RunID, len(result.Trades))
	return nil
}

// printOutcome outputs human-readable challenge outcome.
func printOutcome(r *domain.RunResult) {
	m := r.Report
	c := r.Challenge

	fmt.Println()
	fmt.Println("=== Challenge Result ===")
	fmt.Printf("Run ID:             %s\n", r.RunID)
	fmt.Printf("Strategy:           %s\n", r.StrategyID)
	fmt.Println()

	if c != nil {
		fmt.Printf("Status:             %s\n", c.Status)
		if c.FailReason != "" {
			fmt.Printf("Fail Reason:        %s\n", c.FailReason)
		}
		fmt.Printf("Decided At Bar:     %d (%s)\n", c.Bar, c.Timestamp.Format(time.RFC3339))
		fmt.Printf("Final Equity:       %.2f (peak %.2f)\n", c.FinalEquity, c.PeakEquity)
		fmt.Printf("Trading Days:       %d\n", c.TradingDays)
	} else {
		fmt.Println("Status:             RUNNING (data ended before a terminal outcome)")
	}
	fmt.Println()

	fmt.Println("Run:")
	fmt.Printf("  Net Profit:       %.2f (%.2f%%)\n", m.NetProfit, m.TotalReturn*100)
	fmt.Printf("  Trades:           %d\n", m.TotalTrades)
	fmt.Printf("  Win Rate:         %.2f%%\n", m.WinRate*100)
	fmt.Printf("  Max Drawdown:     %.2f%%\n", m.MaxDrawdown*100)
}
