package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	ossignal "os/signal"
	"strconv"
	"strings"
	"syscall"

	"prop-trading-lab/internal/domain"
	"prop-trading-lab/internal/feed"
	"prop-trading-lab/internal/sweep"
)

func main() {
	// Data
	dataPath := flag.String("data", "", "Indicator CSV file (required)")
	seriesID := flag.String("series", "", "Series ID, e.g. xauusd_h1 (required)")

	// Grid axes, comma-separated
	signals := flag.String("signals", "EMA_CROSS", "Signal types to sweep, comma-separated")
	riskList := flag.String("risk-list", "0.01,0.02", "Risk fractions to sweep")
	stopList := flag.String("stop-list", "1.0,1.5,2.0", "Stop multipliers to sweep")
	targetList := flag.String("target-list", "2.0,3.0,4.0", "Target multipliers to sweep")

	// Shared parameters
	capital := flag.Float64("capital", 10000, "Initial capital")
	oversold := flag.Float64("oversold", 25, "RSI oversold level")
	overbought := flag.Float64("overbought", 75, "RSI overbought level")
	withCosts := flag.Bool("costs", true, "Apply transaction cost and margin model")
	withChallenge := flag.Bool("challenge", false, "Evaluate challenge rules per run")

	// Execution
	workers := flag.Int("workers", 0, "Concurrent simulations, 0 for NumCPU")
	objectiveName := flag.String("objective", "net_profit", "Ranking: net_profit, profit_factor, challenge_pass")
	top := flag.Int("top", 10, "Print the top N outcomes, 0 for all")

	flag.Parse()

	logger := log.New(os.Stderr, "[sweep] ", log.LstdFlags)

	if *dataPath == "" {
		logger.Fatal("--data is required")
	}
	if *seriesID == "" {
		logger.Fatal("--series is required")
	}

	objective, err := selectObjective(*objectiveName)
	if err != nil {
		logger.Fatal(err)
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

	f, err := feed.LoadCSV(*seriesID, *dataPath)
	if err != nil {
		logger.Fatalf("load bars: %v", err)
	}

	jobs, err := buildGrid(gridSpec{
		signals:       strings.Split(*signals, ","),
		risks:         *riskList,
		stops:         *stopList,
		targets:       *targetList,
		capital:       *capital,
		oversold:      *oversold,
		overbought:    *overbought,
		withCosts:     *withCosts,
		withChallenge: *withChallenge,
	})
	if err != nil {
		logger.Fatal(err)
	}

	logger.Printf("Sweeping %d combinations over %d bars (objective: %s)", len(jobs), f.Len(), *objectiveName)

	runner := sweep.NewRunner(sweep.Options{
		Workers:   *workers,
		Objective: objective,
		Logger:    logger,
	})

	outcomes, err := runner.Run(ctx, f, jobs)
	if err != nil {
		logger.Fatalf("sweep: %v", err)
	}

	printRanked(outcomes, *top)
}

// selectObjective maps the objective flag to a scoring function.
func selectObjective(name string) (sweep.Objective, error) {
	switch strings.ToLower(name) {
	case "net_profit":
		return sweep.ObjectiveNetProfit, nil
	case "profit_factor":
		return sweep.ObjectiveProfitFactor, nil
	case "challenge_pass":
		return sweep.ObjectiveChallengePass, nil
	default:
		return nil, fmt.Errorf("invalid objective: %s. Must be net_profit, profit_factor, or challenge_pass", name)
	}
}

type gridSpec struct {
	signals       []string
	risks         string
	stops         string
	targets       string
	capital       float64
	oversold      float64
	overbought    float64
	withCosts     bool
	withChallenge bool
}

// buildGrid expands the axis lists into the full cartesian product.
func buildGrid(spec gridSpec) ([]sweep.Job, error) {
	risks, err := parseFloats(spec.risks)
	if err != nil {
		return nil, fmt.Errorf("parse --risk-list: %w", err)
	}
	stops, err := parseFloats(spec.stops)
	if err != nil {
		return nil, fmt.Errorf("parse --stop-list: %w", err)
	}
	targets, err := parseFloats(spec.targets)
	if err != nil {
		return nil, fmt.Errorf("parse --target-list: %w", err)
	}

	var jobs []sweep.Job
	for _, sig := range spec.signals {
		signalCfg := domain.SignalConfig{SignalType: domain.SignalType(strings.ToUpper(strings.TrimSpace(sig)))}
		if signalCfg.SignalType == domain.SignalTypeRSIReversal {
			oversold, overbought := spec.oversold, spec.overbought
			signalCfg.Oversold = &oversold
			signalCfg.Overbought = &overbought
		}

		for _, risk := range risks {
			for _, stop := range stops {
				for _, target := range targets {
					cfg := domain.DefaultSimulatorConfig()
					cfg.InitialCapital = spec.capital
					cfg.RiskFraction = risk
					cfg.StopVolatilityMult = stop
					cfg.TargetVolatilityMult = target

					job := sweep.Job{
						Name:   fmt.Sprintf("%s risk=%.3f stop=%.1f target=%.1f", signalCfg.SignalType, risk, stop, target),
						Config: cfg,
						Signal: signalCfg,
					}
					if spec.withCosts {
						job.Costs = domain.DefaultCostConfig()
					}
					if spec.withChallenge {
						job.Challenge = domain.DefaultChallengeConfig()
					}
					jobs = append(jobs, job)
				}
			}
		}
	}
	return jobs, nil
}

func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// printRanked outputs the ranked outcome table.
func printRanked(outcomes []sweep.Outcome, top int) {
	if top <= 0 || top > len(outcomes) {
		top = len(outcomes)
	}

	fmt.Println()
	fmt.Printf("=== Sweep Results (top %d of %d) ===\n", top, len(outcomes))
	fmt.Printf("%-4s %-45s %12s %10s %8s %8s %10s\n",
		"#", "Combination", "NetProfit", "PF", "WinRate", "MaxDD", "Challenge")

	for i, o := range outcomes[:top] {
		if o.Err != nil {
			fmt.Printf("%-4d %-45s failed: %v\n", i+1, o.Job.Name, o.Err)
			continue
		}
		m := o.Result.Report
		challenge := "-"
		if o.Result.Challenge != nil {
			challenge = string(o.Result.Challenge.Status)
		}
		fmt.Printf("%-4d %-45s %12.2f %10.4f %7.2f%% %7.2f%% %10s\n",
			i+1, o.Job.Name, m.NetProfit, m.ProfitFactor,
			m.WinRate*100, m.MaxDrawdown*100, challenge)
	}
}
