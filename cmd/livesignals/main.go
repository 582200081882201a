// Package main watches a live candle stream and prints the entry
// intents a strategy would take. No orders are placed anywhere.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"prop-trading-lab/internal/domain"
	"prop-trading-lab/internal/feed"
	"prop-trading-lab/internal/ingestion"
	"prop-trading-lab/internal/observability"
	"prop-trading-lab/internal/signal"
)

func main() {
	endpoint := flag.String("ws-endpoint", "", "Websocket stream endpoint (required)")
	symbol := flag.String("symbol", "", "Symbol to watch, e.g. xauusd (required)")
	interval := flag.String("interval", "1h", "Candle interval")
	fastPeriod := flag.Int("ema-fast", 9, "Fast EMA period")
	slowPeriod := flag.Int("ema-slow", 21, "Slow EMA period")
	trendPeriod := flag.Int("ema-trend", 50, "Trend EMA period")
	atrPeriod := flag.Int("atr", 14, "ATR period")
	window := flag.Int("window", 500, "Bars kept in the rolling window")
	verbose := flag.Bool("verbose", false, "Print every closed candle, not only signals")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (disabled when empty)")

	flag.Parse()

	logger := log.New(os.Stderr, "[livesignals] ", log.LstdFlags)

	if *endpoint == "" {
		logger.Fatal("--ws-endpoint is required")
	}
	if *symbol == "" {
		logger.Fatal("--symbol is required")
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
	gen, err := signal.FromConfig(
		domain.SignalConfig{SignalType: domain.SignalTypeEMACross},
		signal.LevelsFromConfig(cfg),
	)
	if err != nil {
		logger.Fatalf("build signal generator: %v", err)
	}

	metrics := observability.NewMetrics("")
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", observability.Handler())
		go func() {
			srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("metrics server: %v", err)
			}
		}()
		logger.Printf("Metrics on %s/metrics", *metricsAddr)
	}

	client, err := ingestion.NewStreamClient(ctx, *endpoint, *symbol, *interval, nil)
	if err != nil {
		logger.Fatalf("connect stream: %v", err)
	}
	defer client.Close()

	logger.Printf("Watching %s@%s with %s", *symbol, *interval, gen.ID())

	watcher := &watcher{
		gen:      gen,
		logger:   logger,
		window:   *window,
		verbose:  *verbose,
		emaFast:  newEMA(*fastPeriod),
		emaSlow:  newEMA(*slowPeriod),
		emaTrend: newEMA(*trendPeriod),
		atr:      newATR(*atrPeriod),
	}

	var lastReconnects uint64
	for {
		select {
		case <-ctx.Done():
			return
		case candle, ok := <-client.Candles():
			if !ok {
				return
			}
			metrics.CandlesStreamed.Inc()
			if n := client.Reconnects(); n > lastReconnects {
				metrics.StreamReconnects.Add(float64(n - lastReconnects))
				lastReconnects = n
			}
			if !candle.Final {
				continue
			}
			watcher.onClosedCandle(candle)
		}
	}
}

// watcher accumulates closed candles, derives the indicator columns
// the generator reads, and prints any intent it produces.
type watcher struct {
	gen     signal.Generator
	logger  *log.Logger
	window  int
	verbose bool

	emaFast  *ema
	emaSlow  *ema
	emaTrend *ema
	atr      *atr

	bars []domain.Bar
}

func (w *watcher) onClosedCandle(candle ingestion.Candle) {
	bar := candle.Bar()
	bar.Indicators = map[string]float64{}

	if v, ok := w.emaFast.update(candle.Close); ok {
		bar.Indicators[domain.IndicatorEMAFast] = v
	}
	if v, ok := w.emaSlow.update(candle.Close); ok {
		bar.Indicators[domain.IndicatorEMASlow] = v
	}
	if v, ok := w.emaTrend.update(candle.Close); ok {
		bar.Indicators[domain.IndicatorEMATrend] = v
	}
	if v, ok := w.atr.update(candle.High, candle.Low, candle.Close); ok {
		bar.Indicators[domain.IndicatorATR] = v
	}

	w.bars = append(w.bars, bar)
	if len(w.bars) > w.window {
		w.bars = w.bars[len(w.bars)-w.window:]
	}

	if w.verbose {
		w.logger.Printf("closed %s O=%.2f H=%.2f L=%.2f C=%.2f",
			candle.OpenTime.Format(time.RFC3339), candle.Open, candle.High, candle.Low, candle.Close)
	}

	if len(w.bars) <= w.gen.WarmupBars() {
		return
	}

	f, err := feed.New(candle.Symbol, w.bars)
	if err != nil {
		w.logger.Printf("bad bar window: %v", err)
		return
	}

	intent := w.gen.Evaluate(f, f.Len()-1)
	if intent == nil {
		return
	}

	fmt.Printf("%s SIGNAL %s %s close=%.2f stop=%.2f target=%.2f rule=%s\n",
		candle.CloseTime.Format(time.RFC3339), intent.Direction, candle.Symbol,
		intent.ReferencePrice, intent.SuggestedStop, intent.SuggestedTarget, intent.Rule)
}

// ema is an incremental exponential moving average, seeded with the
// simple average of the first period closes.
type ema struct {
	period int
	alpha  float64
	value  float64
	seed   float64
	n      int
}

func newEMA(period int) *ema {
	return &ema{period: period, alpha: 2.0 / (float64(period) + 1)}
}

func (e *ema) update(close float64) (float64, bool) {
	e.n++
	if e.n < e.period {
		e.seed += close
		return 0, false
	}
	if e.n == e.period {
		e.seed += close
		e.value = e.seed / float64(e.period)
		return e.value, true
	}
	e.value = e.alpha*close + (1-e.alpha)*e.value
	return e.value, true
}

// atr is an incremental Wilder-smoothed average true range.
type atr struct {
	period    int
	value     float64
	sum       float64
	n         int
	prevClose float64
	hasPrev   bool
}

func newATR(period int) *atr {
	return &atr{period: period}
}

func (a *atr) update(high, low, close float64) (float64, bool) {
	tr := high - low
	if a.hasPrev {
		if d := math.Abs(high - a.prevClose); d > tr {
			tr = d
		}
		if d := math.Abs(a.prevClose - low); d > tr {
			tr = d
		}
	}
	a.prevClose = close
	if !a.hasPrev {
		a.hasPrev = true
		return 0, false
	}

	a.n++
	if a.n < a.period {
		a.sum += tr
		return 0, false
	}
	if a.n == a.period {
		a.sum += tr
		a.value = a.sum / float64(a.period)
		return a.value, true
	}
	a.value = (a.value*float64(a.period-1) + tr) / float64(a.period)
	return a.value, true
}
