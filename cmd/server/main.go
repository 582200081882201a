// Package main serves the run API together with health and
// Prometheus metrics endpoints.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"prop-trading-lab/internal/challenge"
	"prop-trading-lab/internal/costs"
	"prop-trading-lab/internal/domain"
	"prop-trading-lab/internal/feed"
	"prop-trading-lab/internal/observability"
	"prop-trading-lab/internal/signal"
	"prop-trading-lab/internal/simulator"
	"prop-trading-lab/internal/storage"
	chstore "prop-trading-lab/internal/storage/clickhouse"
	"prop-trading-lab/internal/storage/memory"
	"prop-trading-lab/internal/storage/migrations"
	pgstore "prop-trading-lab/internal/storage/postgres"
)

// Server exposes stored runs over HTTP.
type Server struct {
	runStore    storage.RunStore
	tradeStore  storage.TradeStore
	equityStore storage.EquityStore
	barStore    storage.BarSeriesStore
	metrics     *observability.Metrics
	logger      *log.Logger
	started     time.Time
}

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	migrate := flag.Bool("migrate", false, "Apply schema migrations on startup")

	flag.Parse()

	logger := log.New(os.Stderr, "[server] ", log.LstdFlags)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	s := &Server{
		runStore:    memory.NewRunStore(),
		tradeStore:  memory.NewTradeStore(),
		equityStore: memory.NewEquityStore(),
		barStore:    memory.NewBarSeriesStore(),
		metrics:     observability.NewMetrics(""),
		logger:      logger,
		started:     time.Now().UTC(),
	}

	if !*useMemory {
		if *postgresDSN == "" {
			logger.Fatal("--postgres-dsn is required when not using --use-memory")
		}
		if *clickhouseDSN == "" {
			logger.Fatal("--clickhouse-dsn is required when not using --use-memory")
		}

		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()

		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("connect to clickhouse: %v", err)
		}
		defer conn.Close()

		if *migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				logger.Fatalf("postgres migrations: %v", err)
			}
			if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
				logger.Fatalf("clickhouse migrations: %v", err)
			}
			logger.Print("Applied schema migrations")
		}

		s.runStore = pgstore.NewRunStore(pool)
		s.tradeStore = pgstore.NewTradeStore(pool)
		s.equityStore = chstore.NewEquityStore(conn)
		s.barStore = chstore.NewBarSeriesStore(conn)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Printf("Listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("serve: %v", err)
	}
	logger.Print("Server stopped")
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", observability.Handler())

	mux.HandleFunc("GET /runs", s.handleListRuns)
	mux.HandleFunc("POST /runs", s.handleCreateRun)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /runs/{id}/trades", s.handleGetRunTrades)
	mux.HandleFunc("GET /runs/{id}/equity", s.handleGetRunEquity)
	mux.HandleFunc("GET /series", s.handleListSeries)
	mux.HandleFunc("POST /series/{id}/bars", s.handleIngestBars)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).String(),
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	var err error
	start := time.Now()

	strategyID := r.URL.Query().Get("strategy")
	if strategyID != "" {
		runs, e := s.runStore.GetByStrategy(r.Context(), strategyID)
		s.metrics.RecordDBQuery("postgres", "runs_by_strategy", time.Since(start).Seconds(), e)
		if e != nil {
			s.writeStoreError(w, e)
			return
		}
		writeJSON(w, http.StatusOK, runs)
		return
	}

	runs, err := s.runStore.GetAll(r.Context())
	s.metrics.RecordDBQuery("postgres", "runs_all", time.Since(start).Seconds(), err)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	run, err := s.runStore.GetByID(r.Context(), r.PathValue("id"))
	s.metrics.RecordDBQuery("postgres", "run_by_id", time.Since(start).Seconds(), err)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleGetRunTrades(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	trades, err := s.tradeStore.GetByRunID(r.Context(), r.PathValue("id"))
	s.metrics.RecordDBQuery("postgres", "trades_by_run", time.Since(start).Seconds(), err)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleGetRunEquity(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	points, err := s.equityStore.GetByRunID(r.Context(), r.PathValue("id"))
	s.metrics.RecordDBQuery("clickhouse", "equity_by_run", time.Since(start).Seconds(), err)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// createRunRequest is the body of POST /runs. Parameters left unset
// keep the defaults of domain.DefaultSimulatorConfig.
type createRunRequest struct {
	SeriesID      string   `json:"series_id"`
	Signal        string   `json:"signal"`
	Oversold      *float64 `json:"oversold,omitempty"`
	Overbought    *float64 `json:"overbought,omitempty"`
	Capital       *float64 `json:"capital,omitempty"`
	Risk          *float64 `json:"risk,omitempty"`
	StopMult      *float64 `json:"stop_mult,omitempty"`
	TargetMult    *float64 `json:"target_mult,omitempty"`
	WithCosts     bool     `json:"with_costs"`
	WithChallenge bool     `json:"with_challenge"`
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.SeriesID == "" || req.Signal == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "series_id and signal are required"})
		return
	}

	cfg := domain.DefaultSimulatorConfig()
	if req.Capital != nil {
		cfg.InitialCapital = *req.Capital
	}
	if req.Risk != nil {
		cfg.RiskFraction = *req.Risk
	}
	if req.StopMult != nil {
		cfg.StopVolatilityMult = *req.StopMult
	}
	if req.TargetMult != nil {
		cfg.TargetVolatilityMult = *req.TargetMult
	}

	signalCfg := domain.SignalConfig{
		SignalType: domain.SignalType(strings.ToUpper(req.Signal)),
		Oversold:   req.Oversold,
		Overbought: req.Overbought,
	}
	if signalCfg.SignalType == domain.SignalTypeComposite {
		signalCfg.Members = []domain.SignalConfig{
			{SignalType: domain.SignalTypeEMACross},
			{SignalType: domain.SignalTypeRSIReversal, Oversold: req.Oversold, Overbought: req.Overbought},
		}
	}
	gen, err := signal.FromConfig(signalCfg, signal.LevelsFromConfig(cfg))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	start := time.Now()
	bars, err := s.barStore.GetBySeriesID(r.Context(), req.SeriesID)
	s.metrics.RecordDBQuery("clickhouse", "bars_by_series", time.Since(start).Seconds(), err)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if len(bars) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "series has no bars"})
		return
	}
	seriesBars := make([]domain.Bar, len(bars))
	for i, b := range bars {
		seriesBars[i] = *b
	}
	f, err := feed.New(req.SeriesID, seriesBars)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var costModel *costs.Model
	if req.WithCosts {
		costModel = costs.NewModel(*domain.DefaultCostConfig())
	}
	var hook simulator.BarHook
	if req.WithChallenge {
		hook = challenge.NewEvaluator(*domain.DefaultChallengeConfig(), cfg.InitialCapital)
	}

	sim := simulator.New(simulator.Options{
		Config:    cfg,
		Generator: gen,
		Costs:     costModel,
		Hook:      hook,
		Logger:    s.logger,
	})

	simStart := time.Now()
	res, err := sim.Run(f)
	s.metrics.RecordRun(res, time.Since(simStart).Seconds(), err)
	if err != nil {
		s.logger.Printf("run failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "simulation failed"})
		return
	}

	record := domain.NewRunRecord(req.SeriesID, res, time.Now().UTC())

	start = time.Now()
	err = s.runStore.Insert(r.Context(), record)
	s.metrics.RecordDBQuery("postgres", "run_insert", time.Since(start).Seconds(), err)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if len(res.Trades) > 0 {
		start = time.Now()
		err = s.tradeStore.InsertBulk(r.Context(), res.Trades)
		s.metrics.RecordDBQuery("postgres", "trades_insert", time.Since(start).Seconds(), err)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
	}
	if len(res.Equity) > 0 {
		points := make([]*domain.EquityPoint, len(res.Equity))
		for i := range res.Equity {
			points[i] = &res.Equity[i]
		}
		start = time.Now()
		err = s.equityStore.InsertBulk(r.Context(), record.RunID, points)
		s.metrics.RecordDBQuery("clickhouse", "equity_insert", time.Since(start).Seconds(), err)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
	}

	s.logger.Printf("Run %s completed: series=%s signal=%s trades=%d net=%.2f",
		record.RunID, req.SeriesID, gen.ID(), record.TotalTrades, record.NetProfit)
	writeJSON(w, http.StatusCreated, record)
}

// barPayload is one bar of POST /series/{id}/bars.
type barPayload struct {
	Timestamp  time.Time          `json:"timestamp"`
	Open       float64            `json:"open"`
	High       float64            `json:"high"`
	Low        float64            `json:"low"`
	Close      float64            `json:"close"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
}

func (s *Server) handleIngestBars(w http.ResponseWriter, r *http.Request) {
	seriesID := r.PathValue("id")

	var payload []barPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(payload) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no bars in request"})
		return
	}

	bars := make([]*domain.Bar, len(payload))
	for i, p := range payload {
		bars[i] = &domain.Bar{
			Timestamp:  p.Timestamp,
			Open:       p.Open,
			High:       p.High,
			Low:        p.Low,
			Close:      p.Close,
			Indicators: p.Indicators,
		}
	}

	start := time.Now()
	err := s.barStore.InsertBulk(r.Context(), seriesID, bars)
	s.metrics.RecordDBQuery("clickhouse", "bars_insert", time.Since(start).Seconds(), err)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "series already has these bars"})
			return
		}
		s.writeStoreError(w, err)
		return
	}
	s.metrics.BarsIngested.Add(float64(len(bars)))

	writeJSON(w, http.StatusCreated, map[string]any{"series_id": seriesID, "bars": len(bars)})
}

func (s *Server) handleListSeries(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	series, err := s.barStore.ListSeries(r.Context())
	s.metrics.RecordDBQuery("clickhouse", "list_series", time.Since(start).Seconds(), err)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	s.logger.Printf("store error: %v", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "encode response: %v\n", err)
	}
}
