// Package main runs the quote server: it tracks the protocol account set
// over RPC and WebSocket, serves priced quotes for the supported trading
// pairs over HTTP, and records protocol health samples.
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
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"solana-exchange-core/internal/collateral"
	"solana-exchange-core/internal/config"
	"solana-exchange-core/internal/exchange"
	"solana-exchange-core/internal/observability"
	"solana-exchange-core/internal/oracle"
	"solana-exchange-core/internal/quote"
	"solana-exchange-core/internal/service"
	"solana-exchange-core/internal/solana"
	"solana-exchange-core/internal/state"
	"solana-exchange-core/internal/storage"
	chstore "solana-exchange-core/internal/storage/clickhouse"
	"solana-exchange-core/internal/storage/memory"
	"solana-exchange-core/internal/storage/migrations"
	pgstore "solana-exchange-core/internal/storage/postgres"
)

// Server wires the tracker, the quote service, and the HTTP surface.
type Server struct {
	cfg     *config.Config
	tracker *state.Tracker
	svc     *service.QuoteService
	pgPool  *pgstore.Pool // nil with in-memory storage
	logger  *log.Logger

	mu          sync.Mutex
	started     time.Time
	lastRefresh time.Time
	refreshes   int
	refreshErrs int
}

func main() {
	// Load .env if present; system env vars win.
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	flag.Parse()

	logger := log.New(os.Stdout, "[quoted] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}
	if !*useMemory && (cfg.Storage.PostgresDSN == "" || cfg.Storage.ClickHouseDSN == "") {
		logger.Fatal("storage.postgres_dsn and storage.clickhouse_dsn are required (use --use-memory for in-memory storage)")
	}

	addrs, err := cfg.Addresses()
	if err != nil {
		logger.Fatalf("Invalid account addresses: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quoteStore, healthStore, pgPool, cleanup, err := createStores(ctx, cfg, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	rpc := solana.NewHTTPClient(cfg.Solana.RPCURL)
	var ws solana.WSClient
	if cfg.Solana.WSURL != "" {
		wsClient, err := solana.NewWSClient(ctx, cfg.Solana.WSURL, nil)
		if err != nil {
			logger.Fatalf("Failed to connect websocket: %v", err)
		}
		defer wsClient.Close()
		ws = wsClient
	}

	tracker := state.NewTracker(rpc, ws, addrs)
	server := &Server{
		cfg:     cfg,
		tracker: tracker,
		svc:     service.NewQuoteService(tracker, quoteStore, healthStore),
		pgPool:  pgPool,
		logger:  logger,
		started: time.Now(),
	}

	done := make(chan error, 1)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = server.Run(ctx)
	done <- err

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createStores builds the quote and health stores, running migrations for
// the database-backed ones.
func createStores(ctx context.Context, cfg *config.Config, useMemory bool) (storage.QuoteHistoryStore, storage.HealthTimeseriesStore, *pgstore.Pool, func(), error) {
	if useMemory {
		return memory.NewQuoteHistoryStore(), memory.NewHealthTimeseriesStore(), nil, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickHouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return pgstore.NewQuoteHistoryStore(pool), chstore.NewHealthTimeseriesStore(chConn), pool, cleanup, nil
}

// Run performs the initial account refresh, starts the refresh and health
// loops plus the websocket watch, and serves HTTP until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.refresh(ctx); err != nil {
		return fmt.Errorf("initial refresh: %w", err)
	}
	if s.cfg.Solana.WSURL != "" {
		if err := s.tracker.Watch(ctx); err != nil {
			return fmt.Errorf("watch accounts: %w", err)
		}
		s.logger.Println("Watching account updates over websocket")
	}

	errCh := make(chan error, 2)
	go s.runRefreshLoop(ctx)
	go s.runHealthLoop(ctx)
	go func() {
		errCh <- s.serveHTTP(ctx)
	}()

	select {
	case <-ctx.Done():
		s.tracker.Wait()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// runRefreshLoop re-reads the full account set on the configured interval.
// WebSocket updates keep the snapshot fresh in between; the periodic refresh
// picks up epoch changes and recovers from missed notifications.
func (s *Server) runRefreshLoop(ctx context.Context) {
	interval := time.Duration(s.cfg.Server.RefreshIntervalSecs) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.refresh(ctx); err != nil {
				s.logger.Printf("Refresh error: %v", err)
			}
		}
	}
}

func (s *Server) refresh(ctx context.Context) error {
	start := time.Now()
	err := s.tracker.Refresh(ctx)
	observability.RecordRPCLatency("refresh", time.Since(start).Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.refreshErrs++
		return err
	}
	s.refreshes++
	s.lastRefresh = time.Now()
	observability.DefaultMetrics.TrackerRefreshs.Inc()
	observability.DefaultMetrics.LastSuccessfulRefresh.Set(float64(s.lastRefresh.Unix()))
	return nil
}

// runHealthLoop records a protocol health sample on the configured interval.
func (s *Server) runHealthLoop(ctx context.Context) {
	interval := time.Duration(s.cfg.Server.HealthSnapshotSecs) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.svc.HealthSample(ctx); err != nil {
				s.logger.Printf("Health sample error: %v", err)
			}
		}
	}
}

// serveHTTP runs the HTTP server until ctx is cancelled, then shuts it down
// within the configured timeout.
func (s *Server) serveHTTP(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/quote", s.handleQuote)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", observability.Handler())

	srv := &http.Server{
		Addr:    s.cfg.Server.ListenAddr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(s.cfg.Server.ShutdownTimeoutSecs)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Printf("HTTP shutdown error: %v", err)
		}
	}()

	s.logger.Printf("Serving HTTP on %s", s.cfg.Server.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleQuote prices one swap: GET /quote?input=<mint>&output=<mint>&amount=<bits>.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	inputMint, err := solana.ParsePubkey(r.URL.Query().Get("input"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid input mint: %v", err))
		return
	}
	outputMint, err := solana.ParsePubkey(r.URL.Query().Get("output"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid output mint: %v", err))
		return
	}
	amount, err := strconv.ParseUint(r.URL.Query().Get("amount"), 10, 64)
	if err != nil || amount == 0 {
		writeError(w, http.StatusBadRequest, "amount must be a positive integer of raw token bits")
		return
	}

	record, err := s.svc.Quote(r.Context(), inputMint, outputMint, amount)
	if err != nil {
		writeError(w, quoteStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

// quoteStatus maps quote failures to HTTP status codes. Caller mistakes are
// 400s, protocol-state rejections are 409s, transient state is 503.
func quoteStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownMint),
		errors.Is(err, service.ErrUnsupportedPair):
		return http.StatusBadRequest
	case errors.Is(err, exchange.ErrExceedsMaxMintable),
		errors.Is(err, exchange.ErrExceedsMaxSwappable),
		errors.Is(err, exchange.ErrFeeNotConfigured),
		errors.Is(err, quote.ErrLevercoinInPool):
		return http.StatusConflict
	case errors.Is(err, state.ErrNotReady),
		errors.Is(err, oracle.ErrStalePrice),
		errors.Is(err, oracle.ErrConfidenceExceeded),
		errors.Is(err, collateral.ErrStaleCache),
		errors.Is(err, exchange.ErrStaleLSTPrice):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// handleHealth reports liveness: the tracker must hold a snapshot and the
// database must answer a ping.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.tracker.Snapshot(); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if s.pgPool != nil {
		if err := s.pgPool.Healthy(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, fmt.Sprintf("postgres: %v", err))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status      string    `json:"status"`
	Uptime      string    `json:"uptime"`
	LastRefresh time.Time `json:"last_refresh,omitempty"`
	Refreshes   int       `json:"refreshes"`
	RefreshErrs int       `json:"refresh_errors"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:      "running",
		Uptime:      time.Since(s.started).String(),
		LastRefresh: s.lastRefresh,
		Refreshes:   s.refreshes,
		RefreshErrs: s.refreshErrs,
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
