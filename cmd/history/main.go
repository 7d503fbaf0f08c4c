// Package main queries stored quote history and protocol health samples:
// by quote ID, by operation, or by time range.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"solana-exchange-core/internal/domain"
	chstore "solana-exchange-core/internal/storage/clickhouse"
	pgstore "solana-exchange-core/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	quoteID := flag.String("quote-id", "", "Fetch one quote by ID")
	operation := flag.String("operation", "", "Fetch quotes by operation (e.g. STABLECOIN_MINT)")
	fromTime := flag.String("from-time", "", "Start time (RFC3339)")
	toTime := flag.String("to-time", "", "End time (RFC3339)")
	health := flag.Bool("health", false, "Query health samples instead of quotes")
	latest := flag.Bool("latest", false, "With --health: fetch only the most recent sample")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	flag.Parse()

	logger := log.New(os.Stderr, "[history] ", log.LstdFlags)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	from, to, err := parseTimeRange(*fromTime, *toTime)
	if err != nil {
		logger.Fatalf("parse time range: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if *health {
		if *clickhouseDSN == "" {
			logger.Fatal("--clickhouse-dsn is required for health queries")
		}
		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("connect to clickhouse: %v", err)
		}
		defer conn.Close()
		store := chstore.NewHealthTimeseriesStore(conn)

		if *latest {
			point, err := store.GetLatest(ctx)
			if err != nil {
				logger.Fatalf("get latest health sample: %v", err)
			}
			enc.Encode(point)
			return
		}
		points, err := store.GetByTimeRange(ctx, from, to)
		if err != nil {
			logger.Fatalf("get health samples: %v", err)
		}
		logger.Printf("%d health samples", len(points))
		enc.Encode(points)
		return
	}

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required for quote queries")
	}
	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()
	store := pgstore.NewQuoteHistoryStore(pool)

	switch {
	case *quoteID != "":
		record, err := store.GetByID(ctx, *quoteID)
		if err != nil {
			logger.Fatalf("get quote %s: %v", *quoteID, err)
		}
		enc.Encode(record)
	case *operation != "":
		records, err := store.GetByOperation(ctx, *operation)
		if err != nil {
			logger.Fatalf("get quotes by operation: %v", err)
		}
		logger.Printf("%d quotes", len(records))
		enc.Encode(filterByRange(records, from, to))
	default:
		records, err := store.GetByTimeRange(ctx, from, to)
		if err != nil {
			logger.Fatalf("get quotes by time range: %v", err)
		}
		logger.Printf("%d quotes", len(records))
		enc.Encode(records)
	}
}

// parseTimeRange converts optional RFC3339 bounds to millisecond timestamps.
// An absent lower bound is 0; an absent upper bound is now.
func parseTimeRange(fromStr, toStr string) (int64, int64, error) {
	var from int64
	to := time.Now().UnixMilli()
	if fromStr != "" {
		t, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return 0, 0, err
		}
		from = t.UnixMilli()
	}
	if toStr != "" {
		t, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return 0, 0, err
		}
		to = t.UnixMilli()
	}
	return from, to, nil
}

// filterByRange narrows an operation query to the requested time window.
func filterByRange(records []*domain.QuoteRecord, from, to int64) []*domain.QuoteRecord {
	filtered := records[:0]
	for _, r := range records {
		if r.TimestampMs >= from && r.TimestampMs <= to {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
