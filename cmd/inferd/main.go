package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rawblock/inferd/internal/api"
	"github.com/rawblock/inferd/internal/clock"
	"github.com/rawblock/inferd/internal/coordinator"
	"github.com/rawblock/inferd/internal/cranker"
	"github.com/rawblock/inferd/internal/ledger"
	"github.com/rawblock/inferd/internal/store"
)

func main() {
	log.Println("Starting inferd coordinator...")

	// ─── Environment Variables ──────────────────────────────────────────
	// All credentials MUST come from environment variables. No fallback
	// defaults for security-sensitive values. None is required: without
	// DATABASE_URL the coordinator runs on the in-memory store.
	// ────────────────────────────────────────────────────────────────────

	zlog, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("FATAL: failed to build zap logger: %v", err)
	}
	defer zlog.Sync()

	var coordStore coordinator.Store
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pg, err := store.Connect(ctx, dbURL)
		cancel()
		if err != nil {
			log.Fatalf("FATAL: failed to connect to PostgreSQL: %v", err)
		}
		defer pg.Close()
		if err := pg.InitSchema(context.Background()); err != nil {
			log.Fatalf("FATAL: schema init failed: %v", err)
		}
		coordStore = pg
		log.Println("Persistence: PostgreSQL")
	} else {
		coordStore = store.NewMemStore()
		log.Println("Persistence: in-memory (DATABASE_URL not set — not durable)")
	}

	led := ledger.NewInMemory()

	wsHub := api.NewHub()
	go wsHub.Run()

	engine := coordinator.New(coordStore, led, clock.NewSystem(), wsHub, zlog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	drainInterval := 2 * time.Second
	if raw := os.Getenv("CRANKER_INTERVAL_MS"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
			drainInterval = time.Duration(ms) * time.Millisecond
		}
	}
	drainer := cranker.New(engine, coordStore, drainInterval, zlog)
	go drainer.Run(ctx)

	r := api.SetupRouter(engine, coordStore, wsHub)
	port := getEnvOrDefault("PORT", "8080")

	srvCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-srvCtx.Done()
		log.Println("shutdown signal received, stopping cranker")
		cancel()
	}()

	log.Printf("inferd coordinator listening on :%s\n", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("FATAL: server failed: %v", err)
	}
}

// getEnvOrDefault returns the env var value or a safe default for non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
