package main

import (
	"context"   // Context for background work and shutdown
	"errors"    // Error inspection
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Signal handling
	"syscall"   // SIGTERM
	"time"      // Timeouts

	"round_dao/internal/api"       // Custom package for API handlers
	"round_dao/internal/config"    // Custom package for configuration
	"round_dao/internal/db"        // Snapshot storage
	"round_dao/internal/engine"    // Governance engine
	"round_dao/internal/ledger"    // Ledger client
	"round_dao/internal/scheduler" // Round timer

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	if cfg.AdminIdentity == "" {
		logrus.Warn("ADMIN_IDENTITY is not set, admin operations are disabled")
	}

	// Connect to the snapshot database and make sure the table exists
	gdb, err := db.Open(cfg.MySQLDSN())
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	if err := db.AutoMigrate(gdb); err != nil {
		logrus.Fatalf("migration failed: %v", err)
	}
	store := db.NewSnapshotStore(gdb)

	// Setup Redis client; caching is skipped when no address is configured
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
	} else {
		logrus.Warn("REDIS_ADDR is not set, response caching is disabled")
	}

	eng := engine.New(engine.Options{
		AdminIdentity: cfg.AdminIdentity,
		Ledger:        ledger.NewClient(cfg.LedgerURL, cfg.LedgerTimeout),
		Logger:        logrus.StandardLogger(),

		StuckPaymentAge: 2 * cfg.LedgerTimeout,
		TransferTimeout: cfg.LedgerTimeout,
	})

	// Resume from the latest snapshot, or start a fresh state
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	found, err := eng.LoadFrom(ctx, store, cfg.RoundDurationOverride)
	if err != nil {
		logrus.Fatalf("failed to restore state: %v", err)
	}
	if !found {
		logrus.WithField("round_end_time", eng.RoundEndTime().Format(time.RFC3339)).Info("No snapshot found, starting fresh")
	}

	// Settle each round when it ends and persist the result
	timer := scheduler.NewRoundTimer(func() {
		eng.ConcludeRound()
		api.InvalidateUserCaches(ctx, redisClient)
		if err := eng.SaveTo(ctx, store); err != nil {
			logrus.WithError(err).Error("Snapshot after round failed")
		}
	}, eng.NextRoundIn, logrus.StandardLogger())
	timer.Start(ctx)

	go autosave(ctx, eng, store, cfg.SnapshotInterval, cfg.SnapshotKeep)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{Engine: eng, Redis: redisClient, Config: cfg})

	// Create HTTP server
	httpSrv := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.LedgerTimeout + 30*time.Second, // Claims wait on the ledger
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("http: %v", err)
		}
	}()
	logrus.WithField("port", cfg.AppPort).Info("Server running")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	// Stop taking requests, then stop the timer and write a final snapshot
	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown incomplete")
	}
	timer.Stop()
	cancel()
	if err := eng.SaveTo(shutCtx, store); err != nil {
		logrus.WithError(err).Error("Final snapshot failed")
	}
	logrus.Info("Server stopped")
}

// autosave snapshots the state every interval and prunes old snapshots
func autosave(ctx context.Context, eng *engine.Engine, store *db.SnapshotStore, interval time.Duration, keep int) {
	if interval <= 0 {
		return // Autosave disabled
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := eng.SaveTo(ctx, store); err != nil {
			logrus.WithError(err).Error("Periodic snapshot failed")
			continue
		}
		if _, err := store.Prune(ctx, keep); err != nil {
			logrus.WithError(err).Warn("Snapshot pruning failed")
		}
	}
}
