// Package main is the entry point for the Decycle stake ledger API server.
// It wires together the position ledger, the reward distribution engine, and
// the auth layer, then starts the HTTP server alongside the WebSocket hub and
// background scheduler.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/Decycle-IO/stakeledger/internal/api"
	"github.com/Decycle-IO/stakeledger/internal/config"
	"github.com/Decycle-IO/stakeledger/internal/repository"
	"github.com/Decycle-IO/stakeledger/internal/scheduler"
	"github.com/Decycle-IO/stakeledger/internal/service"
	"github.com/Decycle-IO/stakeledger/internal/token"
	"github.com/Decycle-IO/stakeledger/internal/ws"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

func main() {
	// ── 1. Logger ─────────────────────────────────────────────────────────────
	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting stake ledger server", "env", cfg.Server.Env, "port", cfg.Server.Port)

	// ── 2. Storage ────────────────────────────────────────────────────────────
	var (
		db          *sqlx.DB
		users       repository.UserStore
		targets     repository.TargetStore
		positions   repository.PositionStore
		events      repository.EventStore
		settlements repository.SettlementStore
		balances    token.BalanceStore
	)

	if cfg.DB.UseMemory {
		logger.Warn("using in-memory store, all state is lost on restart")
		mem := repository.NewMemory()
		users = mem.Users()
		targets = mem.Targets()
		positions = mem.Positions()
		events = mem.Events()
		settlements = mem.Settlements()
		balances = mem
	} else {
		var err error
		db, err = sqlx.Connect("postgres", cfg.DB.DSN)
		if err != nil {
			logger.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
		db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

		if err = db.Ping(); err != nil {
			logger.Error("database ping failed", "err", err)
			os.Exit(1)
		}
		logger.Info("database connected")

		if err = runMigrations(db, "migrations"); err != nil {
			logger.Error("migrations failed", "err", err)
			os.Exit(1)
		}
		logger.Info("migrations applied")

		users = repository.NewUserRepository(db)
		targets = repository.NewTargetRepository(db)
		positions = repository.NewPositionRepository(db)
		events = repository.NewEventRepository(db)
		settlements = repository.NewSettlementRepository(db)
		balances = repository.NewTokenAccountRepository(db)
	}

	// ── 3. Services (order matters for injection) ─────────────────────────────
	authSvc := service.NewAuthService(users, cfg)

	tok := token.NewLedger(balances, cfg.Token.SupplyCap)
	guard := service.NewGuard()

	ledgerSvc := service.NewLedgerService(positions, targets, events, authSvc, tok, guard)
	distSvc := service.NewDistributionService(positions, targets, settlements, events, authSvc, tok, guard)
	targetSvc := service.NewTargetService(targets, authSvc, ledgerSvc)

	// ── 4. WebSocket Hub ──────────────────────────────────────────────────────
	jwtSecret := []byte(cfg.JWT.AccessSecret)
	var allowedOrigins []string
	if ori := os.Getenv("WS_ALLOWED_ORIGINS"); ori != "" {
		for _, o := range strings.Split(ori, ",") {
			allowedOrigins = append(allowedOrigins, strings.TrimSpace(o))
		}
	}
	hub := ws.NewHub(jwtSecret, allowedOrigins)

	// Wire WS broadcaster into the mutating services
	ledgerSvc.SetBroadcaster(hub)
	distSvc.SetBroadcaster(hub)

	// ── 5. Root context + signal handling ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 6. Start WS Hub ───────────────────────────────────────────────────────
	go hub.Run()
	logger.Info("websocket hub started")

	// ── 7. Scheduler ──────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(distSvc, targetSvc, hub, cfg, logger)
	sched.Start(ctx)

	// ── 8. HTTP Router ────────────────────────────────────────────────────────
	router := api.SetupRouter(api.RouterDeps{
		AuthSvc:   authSvc,
		TargetSvc: targetSvc,
		LedgerSvc: ledgerSvc,
		DistSvc:   distSvc,
		Token:     tok,
		Hub:       hub,
		Cfg:       cfg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── 9. Start server ───────────────────────────────────────────────────────
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
			stop() // trigger graceful shutdown
		}
	}()

	// ── 10. Graceful shutdown ─────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutdown signal received, draining connections…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "err", err)
	}

	if db != nil {
		db.Close()
	}
	logger.Info("server stopped cleanly")
}

// runMigrations reads all *.sql files from dir, sorted by name, and executes
// them sequentially.  Idempotent: SQL files should use IF NOT EXISTS / ON CONFLICT.
func runMigrations(db *sqlx.DB, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("runMigrations: read dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("runMigrations: read %q: %w", f, err)
		}
		if _, err = db.Exec(string(data)); err != nil {
			return fmt.Errorf("runMigrations: exec %q: %w", f, err)
		}
		slog.Info("migration applied", "file", filepath.Base(f))
	}
	return nil
}
