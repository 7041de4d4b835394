// Package scheduler runs the background goroutines of the stake ledger:
//  1. settlementLoop     – drains the pending settlement queue on an interval.
//  2. fundingUpdateLoop  – pushes funding-progress snapshots to WS clients.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/Decycle-IO/stakeledger/internal/config"
	"github.com/Decycle-IO/stakeledger/internal/domain"
	"github.com/Decycle-IO/stakeledger/internal/service"
)

// ──────────────────────────────────────────────────────────────────────────────
// WsHub interface — minimally required from the Hub
// ──────────────────────────────────────────────────────────────────────────────

// WsHub defines the broadcast operations the Scheduler needs from the
// WebSocket hub. Declared here so the scheduler package does not import the
// ws/hub.go implementation and cause a circular dependency.
type WsHub interface {
	BroadcastTargetUpdate(t *domain.Target)
}

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────────────────────────────────

// Scheduler runs the settlement sweep and funding broadcast loops. Call
// Start(ctx) once from main(); cancel the context to shut it down gracefully.
type Scheduler struct {
	distSvc   *service.DistributionService
	targetSvc *service.TargetService
	hub       WsHub
	cfg       *config.Config
	logger    *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(
	distSvc *service.DistributionService,
	targetSvc *service.TargetService,
	hub WsHub,
	cfg *config.Config,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		distSvc:   distSvc,
		targetSvc: targetSvc,
		hub:       hub,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start launches the background goroutines. It returns immediately; all
// loops run until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.settlementLoop(ctx)
	go s.fundingUpdateLoop(ctx)
	s.logger.Info("scheduler started", "sweep_interval", s.cfg.Distribution.SweepInterval)
}

// ──────────────────────────────────────────────────────────────────────────────
// settlementLoop
// ──────────────────────────────────────────────────────────────────────────────

// settlementLoop drains pending settlements every SweepInterval. Each
// settlement is distributed independently; one failure parks that settlement
// and the sweep continues.
func (s *Scheduler) settlementLoop(ctx context.Context) {
	defer s.recoverAndLog("settlementLoop")

	ticker := time.NewTicker(s.cfg.Distribution.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("settlementLoop: shutting down")
			return
		case <-ticker.C:
			processed, err := s.distSvc.ProcessPendingSettlements(ctx)
			if err != nil {
				s.logger.Error("settlementLoop: sweep", "err", err)
				continue
			}
			if processed > 0 {
				s.logger.Info("settlements processed", "count", processed)
			}
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// fundingUpdateLoop
// ──────────────────────────────────────────────────────────────────────────────

// fundingUpdateLoop pushes a funding-progress snapshot of every open target
// to WS clients every 15 seconds. Dashboards stay live without polling.
func (s *Scheduler) fundingUpdateLoop(ctx context.Context) {
	defer s.recoverAndLog("fundingUpdateLoop")

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("fundingUpdateLoop: shutting down")
			return
		case <-ticker.C:
			s.broadcastFunding(ctx)
		}
	}
}

// broadcastFunding is the inner body of fundingUpdateLoop, extracted so that
// the defer/recover in the loop catches panics correctly.
func (s *Scheduler) broadcastFunding(ctx context.Context) {
	if s.hub == nil {
		return
	}
	targets, err := s.targetSvc.ListTargets(ctx, 100, 0)
	if err != nil {
		s.logger.Warn("fundingUpdateLoop: list targets", "err", err)
		return
	}
	for _, t := range targets {
		if t.IsFunding() {
			s.hub.BroadcastTargetUpdate(t)
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

// recoverAndLog is deferred inside each goroutine to catch unexpected panics,
// log them, and allow the scheduler to continue running.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}
