package handler

import (
	"net/http"

	"github.com/Decycle-IO/stakeledger/internal/api/middleware"
	"github.com/Decycle-IO/stakeledger/internal/domain"
	"github.com/Decycle-IO/stakeledger/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TargetHandler serves the funding-target registry and the target-scoped
// ledger operations: funding (mint), distribution, and settlements.
type TargetHandler struct {
	targetSvc *service.TargetService
	ledgerSvc *service.LedgerService
	distSvc   *service.DistributionService
}

// NewTargetHandler creates a TargetHandler.
func NewTargetHandler(targetSvc *service.TargetService, ledgerSvc *service.LedgerService, distSvc *service.DistributionService) *TargetHandler {
	return &TargetHandler{targetSvc: targetSvc, ledgerSvc: ledgerSvc, distSvc: distSvc}
}

// List godoc
// GET /api/targets?page=1&limit=20
func (h *TargetHandler) List(c *gin.Context) {
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	targets, err := h.targetSvc.ListTargets(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch targets")
		return
	}
	respondList(c, targets, len(targets), page, limit)
}

// GetByID godoc
// GET /api/targets/:id
func (h *TargetHandler) GetByID(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_TARGET_ID", "invalid target id")
		return
	}

	target, err := h.targetSvc.GetTarget(c.Request.Context(), targetID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, target)
}

// Positions godoc
// GET /api/targets/:id/positions?page=1&limit=20
func (h *TargetHandler) Positions(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_TARGET_ID", "invalid target id")
		return
	}
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	positions, err := h.ledgerSvc.PositionsByTarget(c.Request.Context(), targetID, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch positions")
		return
	}
	out := make([]domain.PositionResponse, len(positions))
	for i, p := range positions {
		out[i] = p.ToResponse()
	}
	respondList(c, out, len(out), page, limit)
}

// Events godoc
// GET /api/targets/:id/events?page=1&limit=20
func (h *TargetHandler) Events(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_TARGET_ID", "invalid target id")
		return
	}
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	events, err := h.ledgerSvc.EventsByTarget(c.Request.Context(), targetID, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch events")
		return
	}
	respondList(c, events, len(events), page, limit)
}

// Fund godoc
// POST /api/targets/:id/fund [JWT, minter]
// Body: {"owner":"uuid","amount":250000}
// Amount is in smallest currency units; the share is priced off the target's
// funding goal.
func (h *TargetHandler) Fund(c *gin.Context) {
	caller := middleware.GetUserID(c)

	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_TARGET_ID", "invalid target id")
		return
	}

	var body struct {
		Owner  string `json:"owner"  binding:"required"`
		Amount int64  `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	owner, err := uuid.Parse(body.Owner)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_OWNER", "invalid owner id")
		return
	}

	pos, err := h.targetSvc.Fund(c.Request.Context(), caller, owner, targetID, body.Amount)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, pos.ToResponse())
}

// Distribute godoc
// POST /api/targets/:id/distribute [JWT, distributor]
// Body: {"proceeds":10000}
// Synchronous distribution; for asynchronous processing use Settlements.
func (h *TargetHandler) Distribute(c *gin.Context) {
	caller := middleware.GetUserID(c)

	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_TARGET_ID", "invalid target id")
		return
	}

	var body struct {
		Proceeds int64 `json:"proceeds" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	distributed, err := h.distSvc.Distribute(c.Request.Context(), caller, targetID, body.Proceeds)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"proceeds":    body.Proceeds,
		"distributed": distributed,
	})
}

// RecordSettlement godoc
// POST /api/targets/:id/settlements [JWT, distributor]
// Body: {"proceeds":10000,"note":"glass batch #42"}
// Enqueues the proceeds; the scheduler distributes them on its next sweep.
func (h *TargetHandler) RecordSettlement(c *gin.Context) {
	caller := middleware.GetUserID(c)

	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_TARGET_ID", "invalid target id")
		return
	}

	var body struct {
		Proceeds int64  `json:"proceeds" binding:"required"`
		Note     string `json:"note"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	settlement, err := h.distSvc.RecordSettlement(c.Request.Context(), caller, targetID, body.Proceeds, body.Note)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusAccepted, settlement)
}
