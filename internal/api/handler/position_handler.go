package handler

import (
	"net/http"
	"strconv"

	"github.com/Decycle-IO/stakeledger/internal/api/middleware"
	"github.com/Decycle-IO/stakeledger/internal/domain"
	"github.com/Decycle-IO/stakeledger/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PositionHandler serves the holder-facing position operations: queries,
// split, merge, claim, and ownership transfer.
type PositionHandler struct {
	ledgerSvc *service.LedgerService
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(ledgerSvc *service.LedgerService) *PositionHandler {
	return &PositionHandler{ledgerSvc: ledgerSvc}
}

// parsePositionID reads the :id path parameter as an int64 position id.
func parsePositionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_POSITION_ID", "invalid position id")
		return 0, false
	}
	return id, true
}

// My godoc
// GET /api/positions/my [JWT]
func (h *PositionHandler) My(c *gin.Context) {
	userID := middleware.GetUserID(c)

	positions, err := h.ledgerSvc.PositionsByOwner(c.Request.Context(), userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch positions")
		return
	}
	out := make([]domain.PositionResponse, len(positions))
	for i, p := range positions {
		out[i] = p.ToResponse()
	}
	respondSuccess(c, http.StatusOK, out)
}

// GetByID godoc
// GET /api/positions/:id [JWT]
func (h *PositionHandler) GetByID(c *gin.Context) {
	id, ok := parsePositionID(c)
	if !ok {
		return
	}

	pos, err := h.ledgerSvc.GetPosition(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, pos.ToResponse())
}

// Split godoc
// POST /api/positions/:id/split [JWT]
// Body: {"parts":[40000,60000]}
// Parts are staked amounts in smallest units; they must sum to the position's
// staked amount.
func (h *PositionHandler) Split(c *gin.Context) {
	userID := middleware.GetUserID(c)
	id, ok := parsePositionID(c)
	if !ok {
		return
	}

	var body struct {
		Parts []int64 `json:"parts" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	successors, err := h.ledgerSvc.Split(c.Request.Context(), userID, id, body.Parts)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	out := make([]domain.PositionResponse, len(successors))
	for i, p := range successors {
		out[i] = p.ToResponse()
	}
	respondSuccess(c, http.StatusCreated, out)
}

// Merge godoc
// POST /api/positions/merge [JWT]
// Body: {"position_ids":[3,7,12]}
func (h *PositionHandler) Merge(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var body struct {
		PositionIDs []int64 `json:"position_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	merged, err := h.ledgerSvc.Merge(c.Request.Context(), userID, body.PositionIDs)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, merged.ToResponse())
}

// Claim godoc
// POST /api/positions/:id/claim [JWT]
// Realizes the accrued rewards as a token transfer to the caller.
func (h *PositionHandler) Claim(c *gin.Context) {
	userID := middleware.GetUserID(c)
	id, ok := parsePositionID(c)
	if !ok {
		return
	}

	amount, err := h.ledgerSvc.Claim(c.Request.Context(), userID, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"claimed":     amount,
		"claimed_try": decimal.NewFromInt(amount).Div(decimal.NewFromInt(domain.CurrencyScale)),
	})
}

// Transfer godoc
// POST /api/positions/:id/transfer [JWT]
// Body: {"new_owner":"uuid"}
func (h *PositionHandler) Transfer(c *gin.Context) {
	userID := middleware.GetUserID(c)
	id, ok := parsePositionID(c)
	if !ok {
		return
	}

	var body struct {
		NewOwner string `json:"new_owner" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	newOwner, err := uuid.Parse(body.NewOwner)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_OWNER", "invalid new_owner id")
		return
	}

	if err := h.ledgerSvc.TransferPosition(c.Request.Context(), userID, id, newOwner); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"transferred": true})
}
