package handler

import (
	"net/http"

	"github.com/Decycle-IO/stakeledger/internal/api/middleware"
	"github.com/Decycle-IO/stakeledger/internal/domain"
	"github.com/Decycle-IO/stakeledger/internal/service"
	"github.com/Decycle-IO/stakeledger/internal/token"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// fundingNotifier pushes funding lifecycle updates to websocket clients.
// Nil when the hub is disabled.
type fundingNotifier interface {
	BroadcastFundingClosed(targetID uuid.UUID)
}

// AdminHandler serves the admin-only surface: target registry management,
// role grants, and the treasury view.
type AdminHandler struct {
	authSvc   *service.AuthService
	targetSvc *service.TargetService
	token     *token.Ledger
	hub       fundingNotifier
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(authSvc *service.AuthService, targetSvc *service.TargetService, tok *token.Ledger, hub fundingNotifier) *AdminHandler {
	return &AdminHandler{authSvc: authSvc, targetSvc: targetSvc, token: tok, hub: hub}
}

// CreateTarget godoc
// POST /api/admin/targets [JWT, admin]
// Body: {"name":"Kadıköy istasyonu","location":"Kadıköy","funding_goal":5000000}
func (h *AdminHandler) CreateTarget(c *gin.Context) {
	caller := middleware.GetUserID(c)

	var body struct {
		Name        string `json:"name"         binding:"required,min=2,max=120"`
		Location    string `json:"location"     binding:"required"`
		FundingGoal int64  `json:"funding_goal" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	target, err := h.targetSvc.CreateTarget(c.Request.Context(), caller, body.Name, body.Location, body.FundingGoal)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, target)
}

// CloseFunding godoc
// POST /api/admin/targets/:id/close [JWT, admin]
func (h *AdminHandler) CloseFunding(c *gin.Context) {
	caller := middleware.GetUserID(c)

	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_TARGET_ID", "invalid target id")
		return
	}

	if err := h.targetSvc.CloseFunding(c.Request.Context(), caller, targetID); err != nil {
		respondDomainError(c, err)
		return
	}
	if h.hub != nil {
		h.hub.BroadcastFundingClosed(targetID)
	}
	respondSuccess(c, http.StatusOK, gin.H{"closed": true})
}

// GrantRole godoc
// POST /api/admin/users/:id/role [JWT, admin]
// Body: {"role":"minter"}
func (h *AdminHandler) GrantRole(c *gin.Context) {
	caller := middleware.GetUserID(c)

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_USER_ID", "invalid user id")
		return
	}

	var body struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	if err := h.authSvc.GrantRole(c.Request.Context(), caller, userID, domain.Role(body.Role)); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"role": body.Role})
}

// Treasury godoc
// GET /api/admin/treasury [JWT, admin]
// Shows the escrow backing unclaimed rewards. Distribution rounding dust
// accumulates here, so the balance can exceed the sum of accrued rewards.
func (h *AdminHandler) Treasury(c *gin.Context) {
	bal, err := h.token.BalanceOf(c.Request.Context(), token.Treasury)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch treasury balance")
		return
	}
	supply, err := h.token.TotalSupply(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch total supply")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"treasury_balance": bal,
		"treasury_try":     decimal.NewFromInt(bal).Div(decimal.NewFromInt(domain.CurrencyScale)),
		"total_supply":     supply,
	})
}

// RevokeRole godoc
// DELETE /api/admin/users/:id/role [JWT, admin]
// Demotes the account back to the default holder role.
func (h *AdminHandler) RevokeRole(c *gin.Context) {
	caller := middleware.GetUserID(c)

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_USER_ID", "invalid user id")
		return
	}

	if err := h.authSvc.RevokeRole(c.Request.Context(), caller, userID); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"role": string(domain.RoleHolder)})
}
