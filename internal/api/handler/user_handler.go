package handler

import (
	"net/http"

	"github.com/Decycle-IO/stakeledger/internal/api/middleware"
	"github.com/Decycle-IO/stakeledger/internal/domain"
	"github.com/Decycle-IO/stakeledger/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// UserHandler serves registration, login, and profile endpoints.
type UserHandler struct {
	authSvc   *service.AuthService
	ledgerSvc *service.LedgerService
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(authSvc *service.AuthService, ledgerSvc *service.LedgerService) *UserHandler {
	return &UserHandler{authSvc: authSvc, ledgerSvc: ledgerSvc}
}

// Register godoc
// POST /api/auth/register
func (h *UserHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	resp, err := h.authSvc.Register(c.Request.Context(), req)
	if err != nil {
		if domain.IsConflict(err) {
			respondError(c, http.StatusConflict, "ERR_CONFLICT", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not register")
		return
	}
	respondSuccess(c, http.StatusCreated, resp)
}

// Login godoc
// POST /api/auth/login
func (h *UserHandler) Login(c *gin.Context) {
	var body struct {
		Email    string `json:"email"    binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	resp, err := h.authSvc.Login(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		if domain.IsAuthError(err) {
			respondError(c, http.StatusUnauthorized, "ERR_CREDENTIALS", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not login")
		return
	}
	respondSuccess(c, http.StatusOK, resp)
}

// Refresh godoc
// POST /api/auth/refresh
func (h *UserHandler) Refresh(c *gin.Context) {
	var body struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	access, refresh, err := h.authSvc.RefreshToken(c.Request.Context(), body.RefreshToken)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "ERR_TOKEN", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"access_token":  access,
		"refresh_token": refresh,
	})
}

// Me godoc
// GET /api/me [JWT]
func (h *UserHandler) Me(c *gin.Context) {
	userID := middleware.GetUserID(c)
	profile, err := h.authSvc.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, profile)
}

// Balance godoc
// GET /api/me/balance [JWT]
// Returns the caller's reward token balance in smallest units and TRY.
func (h *UserHandler) Balance(c *gin.Context) {
	userID := middleware.GetUserID(c)
	bal, err := h.ledgerSvc.TokenBalance(c.Request.Context(), userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch balance")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"balance":     bal,
		"balance_try": decimal.NewFromInt(bal).Div(decimal.NewFromInt(domain.CurrencyScale)),
	})
}
