package api

import (
	"net/http"

	"github.com/Decycle-IO/stakeledger/internal/api/handler"
	"github.com/Decycle-IO/stakeledger/internal/api/middleware"
	"github.com/Decycle-IO/stakeledger/internal/config"
	"github.com/Decycle-IO/stakeledger/internal/domain"
	"github.com/Decycle-IO/stakeledger/internal/service"
	"github.com/Decycle-IO/stakeledger/internal/token"
	"github.com/Decycle-IO/stakeledger/internal/ws"
	"github.com/gin-gonic/gin"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	AuthSvc   *service.AuthService
	TargetSvc *service.TargetService
	LedgerSvc *service.LedgerService
	DistSvc   *service.DistributionService
	Token     *token.Ledger
	Hub       *ws.Hub
	Cfg       *config.Config
}

// SetupRouter creates and configures the main Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// ── CORS ─────────────────────────────────────────────────────────────────
	r.Use(corsMiddleware(deps.Cfg))

	// ── Health check ─────────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	userH := handler.NewUserHandler(deps.AuthSvc, deps.LedgerSvc)
	targetH := handler.NewTargetHandler(deps.TargetSvc, deps.LedgerSvc, deps.DistSvc)
	positionH := handler.NewPositionHandler(deps.LedgerSvc)

	adminH := handler.NewAdminHandler(deps.AuthSvc, deps.TargetSvc, deps.Token, nil)
	if deps.Hub != nil {
		adminH = handler.NewAdminHandler(deps.AuthSvc, deps.TargetSvc, deps.Token, deps.Hub)
	}

	// ── JWT middleware (shared) ───────────────────────────────────────────────
	jwtMW := middleware.JWTMiddleware(deps.AuthSvc)

	// ── Rate limiters ─────────────────────────────────────────────────────────
	authRL := middleware.RateLimitMiddleware(10)     // 10 req/s per IP for auth endpoints
	mutationRL := middleware.RateLimitMiddleware(30) // 30 req/s per IP for ledger mutations

	api := r.Group("/api")
	{
		// ── Auth (public, strict rate limit) ─────────────────────────────────
		auth := api.Group("/auth")
		auth.Use(authRL)
		{
			auth.POST("/register", userH.Register)
			auth.POST("/login", userH.Login)
			auth.POST("/refresh", userH.Refresh)
		}

		// ── Targets (public reads) ───────────────────────────────────────────
		targets := api.Group("/targets")
		{
			targets.GET("", targetH.List)
			targets.GET("/:id", targetH.GetByID)
			targets.GET("/:id/positions", targetH.Positions)
			targets.GET("/:id/events", targetH.Events)
		}

		// ── Authenticated routes ──────────────────────────────────────────────
		authed := api.Group("")
		authed.Use(jwtMW)
		{
			// Profile
			authed.GET("/me", userH.Me)
			authed.GET("/me/balance", userH.Balance)

			// Positions
			positions := authed.Group("/positions")
			positions.Use(mutationRL)
			{
				positions.GET("/my", positionH.My)
				positions.GET("/:id", positionH.GetByID)
				positions.POST("/:id/split", positionH.Split)
				positions.POST("/merge", positionH.Merge)
				positions.POST("/:id/claim", positionH.Claim)
				positions.POST("/:id/transfer", positionH.Transfer)
			}

			// Funding mints positions, so it sits behind the minter role.
			authed.POST("/targets/:id/fund",
				mutationRL, middleware.RoleMiddleware(domain.RoleMinter), targetH.Fund)

			// Settlement intake and distribution sit behind the distributor role.
			authed.POST("/targets/:id/distribute",
				mutationRL, middleware.RoleMiddleware(domain.RoleDistributor), targetH.Distribute)
			authed.POST("/targets/:id/settlements",
				mutationRL, middleware.RoleMiddleware(domain.RoleDistributor), targetH.RecordSettlement)

			// ── Admin ─────────────────────────────────────────────────────────
			admin := authed.Group("/admin")
			admin.Use(middleware.AdminMiddleware())
			{
				admin.GET("/treasury", adminH.Treasury)
				admin.POST("/targets", adminH.CreateTarget)
				admin.POST("/targets/:id/close", adminH.CloseFunding)
				admin.POST("/users/:id/role", adminH.GrantRole)
				admin.DELETE("/users/:id/role", adminH.RevokeRole)
			}
		}
	}

	// ── WebSocket ─────────────────────────────────────────────────────────────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return r
}

// ── CORS helper ───────────────────────────────────────────────────────────────

// corsMiddleware returns a gin middleware that sets appropriate CORS headers.
// In DEBUG mode all origins are allowed; in production only configured origins.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !cfg.IsProd() {
			// Development: allow any origin
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			// Production: allow only decycle.io (and www.)
			allowed := map[string]bool{
				"https://decycle.io":     true,
				"https://www.decycle.io": true,
			}
			if allowed[origin] {
				c.Header("Access-Control-Allow-Origin", origin)
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
