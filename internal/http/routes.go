package http

import (
	"time"

	"earn_webapp/internal/http/handlers"
	"earn_webapp/internal/http/middleware"
	"earn_webapp/internal/repository"
	"earn_webapp/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Limit is a request budget per window
type Limit struct {
	Requests int
	Window   time.Duration
}

type RouterConfig struct {
	Handler    *handlers.Handler
	Tokens     middleware.TokenParser
	Store      repository.Store
	Hub        *ws.Hub
	Limiter    *middleware.RateLimiter
	Version    string
	APILimit   Limit
	AuthLimit  Limit
	TradeLimit Limit
}

func RegisterRoutes(r *gin.Engine, rc RouterConfig) {
	h := rc.Handler
	var cache handlers.Pinger
	if rc.Limiter.Distributed() {
		cache = rc.Limiter
	}
	healthHandler := handlers.NewHealthHandler(rc.Store, rc.Version,
		handlers.Probe{Name: "redis", Pinger: cache, Optional: true})

	auth := middleware.Auth(rc.Tokens, rc.Store)
	optionalAuth := middleware.OptionalAuth(rc.Tokens, rc.Store)
	admin := middleware.RequireAdmin(h.Policy())

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/ws", auth, h.WS(rc.Hub))

	api := r.Group("/api")
	api.Use(rc.Limiter.PerIP("api", rc.APILimit.Requests, rc.APILimit.Window))

	authRL := rc.Limiter.PerIP("auth", rc.AuthLimit.Requests, rc.AuthLimit.Window)
	api.POST("/auth/register", authRL, h.Register)
	api.POST("/auth/login", authRL, h.Login)
	api.POST("/auth/logout", h.Logout)
	api.GET("/auth/user", auth, h.CurrentUser)
	api.GET("/current-user", auth, h.CurrentUser)

	api.GET("/settings", optionalAuth, h.ListSettings)
	api.GET("/settings/:key", optionalAuth, h.GetSetting)
	api.POST("/settings", auth, admin, h.UpsertSetting)
	api.POST("/settings/:key", auth, admin, h.UpsertSetting)
	api.PATCH("/settings/:key", auth, admin, h.UpsertSetting)

	deposits := api.Group("/deposits", auth)
	{
		deposits.POST("", h.CreateDeposit)
		deposits.GET("", h.ListDeposits)
		deposits.GET("/:id", h.GetDeposit)
		deposits.PATCH("/:id", admin, h.UpdateDeposit)
	}

	withdrawals := api.Group("/withdrawals", auth)
	{
		withdrawals.POST("", h.CreateWithdrawal)
		withdrawals.GET("", h.ListWithdrawals)
		withdrawals.GET("/:id", h.GetWithdrawal)
		withdrawals.PATCH("/:id", admin, h.UpdateWithdrawal)
	}

	// per user, not per IP
	tradeRL := rc.Limiter.PerUser("trade", rc.TradeLimit.Requests, rc.TradeLimit.Window)
	api.POST("/trading/complete", auth, tradeRL, h.CompleteTrade)
	api.POST("/bonus/claim", auth, tradeRL, h.ClaimBonus)

	api.GET("/referrals", auth, h.GetReferrals)

	adminGroup := api.Group("/admin", auth, admin)
	{
		adminGroup.GET("/stats", h.AdminStats)
		adminGroup.GET("/users", h.AdminListUsers)
		adminGroup.GET("/users/:id", h.AdminGetUser)
	}
}
