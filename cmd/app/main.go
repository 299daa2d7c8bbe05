package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"earn_webapp/internal/config"
	"earn_webapp/internal/db"
	httpServer "earn_webapp/internal/http"
	"earn_webapp/internal/http/handlers"
	"earn_webapp/internal/http/middleware"
	"earn_webapp/internal/logger"
	"earn_webapp/internal/repository"
	"earn_webapp/internal/service"
	"earn_webapp/internal/ws"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", "error", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	ctx := context.Background()

	var store repository.Store
	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		store = repository.NewMemStore()
	default:
		if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal("migrations", "error", err)
		}
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("database", "error", err)
		}
		defer pool.Close()
		store = repository.NewPostgresStore(pool)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = middleware.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			// keep serving with the in-process limiter
			logger.Warn("redis unavailable, rate limiting in process", "error", err)
		} else {
			defer redisClient.Close()
		}
	}

	rules := service.Rules{
		FirstDepositBonusRate: cfg.FirstDepositBonusRate,
		BonusVolumeMultiplier: cfg.BonusVolumeMultiplier,
		WithdrawalFee:         cfg.WithdrawalFee,
		TradeReportMax:        cfg.TradeReportMax,
	}
	tokens := service.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	hub := ws.NewHub(cfg.AllowedOrigin)

	h := handlers.NewHandler(handlers.Deps{
		Auth:         service.NewAuthService(store, cfg.IsAdminEmail),
		Tokens:       tokens,
		Ledger:       service.NewLedgerService(store, rules, hub),
		Settings:     service.NewSettingsService(store, rules),
		Admin:        service.NewAdminService(store),
		Referrals:    service.NewReferralService(store),
		CookieSecure: cfg.CookieSecure,
	})

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Metrics(), middleware.CORS())

	httpServer.RegisterRoutes(r, httpServer.RouterConfig{
		Handler:    h,
		Tokens:     tokens,
		Store:      store,
		Hub:        hub,
		Limiter:    middleware.NewRateLimiter(redisClient),
		Version:    version,
		APILimit:   httpServer.Limit{Requests: cfg.APIRateLimit, Window: cfg.APIRateWindow},
		AuthLimit:  httpServer.Limit{Requests: cfg.AuthRateLimit, Window: cfg.AuthRateWindow},
		TradeLimit: httpServer.Limit{Requests: cfg.TradeRateLimit, Window: cfg.TradeRateWindow},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "storage", cfg.Storage, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
