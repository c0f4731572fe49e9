package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"narravox-server/internal/clients/affinity"
	"narravox-server/internal/clients/narrative"
	"narravox-server/internal/config"
	"narravox-server/internal/handler"
	"narravox-server/internal/middleware"
	"narravox-server/internal/ratelimit"
	"narravox-server/internal/service"
	"narravox-server/internal/session"
	"narravox-server/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	redis "github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

func main() {
	// --- Configuration ---
	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Setup ---
	log, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: "json",
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)
	zap.L().Info("Logger initialized successfully", zap.String("logLevel", cfg.LogLevel))

	// --- Upstream Clients ---
	upstreamTimeout := time.Duration(cfg.UpstreamTimeoutSeconds) * time.Second

	narrativeClient, err := narrative.NewClient(narrative.Config{
		APIKey:  cfg.PerplexityAPIKey,
		BaseURL: cfg.PerplexityBaseURL,
		Model:   cfg.NarrativeModel,
		Timeout: upstreamTimeout,
	}, log.Named("NarrativeClient"))
	if err != nil {
		zap.L().Fatal("Failed to create narrative client", zap.Error(err))
	}

	affinityClient, err := affinity.NewClient(affinity.Config{
		APIKey:  cfg.QlooAPIKey,
		BaseURL: cfg.QlooBaseURL,
		Timeout: upstreamTimeout,
	}, log.Named("AffinityClient"))
	if err != nil {
		zap.L().Fatal("Failed to create affinity client", zap.Error(err))
	}

	// --- Rate Limiter ---
	limiter, redisClient := setupLimiter(cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	// --- Dependency Injection ---
	sessions := session.NewStore()
	storySvc := service.NewStoryService(narrativeClient, affinityClient, limiter, service.Options{}, log)
	storyHandler := handler.NewStoryHandler(storySvc, sessions, cfg.PublicBaseURL, log)

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(middleware.ZapLoggingMiddleware(log))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	allowedOrigins := cfg.GetAllowedOrigins()
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", handler.SessionHeader}
	corsConfig.ExposeHeaders = []string{handler.SessionHeader}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	storyHandler.RegisterRoutes(router)

	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	// --- Start HTTP Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	zap.L().Info("Starting HTTP server", zap.String("port", cfg.ServerPort))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP Server forced to shutdown", zap.Error(err))
	}

	zap.L().Info("Server exiting")
}

// setupLimiter selects the rate-limit ledger backend. Redis is used when
// an address is configured and reachable; otherwise the in-memory ledger
// serves single-instance deployments.
func setupLimiter(cfg *config.Config, log *zap.Logger) (ratelimit.Limiter, *redis.Client) {
	if cfg.RedisAddr == "" {
		zap.L().Info("Using in-memory rate-limit ledger")
		return ratelimit.NewMemoryLimiter(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		zap.L().Fatal("Failed to connect to Redis", zap.Error(err), zap.String("addr", cfg.RedisAddr))
	}

	zap.L().Info("Using Redis rate-limit ledger", zap.String("addr", cfg.RedisAddr))
	return ratelimit.NewRedisLimiter(client, log.Named("RedisLimiter")), client
}
