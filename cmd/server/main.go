package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dakarlabs/caisse-bot/internal/attachment"
	"github.com/dakarlabs/caisse-bot/internal/caisse"
	"github.com/dakarlabs/caisse-bot/internal/config"
	"github.com/dakarlabs/caisse-bot/internal/lark"
	"github.com/dakarlabs/caisse-bot/internal/mirror"
	"github.com/dakarlabs/caisse-bot/internal/models"
	"github.com/dakarlabs/caisse-bot/internal/repository"
	"github.com/dakarlabs/caisse-bot/internal/screening"
	"github.com/dakarlabs/caisse-bot/internal/webhook"
	"github.com/dakarlabs/caisse-bot/internal/worker"
	"github.com/dakarlabs/caisse-bot/pkg/database"
	"github.com/dakarlabs/caisse-bot/pkg/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Caisse Funding Workflow",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Create necessary directories
	for _, dir := range []string{
		filepath.Dir(cfg.Database.Path),
		filepath.Dir(cfg.Mirror.Path),
		cfg.Attachments.Dir,
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Fatal("Failed to create directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	cashBoxRepo := repository.NewCashBoxRepository(db, logger)
	counterRepo := repository.NewCounterRepository(db, logger)

	// Initialize Lark client and gateway
	larkClient := lark.NewClient(lark.Config{
		AppID:     cfg.Lark.AppID,
		AppSecret: cfg.Lark.AppSecret,
	}, logger)
	gateway := lark.NewGateway(larkClient, logger)

	currencies := make([]models.Currency, 0, len(cfg.Caisse.Currencies))
	for _, c := range cfg.Caisse.Currencies {
		currencies = append(currencies, models.Currency(c))
	}

	// Initialize workflow engine
	engine := caisse.NewEngine(cashBoxRepo, counterRepo, gateway, caisse.Config{
		Currencies:     currencies,
		Banks:          cfg.Caisse.Banks,
		AdminChannel:   cfg.Caisse.AdminChannel,
		FinanceChannel: cfg.Caisse.FinanceChannel,
	}, logger)

	// Initialize spreadsheet mirror
	spreadsheet := mirror.NewSpreadsheet(cfg.Mirror.Path, logger)
	syncer := mirror.NewSyncer(spreadsheet, cfg.Mirror.Attempts, cfg.Mirror.Backoff, logger)
	mirrorWorker := worker.NewMirrorWorker(cashBoxRepo, syncer, gateway, logger)

	// Optional request screening
	screener := screening.NewScreener(cfg.Screening.APIKey, cfg.Screening.Model, logger)
	if screener == nil {
		logger.Info("Request screening disabled, no API key configured")
	}

	// Cheque proof validation
	downloader := attachment.NewDownloader(cfg.Attachments.Dir, logger)
	validator := attachment.NewValidator(logger)

	// Initialize interaction worker
	interactionWorker := worker.NewInteractionWorker(
		engine,
		gateway,
		mirrorWorker,
		screener,
		downloader,
		validator,
		worker.Config{
			AdminChannel:   cfg.Caisse.AdminChannel,
			FinanceChannel: cfg.Caisse.FinanceChannel,
		},
		logger,
	)

	// Start background workers
	manager := worker.NewManager(logger)
	manager.Register(mirrorWorker)
	manager.Register(interactionWorker)
	if err := manager.StartAll(context.Background()); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	// Initialize webhook handler
	webhookVerifier := webhook.NewVerifier(cfg.Lark.SigningSecret, logger)
	webhookHandler := webhook.NewHandler(webhookVerifier, interactionWorker, logger)

	// Set Gin mode based on logger level
	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize HTTP router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))
	router.Use(corsMiddleware())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "caisse-bot",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// Webhook endpoint
	router.POST(cfg.Lark.WebhookPath, webhookHandler.Handle)

	// Admin API endpoints (read-only, for monitoring)
	registerAdminAPI(router, engine)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Drain workers after the HTTP surface is closed
	manager.StopAll()

	logger.Info("Server exited successfully")
}

// registerAdminAPI mounts the read-only monitoring endpoints. Request
// IDs contain slashes (FUND/YYYY/MM/NNNN), so the lookup route uses a
// wildcard parameter rather than a single path segment.
func registerAdminAPI(router *gin.Engine, engine *caisse.Engine) {
	api := router.Group("/api/v1")

	api.GET("/cashbox", func(c *gin.Context) {
		box, err := engine.GetCashBox(c.Request.Context())
		if err != nil {
			if caisse.IsGuard(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load cash box"})
			return
		}
		c.JSON(http.StatusOK, box)
	})

	api.GET("/requests/*id", func(c *gin.Context) {
		requestID := strings.TrimPrefix(c.Param("id"), "/")
		req, err := engine.GetRequest(c.Request.Context(), requestID)
		if err != nil {
			if caisse.IsGuard(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load request"})
			return
		}
		c.JSON(http.StatusOK, req)
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
