package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/certifyme/attest-api/api/swagger"
	"github.com/certifyme/attest-api/internal/client"
	"github.com/certifyme/attest-api/internal/handler"
	"github.com/certifyme/attest-api/internal/middleware"
	"github.com/certifyme/attest-api/internal/models"
	"github.com/certifyme/attest-api/internal/repository"
	"github.com/certifyme/attest-api/internal/service"
	"github.com/certifyme/attest-api/pkg/cache"
	"github.com/certifyme/attest-api/pkg/config"
	"github.com/certifyme/attest-api/pkg/database"
	"github.com/certifyme/attest-api/pkg/export"
	"github.com/certifyme/attest-api/pkg/logger"
	corsmiddleware "github.com/certifyme/attest-api/pkg/middleware/cors"
	reqidmiddleware "github.com/certifyme/attest-api/pkg/middleware/requestid"
)

// @title CertifyMe Attestation API
// @version 0.1.0
// @description Skill attestation verification pipeline
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, verification cache disabled", "error", err)
		redisClient = nil
	}

	submissionRepo := repository.NewSubmissionRepository(db)
	fingerprintRepo := repository.NewFingerprintRepository(db)
	batchJobRepo := repository.NewBatchJobRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	scorer := client.NewScorer(cfg.Scorer, logr)
	anchor := client.NewAnchor(cfg.Anchor, logr)
	ledger := client.NewLedger(cfg.Ledger, logr)
	fetcher := client.NewContentFetcher(cfg.Plagiarism, logr)

	metricsSvc := service.NewMetricsService()
	oracleSvc := service.NewOracleService(cfg.Oracle, logr)
	plagiarismSvc := service.NewPlagiarismService(fetcher, fingerprintRepo, cfg.Plagiarism, logr)
	verificationSvc := service.NewVerificationService(
		submissionRepo, scorer, plagiarismSvc, oracleSvc, anchor, ledger,
		cacheRepo, metricsSvc, cfg.Verify, logr)
	batchSvc := service.NewBatchService(batchJobRepo, verificationSvc, cfg.Batch, metricsSvc, logr)
	statsSvc := service.NewStatsService(submissionRepo, logr)
	authSvc := service.NewAuthService(cfg.JWT, logr)

	certificateHandler := handler.NewCertificateHandler(verificationSvc, export.NewPDFExporter(), export.NewCSVExporter())
	verificationHandler := handler.NewVerificationHandler(verificationSvc, scorer, statsSvc)
	campusHandler := handler.NewCampusHandler(batchSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	certificates := api.Group("/certificates")
	{
		certificates.POST("/submit-evidence", certificateHandler.SubmitEvidence)
		certificates.GET("", certificateHandler.List)
		certificates.GET("/:certId", certificateHandler.Get)
		certificates.GET("/:certId/pdf", certificateHandler.ExportPDF)
		certificates.POST("/:certId/mint", certificateHandler.RecordMint)
		certificates.POST("/:certId/anchor", certificateHandler.RecordAnchor)
		certificates.POST("/:certId/plagiarism", certificateHandler.RecordPlagiarism)
		certificates.POST("/:certId/attestation", certificateHandler.RecordAttestation)
		certificates.POST("/:certId/revoke",
			middleware.JWT(authSvc), middleware.RequireRole(models.RoleAdmin), certificateHandler.Revoke)
	}

	verification := api.Group("/verification")
	{
		verification.GET("/asset/:assetId", verificationHandler.VerifyAsset)
		verification.GET("/certificate/:certId", verificationHandler.VerifyCertificate)
		verification.POST("/verify-code", verificationHandler.VerifyCode)
	}
	api.GET("/stats", verificationHandler.Stats)

	campus := api.Group("/campus", middleware.JWT(authSvc), middleware.RequireRole(models.RoleAdmin))
	{
		campus.POST("/batch-mint", campusHandler.BatchMint)
		campus.GET("/jobs/:id", campusHandler.GetJob)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	batchSvc.Start(ctx)
	defer batchSvc.Stop()

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
