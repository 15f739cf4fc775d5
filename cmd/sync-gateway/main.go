package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/eduops/cohort-sync-api/api/swagger"
	"github.com/eduops/cohort-sync-api/internal/conferencing"
	"github.com/eduops/cohort-sync-api/internal/crm"
	"github.com/eduops/cohort-sync-api/internal/handler"
	"github.com/eduops/cohort-sync-api/internal/lms"
	"github.com/eduops/cohort-sync-api/internal/middleware"
	"github.com/eduops/cohort-sync-api/internal/repository"
	"github.com/eduops/cohort-sync-api/internal/service"
	"github.com/eduops/cohort-sync-api/pkg/cache"
	"github.com/eduops/cohort-sync-api/pkg/config"
	"github.com/eduops/cohort-sync-api/pkg/database"
	"github.com/eduops/cohort-sync-api/pkg/jobs"
	"github.com/eduops/cohort-sync-api/pkg/logger"
	corsmiddleware "github.com/eduops/cohort-sync-api/pkg/middleware/cors"
	reqidmiddleware "github.com/eduops/cohort-sync-api/pkg/middleware/requestid"
)

// @title Cohort Sync API
// @version 0.1.0
// @description Mirrors program rosters from the CRM of record into the local store and the remote LMS
// @BasePath /
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	snapshots := repository.NewSnapshotRepository(db)
	groups := repository.NewGroupRepository(db)
	assignments := repository.NewAssignmentRepository(db)
	users := repository.NewUserRepository(db)
	courses := repository.NewCourseRepository(db)
	locks := repository.NewSyncLockRepository(redisClient, cfg.Sync.LockTTL)

	lmsClient := lms.NewClient(cfg.LMS)
	crmClient := crm.NewClient(cfg.CRM)

	var registrar service.ConferencingRegistrar
	if cfg.Conferencing.BaseURL != "" {
		registrar = conferencing.NewClient(cfg.Conferencing)
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	resolver := service.NewGroupResolver(groups, lmsClient, logr)
	reconcilerSvc := service.NewEnrollmentReconciler(users, assignments, groups, resolver, lmsClient, logr)
	syncSvc := service.NewProgramSyncService(courses, users, snapshots, crmClient, reconcilerSvc, locks, registrar, metricsSvc, validate, logr)
	tokenSvc := service.NewTokenService(cfg.JWT)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	syncHandler := handler.NewSyncHandler(syncSvc)
	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))
	api.POST("/sync/programs/:id", syncHandler.Trigger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler := jobs.NewScheduler(func(ctx context.Context, programID string) {
		result, err := syncSvc.SyncProgram(ctx, programID)
		if err != nil {
			logr.Sugar().Warnw("scheduled sync finished with errors", "program_id", programID, "error", err)
		}
		if result != nil {
			logr.Sugar().Infow("scheduled sync finished",
				"program_id", programID,
				"processed", result.Processed,
				"skipped", result.Skipped,
				"synced", result.Synced,
				"failed", result.Failed)
		}
	}, jobs.SchedulerConfig{
		Interval: cfg.Sync.Interval,
		Programs: cfg.Sync.Programs,
		Logger:   logr,
	})
	if cfg.Sync.Enabled {
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
