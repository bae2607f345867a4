package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/unitutor-api/api/swagger"
	"github.com/noah-isme/unitutor-api/internal/handler"
	"github.com/noah-isme/unitutor-api/internal/middleware"
	"github.com/noah-isme/unitutor-api/internal/models"
	"github.com/noah-isme/unitutor-api/internal/repository"
	"github.com/noah-isme/unitutor-api/internal/service"
	"github.com/noah-isme/unitutor-api/pkg/cache"
	"github.com/noah-isme/unitutor-api/pkg/config"
	"github.com/noah-isme/unitutor-api/pkg/database"
	"github.com/noah-isme/unitutor-api/pkg/jobs"
	"github.com/noah-isme/unitutor-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/unitutor-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/unitutor-api/pkg/middleware/requestid"
	"github.com/noah-isme/unitutor-api/pkg/storage"
)

// @title UniTutor Scheduling API
// @version 1.0.0
// @description Room registry, meeting booking, consultation slots and calendar projections.
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const (
	shutdownTimeout = 15 * time.Second
	exportRetryWait = 2 * time.Second
)

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
		logr.Info("database migrations applied")
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, calendar cache disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	users := repository.NewUserRepository(db)
	rooms := repository.NewRoomRepository(db)
	meetings := repository.NewMeetingRepository(db)
	consultations := repository.NewConsultationRepository(db)
	faculty := repository.NewFacultyRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)
	exportRepo := repository.NewExportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Calendar.CacheTTL, logr, redisClient != nil)
	auditSvc := service.NewAuditService(users, logr)

	var auditQueue *jobs.Queue
	if cfg.Audit.Enabled {
		auditQueue = jobs.NewQueue("audit", auditSvc.Handle, jobs.QueueConfig{
			Workers:    cfg.Audit.Workers,
			BufferSize: cfg.Audit.BufferSize,
			Logger:     logr,
		})
		auditQueue.Start(ctx)
		auditSvc.AttachQueue(auditQueue)
	}

	roomSvc := service.NewRoomService(rooms, meetings, cacheSvc, auditSvc, validate, logr)
	meetingSvc := service.NewMeetingService(service.MeetingServiceDeps{
		Repo:      meetings,
		Rooms:     rooms,
		Users:     users,
		Cache:     cacheSvc,
		Metrics:   metrics,
		Audit:     auditSvc,
		Validator: validate,
		Logger:    logr,
	})
	calendarSvc, err := service.NewCalendarService(calendarRepo, cacheSvc, service.CalendarConfig{
		Timezone: cfg.Calendar.Timezone,
		CacheTTL: cfg.Calendar.CacheTTL,
	}, logr)
	if err != nil {
		return err
	}
	consultationSvc := service.NewConsultationService(service.ConsultationServiceDeps{
		Repo:      consultations,
		Faculty:   faculty,
		Cache:     cacheSvc,
		Metrics:   metrics,
		Audit:     auditSvc,
		Validator: validate,
		Logger:    logr,
		Location:  calendarSvc.Location(),
	})
	facultySvc := service.NewFacultyService(faculty, auditSvc, validate, logr)

	var exports *service.ExportService
	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		local, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			return fmt.Errorf("init export storage: %w", err)
		}
		exports = service.NewExportService(service.ExportServiceDeps{
			Repo:      exportRepo,
			Storage:   local,
			Signer:    storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
			Calendar:  calendarSvc,
			Audit:     auditSvc,
			Metrics:   metrics,
			Validator: validate,
			Logger:    logr,
			Config: service.ExportConfig{
				APIPrefix:       cfg.APIPrefix,
				ResultTTL:       cfg.Exports.SignedURLTTL,
				CleanupInterval: cfg.Exports.CleanupInterval,
				MaxRetries:      cfg.Exports.WorkerRetries,
			},
		})
		exportQueue = jobs.NewQueue("calendar-exports", exports.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			RetryDelay: exportRetryWait,
			Logger:     logr,
		})
		exportQueue.Start(ctx)
		exports.AttachQueue(exportQueue)
		exports.RecoverPending(ctx)
		exports.StartCleanup(ctx)
	}

	tokens := service.NewTokenService(service.TokenConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		Leeway:   30 * time.Second,
	})

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = redisCheck(redisClient)
	}

	handlers := handler.Handlers{
		Rooms:         handler.NewRoomHandler(roomSvc),
		Meetings:      handler.NewMeetingHandler(meetingSvc),
		Consultations: handler.NewConsultationHandler(consultationSvc),
		Faculty:       handler.NewFacultyHandler(facultySvc),
		Calendar:      newCalendarHandler(calendarSvc, exports),
		Metrics:       handler.NewMetricsHandler(metrics, checks),
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", handlers.Metrics.Health)
	r.GET("/ready", handlers.Metrics.Ready)
	r.GET("/metrics", handlers.Metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(
		r.Group(cfg.APIPrefix),
		handlers,
		middleware.JWT(tokens),
		middleware.Audit(auditSvc, models.AuditActionCalendarDownload, "calendar_export"),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown incomplete", zap.Error(err))
	}
	if exportQueue != nil {
		exportQueue.Stop()
	}
	if auditQueue != nil {
		auditQueue.Stop()
	}
	return nil
}

// newCalendarHandler keeps a nil *ExportService from becoming a non-nil interface.
func newCalendarHandler(calendar *service.CalendarService, exports *service.ExportService) *handler.CalendarHandler {
	if exports == nil {
		return handler.NewCalendarHandler(calendar, nil)
	}
	return handler.NewCalendarHandler(calendar, exports)
}

func redisCheck(client *redis.Client) handler.ReadinessCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
