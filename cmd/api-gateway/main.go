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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-grading-api/api/swagger"
	"github.com/noah-isme/sma-grading-api/internal/handler"
	"github.com/noah-isme/sma-grading-api/internal/middleware"
	"github.com/noah-isme/sma-grading-api/internal/models"
	"github.com/noah-isme/sma-grading-api/internal/repository"
	"github.com/noah-isme/sma-grading-api/internal/service"
	"github.com/noah-isme/sma-grading-api/pkg/cache"
	"github.com/noah-isme/sma-grading-api/pkg/config"
	"github.com/noah-isme/sma-grading-api/pkg/database"
	"github.com/noah-isme/sma-grading-api/pkg/export"
	"github.com/noah-isme/sma-grading-api/pkg/jobs"
	"github.com/noah-isme/sma-grading-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-grading-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-grading-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-grading-api/pkg/storage"
)

// @title SMA Grading API
// @version 1.0.0
// @description Weighted grade averages, class report cards and supplementary exams.
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Averages.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, averages cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	app := build(ctx, cfg, db, redisClient, logr)
	defer app.shutdown()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type application struct {
	router   *gin.Engine
	shutdown func()
}

func build(ctx context.Context, cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) *application {
	validate := validator.New()
	metrics := service.NewMetricsService()

	gradeRepo := repository.NewGradeRepository(db)
	periodRepo := repository.NewPeriodRepository(db)
	scaleRepo := repository.NewGradeScaleRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	classRepo := repository.NewClassRepository(db)
	yearRepo := repository.NewAcademicYearRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	reportRepo := repository.NewReportRepository(db)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Averages.CacheTTL, logr, cfg.Averages.CacheEnabled && cacheRepo != nil)

	bounds := service.ScoreBounds{Min: cfg.Grading.MinScore, Max: cfg.Grading.MaxScore}
	averageSvc := service.NewAverageService(gradeRepo, periodRepo, scaleRepo, enrollmentRepo, subjectRepo, studentRepo, classRepo,
		cacheSvc, metrics, logr, service.AverageServiceConfig{CacheTTL: cfg.Averages.CacheTTL})
	gradeSvc := service.NewGradeService(gradeRepo, periodRepo, periodRepo, enrollmentRepo, auditRepo, cacheSvc, validate, logr, bounds)
	supplementarySvc := service.NewSupplementaryService(gradeRepo, periodRepo, enrollmentRepo, cacheSvc, metrics, validate, logr, bounds)
	scaleSvc := service.NewGradeScaleService(scaleRepo, validate)
	yearSvc := service.NewAcademicYearService(yearRepo, periodRepo)
	tokenSvc := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, Audience: cfg.JWT.Audience})

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics"))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	staff := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleTeacher)
	staffOrSelf := middleware.RBAC(string(models.RoleSuperAdmin), string(models.RoleAdmin), string(models.RoleTeacher), middleware.Self)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(auditRepo, logr, action, resource)
	}

	api := r.Group(cfg.APIPrefix)
	secured := api.Group("", middleware.JWT(tokenSvc))

	years := handler.NewAcademicYearHandler(yearSvc)
	secured.GET("/academic-years", years.List)
	secured.GET("/academic-years/:id", years.Get)

	grades := handler.NewGradeHandler(gradeSvc)
	secured.GET("/grades", staff, grades.List)
	secured.POST("/grades", staff, audit(models.AuditActionGradeRecord, "grades"), grades.Record)
	secured.PUT("/grades/:id", staff, grades.Correct)

	averages := handler.NewAverageHandler(averageSvc)
	secured.GET("/students/:id/averages", staffOrSelf, averages.StudentAverages)
	secured.GET("/students/:id/history", staffOrSelf, averages.StudentHistory)
	secured.GET("/classes/:id/report-card", staff, averages.ClassReportCard)
	secured.GET("/classes/:id/subjects/:subjectId/pivot", staff, averages.PivotReport)

	supplementary := handler.NewSupplementaryHandler(supplementarySvc)
	secured.GET("/students/:id/subjects/:subjectId/supplementary", staffOrSelf, supplementary.Evaluate)
	secured.POST("/supplementary", staff, audit(models.AuditActionSupplementaryRecord, "grades"), supplementary.Record)

	scales := handler.NewGradeScaleHandler(scaleSvc)
	secured.GET("/grade-scales/resolve", scales.Resolve)

	shutdown := func() {}
	if cfg.Reports.Enabled {
		shutdown = wireReports(ctx, cfg, api, secured, staff, audit, reportRepo, averageSvc, metrics, validate, logr)
	}

	return &application{router: r, shutdown: shutdown}
}

func wireReports(
	ctx context.Context,
	cfg *config.Config,
	api, secured *gin.RouterGroup,
	staff gin.HandlerFunc,
	audit func(action, resource string) gin.HandlerFunc,
	reportRepo *repository.ReportRepository,
	averageSvc *service.AverageService,
	metrics *service.MetricsService,
	validate *validator.Validate,
	logr *zap.Logger,
) func() {
	files, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare report storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exporter := service.NewExportService(averageSvc, files, signer,
		service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Reports.SignedURLTTL},
		logr, export.NewCSVExporter(), export.NewPDFExporter())

	worker := service.NewReportWorker(reportRepo, exporter, metrics, logr)
	queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		RetryDelay: 2 * time.Second,
		OnGiveUp:   worker.GiveUp,
		Logger:     logr,
	})
	queue.Start(ctx)

	reportSvc := service.NewReportService(reportRepo, queue, exporter, validate, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
	})
	if n := reportSvc.RecoverPendingJobs(ctx); n > 0 {
		logr.Info("re-enqueued report jobs", zap.Int("count", n))
	}
	reportSvc.StartCleanup(ctx)

	reports := handler.NewReportHandler(reportSvc)
	secured.POST("/reports/generate", staff, audit(models.AuditActionReportGenerate, "report_jobs"), reports.GenerateReport)
	secured.GET("/reports/status/:id", staff, reports.ReportStatus)
	api.GET("/export/:token", reports.Download)

	return queue.Stop
}
