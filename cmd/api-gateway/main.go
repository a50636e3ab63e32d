package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/enrolldesk/enrolldesk-api/api/swagger"
	"github.com/enrolldesk/enrolldesk-api/internal/handler"
	"github.com/enrolldesk/enrolldesk-api/internal/middleware"
	"github.com/enrolldesk/enrolldesk-api/internal/repository"
	"github.com/enrolldesk/enrolldesk-api/internal/service"
	"github.com/enrolldesk/enrolldesk-api/pkg/cache"
	"github.com/enrolldesk/enrolldesk-api/pkg/config"
	"github.com/enrolldesk/enrolldesk-api/pkg/database"
	"github.com/enrolldesk/enrolldesk-api/pkg/logger"
	corsmiddleware "github.com/enrolldesk/enrolldesk-api/pkg/middleware/cors"
	reqidmiddleware "github.com/enrolldesk/enrolldesk-api/pkg/middleware/requestid"
)

// @title Enrolldesk API
// @version 1.0.0
// @description Customer-record manager for students, courses and the enrollment lifecycle
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

	validate := validator.New()

	enrollmentRepo := repository.NewEnrollmentRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	userRepo := repository.NewUserRepository(db)
	selectionRepo := repository.NewSelectionRepository(redisClient, cfg.Selection.TTL)

	metricsSvc := service.NewMetricsService()
	collection := service.NewEnrollmentCollection()
	metricsSvc.TrackCollection(collection)

	lifecycleSvc := service.NewLifecycleService(enrollmentRepo, collection, metricsSvc, logr)
	bulkSvc := service.NewBulkService(lifecycleSvc, selectionRepo, cfg.Engine.MaxBulkSelection, logr)
	viewSvc := service.NewViewService()
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, courseRepo, collection, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, logr)
	courseSvc := service.NewCourseService(courseRepo, logr)
	exportSvc := service.NewExportService(viewSvc, cfg.Export.Title, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	if cfg.Engine.RefreshOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := lifecycleSvc.Refresh(ctx); err != nil {
			logr.Sugar().Fatalw("failed to load enrollment collection", "error", err)
		}
		cancel()
	}

	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, lifecycleSvc, viewSvc)
	selectionHandler := handler.NewSelectionHandler(selectionRepo, bulkSvc)
	pipelineHandler := handler.NewPipelineHandler(lifecycleSvc, viewSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	authHandler := handler.NewAuthHandler(authSvc)
	exportHandler := handler.NewExportHandler(exportSvc, lifecycleSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

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
	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	protected.GET("/enrollments", enrollmentHandler.List)
	protected.POST("/enrollments", enrollmentHandler.Create)
	protected.POST("/enrollments/refresh", enrollmentHandler.Refresh)
	if cfg.Export.Enabled {
		protected.GET("/enrollments/export", exportHandler.Download)
	}
	protected.GET("/enrollments/:id", enrollmentHandler.Get)
	protected.PUT("/enrollments/:id/status", enrollmentHandler.Transition)
	protected.DELETE("/enrollments/:id", enrollmentHandler.Delete)

	protected.GET("/selection", selectionHandler.Show)
	protected.POST("/selection", selectionHandler.Add)
	protected.POST("/selection/remove", selectionHandler.Remove)
	protected.DELETE("/selection", selectionHandler.Clear)
	protected.POST("/selection/transition", selectionHandler.BulkTransition)

	protected.GET("/pipeline", pipelineHandler.Board)
	protected.GET("/pipeline/summary", pipelineHandler.Summary)

	protected.GET("/students", studentHandler.List)
	protected.GET("/students/:id", studentHandler.Get)
	protected.GET("/courses", courseHandler.List)
	protected.GET("/courses/:id", courseHandler.Get)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
