package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/adiwidodo/classadmin-api/api/swagger"
	"github.com/adiwidodo/classadmin-api/internal/handler"
	"github.com/adiwidodo/classadmin-api/internal/middleware"
	"github.com/adiwidodo/classadmin-api/internal/repository"
	"github.com/adiwidodo/classadmin-api/internal/service"
	"github.com/adiwidodo/classadmin-api/pkg/cache"
	"github.com/adiwidodo/classadmin-api/pkg/config"
	"github.com/adiwidodo/classadmin-api/pkg/database"
	"github.com/adiwidodo/classadmin-api/pkg/logger"
	corsmiddleware "github.com/adiwidodo/classadmin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/adiwidodo/classadmin-api/pkg/middleware/requestid"
)

// @title Class Admin API
// @version 0.1.0
// @description Recurring class scheduling, calendar materialization and rescheduling
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	scheduleRepo := repository.NewScheduleRepository(db)
	exceptionRepo := repository.NewExceptionRepository(db)
	classRepo := repository.NewClassRepository(db)
	meetingRepo := repository.NewMeetingRepository(db)
	testRepo := repository.NewTestRepository(db)

	var cacheRepo *repository.CacheRepository
	if cfg.Cache.Enabled && redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}

	scheduleSvc := service.NewScheduleService(scheduleRepo, classRepo, validate, logr)
	exceptionSvc := service.NewExceptionService(exceptionRepo, scheduleRepo, validate, logr)
	calendarSvc := service.NewCalendarService(scheduleRepo, exceptionRepo, meetingRepo, testRepo, classRepo,
		cfg.Calendar.TestStartTime, cfg.Calendar.TestDurationMinutes, logr)
	rescheduleSvc := service.NewRescheduleService(scheduleRepo, exceptionRepo, meetingRepo, testRepo, classRepo,
		cfg.Calendar.TestStartTime, cfg.Calendar.TestDurationMinutes, validate, logr)
	classSvc := service.NewClassService(classRepo, validate, logr)
	meetingSvc := service.NewMeetingService(meetingRepo, validate, logr)
	testSvc := service.NewTestService(testRepo, classRepo, validate, logr)
	exportSvc := service.NewExportService(scheduleRepo, classRepo, logr)

	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	exceptionHandler := handler.NewExceptionHandler(exceptionSvc)
	calendarHandler := handler.NewCalendarHandler(calendarSvc, rescheduleSvc)
	classHandler := handler.NewClassHandler(classSvc, exportSvc)
	meetingHandler := handler.NewMeetingHandler(meetingSvc)
	testHandler := handler.NewTestHandler(testSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": err.Error()})
			return
		}
		status := gin.H{"status": "ready"}
		if redisClient != nil {
			if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
				status["cache"] = "degraded"
			}
		}
		c.JSON(http.StatusOK, status)
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	if cfg.Auth.Enabled {
		api.Use(middleware.BearerAuth(cfg.Auth.Secret))
	}

	api.POST("/schedules", scheduleHandler.Create)
	api.GET("/schedules/:id", scheduleHandler.Get)
	api.PUT("/schedules/:id", scheduleHandler.Update)
	api.DELETE("/schedules/:id", scheduleHandler.Delete)
	api.GET("/schedules/:id/exceptions", exceptionHandler.ListBySchedule)
	api.POST("/schedules/:id/exceptions", exceptionHandler.Create)
	api.PUT("/exceptions/:id", exceptionHandler.Update)
	api.DELETE("/exceptions/:id", exceptionHandler.Delete)

	api.GET("/calendar", calendarHandler.Materialize)
	api.POST("/calendar/events/:id/move", calendarHandler.MoveEvent)

	classes := api.Group("/classes")
	if cacheRepo != nil {
		classes.Use(middleware.CachePage(cacheRepo, cfg.Cache.TTL, metricsSvc))
		classes.Use(middleware.InvalidateCache(cacheRepo, cfg.APIPrefix+"/classes"))
	}
	classes.GET("", classHandler.List)
	classes.POST("", classHandler.Create)
	classes.GET("/:id", classHandler.Get)
	classes.PUT("/:id", classHandler.Update)
	classes.DELETE("/:id", classHandler.Delete)
	classes.GET("/:id/schedules", scheduleHandler.ListByClass)
	classes.GET("/:id/timetable/export", classHandler.ExportTimetable)

	meetings := api.Group("/meetings")
	if cacheRepo != nil {
		meetings.Use(middleware.CachePage(cacheRepo, cfg.Cache.TTL, metricsSvc))
		meetings.Use(middleware.InvalidateCache(cacheRepo, cfg.APIPrefix+"/meetings"))
	}
	meetings.GET("", meetingHandler.List)
	meetings.POST("", meetingHandler.Create)
	meetings.GET("/:id", meetingHandler.Get)
	meetings.PUT("/:id", meetingHandler.Update)
	meetings.DELETE("/:id", meetingHandler.Delete)

	tests := api.Group("/tests")
	if cacheRepo != nil {
		tests.Use(middleware.CachePage(cacheRepo, cfg.Cache.TTL, metricsSvc))
		tests.Use(middleware.InvalidateCache(cacheRepo, cfg.APIPrefix+"/tests"))
	}
	tests.GET("", testHandler.List)
	tests.POST("", testHandler.Create)
	tests.GET("/:id", testHandler.Get)
	tests.PUT("/:id", testHandler.Update)
	tests.DELETE("/:id", testHandler.Delete)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
