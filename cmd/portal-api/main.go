package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/opencampus/uniportal-api/api/swagger"
	"github.com/opencampus/uniportal-api/internal/handler"
	"github.com/opencampus/uniportal-api/internal/middleware"
	"github.com/opencampus/uniportal-api/internal/models"
	"github.com/opencampus/uniportal-api/internal/repository"
	"github.com/opencampus/uniportal-api/internal/service"
	"github.com/opencampus/uniportal-api/pkg/cache"
	"github.com/opencampus/uniportal-api/pkg/config"
	"github.com/opencampus/uniportal-api/pkg/database"
	"github.com/opencampus/uniportal-api/pkg/logger"
	corsmiddleware "github.com/opencampus/uniportal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/opencampus/uniportal-api/pkg/middleware/requestid"
)

// @title UniPortal API
// @version 0.1.0
// @description Multi-tenant timetable and classroom allocation engine
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	classroomLock := cache.NewLock(redisClient, cfg.Scheduler.ClassroomLockTTL)
	validate := validator.New()

	classroomRepo := repository.NewClassroomRepository(db)
	unavailabilityRepo := repository.NewClassroomUnavailabilityRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	preferenceRepo := repository.NewFacultyPreferenceRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	metricsSvc := service.NewMetricsService()
	gridSvc := service.NewGridService(subjectRepo, validate, logr)
	assignmentSvc := service.NewAssignmentService(preferenceRepo, timetableRepo, validate, logr)
	conflictSvc := service.NewConflictService(timetableRepo, logr)
	substitutionSvc := service.NewSubstitutionService(classroomRepo, unavailabilityRepo, cfg.Substitution, logr)
	timetableSvc := service.NewTimetableService(db, timetableRepo, auditRepo, validate, logr)
	classroomSvc := service.NewClassroomService(classroomRepo, unavailabilityRepo, classroomLock, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, cfg.Scheduler, validate, logr)
	preferenceSvc := service.NewPreferenceService(preferenceRepo, validate, logr)

	timetableHandler := handler.NewTimetableHandler(gridSvc, assignmentSvc, conflictSvc, timetableSvc, metricsSvc)
	classroomHandler := handler.NewClassroomHandler(classroomSvc, substitutionSvc, metricsSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	preferenceHandler := handler.NewPreferenceHandler(preferenceSvc)
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
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))

	adminOnly := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)

	timetables := api.Group("/timetables")
	{
		timetables.GET("", timetableHandler.List)
		timetables.GET("/:id", timetableHandler.Get)
		timetables.GET("/:id/conflicts", timetableHandler.Conflicts)
		timetables.POST("/grid", adminOnly, timetableHandler.GenerateGrid)
		timetables.POST("/assign", adminOnly, timetableHandler.AssignFaculty)
		timetables.POST("", adminOnly, timetableHandler.Create)
		timetables.PUT("/:id/grid", adminOnly, timetableHandler.UpdateGrid)
		timetables.POST("/:id/publish", adminOnly, timetableHandler.Publish)
		timetables.POST("/:id/unpublish", adminOnly, timetableHandler.Unpublish)
		timetables.DELETE("/:id", adminOnly, timetableHandler.Delete)
	}

	classrooms := api.Group("/classrooms")
	{
		classrooms.GET("", classroomHandler.List)
		classrooms.GET("/:id", classroomHandler.Get)
		classrooms.GET("/:id/unavailability", classroomHandler.ListUnavailability)
		classrooms.GET("/:id/substitutes", classroomHandler.Substitutes)
		classrooms.POST("", adminOnly, classroomHandler.Create)
		classrooms.PUT("/:id", adminOnly, classroomHandler.Update)
		classrooms.DELETE("/:id", adminOnly, classroomHandler.Delete)
		classrooms.POST("/:id/unavailability", adminOnly,
			middleware.Audit(auditRepo, "classroom.mark_unavailable", "classroom"),
			classroomHandler.MarkUnavailable)
	}
	api.DELETE("/unavailabilities/:id", adminOnly,
		middleware.Audit(auditRepo, "classroom.clear_unavailability", "classroom_unavailability"),
		classroomHandler.ClearUnavailability)

	subjects := api.Group("/subjects")
	{
		subjects.GET("", subjectHandler.List)
		subjects.GET("/:id", subjectHandler.Get)
		subjects.POST("", adminOnly, subjectHandler.Create)
		subjects.PUT("/:id", adminOnly, subjectHandler.Update)
		subjects.DELETE("/:id", adminOnly, subjectHandler.Delete)
	}

	preferences := api.Group("/preferences")
	{
		preferences.GET("", preferenceHandler.List)
		preferences.PUT("", preferenceHandler.Upsert)
	}

	api.GET("/ops/metrics", adminOnly, metricsHandler.Snapshot)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
