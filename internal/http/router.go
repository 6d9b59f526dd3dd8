package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/ambuflow/backend/internal/config"
	"github.com/ambuflow/backend/internal/http/handlers"
	"github.com/ambuflow/backend/internal/http/middleware"
	"github.com/ambuflow/backend/internal/service"

	_ "github.com/ambuflow/backend/docs"
)

func Router(cfg config.Config, optimizer *service.Optimizer, orchestrator *service.Orchestrator, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Optimizer:    optimizer,
		Orchestrator: orchestrator,
		Validator:    validator.New(),
		Logger:       logger,
		AdminKey:     cfg.AdminKey,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/providers/status", h.ProvidersStatus)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/optimize/single", h.OptimizeSingle)
		admin.POST("/optimize/batch", h.OptimizeBatch)
		admin.POST("/optimize/smart", h.OptimizeSmart)
		admin.POST("/trips/returns", h.GenerateReturns)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
