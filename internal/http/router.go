package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/bookline/backend/internal/config"
	"github.com/bookline/backend/internal/geocode"
	"github.com/bookline/backend/internal/http/handlers"
	"github.com/bookline/backend/internal/http/middleware"
	"github.com/bookline/backend/internal/ratelimit"
	"github.com/bookline/backend/internal/service"

	_ "github.com/bookline/backend/docs"
)

const (
	EndpointSearch   = "search"
	EndpointDelegate = "delegate"
)

type Deps struct {
	DB        handlers.Pinger
	Search    *service.Search
	Delegator *service.Delegator
	Analytics *service.Analytics
	Geocoder  *geocode.Cache
	Limiter   *ratelimit.Limiter
	Identity  middleware.IdentityFunc
}

func Router(cfg config.Config, deps Deps, logger zerolog.Logger) *gin.Engine {
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
		DB:        deps.DB,
		Search:    deps.Search,
		Delegator: deps.Delegator,
		Analytics: deps.Analytics,
		Geocoder:  deps.Geocoder,
		Validator: validator.New(),
		Logger:    logger,
		AdminKey:  cfg.AdminKey,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.POST("/search-by-location",
			middleware.RateLimit(deps.Limiter, EndpointSearch, deps.Identity, logger),
			h.SearchByLocation)
		api.POST("/delegate",
			middleware.RateLimit(deps.Limiter, EndpointDelegate, deps.Identity, logger),
			h.Delegate)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/bookings/complete", h.BookingComplete)
		admin.GET("/analytics/usage", h.AnalyticsUsage)
		admin.GET("/analytics/leaderboard", h.AnalyticsLeaderboard)
		admin.GET("/analytics/funnel", h.AnalyticsFunnel)
		admin.POST("/geocode/resolve", h.GeocodeResolve)
		admin.POST("/geocode/sweep", h.GeocodeSweep)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
