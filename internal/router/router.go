package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalitptl/scheduling-api/internal/config"
	"github.com/jwalitptl/scheduling-api/internal/handler"
	"github.com/jwalitptl/scheduling-api/internal/handler/appointment"
	"github.com/jwalitptl/scheduling-api/internal/handler/voice"
	"github.com/jwalitptl/scheduling-api/internal/middleware"
)

type Handlers struct {
	Appointment *appointment.Handler
	Voice       *voice.Handler
}

func Setup(cfg *config.Config, handlers Handlers) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.Timeout(middleware.TimeoutConfig{
		Duration: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}))
	r.Use(middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RPS:   float64(cfg.Server.RateLimitRPS),
		Burst: cfg.Server.RateLimitBurst,
	}).RateLimit())

	r.GET("/health", handler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.Actor(cfg.JWT.Secret))
	{
		handlers.Appointment.RegisterRoutes(v1)
		handlers.Voice.RegisterRoutes(v1)
	}

	return r
}
