// Package http wires the gin engine: middleware chain, article routes, and
// the health endpoint.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"gdeltnews/internal/application/articles"
	"gdeltnews/internal/domain/article"
	"gdeltnews/internal/infrastructure/usage"
	"gdeltnews/internal/interfaces/http/handlers"
	"gdeltnews/internal/infrastructure/config"
	"gdeltnews/internal/interfaces/http/middleware"
	"gdeltnews/internal/shared/logger"
)

// RouterDeps carries everything the router needs. RedisClient is optional;
// when nil the IP rate limiter is not installed.
type RouterDeps struct {
	Config      *config.Config
	Coordinator *articles.Coordinator
	Store       article.Store
	Meter       *usage.Meter
	RedisClient *redis.Client
	Logger      logger.Interface
}

// Router holds the configured gin engine.
type Router struct {
	engine *gin.Engine
}

// NewRouter builds the engine with the standard middleware chain.
func NewRouter(deps RouterDeps) *Router {
	gin.SetMode(deps.Config.Server.Mode)
	engine := gin.New()

	engine.Use(middleware.Recovery(deps.Logger))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger(deps.Logger))

	if deps.Config.Server.MaxInFlight > 0 {
		limiter := middleware.NewInFlightLimiter(deps.Config.Server.MaxInFlight)
		engine.Use(limiter.Limit())
	}
	if deps.RedisClient != nil && deps.Config.RateLimit.RequestsPerMinute > 0 {
		rateLimiter := middleware.NewRateLimiter(
			deps.RedisClient, deps.Config.RateLimit.RequestsPerMinute, time.Minute)
		engine.Use(rateLimiter.Limit())
	}
	if deps.Config.Server.RequestTimeoutSeconds > 0 {
		engine.Use(middleware.Deadline(
			time.Duration(deps.Config.Server.RequestTimeoutSeconds) * time.Second))
	}

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	articleHandler := handlers.NewArticleHandler(
		deps.Coordinator,
		deps.Store,
		deps.Meter,
		deps.Config.Cache.DefaultCountry,
		deps.Config.Cache.MaxDaysBack,
		deps.Logger,
	)

	api := engine.Group("/api")
	{
		api.GET("/articles", articleHandler.GetArticles)
		api.GET("/articles/stats", articleHandler.GetStats)
	}

	return &Router{engine: engine}
}

// Engine returns the underlying gin engine for the HTTP server.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
