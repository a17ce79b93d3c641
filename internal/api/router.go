package api

import (
	"log/slog"
	"net/http"

	"momentum-backtest/internal/api/handlers"
	"momentum-backtest/internal/api/middleware"
	"momentum-backtest/internal/backtest"
	"momentum-backtest/internal/config"
	"momentum-backtest/internal/metrics"
	"momentum-backtest/internal/store"

	"github.com/gin-gonic/gin"
)

// Deps is what the router needs. Store and Metrics are optional.
type Deps struct {
	Config  *config.Config
	Load    handlers.UniverseLoader
	Store   *store.Store
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(middleware.CORS(d.Config.Server.AllowedOrigins))
	router.Use(middleware.Logger(d.Logger, d.Metrics))
	router.Use(middleware.ErrorHandler(d.Logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	var rec backtest.Recorder
	if d.Metrics != nil {
		rec = d.Metrics
	}
	backtestHandler := handlers.NewBacktestHandler(d.Config, d.Load, d.Store, rec, d.Logger)
	strategyHandler := handlers.NewStrategyHandler(d.Config)

	api := router.Group("/api/v1")
	{
		limit := middleware.RateLimit(d.Config.Server.RateLimit, d.Config.Server.RateBurst, d.Logger)
		api.POST("/backtest", limit, backtestHandler.RunBacktest)
		api.POST("/backtest/compare", limit, backtestHandler.CompareBacktests)
		api.GET("/strategies", strategyHandler.ListStrategies)

		if d.Store != nil {
			runsHandler := handlers.NewRunsHandler(d.Store)
			api.GET("/runs", runsHandler.ListRuns)
			api.GET("/runs/:id", runsHandler.GetRun)
			api.GET("/runs/:id/results", runsHandler.GetResults)
			api.GET("/runs/:id/forecasts", runsHandler.GetForecasts)
			api.POST("/significance", runsHandler.Significance)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
	})
	return router
}
