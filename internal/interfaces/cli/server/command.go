// Package server implements the server subcommand: full wiring of the
// article cache service and its HTTP front end.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"gdeltnews/internal/application/articles"
	"gdeltnews/internal/infrastructure/config"
	"gdeltnews/internal/infrastructure/database"
	"gdeltnews/internal/infrastructure/repository"
	"gdeltnews/internal/infrastructure/scheduler"
	"gdeltnews/internal/infrastructure/usage"
	"gdeltnews/internal/infrastructure/warehouse"
	httpRouter "gdeltnews/internal/interfaces/http"
	"gdeltnews/internal/shared/biztime"
	"gdeltnews/internal/shared/logger"
)

var env string

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Long:  `Start the article API server with the coalescing warehouse cache and nightly maintenance.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Server.Mode = mapEnvToGinMode(env)

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.NewLogger()

	log.Infow("starting server", "environment", env)

	if err := biztime.Init(cfg.App.Timezone); err != nil {
		return fmt.Errorf("failed to initialize business timezone: %w", err)
	}

	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	clock := biztime.System()

	store := repository.NewArticleRepository(database.Get(), clock)
	meter := usage.NewMeter(
		database.Get(),
		clock,
		cfg.Warehouse.MonthlyBudgetBytes,
		cfg.Warehouse.DefaultQueryBytes,
		log.Named("usage"),
	)

	warehouseClient, err := warehouse.NewClient(cmd.Context(), &cfg.Warehouse, log.Named("warehouse"))
	if err != nil {
		return fmt.Errorf("failed to create warehouse client: %w", err)
	}
	defer warehouseClient.Close()

	coordinator := articles.NewCoordinator(
		store,
		warehouseClient,
		meter,
		clock,
		articles.Config{
			ExpectedPerDay:   cfg.Cache.ExpectedPerDay,
			CoverageRatio:    cfg.Cache.CoverageRatio,
			TodayTTL:         time.Duration(cfg.Cache.TodayTTLSeconds) * time.Second,
			HistoricalFanout: cfg.Cache.HistoricalFanout,
		},
		log.Named("coordinator"),
	)

	maintainer := articles.NewMaintainer(
		store,
		coordinator,
		articles.MaintenanceConfig{
			RetentionDays:   cfg.Cache.RetentionDays,
			WarmupCountries: cfg.Maintenance.WarmupCountries,
			WarmToday:       cfg.Maintenance.WarmToday,
		},
		log.Named("maintenance"),
	)

	schedulerManager, err := scheduler.NewManager(log.Named("scheduler"))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	if err := schedulerManager.RegisterMaintenanceJob(maintainer, cfg.Maintenance.Hour, cfg.Maintenance.Minute); err != nil {
		return fmt.Errorf("failed to register maintenance job: %w", err)
	}
	schedulerManager.Start()
	defer func() {
		if err := schedulerManager.Stop(); err != nil {
			log.Errorw("failed to stop scheduler", "error", err)
		}
	}()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	router := httpRouter.NewRouter(httpRouter.RouterDeps{
		Config:      cfg,
		Coordinator: coordinator,
		Store:       store,
		Meter:       meter,
		RedisClient: redisClient,
		Logger:      log.Named("http"),
	})

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      router.Engine(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting",
			"address", cfg.Server.GetAddr(),
			"mode", cfg.Server.Mode,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
		return err
	}

	log.Infow("server exited gracefully")
	return nil
}

func mapEnvToGinMode(environment string) string {
	switch environment {
	case "production", "prod", "release":
		return "release"
	case "test", "testing":
		return "test"
	default:
		return "debug"
	}
}
