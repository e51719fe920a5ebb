package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/growthlab/backend/internal/config"
	"github.com/growthlab/backend/internal/delivery/http"
	"github.com/growthlab/backend/internal/domain"
	"github.com/growthlab/backend/internal/features"
	"github.com/growthlab/backend/internal/logging"
	"github.com/growthlab/backend/internal/model"
	"github.com/growthlab/backend/internal/recommend"
	"github.com/growthlab/backend/internal/repository/postgres"
	"github.com/growthlab/backend/internal/service"
	"github.com/growthlab/backend/internal/storage"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

func run() error {
	// Configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := storage.Open(ctx, cfg.Artifacts.Location)
	if err != nil {
		return fmt.Errorf("failed to open artifact store %s: %w", cfg.Artifacts.Location, err)
	}
	defer store.Close()

	// Database connection
	pool := connectDatabase(ctx, cfg.Database)
	if pool != nil {
		defer pool.Close()
	}

	// Dependency Injection: Repositories
	var (
		routeSrc domain.RouteSource
		logRepo  domain.PredictionLogRepository
	)
	if pool != nil {
		repo := postgres.NewPostgresRepository(pool)
		routeSrc, logRepo = repo, repo
	} else {
		routeSrc = recommend.NewFileSource(store, cfg.Recommend.TopRoutesFile, cfg.Recommend.FallbackFile)
		logRepo = postgres.NewMockRepository(1000)
	}

	// Dependency Injection: Models
	classifier, err := model.Open(ctx, "classifier", cfg.Models.Classifier, store, domain.ClassifierFeatureNames)
	if err != nil {
		return err
	}
	regressor, err := model.Open(ctx, "regressor", cfg.Models.Regressor, store, domain.RegressorFeatureNames)
	if err != nil {
		return err
	}

	holidays, _ := cfg.Features.HolidayDates() // checked by Validate

	// Dependency Injection: Services
	predictionSvc := service.NewPredictionService(service.Dependencies{
		Deriver:    features.NewDeriver(features.WithHolidays(holidays...)),
		Classifier: model.NewClassifier(classifier, cfg.Models.Timeout),
		Regressor:  model.NewRegressor(regressor, cfg.Models.Timeout),
		Routes:     recommend.Build(ctx, routeSrc),
		Logs:       logRepo,
	})
	defer predictionSvc.WaitBackground()

	// Fiber App
	app := http.NewApp(cfg.Server)
	http.SetupRoutes(app, http.NewHandler(predictionSvc, logRepo))

	listenErr := make(chan error, 1)
	go func() {
		logging.Info().Str("port", cfg.Server.Port).Str("env", cfg.Server.Env).Msg("server starting")
		listenErr <- app.Listen(":" + cfg.Server.Port)
	}()

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-listenErr:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	logging.Info().Msg("shutting down server")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		logging.Error().Err(err).Msg("server forced to shutdown")
	}
	logging.Info().Msg("server exited gracefully")
	return nil
}

// connectDatabase returns nil when no database is configured or reachable;
// the server then reads recommendations from the artifact store.
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) *pgxpool.Pool {
	if cfg.URL == "" {
		logging.Info().Msg("no database configured, running with file-backed recommendations")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.URL)
	if err == nil {
		err = pool.Ping(ctx)
		if err != nil {
			pool.Close()
		}
	}
	if err != nil {
		logging.Warn().Err(err).Msg("could not connect to database, running with file-backed recommendations")
		return nil
	}

	logging.Info().Msg("connected to PostgreSQL")
	return pool
}
