package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/kitchenops/backend/internal/config"
	"github.com/kitchenops/backend/internal/delivery/http"
	"github.com/kitchenops/backend/internal/events"
	"github.com/kitchenops/backend/internal/metrics"
	"github.com/kitchenops/backend/internal/repository/memory"
	"github.com/kitchenops/backend/internal/repository/postgres"
	"github.com/kitchenops/backend/internal/service"
)

func main() {
	cfgFile := flag.String("config", "", "optional config file (yaml, json, toml)")
	flag.Parse()

	// Configuration
	cfg, err := config.Load(*cfgFile)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logg := config.NewLogger(cfg.LogLevel, os.Stdout)

	// Dependency Injection: Repositories
	dataRepo, closeRepo := openRepository(cfg, logg)
	defer closeRepo()

	// Forecast events
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.KafkaBrokers != "" {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaForecastTopic)
		defer kp.Close()
		publisher = kp
		logg.WithField("topic", cfg.KafkaForecastTopic).Info("Publishing forecast events to Kafka")
	}

	// Dependency Injection: Services
	reg := metrics.NewRegistry()
	salesSvc := service.NewSalesService(dataRepo, reg, logg)
	factorSvc := service.NewFactorService(dataRepo, logg)
	forecastSvc := service.NewForecastService(dataRepo, publisher, reg, logg, service.ForecastSettings{
		MinHistoryPoints: cfg.MinHistoryPoints,
		DefaultWindow:    cfg.DefaultWindow,
	})

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "KitchenOps Forecasting API v1.0",
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
		BodyLimit:    32 * 1024 * 1024,
		ErrorHandler: http.NewErrorHandler(logg),
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Routes
	handler := http.NewHandler(salesSvc, factorSvc, forecastSvc, dataRepo, cfg.RequestTimeout)
	http.SetupRoutes(app, handler, reg.Handler())

	// Graceful shutdown
	go func() {
		logg.Infof("Server starting on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			logg.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		logg.Errorf("Server forced to shutdown: %v", err)
	}
	forecastSvc.WaitBackground()
	logg.Info("Server exited gracefully")
}

// openRepository connects to PostgreSQL, falling back to the in-memory
// demo repository when no database is configured or reachable.
func openRepository(cfg *config.Config, logg *logrus.Logger) (service.DataRepository, func()) {
	if cfg.DatabaseURL == "" {
		logg.Warn("DATABASE_URL not set, running with in-memory demo data")
		return memory.NewDemoRepository(), func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logg.Warnf("Could not connect to database: %v", err)
		logg.Warn("Running with in-memory demo data")
		return memory.NewDemoRepository(), func() {}
	}
	repo := postgres.NewPostgresRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		pool.Close()
		logg.Fatalf("Failed to migrate schema: %v", err)
	}
	logg.Info("Connected to PostgreSQL")
	return repo, pool.Close
}
