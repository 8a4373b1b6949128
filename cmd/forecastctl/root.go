package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kitchenops/backend/internal/config"
	"github.com/kitchenops/backend/internal/events"
	"github.com/kitchenops/backend/internal/metrics"
	"github.com/kitchenops/backend/internal/repository/postgres"
	"github.com/kitchenops/backend/internal/service"
)

var cfgFile string

// env holds the services shared by every subcommand
type env struct {
	cfg       *config.Config
	logg      *logrus.Logger
	sales     *service.SalesService
	factors   *service.FactorService
	forecasts *service.ForecastService
	close     func()
}

var app *env

var rootCmd = &cobra.Command{
	Use:   "forecastctl",
	Short: "Sales history and demand forecasting tool",
	Long:  `forecastctl imports and exports sales history, manages seasonal factors and generates demand forecasts for menu items and dishes.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		app, err = newEnv(cmd.Context())
		return err
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json, toml)")
	rootCmd.AddCommand(importCmd, exportCmd, forecastCmd, factorsCmd)
}

func newEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	// logs go to stderr so exports can stream to stdout
	logg := config.NewLogger(cfg.LogLevel, os.Stderr)

	connectCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()
	pool, err := postgres.Connect(connectCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	repo := postgres.NewPostgresRepository(pool)
	if err := repo.Migrate(connectCtx); err != nil {
		pool.Close()
		return nil, err
	}

	var publisher events.Publisher = events.NopPublisher{}
	closers := []func(){pool.Close}
	if cfg.KafkaBrokers != "" {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaForecastTopic)
		publisher = kp
		closers = append([]func(){func() { _ = kp.Close() }}, closers...)
	}

	reg := metrics.NewRegistry()
	forecasts := service.NewForecastService(repo, publisher, reg, logg, service.ForecastSettings{
		MinHistoryPoints: cfg.MinHistoryPoints,
		DefaultWindow:    cfg.DefaultWindow,
	})
	closers = append([]func(){forecasts.WaitBackground}, closers...)

	return &env{
		cfg:       cfg,
		logg:      logg,
		sales:     service.NewSalesService(repo, reg, logg),
		factors:   service.NewFactorService(repo, logg),
		forecasts: forecasts,
		close: func() {
			for _, c := range closers {
				c()
			}
		},
	}, nil
}

// Execute runs the root command
func Execute() {
	err := rootCmd.Execute()
	if app != nil {
		app.close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
