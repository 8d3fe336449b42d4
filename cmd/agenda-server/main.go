package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vitalfarma/agenda/internal/config"
	"github.com/vitalfarma/agenda/internal/domain/agenda"
	"github.com/vitalfarma/agenda/internal/platform/intent"
	"github.com/vitalfarma/agenda/internal/platform/ledger"
	"github.com/vitalfarma/agenda/internal/platform/middleware"
	"github.com/vitalfarma/agenda/internal/platform/sandbox"
	"github.com/vitalfarma/agenda/internal/platform/telemetry"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "agenda-server",
		Short: "Pharmacy delivery and appointment scheduling API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(initLedgerCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the scheduling API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Populate an empty ledger with sample records",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg.LedgerPath, logger)
			if err != nil {
				return err
			}
			n, err := sandbox.NewSeeder(store, logger).Seed(context.Background())
			if err != nil {
				return err
			}
			logger.Info().Int("records", n).Str("path", store.Path()).Msg("seed finished")
			return nil
		},
	}
}

func initLedgerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-ledger",
		Short: "Create an empty ledger workbook at the configured path",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg.LedgerPath, logger)
			if err != nil {
				return err
			}
			logger.Info().Str("path", store.Path()).Msg("ledger ready")
			return nil
		},
	}
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Ledger
	store, err := ledger.Open(cfg.LedgerPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open ledger")
	}
	logger.Info().Str("path", store.Path()).Msg("ledger opened")

	// Business rules from config
	hours, err := agenda.NewBusinessHours(
		cfg.WeekdayOpen, cfg.WeekdayClose,
		cfg.LunchStart, cfg.LunchEnd,
		cfg.SaturdayOpen, cfg.SaturdayClose,
		cfg.MinLead(),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid business hours")
	}

	recorder := telemetry.NewRecorder(logger)
	svc := agenda.NewService(store, hours, logger,
		agenda.WithRecorder(recorder),
		agenda.WithSlotLength(cfg.SlotLength()),
	)
	handler := agenda.NewHandler(svc, intent.RuleParser{})

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/metrics", recorder.PrometheusHandler())

	apiV1 := e.Group("/api/v1")
	handler.RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
