package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socialsellers/internal/config"
	"socialsellers/internal/db"
	"socialsellers/internal/logger"
	"socialsellers/internal/metrics"
	"socialsellers/internal/notifier"
	"socialsellers/internal/router"
	"socialsellers/internal/services"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app is the state shared by every subcommand once configuration is loaded.
type app struct {
	cfg config.Config
	log zerolog.Logger
	db  *db.DB
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "socialsellers",
		Short:        "Social Sellers inventory and sales backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.db != nil {
				a.db.Close()
			}
		},
	}

	var seed bool
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), seed)
		},
	}
	serve.Flags().BoolVar(&seed, "seed", false, "load demo data before serving")

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.db.RunMigrations(cmd.Context())
		},
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo users, products and sales (idempotent)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.db.RunMigrations(cmd.Context()); err != nil {
				return err
			}
			_, err := a.seed(cmd.Context())
			return err
		},
	}

	root.AddCommand(serve, migrate, seedCmd, newReportCmd(a))
	return root
}

func (a *app) load() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.log = logger.InitLogger(logger.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if cfg.UsingDefaultSecret() {
		a.log.Warn().Msg("JWT_SECRET not set, using default key")
	}

	database, err := db.InitDB(cfg.DBDriver, cfg.DBUrl)
	if err != nil {
		a.log.Error().Err(err).Str("driver", cfg.DBDriver).Msg("Database connection failed")
		return err
	}
	a.db = database
	a.log.Info().Str("driver", string(database.Dialect())).Msg("Database connected")
	return nil
}

func (a *app) seed(ctx context.Context) (*services.SeedReport, error) {
	report, err := services.NewSeeder(a.db, a.cfg.Seed, a.log).Seed(ctx)
	if err != nil {
		a.log.Error().Err(err).Msg("Seeding failed")
		return nil, err
	}
	a.log.Info().
		Int("users", report.UsersCreated).
		Int("products", report.ProductsCreated).
		Int("sales", report.SalesCreated).
		Msg("Seeding finished")
	return report, nil
}

func (a *app) serve(ctx context.Context, seed bool) error {
	if err := a.db.RunMigrations(ctx); err != nil {
		a.log.Error().Err(err).Msg("Migrations failed")
		return err
	}
	if seed {
		if _, err := a.seed(ctx); err != nil {
			return err
		}
	}

	m := metrics.New()

	var sender notifier.Sender = notifier.NewLogSender(a.log)
	var closers []io.Closer
	if len(a.cfg.KafkaBrokers) > 0 {
		kafkaSender := notifier.NewKafkaSender(a.cfg.KafkaBrokers, a.cfg.KafkaTopic, a.log)
		closers = append(closers, kafkaSender)
		sender = notifier.Fanout{sender, kafkaSender}
	}
	notify := notifier.New(sender, a.cfg.AdminAlertEmail, a.log)

	tokens := services.NewTokenService(a.cfg.JWTSecret, a.cfg.DefaultTokenTTL, a.log)
	users := services.NewUserService(a.db, a.log)
	products := services.NewProductService(a.db, a.log)
	reports := services.NewReportService(a.db, a.log)
	sales := services.NewSalesService(a.db, products, reports, services.SalesOptions{
		Notifier:          notify,
		Metrics:           m,
		LowStockThreshold: a.cfg.LowStockThreshold,
	}, a.log)

	handler := router.SetupRouter(a.cfg, router.Services{
		DB:       a.db,
		Tokens:   tokens,
		Gate:     services.NewGate(tokens, users, a.log),
		Users:    users,
		Products: products,
		Sales:    sales,
		Reports:  reports,
		Sellers:  services.NewSellerService(a.db, a.log),
		Notifier: notify,
		Metrics:  m,
	}, a.log)

	server := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Msgf("Server listening on port %s", a.cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			a.log.Error().Err(err).Msg("Server error")
			return err
		}
	case <-quit:
		a.log.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	sales.Wait()
	for _, c := range closers {
		if err := c.Close(); err != nil {
			a.log.Warn().Err(err).Msg("Failed to close notification sender")
		}
	}

	a.log.Info().Msg("Server stopped")
	return nil
}
