package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/example/sharka/internal/config"
	"github.com/example/sharka/internal/dispatch"
	"github.com/example/sharka/internal/earnings"
	"github.com/example/sharka/internal/geo"
	"github.com/example/sharka/internal/geocode"
	httpapi "github.com/example/sharka/internal/http"
	"github.com/example/sharka/internal/ingest"
	"github.com/example/sharka/internal/logging"
	"github.com/example/sharka/internal/match"
	"github.com/example/sharka/internal/payments"
	"github.com/example/sharka/internal/rides"
	"github.com/example/sharka/internal/simulate"
	"github.com/example/sharka/internal/storage"
	"github.com/example/sharka/internal/wallet"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	if cfg.PGDSN != "" && cfg.RunMigrations {
		if err := runMigrations(cfg.PGDSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		logger.Info("migrations applied")
	}

	var store interface {
		storage.RideStore
		storage.WalletStore
		storage.EarningsStore
	}
	if cfg.PGDSN != "" {
		ps, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer ps.Close()
		store = ps
		logger.Info("using postgres store")
	} else {
		store = storage.NewMemoryStore()
		logger.Info("using in-memory store")
	}

	var index geo.Index
	if cfg.RedisAddr != "" {
		index = geo.NewRedisIndex(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
		logger.Info("using redis geo index", "addr", cfg.RedisAddr)
	} else {
		index = geo.NewMemoryIndex()
	}

	var producer *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		producer = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		logger.Info("publishing driver locations", "topic", cfg.KafkaTopic)
	}

	var gateway payments.Gateway = payments.NopGateway{}
	if os.Getenv("STRIPE_API_KEY") != "" {
		gateway = payments.NewStripeGateway()
		logger.Info("stripe payments enabled")
	}

	wsreg := dispatch.NewWSRegistry()
	notifier := dispatch.NewNotifier(wsreg, logger)
	synth := simulate.New(&match.Service{Index: index, TopN: cfg.MatcherTopN})
	walletSvc := &wallet.Service{Store: store}
	earningsSvc := &earnings.Service{Store: store}

	coord := &rides.Coordinator{
		Store:    store,
		Wallet:   walletSvc,
		Earnings: earningsSvc,
		Pay:      gateway,
		Notify:   notifier,
		Drivers:  synth,
		Shares:   synth,
		Offers:   synth,
		Sim:      cfg.Sim,
		Log:      logger,
	}
	defer coord.Close()

	api := httpapi.NewServer(logger, httpapi.Deps{
		Rides:    coord,
		Geo:      index,
		Geocoder: geocode.NewClient(cfg.NominatimEndpoint),
		Router:   geocode.NewRouter(cfg.OSRMEndpoint),
		Kafka:    producer,
		WSReg:    wsreg,
		Wallet:   walletSvc,
		Earnings: earningsSvc,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMigrations(dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	b, err := os.ReadFile(filepath.Join("migrations", "001_create_schema.sql"))
	if err != nil {
		return err
	}
	_, err = db.Exec(string(b))
	return err
}
