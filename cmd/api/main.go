package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/hardcoverhq/bookstore-backend/api/routes"
	"github.com/hardcoverhq/bookstore-backend/internal/auth"
	"github.com/hardcoverhq/bookstore-backend/internal/balance"
	"github.com/hardcoverhq/bookstore-backend/internal/books"
	cartsvc "github.com/hardcoverhq/bookstore-backend/internal/cart"
	checkoutsvc "github.com/hardcoverhq/bookstore-backend/internal/checkout"
	"github.com/hardcoverhq/bookstore-backend/internal/ledger"
	"github.com/hardcoverhq/bookstore-backend/internal/users"
	"github.com/hardcoverhq/bookstore-backend/pkg/auth/session"
	"github.com/hardcoverhq/bookstore-backend/pkg/config"
	"github.com/hardcoverhq/bookstore-backend/pkg/db"
	"github.com/hardcoverhq/bookstore-backend/pkg/logger"
	"github.com/hardcoverhq/bookstore-backend/pkg/metrics"
	"github.com/hardcoverhq/bookstore-backend/pkg/migrate"
	pkgredis "github.com/hardcoverhq/bookstore-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api exited with error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return multierr.Append(err, dbClient.Close())
	}

	redisClient, err := pkgredis.New(ctx, cfg.Redis)
	if err != nil {
		return multierr.Append(err, dbClient.Close())
	}

	closeAll := func() error {
		return multierr.Combine(redisClient.Close(), dbClient.Close())
	}

	sessions, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return multierr.Append(err, closeAll())
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	bookRepo := books.NewRepository(conn)
	cartRepo := cartsvc.NewRepository(conn)
	balanceRepo := balance.NewRepository(conn)
	ledgerRepo := ledger.NewRepository(conn)

	authService, err := auth.NewService(userRepo, balanceRepo, dbClient, sessions, cfg.JWT, cfg.Password)
	if err != nil {
		return multierr.Append(err, closeAll())
	}
	booksService, err := books.NewService(bookRepo)
	if err != nil {
		return multierr.Append(err, closeAll())
	}
	cartService, err := cartsvc.NewService(cartRepo, dbClient, bookRepo)
	if err != nil {
		return multierr.Append(err, closeAll())
	}
	balanceService, err := balance.NewService(balanceRepo, dbClient)
	if err != nil {
		return multierr.Append(err, closeAll())
	}
	checkoutService, err := checkoutsvc.NewService(cartRepo, bookRepo, balanceRepo, ledgerRepo, dbClient, cfg.Checkout, checkoutMetrics)
	if err != nil {
		return multierr.Append(err, closeAll())
	}
	ledgerService, err := ledger.NewService(ledgerRepo)
	if err != nil {
		return multierr.Append(err, closeAll())
	}

	router := routes.NewRouter(
		cfg,
		logg,
		dbClient,
		redisClient,
		sessions,
		authService,
		booksService,
		cartService,
		balanceService,
		checkoutService,
		ledgerService,
		httpMetrics,
		registry,
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	startCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(startCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownGrace)
		defer cancel()
		err = server.Shutdown(shutdownCtx)
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}

	return multierr.Append(err, closeAll())
}
