package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hardcoverhq/bookstore-backend/api/controllers"
	"github.com/hardcoverhq/bookstore-backend/api/middleware"
	"github.com/hardcoverhq/bookstore-backend/internal/auth"
	"github.com/hardcoverhq/bookstore-backend/internal/balance"
	"github.com/hardcoverhq/bookstore-backend/internal/books"
	cartsvc "github.com/hardcoverhq/bookstore-backend/internal/cart"
	checkoutsvc "github.com/hardcoverhq/bookstore-backend/internal/checkout"
	"github.com/hardcoverhq/bookstore-backend/internal/ledger"
	"github.com/hardcoverhq/bookstore-backend/pkg/auth/session"
	"github.com/hardcoverhq/bookstore-backend/pkg/config"
	"github.com/hardcoverhq/bookstore-backend/pkg/db"
	"github.com/hardcoverhq/bookstore-backend/pkg/db/models"
	"github.com/hardcoverhq/bookstore-backend/pkg/logger"
	"github.com/hardcoverhq/bookstore-backend/pkg/metrics"
	pkgredis "github.com/hardcoverhq/bookstore-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	sessions session.Checker,
	authService auth.Service,
	booksService books.Service,
	cartService cartsvc.Service,
	balanceService balance.Service,
	checkoutService checkoutsvc.Service,
	ledgerService ledger.Service,
	httpMetrics *metrics.HTTPMetrics,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, redisClient, logg))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.Idempotency(redisClient, logg)).
				Post("/register", controllers.AuthRegister(authService, logg))
			r.Post("/login", controllers.AuthLogin(authService, logg))
			r.With(middleware.Auth(cfg.JWT, sessions, logg)).
				Post("/logout", controllers.AuthLogout(authService, logg))
		})

		// catalog browsing needs no account; creation is admin only
		r.Route("/books", func(r chi.Router) {
			r.Get("/", controllers.BooksList(booksService, logg))
			r.Get("/{bookID}", controllers.BooksGet(booksService, logg))
			r.With(
				middleware.Auth(cfg.JWT, sessions, logg),
				middleware.RequireRole(string(models.RoleAdmin), logg),
			).Post("/", controllers.BooksCreate(booksService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))
			r.Use(middleware.Idempotency(redisClient, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(cartService, logg))
				r.Post("/items", controllers.CartAddItem(cartService, logg))
				r.Delete("/items", controllers.CartRemoveItem(cartService, logg))
			})

			r.Route("/balance", func(r chi.Router) {
				r.Get("/", controllers.BalanceGet(balanceService, logg))
				r.Post("/topup", controllers.BalanceTopUp(balanceService, logg))
			})

			r.Post("/checkout", controllers.CheckoutExecute(checkoutService, logg))
			r.Get("/transactions", controllers.TransactionsMine(ledgerService, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))
			r.Use(middleware.RequireRole(string(models.RoleAdmin), logg))
			r.Use(middleware.Idempotency(redisClient, logg))

			r.Get("/transactions", controllers.TransactionsAll(ledgerService, logg))
		})
	})

	return r
}
