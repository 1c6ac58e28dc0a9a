package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hardcoverhq/bookstore-backend/internal/auth"
	"github.com/hardcoverhq/bookstore-backend/internal/books"
	pkgauth "github.com/hardcoverhq/bookstore-backend/pkg/auth"
	"github.com/hardcoverhq/bookstore-backend/pkg/config"
	"github.com/hardcoverhq/bookstore-backend/pkg/db/models"
	pkgerrors "github.com/hardcoverhq/bookstore-backend/pkg/errors"
	"github.com/hardcoverhq/bookstore-backend/pkg/logger"
	pkgredis "github.com/hardcoverhq/bookstore-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubAuthService struct{}

func (stubAuthService) Register(ctx context.Context, input auth.RegisterInput) (*models.User, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (stubAuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	return "", nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
}

func (stubAuthService) Logout(ctx context.Context, accessID string) error {
	return nil
}

type stubBooksService struct{}

func (stubBooksService) Create(ctx context.Context, input books.CreateBookInput) (*models.Book, error) {
	return &models.Book{ID: uuid.New(), Title: input.Title, Price: input.Price}, nil
}

func (stubBooksService) Get(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
}

func (stubBooksService) List(ctx context.Context) ([]models.Book, error) {
	return []models.Book{}, nil
}

type stubCartService struct{}

func (stubCartService) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return &models.Cart{UserID: userID, Total: decimal.Zero}, nil
}

func (stubCartService) AddItem(ctx context.Context, userID, bookID uuid.UUID, quantity int) (*models.Cart, error) {
	return &models.Cart{UserID: userID}, nil
}

func (stubCartService) RemoveItem(ctx context.Context, userID, bookID uuid.UUID, quantity int) (*models.Cart, error) {
	return &models.Cart{UserID: userID}, nil
}

func (stubCartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return nil
}

type stubBalanceService struct{}

func (stubBalanceService) Get(ctx context.Context, userID uuid.UUID) (*models.Balance, error) {
	return &models.Balance{UserID: userID, Amount: decimal.Zero}, nil
}

func (stubBalanceService) TopUp(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.Balance, error) {
	return &models.Balance{UserID: userID, Amount: amount}, nil
}

type stubCheckoutService struct{}

func (stubCheckoutService) Execute(ctx context.Context, userID uuid.UUID) (*models.Transaction, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart is empty")
}

type stubLedgerService struct{}

func (stubLedgerService) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	return []models.Transaction{}, nil
}

func (stubLedgerService) ListAll(ctx context.Context) ([]models.Transaction, error) {
	return []models.Transaction{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
			SessionTTLMinutes: 120,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		(*pkgredis.Client)(nil),
		stubSessionChecker{},
		stubAuthService{},
		stubBooksService{},
		stubCartService{},
		stubBalanceService{},
		stubCheckoutService{},
		stubLedgerService{},
		nil,
		nil,
	)
}

func buildToken(t *testing.T, cfg *config.Config, role models.UserRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCatalogIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/books", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCartRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestCartSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, models.RoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with token got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	nonAdmin := httptest.NewRequest(http.MethodGet, "/api/v1/admin/transactions", nil)
	nonAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, models.RoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, nonAdmin)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/v1/admin/transactions", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, models.RoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestBookCreationRequiresAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	body := `{"title":"Dune","author":"Frank Herbert","year":1965,"language":"en","category":"sci-fi","isbn":"9780441013593","price":"12.50","stock":3}`

	customer := httptest.NewRequest(http.MethodPost, "/api/v1/books", strings.NewReader(body))
	customer.Header.Set("Content-Type", "application/json")
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, models.RoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodPost, "/api/v1/books", strings.NewReader(body))
	admin.Header.Set("Content-Type", "application/json")
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, models.RoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for admin got %d", resp.Code)
	}
}

func TestTransactionsScopedToCaller(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, models.RoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	router := newTestRouter(testConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty body got %d", resp.Code)
	}
}
