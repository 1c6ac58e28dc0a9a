package cart

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hardcoverhq/bookstore-backend/internal/books"
	"github.com/hardcoverhq/bookstore-backend/pkg/db"
	"github.com/hardcoverhq/bookstore-backend/pkg/db/models"
	pkgerrors "github.com/hardcoverhq/bookstore-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Book{}, &models.Cart{}, &models.CartItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := newTestDB(t)
	svc, err := NewService(NewRepository(conn), db.NewWithConn(conn), books.NewRepository(conn))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func seedBook(t *testing.T, conn *gorm.DB, price string, discount *string, stock int) *models.Book {
	t.Helper()
	book := &models.Book{
		Title:    "Seed",
		Author:   "Author",
		Year:     2021,
		Language: "en",
		Category: "fiction",
		ISBN:     uuid.NewString(),
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
	}
	if discount != nil {
		pct := decimal.RequireFromString(*discount)
		book.DiscountPercent = &pct
	}
	if err := conn.Create(book).Error; err != nil {
		t.Fatalf("seed book: %v", err)
	}
	return book
}

func TestGetReturnsEmptyCartWhenMissing(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	cart, err := svc.Get(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %d items", len(cart.Items))
	}
	if !cart.Total.IsZero() {
		t.Fatalf("expected zero total, got %s", cart.Total)
	}
}

func TestAddItemCreatesCartAndAccumulatesTotal(t *testing.T) {
	t.Parallel()
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	book := seedBook(t, conn, "19.99", nil, 10)

	cart, err := svc.AddItem(ctx, userID, book.ID, 2)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 2 {
		t.Fatalf("unexpected cart lines %+v", cart.Items)
	}
	if !cart.Total.Equal(decimal.RequireFromString("39.98")) {
		t.Fatalf("expected total 39.98, got %s", cart.Total)
	}

	// same line again merges quantities
	cart, err = svc.AddItem(ctx, userID, book.ID, 1)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 3 {
		t.Fatalf("expected merged line of 3, got %+v", cart.Items)
	}
	if !cart.Total.Equal(decimal.RequireFromString("59.97")) {
		t.Fatalf("expected total 59.97, got %s", cart.Total)
	}
}

func TestAddItemAppliesDiscountSnapshot(t *testing.T) {
	t.Parallel()
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	pct := "10"
	book := seedBook(t, conn, "19.99", &pct, 10)

	cart, err := svc.AddItem(ctx, userID, book.ID, 3)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if !cart.Total.Equal(decimal.RequireFromString("53.97")) {
		t.Fatalf("expected total 53.97, got %s", cart.Total)
	}
}

func TestAddItemBeyondStockIsConflict(t *testing.T) {
	t.Parallel()
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	book := seedBook(t, conn, "10.00", nil, 2)

	if _, err := svc.AddItem(ctx, userID, book.ID, 2); err != nil {
		t.Fatalf("add item: %v", err)
	}
	_, err := svc.AddItem(ctx, userID, book.ID, 1)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAddItemUnknownBookIsNotFound(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	_, err := svc.AddItem(context.Background(), uuid.New(), uuid.New(), 1)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRemoveItemDecrementsAndDeletesAtZero(t *testing.T) {
	t.Parallel()
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	book := seedBook(t, conn, "10.00", nil, 10)

	if _, err := svc.AddItem(ctx, userID, book.ID, 3); err != nil {
		t.Fatalf("add item: %v", err)
	}

	cart, err := svc.RemoveItem(ctx, userID, book.ID, 1)
	if err != nil {
		t.Fatalf("remove item: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 2 {
		t.Fatalf("expected line of 2, got %+v", cart.Items)
	}
	if !cart.Total.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("expected total 20.00, got %s", cart.Total)
	}

	cart, err = svc.RemoveItem(ctx, userID, book.ID, 2)
	if err != nil {
		t.Fatalf("remove item: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected zero-quantity line to be removed, got %+v", cart.Items)
	}
	if !cart.Total.IsZero() {
		t.Fatalf("expected zero total, got %s", cart.Total)
	}
}

func TestRemoveItemBeyondHeldIsValidation(t *testing.T) {
	t.Parallel()
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	book := seedBook(t, conn, "10.00", nil, 10)

	if _, err := svc.AddItem(ctx, userID, book.ID, 1); err != nil {
		t.Fatalf("add item: %v", err)
	}
	_, err := svc.RemoveItem(ctx, userID, book.ID, 2)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRemoveItemMissingCartIsNotFound(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	_, err := svc.RemoveItem(context.Background(), uuid.New(), uuid.New(), 1)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClearResetsLinesAndTotal(t *testing.T) {
	t.Parallel()
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	book := seedBook(t, conn, "10.00", nil, 10)

	if _, err := svc.AddItem(ctx, userID, book.ID, 2); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if err := svc.Clear(ctx, userID); err != nil {
		t.Fatalf("clear: %v", err)
	}

	cart, err := svc.Get(ctx, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(cart.Items) != 0 || !cart.Total.IsZero() {
		t.Fatalf("expected empty cart after clear, got %d items total %s", len(cart.Items), cart.Total)
	}

	// clearing an absent cart is a no-op
	if err := svc.Clear(ctx, uuid.New()); err != nil {
		t.Fatalf("clear missing cart: %v", err)
	}
}

func TestGetByUserIDReturnsLinesInInsertionOrder(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	userID := uuid.New()

	cart := &models.Cart{UserID: userID, Total: decimal.Zero}
	if err := conn.Create(cart).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	// rows written newest-first; created_at decides the read order
	base := time.Now().UTC()
	wantOrder := make([]uuid.UUID, 3)
	for i := 2; i >= 0; i-- {
		item := &models.CartItem{
			CartID:    cart.ID,
			BookID:    uuid.New(),
			Quantity:  1,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := conn.Create(item).Error; err != nil {
			t.Fatalf("seed line: %v", err)
		}
		wantOrder[i] = item.BookID
	}

	got, err := repo.GetByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(got.Items) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(got.Items))
	}
	for i, line := range got.Items {
		if line.BookID != wantOrder[i] {
			t.Fatalf("line %d out of order: got %s want %s", i, line.BookID, wantOrder[i])
		}
	}
}

func TestAddItemReadsBookThroughTransaction(t *testing.T) {
	t.Parallel()
	txConn := newTestDB(t)
	staleConn := newTestDB(t)

	// the catalog handle points at a database without the book; only a
	// read rebound onto the transaction can see it
	svc, err := NewService(NewRepository(staleConn), db.NewWithConn(txConn), books.NewRepository(staleConn))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	book := seedBook(t, txConn, "10.00", nil, 5)
	userID := uuid.New()

	cart, err := svc.AddItem(context.Background(), userID, book.ID, 1)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected 1 line, got %d", len(cart.Items))
	}
}
