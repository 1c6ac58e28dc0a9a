package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hardcoverhq/bookstore-backend/internal/balance"
	"github.com/hardcoverhq/bookstore-backend/internal/books"
	"github.com/hardcoverhq/bookstore-backend/internal/cart"
	"github.com/hardcoverhq/bookstore-backend/internal/ledger"
	"github.com/hardcoverhq/bookstore-backend/pkg/config"
	"github.com/hardcoverhq/bookstore-backend/pkg/db"
	"github.com/hardcoverhq/bookstore-backend/pkg/db/models"
	pkgerrors "github.com/hardcoverhq/bookstore-backend/pkg/errors"
	"github.com/hardcoverhq/bookstore-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service executes checkouts. Every effect (stock decrement, balance
// debit, ledger insert, cart clear) happens inside one DB transaction, so
// a failure at any step leaves no partial state behind.
type Service interface {
	Execute(ctx context.Context, userID uuid.UUID) (*models.Transaction, error)
}

type service struct {
	carts    cart.Repository
	catalog  books.Repository
	balances balance.Repository
	ledger   ledger.Repository
	tx       txRunner
	cfg      config.CheckoutConfig
	metrics  *metrics.CheckoutMetrics
	sleep    func(time.Duration)
}

// NewService builds a checkout service backed by the provided stack.
// Metrics may be nil.
func NewService(
	carts cart.Repository,
	catalog books.Repository,
	balances balance.Repository,
	ledgerRepo ledger.Repository,
	tx txRunner,
	cfg config.CheckoutConfig,
	checkoutMetrics *metrics.CheckoutMetrics,
) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if balances == nil {
		return nil, fmt.Errorf("balance repository required")
	}
	if ledgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries must be non-negative")
	}
	return &service{
		carts:    carts,
		catalog:  catalog,
		balances: balances,
		ledger:   ledgerRepo,
		tx:       tx,
		cfg:      cfg,
		metrics:  checkoutMetrics,
		sleep:    time.Sleep,
	}, nil
}

// Execute runs the checkout for userID. Transient write-write conflicts
// (serialization failures, deadlocks, locked database) are retried within
// the configured budget; business rejections are never retried. A drained
// retry budget downgrades to Conflict.
func (s *service) Execute(ctx context.Context, userID uuid.UUID) (*models.Transaction, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	for attempt := 0; ; attempt++ {
		transaction, err := s.attempt(ctx, userID)
		if err == nil {
			s.metrics.IncOutcome("success")
			return transaction, nil
		}

		if appErr := pkgerrors.As(err); appErr != nil {
			s.metrics.IncOutcome(outcomeLabel(appErr.Code()))
			return nil, err
		}

		if db.IsRetryableTxError(err) {
			if attempt < s.cfg.MaxRetries {
				s.metrics.IncRetry()
				s.sleep(s.cfg.RetryBackoff * time.Duration(attempt+1))
				continue
			}
			s.metrics.IncOutcome("conflict")
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "checkout conflicted with concurrent activity, please retry")
		}

		s.metrics.IncOutcome("error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checkout failed")
	}
}

func (s *service) attempt(ctx context.Context, userID uuid.UUID) (*models.Transaction, error) {
	var result *models.Transaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		catalog := s.catalog.WithTx(tx)
		balances := s.balances.WithTx(tx)
		ledgerRepo := s.ledger.WithTx(tx)

		userCart, err := carts.GetByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart is empty")
			}
			return err
		}
		if len(userCart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart is empty")
		}

		userBalance, err := balances.GetByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// no balance row means no funds
				return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "balance does not cover the cart total")
			}
			return err
		}
		if userBalance.Amount.LessThan(userCart.Total) {
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "balance does not cover the cart total")
		}

		ids := make([]uuid.UUID, 0, len(userCart.Items))
		for _, line := range userCart.Items {
			ids = append(ids, line.BookID)
		}
		found, err := catalog.FindMany(ctx, ids)
		if err != nil {
			return err
		}
		if len(found) != len(userCart.Items) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "a book in the cart is no longer available")
		}
		byID := make(map[uuid.UUID]models.Book, len(found))
		for _, book := range found {
			byID[book.ID] = book
		}

		updates := make([]books.StockUpdate, 0, len(userCart.Items))
		items := make([]models.TransactionItem, 0, len(userCart.Items))
		for _, line := range userCart.Items {
			book := byID[line.BookID]
			if book.Stock < line.Quantity {
				return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock for "+book.Title)
			}
			updates = append(updates, books.StockUpdate{BookID: line.BookID, Quantity: line.Quantity})
			items = append(items, models.TransactionItem{
				BookID:    line.BookID,
				Quantity:  line.Quantity,
				UnitPrice: book.Price,
			})
		}

		// Guarded writes re-check stock and funds at UPDATE time, so two
		// racing checkouts cannot both pass the prechecks above.
		if err := catalog.DecrementStock(ctx, updates); err != nil {
			if errors.Is(err, books.ErrStockConflict) {
				return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock for a book in the cart")
			}
			return err
		}

		if err := balances.Debit(ctx, userID, userCart.Total); err != nil {
			if errors.Is(err, balance.ErrInsufficientFunds) {
				return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "balance does not cover the cart total")
			}
			return err
		}

		transaction := &models.Transaction{
			UserID: userID,
			Total:  userCart.Total,
			Items:  items,
		}
		if err := ledgerRepo.Create(ctx, transaction); err != nil {
			return err
		}

		if err := carts.Clear(ctx, userCart.ID); err != nil {
			return err
		}

		result = transaction
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func outcomeLabel(code pkgerrors.Code) string {
	switch code {
	case pkgerrors.CodeNotFound:
		return "not_found"
	case pkgerrors.CodeInsufficientFunds:
		return "insufficient_funds"
	case pkgerrors.CodeConflict:
		return "insufficient_stock"
	default:
		return "error"
	}
}
