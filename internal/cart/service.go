package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hardcoverhq/bookstore-backend/internal/books"
	"github.com/hardcoverhq/bookstore-backend/pkg/db/models"
	pkgerrors "github.com/hardcoverhq/bookstore-backend/pkg/errors"
	"github.com/hardcoverhq/bookstore-backend/pkg/pricing"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes cart operations. Totals are price snapshots accumulated
// per mutation at the then-current effective price, not a live repricing
// of the lines.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, userID, bookID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, bookID uuid.UUID, quantity int) (*models.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo    Repository
	tx      txRunner
	catalog books.Repository
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, tx txRunner, catalog books.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo, tx: tx, catalog: catalog}, nil
}

// Get returns the user's cart, or an empty unsaved cart when none exists yet.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	cart, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.Cart{UserID: userID, Total: decimal.Zero, Items: []models.CartItem{}}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return cart, nil
}

func (s *service) AddItem(ctx context.Context, userID, bookID uuid.UUID, quantity int) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if bookID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book id is required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		book, err := s.catalog.WithTx(tx).GetByID(ctx, bookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load book")
		}

		cart, err := repo.GetByUserID(ctx, userID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
			}
			cart = &models.Cart{UserID: userID, Total: decimal.Zero}
			if err := repo.Create(ctx, cart); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
			}
		}

		held := 0
		for _, line := range cart.Items {
			if line.BookID == bookID {
				held = line.Quantity
				break
			}
		}
		if held+quantity > book.Stock {
			return pkgerrors.New(pkgerrors.CodeConflict, "not enough stock for requested quantity")
		}

		if err := repo.UpsertItem(ctx, &models.CartItem{
			CartID:   cart.ID,
			BookID:   bookID,
			Quantity: quantity,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart line")
		}

		total := cart.Total.Add(pricing.LineTotal(book.Price, quantity, book.DiscountPercent))
		if err := repo.UpdateTotal(ctx, cart.ID, total); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart total")
		}

		result, err = repo.GetByUserID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) RemoveItem(ctx context.Context, userID, bookID uuid.UUID, quantity int) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if bookID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book id is required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := repo.GetByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}

		var line *models.CartItem
		for i := range cart.Items {
			if cart.Items[i].BookID == bookID {
				line = &cart.Items[i]
				break
			}
		}
		if line == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "book is not in the cart")
		}
		if quantity > line.Quantity {
			return pkgerrors.New(pkgerrors.CodeValidation, "cannot remove more than the held quantity")
		}

		book, err := s.catalog.WithTx(tx).GetByID(ctx, bookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load book")
		}

		remaining := line.Quantity - quantity
		if remaining == 0 {
			if err := repo.DeleteItem(ctx, cart.ID, bookID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart line")
			}
		} else {
			if err := repo.UpdateItemQuantity(ctx, cart.ID, bookID, remaining); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
			}
		}

		total := cart.Total.Sub(pricing.LineTotal(book.Price, quantity, book.DiscountPercent))
		if total.IsNegative() {
			total = decimal.Zero
		}
		if err := repo.UpdateTotal(ctx, cart.ID, total); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart total")
		}

		result, err = repo.GetByUserID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Clear resets the user's cart lines and total atomically. Missing carts
// are a no-op.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.GetByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		if err := repo.Clear(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}
		return nil
	})
}
