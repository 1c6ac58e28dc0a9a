package balance

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hardcoverhq/bookstore-backend/pkg/db/models"
	pkgerrors "github.com/hardcoverhq/bookstore-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes balance operations.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Balance, error)
	TopUp(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.Balance, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds a balance service backed by the provided stack.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("balance repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// Get returns the user's balance, or a zero unsaved balance when no row
// exists yet.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*models.Balance, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	balance, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.Balance{UserID: userID, Amount: decimal.Zero}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load balance")
	}
	return balance, nil
}

func (s *service) TopUp(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.Balance, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "top-up amount must be positive")
	}
	if amount.Exponent() < -2 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "top-up amount cannot be finer than cents")
	}

	var result *models.Balance
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.Credit(ctx, userID, amount); err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "credit balance")
			}
			if err := repo.Create(ctx, &models.Balance{UserID: userID, Amount: amount}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create balance")
			}
		}

		balance, err := repo.GetByUserID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload balance")
		}
		result = balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
