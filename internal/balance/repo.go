package balance

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hardcoverhq/bookstore-backend/pkg/db/models"
)

// ErrInsufficientFunds signals that a guarded debit found less money than
// the debit amount at write time.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Repository manages persistence for user balances.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, balance *models.Balance) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Balance, error)
	Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error
	Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a balance repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, balance *models.Balance) error {
	return r.db.WithContext(ctx).Create(balance).Error
}

func (r *repository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Balance, error) {
	var balance models.Balance
	if err := r.db.WithContext(ctx).First(&balance, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *repository) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&models.Balance{}).
		Where("user_id = ?", userID).
		Update("amount", gorm.Expr("amount + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Debit subtracts amount behind an `amount >= ?` guard so a racing debit
// can never push the balance negative.
func (r *repository) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&models.Balance{}).
		Where("user_id = ? AND amount >= ?", userID, amount).
		Update("amount", gorm.Expr("amount - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientFunds
	}
	return nil
}
