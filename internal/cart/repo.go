package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hardcoverhq/bookstore-backend/pkg/db/models"
)

// Repository manages persistence for carts and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) error
	UpsertItem(ctx context.Context, item *models.CartItem) error
	DeleteItem(ctx context.Context, cartID, bookID uuid.UUID) error
	UpdateItemQuantity(ctx context.Context, cartID, bookID uuid.UUID, quantity int) error
	UpdateTotal(ctx context.Context, cartID uuid.UUID, total decimal.Decimal) error
	Clear(ctx context.Context, cartID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a cart repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	// lines come back in insertion order regardless of driver
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&cart, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) Create(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).Create(cart).Error
}

// UpsertItem inserts the line or, on the (cart_id, book_id) conflict, adds
// the incoming quantity to the existing line.
func (r *repository) UpsertItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "book_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity": gorm.Expr("quantity + ?", item.Quantity),
			}),
		}).
		Create(item).Error
}

func (r *repository) DeleteItem(ctx context.Context, cartID, bookID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND book_id = ?", cartID, bookID).
		Delete(&models.CartItem{}).Error
}

func (r *repository) UpdateItemQuantity(ctx context.Context, cartID, bookID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("cart_id = ? AND book_id = ?", cartID, bookID).
		Update("quantity", quantity).Error
}

func (r *repository) UpdateTotal(ctx context.Context, cartID uuid.UUID, total decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("total", total).Error
}

// Clear removes every line and zeroes the total.
func (r *repository) Clear(ctx context.Context, cartID uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return r.UpdateTotal(ctx, cartID, decimal.Zero)
}
