package books

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hardcoverhq/bookstore-backend/pkg/db/models"
)

// ErrStockConflict signals that a guarded stock decrement touched fewer
// rows than requested: some line was oversold or its book disappeared.
var ErrStockConflict = errors.New("stock conflict")

// StockUpdate is one line of a bulk stock decrement.
type StockUpdate struct {
	BookID   uuid.UUID
	Quantity int
}

// Repository manages persistence for the catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, book *models.Book) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Book, error)
	List(ctx context.Context) ([]models.Book, error)
	FindMany(ctx context.Context, ids []uuid.UUID) ([]models.Book, error)
	DecrementStock(ctx context.Context, updates []StockUpdate) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, book *models.Book) error {
	return r.db.WithContext(ctx).Create(book).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	var book models.Book
	if err := r.db.WithContext(ctx).First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *repository) List(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

// FindMany returns the books matching ids. Stale ids simply yield fewer
// rows; callers compare lengths.
func (r *repository) FindMany(ctx context.Context, ids []uuid.UUID) ([]models.Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var books []models.Book
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

// DecrementStock applies every update in a single guarded UPDATE. The guard
// re-checks stock at write time, so the statement only touches rows that
// can absorb the decrement; anything less than a full match returns
// ErrStockConflict. Rows that could absorb their line are still written
// before the count is compared, so callers must run this inside a
// transaction and roll back on ErrStockConflict.
func (r *repository) DecrementStock(ctx context.Context, updates []StockUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	caseExpr, caseArgs := stockCaseExpr(updates)

	ids := make([]any, 0, len(updates))
	for _, u := range updates {
		ids = append(ids, u.BookID)
	}

	var sb strings.Builder
	sb.WriteString("UPDATE books SET stock = stock - ")
	sb.WriteString(caseExpr)
	sb.WriteString(", updated_at = ? WHERE id IN (")
	sb.WriteString(placeholders(len(updates)))
	sb.WriteString(") AND stock >= ")
	sb.WriteString(caseExpr)

	args := make([]any, 0, 4*len(updates)+1)
	args = append(args, caseArgs...)
	args = append(args, time.Now().UTC())
	args = append(args, ids...)
	args = append(args, caseArgs...)

	res := r.db.WithContext(ctx).Exec(sb.String(), args...)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != int64(len(updates)) {
		return ErrStockConflict
	}
	return nil
}

func stockCaseExpr(updates []StockUpdate) (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, 2*len(updates))
	sb.WriteString("CASE id")
	for _, u := range updates {
		sb.WriteString(" WHEN ? THEN ?")
		args = append(args, u.BookID, u.Quantity)
	}
	sb.WriteString(" END")
	return sb.String(), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
