package books

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hardcoverhq/bookstore-backend/pkg/db"
	"github.com/hardcoverhq/bookstore-backend/pkg/db/models"
	pkgerrors "github.com/hardcoverhq/bookstore-backend/pkg/errors"
)

// Service exposes catalog operations.
type Service interface {
	Create(ctx context.Context, input CreateBookInput) (*models.Book, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Book, error)
	List(ctx context.Context) ([]models.Book, error)
}

type service struct {
	repo Repository
}

// NewService builds a catalog service backed by the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

// CreateBookInput captures the payload required to list a new title.
type CreateBookInput struct {
	Title           string
	Author          string
	Year            int
	Description     string
	Language        string
	Category        string
	ISBN            string
	Price           decimal.Decimal
	DiscountPercent *decimal.Decimal
	Stock           int
}

func (s *service) Create(ctx context.Context, input CreateBookInput) (*models.Book, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if strings.TrimSpace(input.Author) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "author is required")
	}
	if strings.TrimSpace(input.ISBN) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "isbn is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be non-negative")
	}
	if input.DiscountPercent != nil {
		pct := *input.DiscountPercent
		if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount percent must be between 0 and 100")
		}
	}

	book := &models.Book{
		Title:           strings.TrimSpace(input.Title),
		Author:          strings.TrimSpace(input.Author),
		Year:            input.Year,
		Description:     input.Description,
		Language:        input.Language,
		Category:        input.Category,
		ISBN:            strings.TrimSpace(input.ISBN),
		Price:           input.Price,
		DiscountPercent: input.DiscountPercent,
		Stock:           input.Stock,
	}

	if err := s.repo.Create(ctx, book); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a book with this isbn already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create book")
	}
	return book, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book id is required")
	}
	book, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load book")
	}
	return book, nil
}

func (s *service) List(ctx context.Context) ([]models.Book, error) {
	books, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list books")
	}
	return books, nil
}
