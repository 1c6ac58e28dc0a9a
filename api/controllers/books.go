package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hardcoverhq/bookstore-backend/api/responses"
	"github.com/hardcoverhq/bookstore-backend/api/validators"
	"github.com/hardcoverhq/bookstore-backend/internal/books"
	"github.com/hardcoverhq/bookstore-backend/pkg/db/models"
	pkgerrors "github.com/hardcoverhq/bookstore-backend/pkg/errors"
	"github.com/hardcoverhq/bookstore-backend/pkg/logger"
)

type createBookRequest struct {
	Title           string           `json:"title" validate:"required"`
	Author          string           `json:"author" validate:"required"`
	Year            int              `json:"year" validate:"required,gt=0"`
	Description     string           `json:"description"`
	Language        string           `json:"language" validate:"required"`
	Category        string           `json:"category" validate:"required"`
	ISBN            string           `json:"isbn" validate:"required"`
	Price           decimal.Decimal  `json:"price"`
	DiscountPercent *decimal.Decimal `json:"discount_percent,omitempty"`
	Stock           int              `json:"stock" validate:"min=0"`
}

type bookResponse struct {
	ID              uuid.UUID        `json:"id"`
	Title           string           `json:"title"`
	Author          string           `json:"author"`
	Year            int              `json:"year"`
	Description     string           `json:"description"`
	Language        string           `json:"language"`
	Category        string           `json:"category"`
	ISBN            string           `json:"isbn"`
	Price           decimal.Decimal  `json:"price"`
	DiscountPercent *decimal.Decimal `json:"discount_percent,omitempty"`
	Stock           int              `json:"stock"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func newBookResponse(book *models.Book) bookResponse {
	return bookResponse{
		ID:              book.ID,
		Title:           book.Title,
		Author:          book.Author,
		Year:            book.Year,
		Description:     book.Description,
		Language:        book.Language,
		Category:        book.Category,
		ISBN:            book.ISBN,
		Price:           book.Price,
		DiscountPercent: book.DiscountPercent,
		Stock:           book.Stock,
		CreatedAt:       book.CreatedAt,
		UpdatedAt:       book.UpdatedAt,
	}
}

// BooksList returns the full catalog.
func BooksList(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		listing, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]bookResponse, 0, len(listing))
		for i := range listing {
			out = append(out, newBookResponse(&listing[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func BooksGet(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "bookID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid book id"))
			return
		}

		book, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newBookResponse(book))
	}
}

// BooksCreate adds a catalog listing; restricted to admins by the router.
func BooksCreate(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var body createBookRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		book, err := svc.Create(r.Context(), books.CreateBookInput{
			Title:           body.Title,
			Author:          body.Author,
			Year:            body.Year,
			Description:     body.Description,
			Language:        body.Language,
			Category:        body.Category,
			ISBN:            body.ISBN,
			Price:           body.Price,
			DiscountPercent: body.DiscountPercent,
			Stock:           body.Stock,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newBookResponse(book))
	}
}
