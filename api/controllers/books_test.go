package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hardcoverhq/bookstore-backend/internal/books"
	"github.com/hardcoverhq/bookstore-backend/pkg/db/models"
	pkgerrors "github.com/hardcoverhq/bookstore-backend/pkg/errors"
)

type stubBooksService struct {
	book     *models.Book
	listing  []models.Book
	err      error
	gotInput books.CreateBookInput
}

func (s *stubBooksService) Create(ctx context.Context, input books.CreateBookInput) (*models.Book, error) {
	s.gotInput = input
	return s.book, s.err
}

func (s *stubBooksService) Get(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	return s.book, s.err
}

func (s *stubBooksService) List(ctx context.Context) ([]models.Book, error) {
	return s.listing, s.err
}

func routedRequest(method, target, param, value string, body string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rc := chi.NewRouteContext()
	rc.URLParams.Add(param, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestBooksListReturnsCatalog(t *testing.T) {
	t.Parallel()

	svc := &stubBooksService{listing: []models.Book{
		{ID: uuid.New(), Title: "Sapiens", Price: decimal.RequireFromString("19.99"), Stock: 5},
		{ID: uuid.New(), Title: "Dune", Price: decimal.RequireFromString("12.50"), Stock: 2},
	}}

	resp := httptest.NewRecorder()
	BooksList(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/books", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data []bookResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 2 || envelope.Data[0].Title != "Sapiens" {
		t.Fatalf("unexpected listing: %+v", envelope.Data)
	}
}

func TestBooksGetInvalidID(t *testing.T) {
	resp := httptest.NewRecorder()
	req := routedRequest(http.MethodGet, "/api/v1/books/not-a-uuid", "bookID", "not-a-uuid", "")
	BooksGet(&stubBooksService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestBooksGetNotFound(t *testing.T) {
	svc := &stubBooksService{err: pkgerrors.New(pkgerrors.CodeNotFound, "book not found")}
	id := uuid.NewString()

	resp := httptest.NewRecorder()
	req := routedRequest(http.MethodGet, "/api/v1/books/"+id, "bookID", id, "")
	BooksGet(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestBooksCreatePassesInput(t *testing.T) {
	svc := &stubBooksService{book: &models.Book{ID: uuid.New(), Title: "Sapiens"}}

	body := `{"title":"Sapiens","author":"Yuval Noah Harari","year":2011,"language":"en","category":"history","isbn":"9780062316097","price":"19.99","stock":5}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/books", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp := httptest.NewRecorder()
	BooksCreate(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if svc.gotInput.ISBN != "9780062316097" {
		t.Fatalf("unexpected isbn: %s", svc.gotInput.ISBN)
	}
	if !svc.gotInput.Price.Equal(decimal.RequireFromString("19.99")) {
		t.Fatalf("unexpected price: %s", svc.gotInput.Price)
	}
}

func TestBooksCreateValidationError(t *testing.T) {
	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/books", strings.NewReader(`{"title":"No Author"}`))
	req.Header.Set("Content-Type", "application/json")
	BooksCreate(&stubBooksService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
