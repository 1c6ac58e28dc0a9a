package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hardcoverhq/bookstore-backend/api/responses"
	"github.com/hardcoverhq/bookstore-backend/internal/checkout"
	"github.com/hardcoverhq/bookstore-backend/pkg/db/models"
	pkgerrors "github.com/hardcoverhq/bookstore-backend/pkg/errors"
	"github.com/hardcoverhq/bookstore-backend/pkg/logger"
)

type transactionItemResponse struct {
	BookID    uuid.UUID       `json:"book_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type transactionResponse struct {
	ID        uuid.UUID                 `json:"id"`
	Total     decimal.Decimal           `json:"total"`
	Items     []transactionItemResponse `json:"items"`
	CreatedAt time.Time                 `json:"created_at"`
}

func newTransactionResponse(record *models.Transaction) transactionResponse {
	items := make([]transactionItemResponse, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, transactionItemResponse{
			BookID:    item.BookID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return transactionResponse{
		ID:        record.ID,
		Total:     record.Total,
		Items:     items,
		CreatedAt: record.CreatedAt,
	}
}

// CheckoutExecute settles the caller's cart in a single transaction and
// returns the resulting ledger record.
func CheckoutExecute(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Execute(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newTransactionResponse(record))
	}
}
