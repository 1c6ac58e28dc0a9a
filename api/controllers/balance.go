package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hardcoverhq/bookstore-backend/api/responses"
	"github.com/hardcoverhq/bookstore-backend/api/validators"
	balancesvc "github.com/hardcoverhq/bookstore-backend/internal/balance"
	"github.com/hardcoverhq/bookstore-backend/pkg/db/models"
	pkgerrors "github.com/hardcoverhq/bookstore-backend/pkg/errors"
	"github.com/hardcoverhq/bookstore-backend/pkg/logger"
)

type topUpRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type balanceResponse struct {
	Amount    decimal.Decimal `json:"amount"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func newBalanceResponse(record *models.Balance) balanceResponse {
	return balanceResponse{
		Amount:    record.Amount,
		UpdatedAt: record.UpdatedAt,
	}
}

// BalanceGet returns the caller's funds, zero when no row exists yet.
func BalanceGet(svc balancesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "balance service unavailable"))
			return
		}

		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newBalanceResponse(record))
	}
}

func BalanceTopUp(svc balancesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "balance service unavailable"))
			return
		}

		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body topUpRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.TopUp(r.Context(), userID, body.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newBalanceResponse(record))
	}
}
