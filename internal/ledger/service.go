package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hardcoverhq/bookstore-backend/pkg/db/models"
	pkgerrors "github.com/hardcoverhq/bookstore-backend/pkg/errors"
)

// Service exposes read access to the transaction ledger.
type Service interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error)
	ListAll(ctx context.Context) ([]models.Transaction, error)
}

type service struct {
	repo Repository
}

// NewService builds a ledger service backed by the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	transactions, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list transactions")
	}
	return transactions, nil
}

func (s *service) ListAll(ctx context.Context) ([]models.Transaction, error) {
	transactions, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list transactions")
	}
	return transactions, nil
}
