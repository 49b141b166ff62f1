package database

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/repositories"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

var transactionColumns = []interface{}{
	"id", "booking_id", "gateway_reference", "amount", "platform_fee",
	"currency", "payout_status", "created_at", "updated_at",
}

// TransactionAdapter implements the TransactionRepository interface
type TransactionAdapter struct {
	s *Store
}

// Create creates a new transaction
func (a *TransactionAdapter) Create(ctx context.Context, tx *entities.Transaction) error {
	query, _, err := a.s.dialect.Insert("transactions").Rows(goqu.Record{
		"id":                tx.ID,
		"booking_id":        tx.BookingID,
		"gateway_reference": tx.GatewayReference,
		"amount":            tx.Amount,
		"platform_fee":      tx.PlatformFee,
		"currency":          tx.Currency,
		"payout_status":     tx.PayoutStatus,
		"created_at":        tx.CreatedAt,
		"updated_at":        tx.UpdatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.s.exec(ctx, "transactions.create", query); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewDuplicateError(fmt.Sprintf("booking %s already has a transaction", tx.BookingID))
		}
		return apperrors.NewInternalError("failed to create transaction", err)
	}
	return nil
}

// GetByID retrieves a transaction by ID
func (a *TransactionAdapter) GetByID(ctx context.Context, id string) (*entities.Transaction, error) {
	return a.getOne(ctx, "transactions.get", goqu.Ex{"id": id}, fmt.Sprintf("transaction with id %s not found", id))
}

// GetByBooking retrieves the transaction of a booking
func (a *TransactionAdapter) GetByBooking(ctx context.Context, bookingID string) (*entities.Transaction, error) {
	return a.getOne(ctx, "transactions.get_by_booking", goqu.Ex{"booking_id": bookingID}, fmt.Sprintf("no transaction for booking %s", bookingID))
}

func (a *TransactionAdapter) getOne(ctx context.Context, op string, where goqu.Ex, notFound string) (*entities.Transaction, error) {
	query, _, err := a.s.dialect.From("transactions").Select(transactionColumns...).Where(where).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	tx := &entities.Transaction{}
	if err := a.s.get(ctx, op, tx, query); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NewNotFoundError(notFound)
		}
		return nil, apperrors.NewInternalError("failed to get transaction", err)
	}
	return tx, nil
}

// UpdatePayoutStatus conditionally moves the payout status
func (a *TransactionAdapter) UpdatePayoutStatus(ctx context.Context, id string, from, to entities.PayoutStatus) error {
	query, _, err := a.s.dialect.Update("transactions").
		Set(goqu.Record{"payout_status": to, "updated_at": time.Now().UTC()}).
		Where(goqu.Ex{"id": id, "payout_status": from}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.s.exec(ctx, "transactions.update_payout", query)
	if err != nil {
		return apperrors.NewInternalError("failed to update payout status", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return repositories.ErrVersionConflict
	}
	return nil
}
