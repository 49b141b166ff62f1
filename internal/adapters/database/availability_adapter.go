package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

var windowColumns = []interface{}{
	"id", "provider_id", "kind", "starts_at", "ends_at", "booking_id", "note", "restore_open", "created_at",
}

type windowRow struct {
	ID          string              `db:"id"`
	ProviderID  string              `db:"provider_id"`
	Kind        entities.WindowKind `db:"kind"`
	StartsAt    time.Time           `db:"starts_at"`
	EndsAt      time.Time           `db:"ends_at"`
	BookingID   *string             `db:"booking_id"`
	Note        string              `db:"note"`
	RestoreOpen string              `db:"restore_open"`
	CreatedAt   time.Time           `db:"created_at"`
}

func (r *windowRow) toEntity() (*entities.AvailabilityWindow, error) {
	w := &entities.AvailabilityWindow{
		ID:         r.ID,
		ProviderID: r.ProviderID,
		Kind:       r.Kind,
		StartsAt:   r.StartsAt.UTC(),
		EndsAt:     r.EndsAt.UTC(),
		BookingID:  r.BookingID,
		Note:       r.Note,
		CreatedAt:  r.CreatedAt,
	}
	if r.RestoreOpen != "" {
		if err := json.Unmarshal([]byte(r.RestoreOpen), &w.RestoreOpen); err != nil {
			return nil, fmt.Errorf("decode restore_open of window %s: %w", r.ID, err)
		}
	}
	return w, nil
}

// AvailabilityAdapter implements the AvailabilityRepository interface
type AvailabilityAdapter struct {
	s *Store
}

// LockProvider takes a transaction-scoped advisory lock on the provider
func (a *AvailabilityAdapter) LockProvider(ctx context.Context, providerID string) error {
	if !a.s.inTx {
		return apperrors.NewInternalError("provider lock requires a transaction", nil)
	}
	if _, err := a.s.exec(ctx, "availability.lock", "SELECT pg_advisory_xact_lock(hashtext($1))", providerID); err != nil {
		return apperrors.NewInternalError("failed to lock provider availability", err)
	}
	return nil
}

// ListWindows returns windows overlapping or touching span
func (a *AvailabilityAdapter) ListWindows(ctx context.Context, providerID string, span entities.Interval) ([]*entities.AvailabilityWindow, error) {
	query, _, err := a.s.dialect.From("availability_windows").
		Select(windowColumns...).
		Where(
			goqu.Ex{"provider_id": providerID},
			goqu.C("starts_at").Lte(span.End),
			goqu.C("ends_at").Gte(span.Start),
		).
		Order(goqu.C("starts_at").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var rows []windowRow
	if err := a.s.selectAll(ctx, "availability.list", &rows, query); err != nil {
		return nil, apperrors.NewInternalError("failed to list availability", err)
	}
	windows := make([]*entities.AvailabilityWindow, 0, len(rows))
	for i := range rows {
		w, err := rows[i].toEntity()
		if err != nil {
			return nil, apperrors.NewInternalError("failed to decode availability window", err)
		}
		windows = append(windows, w)
	}
	return windows, nil
}

// GetWindow retrieves a window by ID
func (a *AvailabilityAdapter) GetWindow(ctx context.Context, id string) (*entities.AvailabilityWindow, error) {
	return a.getOne(ctx, "availability.get", goqu.Ex{"id": id}, fmt.Sprintf("availability window with id %s not found", id))
}

// GetReservation retrieves the blocked window held by a booking
func (a *AvailabilityAdapter) GetReservation(ctx context.Context, providerID, bookingID string) (*entities.AvailabilityWindow, error) {
	return a.getOne(ctx, "availability.get_reservation",
		goqu.Ex{"provider_id": providerID, "booking_id": bookingID},
		fmt.Sprintf("no reservation for booking %s", bookingID))
}

func (a *AvailabilityAdapter) getOne(ctx context.Context, op string, where goqu.Ex, notFound string) (*entities.AvailabilityWindow, error) {
	query, _, err := a.s.dialect.From("availability_windows").Select(windowColumns...).Where(where).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var row windowRow
	if err := a.s.get(ctx, op, &row, query); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NewNotFoundError(notFound)
		}
		return nil, apperrors.NewInternalError("failed to get availability window", err)
	}
	w, err := row.toEntity()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to decode availability window", err)
	}
	return w, nil
}

// InsertWindow stores a window
func (a *AvailabilityAdapter) InsertWindow(ctx context.Context, window *entities.AvailabilityWindow) error {
	restore := window.RestoreOpen
	if restore == nil {
		restore = []entities.Interval{}
	}
	restoreJSON, err := json.Marshal(restore)
	if err != nil {
		return apperrors.NewInternalError("failed to encode restore_open", err)
	}

	query, _, err := a.s.dialect.Insert("availability_windows").Rows(goqu.Record{
		"id":           window.ID,
		"provider_id":  window.ProviderID,
		"kind":         window.Kind,
		"starts_at":    window.StartsAt,
		"ends_at":      window.EndsAt,
		"booking_id":   window.BookingID,
		"note":         window.Note,
		"restore_open": string(restoreJSON),
		"created_at":   window.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.s.exec(ctx, "availability.insert", query); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError("booking already holds a reservation")
		}
		return apperrors.NewInternalError("failed to insert availability window", err)
	}
	return nil
}

// DeleteWindow removes a window
func (a *AvailabilityAdapter) DeleteWindow(ctx context.Context, id string) error {
	query, _, err := a.s.dialect.Delete("availability_windows").Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.s.exec(ctx, "availability.delete", query)
	if err != nil {
		return apperrors.NewInternalError("failed to delete availability window", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("availability window with id %s not found", id))
	}
	return nil
}
