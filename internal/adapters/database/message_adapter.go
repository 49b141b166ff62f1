package database

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

var messageColumns = []interface{}{
	"id", "booking_id", "from_user_id", "to_user_id", "text", "attachments", "read", "created_at",
}

type messageRow struct {
	ID          string         `db:"id"`
	BookingID   string         `db:"booking_id"`
	FromUserID  string         `db:"from_user_id"`
	ToUserID    string         `db:"to_user_id"`
	Text        string         `db:"text"`
	Attachments pq.StringArray `db:"attachments"`
	Read        bool           `db:"read"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r *messageRow) toEntity() *entities.Message {
	return &entities.Message{
		ID:          r.ID,
		BookingID:   r.BookingID,
		FromUserID:  r.FromUserID,
		ToUserID:    r.ToUserID,
		Text:        r.Text,
		Attachments: r.Attachments,
		Read:        r.Read,
		CreatedAt:   r.CreatedAt,
	}
}

// MessageAdapter implements the MessageRepository interface
type MessageAdapter struct {
	s *Store
}

// Create creates a new message
func (a *MessageAdapter) Create(ctx context.Context, message *entities.Message) error {
	query, _, err := a.s.dialect.Insert("messages").Rows(goqu.Record{
		"id":           message.ID,
		"booking_id":   message.BookingID,
		"from_user_id": message.FromUserID,
		"to_user_id":   message.ToUserID,
		"text":         message.Text,
		"attachments":  pq.StringArray(message.Attachments),
		"read":         message.Read,
		"created_at":   message.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.s.exec(ctx, "messages.create", query); err != nil {
		return apperrors.NewInternalError("failed to create message", err)
	}
	return nil
}

// GetByID retrieves a message by ID
func (a *MessageAdapter) GetByID(ctx context.Context, id string) (*entities.Message, error) {
	query, _, err := a.s.dialect.From("messages").Select(messageColumns...).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var row messageRow
	if err := a.s.get(ctx, "messages.get", &row, query); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("message with id %s not found", id))
		}
		return nil, apperrors.NewInternalError("failed to get message", err)
	}
	return row.toEntity(), nil
}

// ListByBooking returns the conversation of a booking, oldest first
func (a *MessageAdapter) ListByBooking(ctx context.Context, bookingID string) ([]*entities.Message, error) {
	query, _, err := a.s.dialect.From("messages").
		Select(messageColumns...).
		Where(goqu.Ex{"booking_id": bookingID}).
		Order(goqu.C("created_at").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var rows []messageRow
	if err := a.s.selectAll(ctx, "messages.list", &rows, query); err != nil {
		return nil, apperrors.NewInternalError("failed to list messages", err)
	}
	messages := make([]*entities.Message, 0, len(rows))
	for i := range rows {
		messages = append(messages, rows[i].toEntity())
	}
	return messages, nil
}

// MarkRead flags a message as read
func (a *MessageAdapter) MarkRead(ctx context.Context, id string) error {
	query, _, err := a.s.dialect.Update("messages").Set(goqu.Record{"read": true}).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.s.exec(ctx, "messages.mark_read", query)
	if err != nil {
		return apperrors.NewInternalError("failed to mark message read", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("message with id %s not found", id))
	}
	return nil
}
