package repositories

import (
	"context"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
)

// MessageRepository defines the interface for booking messages
type MessageRepository interface {
	Create(ctx context.Context, message *entities.Message) error
	GetByID(ctx context.Context, id string) (*entities.Message, error)
	ListByBooking(ctx context.Context, bookingID string) ([]*entities.Message, error)
	MarkRead(ctx context.Context, id string) error
}
