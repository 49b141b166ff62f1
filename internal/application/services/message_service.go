package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/repositories"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

const messagePreviewRunes = 80

// MessageInput is the input of SendMessage
type MessageInput struct {
	Text        string   `json:"text" validate:"required,max=4000"`
	Attachments []string `json:"attachments" validate:"max=10,dive,url"`
}

// MessageService carries notes between the two parties of a booking
type MessageService struct {
	store  repositories.Store
	kicker Kicker
	now    func() time.Time
}

// NewMessageService creates a new message service. kicker may be nil.
func NewMessageService(store repositories.Store, kicker Kicker) *MessageService {
	if kicker == nil {
		kicker = noopKicker{}
	}
	return &MessageService{store: store, kicker: kicker, now: time.Now}
}

// SendMessage sends a message to the other party of the booking
func (s *MessageService) SendMessage(ctx context.Context, id entities.Identity, bookingID string, in MessageInput) (*entities.Message, error) {
	b, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	subject := BookingSubject(b)
	if err := Authorize(id, ActionMessage, &subject); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, apperrors.NewValidationError("message text must not be empty")
	}

	now := s.now().UTC()
	msg := &entities.Message{
		ID:          uuid.New().String(),
		BookingID:   b.ID,
		FromUserID:  id.UserID,
		ToUserID:    b.Counterparty(id.UserID),
		Text:        text,
		Attachments: in.Attachments,
		CreatedAt:   now,
	}
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		if err := tx.Messages().Create(ctx, msg); err != nil {
			return err
		}
		return enqueueNotify(ctx, tx, sideEffectKey(msg.ID, "notify"), msg.ToUserID,
			entities.NotificationMessageReceived, b.ID, map[string]string{
				"preview": preview(text),
			}, now)
	})
	if err != nil {
		return nil, err
	}
	s.kicker.Kick()
	return msg, nil
}

// ListMessages returns the conversation of a booking, oldest first
func (s *MessageService) ListMessages(ctx context.Context, id entities.Identity, bookingID string) ([]*entities.Message, error) {
	b, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	subject := BookingSubject(b)
	if err := Authorize(id, ActionMessage, &subject); err != nil {
		return nil, err
	}
	return s.store.Messages().ListByBooking(ctx, b.ID)
}

// MarkRead marks a message as read. Only the recipient may do so.
func (s *MessageService) MarkRead(ctx context.Context, id entities.Identity, messageID string) (*entities.Message, error) {
	if id.IsZero() {
		return nil, apperrors.NewUnauthorizedError("authentication required")
	}
	msg, err := s.store.Messages().GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.ToUserID != id.UserID {
		return nil, apperrors.NewForbiddenError("only the recipient can mark a message as read")
	}
	if msg.Read {
		return msg, nil
	}
	if err := s.store.Messages().MarkRead(ctx, msg.ID); err != nil {
		return nil, err
	}
	msg.Read = true
	return msg, nil
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= messagePreviewRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:messagePreviewRunes]) + "..."
}
