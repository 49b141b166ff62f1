package memory

import (
	"context"
	"sort"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
)

type messages struct{ s *Store }

func (r messages) Create(ctx context.Context, message *entities.Message) error {
	return r.s.write(func(st *state) error {
		m := *message
		m.Attachments = cloneStrings(m.Attachments)
		st.messages[m.ID] = m
		return nil
	})
}

func (r messages) GetByID(ctx context.Context, id string) (*entities.Message, error) {
	var out *entities.Message
	err := r.s.read(func(st *state) error {
		m, ok := st.messages[id]
		if !ok {
			return notFound("message", id)
		}
		m.Attachments = cloneStrings(m.Attachments)
		out = &m
		return nil
	})
	return out, err
}

func (r messages) ListByBooking(ctx context.Context, bookingID string) ([]*entities.Message, error) {
	out := []*entities.Message{}
	err := r.s.read(func(st *state) error {
		for _, m := range st.messages {
			if m.BookingID == bookingID {
				msg := m
				msg.Attachments = cloneStrings(m.Attachments)
				out = append(out, &msg)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

func (r messages) MarkRead(ctx context.Context, id string) error {
	return r.s.write(func(st *state) error {
		m, ok := st.messages[id]
		if !ok {
			return notFound("message", id)
		}
		m.Read = true
		st.messages[id] = m
		return nil
	})
}
