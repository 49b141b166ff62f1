package memory

import (
	"context"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
)

type stats struct{ s *Store }

func (r stats) ProviderStats(ctx context.Context, providerID string) (*entities.ProviderStats, error) {
	out := &entities.ProviderStats{ProviderID: providerID}
	err := r.s.read(func(st *state) error {
		captured := map[string]bool{}
		for _, b := range st.bookings {
			if b.ProviderID != providerID {
				continue
			}
			out.TotalBookings++
			if b.Status == entities.BookingCompleted {
				out.CompletedBookings++
			}
			if b.PaymentStatus == entities.PaymentCaptured {
				captured[b.ID] = true
			}
		}
		for _, tx := range st.transactions {
			if captured[tx.BookingID] {
				out.TotalEarnings += tx.PayoutAmount()
			}
		}

		var ratingSum int
		for _, rv := range st.reviews {
			if rv.ProviderID == providerID {
				out.TotalReviews++
				ratingSum += rv.Rating
			}
		}
		if out.TotalReviews > 0 {
			out.AverageRating = float64(ratingSum) / float64(out.TotalReviews)
		}

		responded := map[string]bool{}
		for _, e := range st.events {
			if e.Event != entities.EventAccept && e.Event != entities.EventDecline {
				continue
			}
			if b, ok := st.bookings[e.BookingID]; ok && b.ProviderID == providerID {
				responded[e.BookingID] = true
			}
		}
		if out.TotalBookings > 0 {
			out.ResponseRate = float64(len(responded)) / float64(out.TotalBookings)
		}
		return nil
	})
	return out, err
}

func (r stats) CustomerStats(ctx context.Context, customerID string) (*entities.CustomerStats, error) {
	out := &entities.CustomerStats{CustomerID: customerID}
	err := r.s.read(func(st *state) error {
		for _, b := range st.bookings {
			if b.CustomerID != customerID {
				continue
			}
			out.TotalBookings++
			if b.Status == entities.BookingCompleted {
				out.CompletedBookings++
			}
			if b.PaymentStatus == entities.PaymentCaptured {
				out.TotalSpent += b.Amount
			}
		}
		for _, rv := range st.reviews {
			if rv.CustomerID == customerID {
				out.ReviewsGiven++
			}
		}
		return nil
	})
	return out, err
}
