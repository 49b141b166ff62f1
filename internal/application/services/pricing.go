package services

import (
	"time"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/pkg/config"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

// PricingPolicy computes booking amounts and fees in minor currency units
type PricingPolicy struct {
	PlatformFeeBps     int
	CancellationWindow time.Duration
	CancellationFeeBps int
}

// NewPricingPolicy builds the policy from booking settings
func NewPricingPolicy(cfg config.BookingConfig) PricingPolicy {
	return PricingPolicy{
		PlatformFeeBps:     cfg.PlatformFeeBps,
		CancellationWindow: cfg.CancellationWindow,
		CancellationFeeBps: cfg.CancellationFeeBps,
	}
}

// Quote returns the amount and platform fee of booking svc for slot.
// Hourly services are billed per started minute, never below MinHours.
func (p PricingPolicy) Quote(svc *entities.Service, slot entities.Interval) (amount, fee int64, err error) {
	switch svc.PriceType {
	case entities.PriceTypeFixed:
		amount = svc.UnitPrice
	case entities.PriceTypeHourly:
		minutes := int64((slot.Duration() + time.Minute - 1) / time.Minute)
		if minMinutes := int64(svc.MinHours * 60); minutes < minMinutes {
			minutes = minMinutes
		}
		amount = (svc.UnitPrice*minutes + 30) / 60
	default:
		return 0, 0, apperrors.NewValidationError("service has an unknown price type")
	}
	return amount, bps(amount, p.PlatformFeeBps), nil
}

// CancellationFee is charged when an accepted booking is cancelled inside
// the cancellation window before its start.
func (p PricingPolicy) CancellationFee(b *entities.Booking, now time.Time) int64 {
	if b.Status != entities.BookingAccepted || p.CancellationFeeBps == 0 {
		return 0
	}
	if now.Before(b.ScheduledStart.Add(-p.CancellationWindow)) {
		return 0
	}
	return bps(b.Amount, p.CancellationFeeBps)
}

// bps returns basis points of amount, rounded half up.
func bps(amount int64, points int) int64 {
	return (amount*int64(points) + 5000) / 10000
}
