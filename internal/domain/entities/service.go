package entities

import (
	"time"
)

// PriceType is how a service is charged
type PriceType string

const (
	PriceTypeFixed  PriceType = "fixed"
	PriceTypeHourly PriceType = "hourly"
)

// Service is an offering owned by exactly one provider. Prices are in minor currency units.
type Service struct {
	ID          string    `json:"id" db:"id"`
	ProviderID  string    `json:"provider_id" db:"provider_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description,omitempty" db:"description"`
	PriceType   PriceType `json:"price_type" db:"price_type"`
	UnitPrice   int64     `json:"unit_price" db:"unit_price"`
	MinHours    float64   `json:"min_hours,omitempty" db:"min_hours"`
	Tags        []string  `json:"tags,omitempty"`
	Archived    bool      `json:"archived" db:"archived"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ServiceSummary is the slice of a service embedded in booking listings
type ServiceSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	PriceType PriceType `json:"price_type"`
	UnitPrice int64     `json:"unit_price"`
}

// Summary returns the listing view of the service.
func (s *Service) Summary() *ServiceSummary {
	return &ServiceSummary{ID: s.ID, Title: s.Title, PriceType: s.PriceType, UnitPrice: s.UnitPrice}
}
