package entities

import (
	"time"
)

// ServiceCategory is one of the fixed trades a provider can offer
type ServiceCategory string

const (
	CategoryPlumber         ServiceCategory = "plumber"
	CategoryElectrician     ServiceCategory = "electrician"
	CategoryCleaner         ServiceCategory = "cleaner"
	CategoryPainter         ServiceCategory = "painter"
	CategoryCarpenter       ServiceCategory = "carpenter"
	CategoryHVAC            ServiceCategory = "hvac"
	CategoryGardener        ServiceCategory = "gardener"
	CategoryLocksmith       ServiceCategory = "locksmith"
	CategoryHandyman        ServiceCategory = "handyman"
	CategoryMover           ServiceCategory = "mover"
	CategoryPestControl     ServiceCategory = "pest_control"
	CategoryApplianceRepair ServiceCategory = "appliance_repair"
)

// ServiceCategories lists every supported category in display order.
var ServiceCategories = []ServiceCategory{
	CategoryPlumber, CategoryElectrician, CategoryCleaner, CategoryPainter,
	CategoryCarpenter, CategoryHVAC, CategoryGardener, CategoryLocksmith,
	CategoryHandyman, CategoryMover, CategoryPestControl, CategoryApplianceRepair,
}

// Provider is the one-to-one profile extension of a provider user
type Provider struct {
	UserID            string            `json:"user_id" db:"user_id"`
	BusinessName      string            `json:"business_name" db:"business_name"`
	Bio               string            `json:"bio,omitempty" db:"bio"`
	YearsExperience   int               `json:"years_experience" db:"years_experience"`
	ServiceCategories []ServiceCategory `json:"service_categories"`
	HourlyRateMin     int64             `json:"hourly_rate_min" db:"hourly_rate_min"`
	HourlyRateMax     int64             `json:"hourly_rate_max" db:"hourly_rate_max"`
	BasePrice         int64             `json:"base_price" db:"base_price"`
	PortfolioURLs     []string          `json:"portfolio_urls,omitempty"`
	VerifiedBadges    []string          `json:"verified_badges,omitempty"`
	Insurance         bool              `json:"insurance" db:"insurance"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
}

// CategoryStrings returns the categories as plain strings for storage and search.
func (p *Provider) CategoryStrings() []string {
	out := make([]string, len(p.ServiceCategories))
	for i, c := range p.ServiceCategories {
		out[i] = string(c)
	}
	return out
}

// ProviderDocument is the denormalised provider view kept in the search index
type ProviderDocument struct {
	ID                string    `json:"id"`
	BusinessName      string    `json:"business_name"`
	Bio               string    `json:"bio,omitempty"`
	ServiceCategories []string  `json:"service_categories"`
	HourlyRateMin     int64     `json:"hourly_rate_min"`
	HourlyRateMax     int64     `json:"hourly_rate_max"`
	Rating            float64   `json:"rating"`
	ReviewCount       int       `json:"review_count"`
	Insurance         bool      `json:"insurance"`
	Location          *Location `json:"location,omitempty"`
	CreatedAt         int64     `json:"created_at"`
}
