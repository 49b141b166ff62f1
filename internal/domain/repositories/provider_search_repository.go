package repositories

import (
	"context"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
)

// ProviderSearchRepository defines the interface for provider discovery (e.g. Typesense)
type ProviderSearchRepository interface {
	// InitSchema ensures the search collection exists
	InitSchema(ctx context.Context) error

	// Index upserts a provider document
	Index(ctx context.Context, doc *entities.ProviderDocument) error

	// Delete removes a provider from the index
	Delete(ctx context.Context, providerID string) error

	// Search searches providers
	Search(ctx context.Context, params ProviderSearchParams) (*ProviderSearchResult, error)
}

// ProviderSearchParams defines parameters for provider search
type ProviderSearchParams struct {
	Query         string
	Categories    []string
	MinRating     float64
	MaxHourlyRate int64
	Latitude      *float64
	Longitude     *float64
	RadiusKm      float64
	Page          int
	PerPage       int
}

// ProviderSearchResult is one page of search hits
type ProviderSearchResult struct {
	Providers  []*entities.ProviderDocument `json:"providers"`
	TotalCount int                          `json:"total_count"`
	Page       int                          `json:"page"`
	Facets     map[string]map[string]int    `json:"facets,omitempty"`
}
