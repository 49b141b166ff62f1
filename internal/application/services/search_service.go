package services

import (
	"context"
	"fmt"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/repositories"
	"github.com/zatekoja/servicemarket/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

// ProviderIndexer refreshes a provider's search document. Failures are
// logged, never returned, since the index is rebuilt by cmd/indexer anyway.
type ProviderIndexer interface {
	ReindexProvider(ctx context.Context, providerID string)
}

// SearchService handles provider discovery
type SearchService struct {
	store  repositories.Store
	search repositories.ProviderSearchRepository
}

// NewSearchService creates a new search service. A nil search repository
// disables discovery and turns re-indexing into a no-op.
func NewSearchService(store repositories.Store, search repositories.ProviderSearchRepository) *SearchService {
	return &SearchService{store: store, search: search}
}

// SearchProviders runs a discovery query
func (s *SearchService) SearchProviders(ctx context.Context, params repositories.ProviderSearchParams) (*repositories.ProviderSearchResult, error) {
	if s.search == nil {
		return nil, apperrors.NewExternalError("provider search is not configured", nil)
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 || params.PerPage > 100 {
		params.PerPage = 20
	}
	if (params.Latitude == nil) != (params.Longitude == nil) {
		return nil, apperrors.NewValidationError("lat and lon must be given together")
	}
	if params.Latitude != nil && params.RadiusKm <= 0 {
		params.RadiusKm = 25
	}
	for _, c := range params.Categories {
		if !validCategory(entities.ServiceCategory(c)) {
			return nil, apperrors.NewValidationError(fmt.Sprintf("unknown service category %q", c))
		}
	}

	result, err := s.search.Search(ctx, params)
	if err != nil {
		return nil, apperrors.NewExternalError("provider search failed", err)
	}
	return result, nil
}

// ReindexProvider upserts the provider's search document
func (s *SearchService) ReindexProvider(ctx context.Context, providerID string) {
	if s.search == nil {
		return
	}
	doc, err := s.document(ctx, providerID)
	if err == nil {
		err = s.search.Index(ctx, doc)
	}
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Str("provider_id", providerID).
			Msg("failed to re-index provider")
	}
}

// ReindexAll rebuilds every provider document and returns how many were indexed
func (s *SearchService) ReindexAll(ctx context.Context) (int, error) {
	if s.search == nil {
		return 0, apperrors.NewExternalError("provider search is not configured", nil)
	}
	if err := s.search.InitSchema(ctx); err != nil {
		return 0, fmt.Errorf("failed to init search schema: %w", err)
	}

	const pageSize = 100
	indexed := 0
	for offset := 0; ; offset += pageSize {
		batch, err := s.store.Accounts().ListProviders(ctx, pageSize, offset)
		if err != nil {
			return indexed, err
		}
		for _, p := range batch {
			doc, err := s.document(ctx, p.UserID)
			if err != nil {
				return indexed, err
			}
			if err := s.search.Index(ctx, doc); err != nil {
				return indexed, fmt.Errorf("failed to index provider %s: %w", p.UserID, err)
			}
			indexed++
		}
		if len(batch) < pageSize {
			return indexed, nil
		}
	}
}

func (s *SearchService) document(ctx context.Context, providerID string) (*entities.ProviderDocument, error) {
	p, err := s.store.Accounts().GetProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	user, err := s.store.Accounts().GetUser(ctx, providerID)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.Stats().ProviderStats(ctx, providerID)
	if err != nil {
		return nil, err
	}
	return &entities.ProviderDocument{
		ID:                p.UserID,
		BusinessName:      p.BusinessName,
		Bio:               p.Bio,
		ServiceCategories: p.CategoryStrings(),
		HourlyRateMin:     p.HourlyRateMin,
		HourlyRateMax:     p.HourlyRateMax,
		Rating:            stats.AverageRating,
		ReviewCount:       stats.TotalReviews,
		Insurance:         p.Insurance,
		Location:          user.Location,
		CreatedAt:         p.CreatedAt.Unix(),
	}, nil
}

func validCategory(c entities.ServiceCategory) bool {
	for _, known := range entities.ServiceCategories {
		if c == known {
			return true
		}
	}
	return false
}
