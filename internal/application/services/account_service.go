package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/providers"
	"github.com/zatekoja/servicemarket/internal/domain/repositories"
	"github.com/zatekoja/servicemarket/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

const providerProfileTTLSeconds = 300

// ProviderProfileInput is the provider part of a signup
type ProviderProfileInput struct {
	BusinessName      string   `json:"business_name" validate:"required,max=200"`
	Bio               string   `json:"bio" validate:"max=2000"`
	YearsExperience   int      `json:"years_experience" validate:"gte=0,max=80"`
	ServiceCategories []string `json:"service_categories" validate:"required,min=1,dive,category"`
	HourlyRateMin     int64    `json:"hourly_rate_min" validate:"gte=0"`
	HourlyRateMax     int64    `json:"hourly_rate_max" validate:"gte=0"`
	BasePrice         int64    `json:"base_price" validate:"gte=0"`
	Insurance         bool     `json:"insurance"`
}

// CreateAccountInput is the input of CreateAccount
type CreateAccountInput struct {
	Email     string                `json:"email" validate:"required,email"`
	Phone     string                `json:"phone" validate:"max=32"`
	Name      string                `json:"name" validate:"required,max=200"`
	Role      entities.UserRole     `json:"role" validate:"required,role"`
	AvatarURL string                `json:"avatar_url" validate:"omitempty,url"`
	Address   string                `json:"address" validate:"max=500"`
	Location  *entities.Location    `json:"location"`
	Provider  *ProviderProfileInput `json:"provider" validate:"omitempty"`
}

// ProviderPatch carries the profile fields a provider may change
type ProviderPatch struct {
	BusinessName      *string  `json:"business_name" validate:"omitempty,max=200"`
	Bio               *string  `json:"bio" validate:"omitempty,max=2000"`
	YearsExperience   *int     `json:"years_experience" validate:"omitempty,gte=0,max=80"`
	ServiceCategories []string `json:"service_categories" validate:"omitempty,min=1,dive,category"`
	HourlyRateMin     *int64   `json:"hourly_rate_min" validate:"omitempty,gte=0"`
	HourlyRateMax     *int64   `json:"hourly_rate_max" validate:"omitempty,gte=0"`
	BasePrice         *int64   `json:"base_price" validate:"omitempty,gte=0"`
	PortfolioURLs     []string `json:"portfolio_urls" validate:"omitempty,max=20,dive,url"`
	Insurance         *bool    `json:"insurance"`
}

// ProviderProfile is the public view of a provider
type ProviderProfile struct {
	*entities.Provider
	Name      string             `json:"name"`
	AvatarURL string             `json:"avatar_url,omitempty"`
	Location  *entities.Location `json:"location,omitempty"`
	Verified  bool               `json:"verified"`
}

// AccountService handles signup and profiles
type AccountService struct {
	store   repositories.Store
	cache   providers.CacheProvider
	indexer ProviderIndexer
	metrics *observability.Metrics
	now     func() time.Time
}

// NewAccountService creates a new account service. cache and indexer may be nil.
func NewAccountService(store repositories.Store, cache providers.CacheProvider, indexer ProviderIndexer) *AccountService {
	return &AccountService{store: store, cache: cache, indexer: indexer, now: time.Now}
}

// SetMetrics enables cache hit and miss counters for provider profiles
func (s *AccountService) SetMetrics(metrics *observability.Metrics) {
	s.metrics = metrics
}

// CreateAccount creates the caller's user row and, for providers, the
// provider profile in one transaction.
func (s *AccountService) CreateAccount(ctx context.Context, id entities.Identity, in CreateAccountInput) (*entities.Account, error) {
	if id.IsZero() {
		return nil, apperrors.NewUnauthorizedError("authentication required")
	}
	switch in.Role {
	case entities.RoleCustomer, entities.RoleProvider:
	default:
		return nil, apperrors.NewValidationError("role must be customer or provider")
	}
	if id.Role != "" && id.Role != in.Role {
		return nil, apperrors.NewForbiddenError(fmt.Sprintf("token role %s does not match requested role %s", id.Role, in.Role))
	}
	if in.Role == entities.RoleProvider && in.Provider == nil {
		return nil, apperrors.NewValidationError("provider profile is required for providers")
	}
	if in.Role == entities.RoleCustomer && in.Provider != nil {
		return nil, apperrors.NewValidationError("only providers have a provider profile")
	}

	now := s.now().UTC()
	account := &entities.Account{
		User: &entities.User{
			ID:        id.UserID,
			Email:     in.Email,
			Phone:     in.Phone,
			Name:      in.Name,
			Role:      in.Role,
			AvatarURL: in.AvatarURL,
			Address:   in.Address,
			Location:  in.Location,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	if in.Provider != nil {
		account.Provider = &entities.Provider{
			UserID:            id.UserID,
			BusinessName:      in.Provider.BusinessName,
			Bio:               in.Provider.Bio,
			YearsExperience:   in.Provider.YearsExperience,
			ServiceCategories: toCategories(in.Provider.ServiceCategories),
			HourlyRateMin:     in.Provider.HourlyRateMin,
			HourlyRateMax:     in.Provider.HourlyRateMax,
			BasePrice:         in.Provider.BasePrice,
			Insurance:         in.Provider.Insurance,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := validateProfile(account.Provider); err != nil {
			return nil, err
		}
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		if err := tx.Accounts().CreateUser(ctx, account.User); err != nil {
			return err
		}
		if account.Provider != nil {
			return tx.Accounts().CreateProvider(ctx, account.Provider)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if account.Provider != nil && s.indexer != nil {
		s.indexer.ReindexProvider(ctx, id.UserID)
	}
	return account, nil
}

// GetAccount returns the caller's account
func (s *AccountService) GetAccount(ctx context.Context, id entities.Identity) (*entities.Account, error) {
	if id.IsZero() {
		return nil, apperrors.NewUnauthorizedError("authentication required")
	}
	user, err := s.store.Accounts().GetUser(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	account := &entities.Account{User: user}
	if user.Role == entities.RoleProvider {
		if account.Provider, err = s.store.Accounts().GetProvider(ctx, user.ID); err != nil {
			return nil, err
		}
	}
	return account, nil
}

// GetProvider returns a provider's public profile, cached for a few minutes
func (s *AccountService) GetProvider(ctx context.Context, providerID string) (*ProviderProfile, error) {
	key := providerCacheKey(providerID)
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err == nil && len(raw) > 0 {
			var cached ProviderProfile
			if json.Unmarshal(raw, &cached) == nil && cached.Provider != nil {
				observability.RecordCacheHit(ctx, s.metrics, "provider_profile")
				return &cached, nil
			}
		}
		observability.RecordCacheMiss(ctx, s.metrics, "provider_profile")
	}

	p, err := s.store.Accounts().GetProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	user, err := s.store.Accounts().GetUser(ctx, providerID)
	if err != nil {
		return nil, err
	}
	profile := &ProviderProfile{
		Provider:  p,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		Location:  user.Location,
		Verified:  user.Verified,
	}

	if s.cache != nil {
		if raw, err := json.Marshal(profile); err == nil {
			if err := s.cache.Set(ctx, key, raw, providerProfileTTLSeconds); err != nil {
				observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("failed to cache provider profile")
			}
		}
	}
	return profile, nil
}

// UpdateProviderProfile applies a patch to the caller's provider profile
func (s *AccountService) UpdateProviderProfile(ctx context.Context, id entities.Identity, patch ProviderPatch) (*entities.Provider, error) {
	if err := Authorize(id, ActionManageProfile, &Subject{ProviderID: id.UserID}); err != nil {
		return nil, err
	}
	p, err := s.store.Accounts().GetProvider(ctx, id.UserID)
	if err != nil {
		return nil, err
	}

	if patch.BusinessName != nil {
		p.BusinessName = *patch.BusinessName
	}
	if patch.Bio != nil {
		p.Bio = *patch.Bio
	}
	if patch.YearsExperience != nil {
		p.YearsExperience = *patch.YearsExperience
	}
	if patch.ServiceCategories != nil {
		p.ServiceCategories = toCategories(patch.ServiceCategories)
	}
	if patch.HourlyRateMin != nil {
		p.HourlyRateMin = *patch.HourlyRateMin
	}
	if patch.HourlyRateMax != nil {
		p.HourlyRateMax = *patch.HourlyRateMax
	}
	if patch.BasePrice != nil {
		p.BasePrice = *patch.BasePrice
	}
	if patch.PortfolioURLs != nil {
		p.PortfolioURLs = patch.PortfolioURLs
	}
	if patch.Insurance != nil {
		p.Insurance = *patch.Insurance
	}
	if err := validateProfile(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now().UTC()

	if err := s.store.Accounts().UpdateProvider(ctx, p); err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, providerCacheKey(p.UserID)); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("provider_id", p.UserID).Msg("failed to invalidate provider profile cache")
		}
	}
	if s.indexer != nil {
		s.indexer.ReindexProvider(ctx, p.UserID)
	}
	return p, nil
}

func validateProfile(p *entities.Provider) error {
	if p.BusinessName == "" {
		return apperrors.NewValidationError("business_name is required")
	}
	if len(p.ServiceCategories) == 0 {
		return apperrors.NewValidationError("at least one service category is required")
	}
	for _, c := range p.ServiceCategories {
		if !validCategory(c) {
			return apperrors.NewValidationError(fmt.Sprintf("unknown service category %q", c))
		}
	}
	if p.HourlyRateMin < 0 || p.HourlyRateMax < 0 || p.BasePrice < 0 {
		return apperrors.NewValidationError("rates must not be negative")
	}
	if p.HourlyRateMin > p.HourlyRateMax {
		return apperrors.NewValidationError("hourly_rate_min must not exceed hourly_rate_max")
	}
	return nil
}

func toCategories(in []string) []entities.ServiceCategory {
	out := make([]entities.ServiceCategory, len(in))
	for i, c := range in {
		out[i] = entities.ServiceCategory(c)
	}
	return out
}

func providerCacheKey(providerID string) string {
	return "provider:profile:" + providerID
}
