package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/repositories"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

// ServiceInput is the editable part of a service
type ServiceInput struct {
	Title       string             `json:"title" validate:"required,max=200"`
	Description string             `json:"description" validate:"max=2000"`
	PriceType   entities.PriceType `json:"price_type" validate:"required,price_type"`
	UnitPrice   int64              `json:"unit_price" validate:"gt=0"`
	MinHours    float64            `json:"min_hours" validate:"gte=0"`
	Tags        []string           `json:"tags" validate:"max=20"`
}

// CatalogService handles the provider service catalog
type CatalogService struct {
	store repositories.Store
	now   func() time.Time
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store repositories.Store) *CatalogService {
	return &CatalogService{store: store, now: time.Now}
}

// CreateService adds a service to the caller's catalog
func (s *CatalogService) CreateService(ctx context.Context, id entities.Identity, in ServiceInput) (*entities.Service, error) {
	if err := Authorize(id, ActionManageCatalog, &Subject{ProviderID: id.UserID}); err != nil {
		return nil, err
	}
	if id.Role != entities.RoleProvider {
		return nil, apperrors.NewForbiddenError("only providers own services")
	}
	if _, err := s.store.Accounts().GetProvider(ctx, id.UserID); err != nil {
		return nil, err
	}
	if err := validateServiceInput(in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	svc := &entities.Service{
		ID:          uuid.New().String(),
		ProviderID:  id.UserID,
		Title:       in.Title,
		Description: in.Description,
		PriceType:   in.PriceType,
		UnitPrice:   in.UnitPrice,
		MinHours:    in.MinHours,
		Tags:        in.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Services().Create(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// UpdateService replaces the editable fields of a service
func (s *CatalogService) UpdateService(ctx context.Context, id entities.Identity, serviceID string, in ServiceInput) (*entities.Service, error) {
	svc, err := s.owned(ctx, id, serviceID)
	if err != nil {
		return nil, err
	}
	if err := validateServiceInput(in); err != nil {
		return nil, err
	}
	svc.Title = in.Title
	svc.Description = in.Description
	svc.PriceType = in.PriceType
	svc.UnitPrice = in.UnitPrice
	svc.MinHours = in.MinHours
	svc.Tags = in.Tags
	svc.UpdatedAt = s.now().UTC()
	if err := s.store.Services().Update(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// ArchiveService soft-archives a service; existing bookings keep referencing it
func (s *CatalogService) ArchiveService(ctx context.Context, id entities.Identity, serviceID string) (*entities.Service, error) {
	svc, err := s.owned(ctx, id, serviceID)
	if err != nil {
		return nil, err
	}
	if svc.Archived {
		return svc, nil
	}
	svc.Archived = true
	svc.UpdatedAt = s.now().UTC()
	if err := s.store.Services().Update(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// GetService retrieves a service
func (s *CatalogService) GetService(ctx context.Context, serviceID string) (*entities.Service, error) {
	return s.store.Services().GetByID(ctx, serviceID)
}

// ListProviderServices lists a provider's services. Archived services are
// only shown to their owner.
func (s *CatalogService) ListProviderServices(ctx context.Context, id entities.Identity, providerID string) ([]*entities.Service, error) {
	includeArchived := !id.IsZero() && (id.UserID == providerID || id.Role == entities.RoleAdmin)
	return s.store.Services().ListByProvider(ctx, providerID, includeArchived)
}

func (s *CatalogService) owned(ctx context.Context, id entities.Identity, serviceID string) (*entities.Service, error) {
	svc, err := s.store.Services().GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(id, ActionManageCatalog, &Subject{ProviderID: svc.ProviderID}); err != nil {
		return nil, err
	}
	return svc, nil
}

func validateServiceInput(in ServiceInput) error {
	if in.Title == "" {
		return apperrors.NewValidationError("title is required")
	}
	switch in.PriceType {
	case entities.PriceTypeFixed, entities.PriceTypeHourly:
	default:
		return apperrors.NewValidationError("price_type must be fixed or hourly")
	}
	if in.UnitPrice <= 0 {
		return apperrors.NewValidationError("unit_price must be positive")
	}
	if in.MinHours < 0 {
		return apperrors.NewValidationError("min_hours must not be negative")
	}
	return nil
}
