package repositories

import (
	"context"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
)

// ServiceRepository defines the interface for the provider service catalog
type ServiceRepository interface {
	// Create creates a new service
	Create(ctx context.Context, service *entities.Service) error

	// GetByID retrieves a service by ID
	GetByID(ctx context.Context, id string) (*entities.Service, error)

	// GetByIDs retrieves multiple services by their IDs
	GetByIDs(ctx context.Context, ids []string) ([]*entities.Service, error)

	// Update updates a service, including its archived flag
	Update(ctx context.Context, service *entities.Service) error

	// ListByProvider lists a provider's services
	ListByProvider(ctx context.Context, providerID string, includeArchived bool) ([]*entities.Service, error)
}
