package repositories

import (
	"context"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
)

// AccountRepository defines the interface for user and provider profile operations
type AccountRepository interface {
	// CreateUser creates a new user. An existing id or email yields a CONFLICT error.
	CreateUser(ctx context.Context, user *entities.User) error

	// GetUser retrieves a user by ID
	GetUser(ctx context.Context, id string) (*entities.User, error)

	// GetUsersByIDs retrieves multiple users by their IDs
	GetUsersByIDs(ctx context.Context, ids []string) ([]*entities.User, error)

	// CreateProvider creates the provider profile of an existing user
	CreateProvider(ctx context.Context, provider *entities.Provider) error

	// GetProvider retrieves a provider profile by user ID
	GetProvider(ctx context.Context, userID string) (*entities.Provider, error)

	// UpdateProvider updates a provider profile
	UpdateProvider(ctx context.Context, provider *entities.Provider) error

	// ListProviders pages through all provider profiles
	ListProviders(ctx context.Context, limit, offset int) ([]*entities.Provider, error)
}
