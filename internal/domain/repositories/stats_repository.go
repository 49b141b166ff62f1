package repositories

import (
	"context"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
)

// StatsRepository computes aggregate dashboards
type StatsRepository interface {
	ProviderStats(ctx context.Context, providerID string) (*entities.ProviderStats, error)
	CustomerStats(ctx context.Context, customerID string) (*entities.CustomerStats, error)
}
