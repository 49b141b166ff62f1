package database

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

var serviceColumns = []interface{}{
	"id", "provider_id", "title", "description", "price_type", "unit_price",
	"min_hours", "tags", "archived", "created_at", "updated_at",
}

type serviceRow struct {
	ID          string             `db:"id"`
	ProviderID  string             `db:"provider_id"`
	Title       string             `db:"title"`
	Description string             `db:"description"`
	PriceType   entities.PriceType `db:"price_type"`
	UnitPrice   int64              `db:"unit_price"`
	MinHours    float64            `db:"min_hours"`
	Tags        pq.StringArray     `db:"tags"`
	Archived    bool               `db:"archived"`
	CreatedAt   time.Time          `db:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at"`
}

func (r *serviceRow) toEntity() *entities.Service {
	return &entities.Service{
		ID:          r.ID,
		ProviderID:  r.ProviderID,
		Title:       r.Title,
		Description: r.Description,
		PriceType:   r.PriceType,
		UnitPrice:   r.UnitPrice,
		MinHours:    r.MinHours,
		Tags:        r.Tags,
		Archived:    r.Archived,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// ServiceAdapter implements the ServiceRepository interface
type ServiceAdapter struct {
	s *Store
}

// Create creates a new service
func (a *ServiceAdapter) Create(ctx context.Context, service *entities.Service) error {
	query, _, err := a.s.dialect.Insert("services").Rows(goqu.Record{
		"id":          service.ID,
		"provider_id": service.ProviderID,
		"title":       service.Title,
		"description": service.Description,
		"price_type":  service.PriceType,
		"unit_price":  service.UnitPrice,
		"min_hours":   service.MinHours,
		"tags":        pq.StringArray(service.Tags),
		"archived":    service.Archived,
		"created_at":  service.CreatedAt,
		"updated_at":  service.UpdatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.s.exec(ctx, "services.create", query); err != nil {
		return apperrors.NewInternalError("failed to create service", err)
	}
	return nil
}

// GetByID retrieves a service by ID
func (a *ServiceAdapter) GetByID(ctx context.Context, id string) (*entities.Service, error) {
	query, _, err := a.s.dialect.From("services").Select(serviceColumns...).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var row serviceRow
	if err := a.s.get(ctx, "services.get", &row, query); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("service with id %s not found", id))
		}
		return nil, apperrors.NewInternalError("failed to get service", err)
	}
	return row.toEntity(), nil
}

// GetByIDs retrieves multiple services by their IDs
func (a *ServiceAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Service, error) {
	if len(ids) == 0 {
		return []*entities.Service{}, nil
	}
	query, _, err := a.s.dialect.From("services").Select(serviceColumns...).Where(goqu.Ex{"id": ids}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}
	return a.list(ctx, "services.get_many", query)
}

// Update updates a service
func (a *ServiceAdapter) Update(ctx context.Context, service *entities.Service) error {
	query, _, err := a.s.dialect.Update("services").Set(goqu.Record{
		"title":       service.Title,
		"description": service.Description,
		"price_type":  service.PriceType,
		"unit_price":  service.UnitPrice,
		"min_hours":   service.MinHours,
		"tags":        pq.StringArray(service.Tags),
		"archived":    service.Archived,
		"updated_at":  service.UpdatedAt,
	}).Where(goqu.Ex{"id": service.ID}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.s.exec(ctx, "services.update", query)
	if err != nil {
		return apperrors.NewInternalError("failed to update service", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("service with id %s not found", service.ID))
	}
	return nil
}

// ListByProvider lists a provider's services
func (a *ServiceAdapter) ListByProvider(ctx context.Context, providerID string, includeArchived bool) ([]*entities.Service, error) {
	ds := a.s.dialect.From("services").Select(serviceColumns...).Where(goqu.Ex{"provider_id": providerID})
	if !includeArchived {
		ds = ds.Where(goqu.Ex{"archived": false})
	}
	query, _, err := ds.Order(goqu.C("created_at").Asc()).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}
	return a.list(ctx, "services.list_by_provider", query)
}

func (a *ServiceAdapter) list(ctx context.Context, op, query string) ([]*entities.Service, error) {
	var rows []serviceRow
	if err := a.s.selectAll(ctx, op, &rows, query); err != nil {
		return nil, apperrors.NewInternalError("failed to list services", err)
	}
	services := make([]*entities.Service, 0, len(rows))
	for i := range rows {
		services = append(services, rows[i].toEntity())
	}
	return services, nil
}
