package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

var userColumns = []interface{}{
	"id", "email", "phone", "name", "role", "avatar_url", "address",
	"location_lat", "location_lon", "verified", "last_login", "created_at", "updated_at",
}

var providerColumns = []interface{}{
	"user_id", "business_name", "bio", "years_experience", "service_categories",
	"hourly_rate_min", "hourly_rate_max", "base_price", "portfolio_urls",
	"verified_badges", "insurance", "created_at", "updated_at",
}

type userRow struct {
	ID          string            `db:"id"`
	Email       string            `db:"email"`
	Phone       string            `db:"phone"`
	Name        string            `db:"name"`
	Role        entities.UserRole `db:"role"`
	AvatarURL   string            `db:"avatar_url"`
	Address     string            `db:"address"`
	LocationLat sql.NullFloat64   `db:"location_lat"`
	LocationLon sql.NullFloat64   `db:"location_lon"`
	Verified    bool              `db:"verified"`
	LastLogin   *time.Time        `db:"last_login"`
	CreatedAt   time.Time         `db:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"`
}

func (r *userRow) toEntity() *entities.User {
	u := &entities.User{
		ID:        r.ID,
		Email:     r.Email,
		Phone:     r.Phone,
		Name:      r.Name,
		Role:      r.Role,
		AvatarURL: r.AvatarURL,
		Address:   r.Address,
		Verified:  r.Verified,
		LastLogin: r.LastLogin,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.LocationLat.Valid && r.LocationLon.Valid {
		u.Location = &entities.Location{Latitude: r.LocationLat.Float64, Longitude: r.LocationLon.Float64}
	}
	return u
}

type providerRow struct {
	UserID            string         `db:"user_id"`
	BusinessName      string         `db:"business_name"`
	Bio               string         `db:"bio"`
	YearsExperience   int            `db:"years_experience"`
	ServiceCategories pq.StringArray `db:"service_categories"`
	HourlyRateMin     int64          `db:"hourly_rate_min"`
	HourlyRateMax     int64          `db:"hourly_rate_max"`
	BasePrice         int64          `db:"base_price"`
	PortfolioURLs     pq.StringArray `db:"portfolio_urls"`
	VerifiedBadges    pq.StringArray `db:"verified_badges"`
	Insurance         bool           `db:"insurance"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func (r *providerRow) toEntity() *entities.Provider {
	categories := make([]entities.ServiceCategory, len(r.ServiceCategories))
	for i, c := range r.ServiceCategories {
		categories[i] = entities.ServiceCategory(c)
	}
	return &entities.Provider{
		UserID:            r.UserID,
		BusinessName:      r.BusinessName,
		Bio:               r.Bio,
		YearsExperience:   r.YearsExperience,
		ServiceCategories: categories,
		HourlyRateMin:     r.HourlyRateMin,
		HourlyRateMax:     r.HourlyRateMax,
		BasePrice:         r.BasePrice,
		PortfolioURLs:     r.PortfolioURLs,
		VerifiedBadges:    r.VerifiedBadges,
		Insurance:         r.Insurance,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func providerRecord(p *entities.Provider) goqu.Record {
	return goqu.Record{
		"business_name":      p.BusinessName,
		"bio":                p.Bio,
		"years_experience":   p.YearsExperience,
		"service_categories": pq.StringArray(p.CategoryStrings()),
		"hourly_rate_min":    p.HourlyRateMin,
		"hourly_rate_max":    p.HourlyRateMax,
		"base_price":         p.BasePrice,
		"portfolio_urls":     pq.StringArray(p.PortfolioURLs),
		"verified_badges":    pq.StringArray(p.VerifiedBadges),
		"insurance":          p.Insurance,
		"updated_at":         p.UpdatedAt,
	}
}

// AccountAdapter implements the AccountRepository interface
type AccountAdapter struct {
	s *Store
}

// CreateUser creates a new user
func (a *AccountAdapter) CreateUser(ctx context.Context, user *entities.User) error {
	record := goqu.Record{
		"id":         user.ID,
		"email":      user.Email,
		"phone":      user.Phone,
		"name":       user.Name,
		"role":       user.Role,
		"avatar_url": user.AvatarURL,
		"address":    user.Address,
		"verified":   user.Verified,
		"last_login": user.LastLogin,
		"created_at": user.CreatedAt,
		"updated_at": user.UpdatedAt,
	}
	if user.Location != nil {
		record["location_lat"] = user.Location.Latitude
		record["location_lon"] = user.Location.Longitude
	}

	query, _, err := a.s.dialect.Insert("users").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.s.exec(ctx, "users.create", query); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError("an account already exists for this user or email")
		}
		return apperrors.NewInternalError("failed to create user", err)
	}
	return nil
}

// GetUser retrieves a user by ID
func (a *AccountAdapter) GetUser(ctx context.Context, id string) (*entities.User, error) {
	query, _, err := a.s.dialect.From("users").Select(userColumns...).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var row userRow
	if err := a.s.get(ctx, "users.get", &row, query); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("user with id %s not found", id))
		}
		return nil, apperrors.NewInternalError("failed to get user", err)
	}
	return row.toEntity(), nil
}

// GetUsersByIDs retrieves multiple users by their IDs
func (a *AccountAdapter) GetUsersByIDs(ctx context.Context, ids []string) ([]*entities.User, error) {
	if len(ids) == 0 {
		return []*entities.User{}, nil
	}
	query, _, err := a.s.dialect.From("users").Select(userColumns...).Where(goqu.Ex{"id": ids}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var rows []userRow
	if err := a.s.selectAll(ctx, "users.get_many", &rows, query); err != nil {
		return nil, apperrors.NewInternalError("failed to get users", err)
	}
	users := make([]*entities.User, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].toEntity())
	}
	return users, nil
}

// CreateProvider creates the provider profile of an existing user
func (a *AccountAdapter) CreateProvider(ctx context.Context, provider *entities.Provider) error {
	record := providerRecord(provider)
	record["user_id"] = provider.UserID
	record["created_at"] = provider.CreatedAt

	query, _, err := a.s.dialect.Insert("providers").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.s.exec(ctx, "providers.create", query); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError("provider profile already exists")
		}
		return apperrors.NewInternalError("failed to create provider", err)
	}
	return nil
}

// GetProvider retrieves a provider profile by user ID
func (a *AccountAdapter) GetProvider(ctx context.Context, userID string) (*entities.Provider, error) {
	query, _, err := a.s.dialect.From("providers").Select(providerColumns...).Where(goqu.Ex{"user_id": userID}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var row providerRow
	if err := a.s.get(ctx, "providers.get", &row, query); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("provider with id %s not found", userID))
		}
		return nil, apperrors.NewInternalError("failed to get provider", err)
	}
	return row.toEntity(), nil
}

// UpdateProvider updates a provider profile
func (a *AccountAdapter) UpdateProvider(ctx context.Context, provider *entities.Provider) error {
	query, _, err := a.s.dialect.Update("providers").
		Set(providerRecord(provider)).
		Where(goqu.Ex{"user_id": provider.UserID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.s.exec(ctx, "providers.update", query)
	if err != nil {
		return apperrors.NewInternalError("failed to update provider", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("provider with id %s not found", provider.UserID))
	}
	return nil
}

// ListProviders pages through all provider profiles
func (a *AccountAdapter) ListProviders(ctx context.Context, limit, offset int) ([]*entities.Provider, error) {
	lim, off := pagination(limit, offset)
	query, _, err := a.s.dialect.From("providers").
		Select(providerColumns...).
		Order(goqu.C("created_at").Asc(), goqu.C("user_id").Asc()).
		Limit(lim).
		Offset(off).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var rows []providerRow
	if err := a.s.selectAll(ctx, "providers.list", &rows, query); err != nil {
		return nil, apperrors.NewInternalError("failed to list providers", err)
	}
	providers := make([]*entities.Provider, 0, len(rows))
	for i := range rows {
		providers = append(providers, rows[i].toEntity())
	}
	return providers, nil
}
