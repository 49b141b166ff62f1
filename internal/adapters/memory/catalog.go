package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

func copyUser(u entities.User) *entities.User {
	if u.Location != nil {
		loc := *u.Location
		u.Location = &loc
	}
	return &u
}

func copyProvider(p entities.Provider) *entities.Provider {
	p.ServiceCategories = append([]entities.ServiceCategory(nil), p.ServiceCategories...)
	p.PortfolioURLs = cloneStrings(p.PortfolioURLs)
	p.VerifiedBadges = cloneStrings(p.VerifiedBadges)
	return &p
}

func copyService(svc entities.Service) *entities.Service {
	svc.Tags = cloneStrings(svc.Tags)
	return &svc
}

type accounts struct{ s *Store }

func (r accounts) CreateUser(ctx context.Context, user *entities.User) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.users[user.ID]; ok {
			return apperrors.NewConflictError("an account already exists for this user or email")
		}
		for _, existing := range st.users {
			if strings.EqualFold(existing.Email, user.Email) {
				return apperrors.NewConflictError("an account already exists for this user or email")
			}
		}
		st.users[user.ID] = *copyUser(*user)
		return nil
	})
}

func (r accounts) GetUser(ctx context.Context, id string) (*entities.User, error) {
	var out *entities.User
	err := r.s.read(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return notFound("user", id)
		}
		out = copyUser(u)
		return nil
	})
	return out, err
}

func (r accounts) GetUsersByIDs(ctx context.Context, ids []string) ([]*entities.User, error) {
	out := []*entities.User{}
	err := r.s.read(func(st *state) error {
		for _, id := range ids {
			if u, ok := st.users[id]; ok {
				out = append(out, copyUser(u))
			}
		}
		return nil
	})
	return out, err
}

func (r accounts) CreateProvider(ctx context.Context, provider *entities.Provider) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.users[provider.UserID]; !ok {
			return notFound("user", provider.UserID)
		}
		if _, ok := st.providers[provider.UserID]; ok {
			return apperrors.NewConflictError("provider profile already exists")
		}
		st.providers[provider.UserID] = *copyProvider(*provider)
		return nil
	})
}

func (r accounts) GetProvider(ctx context.Context, userID string) (*entities.Provider, error) {
	var out *entities.Provider
	err := r.s.read(func(st *state) error {
		p, ok := st.providers[userID]
		if !ok {
			return notFound("provider", userID)
		}
		out = copyProvider(p)
		return nil
	})
	return out, err
}

func (r accounts) UpdateProvider(ctx context.Context, provider *entities.Provider) error {
	return r.s.write(func(st *state) error {
		existing, ok := st.providers[provider.UserID]
		if !ok {
			return notFound("provider", provider.UserID)
		}
		updated := *copyProvider(*provider)
		updated.CreatedAt = existing.CreatedAt
		st.providers[provider.UserID] = updated
		return nil
	})
}

func (r accounts) ListProviders(ctx context.Context, limit, offset int) ([]*entities.Provider, error) {
	var all []*entities.Provider
	err := r.s.read(func(st *state) error {
		for _, p := range st.providers {
			all = append(all, copyProvider(p))
		}
		return nil
	})
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].UserID < all[j].UserID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return page(all, limit, offset), err
}

type services struct{ s *Store }

func (r services) Create(ctx context.Context, service *entities.Service) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.services[service.ID]; ok {
			return apperrors.NewConflictError("service already exists")
		}
		st.services[service.ID] = *copyService(*service)
		return nil
	})
}

func (r services) GetByID(ctx context.Context, id string) (*entities.Service, error) {
	var out *entities.Service
	err := r.s.read(func(st *state) error {
		svc, ok := st.services[id]
		if !ok {
			return notFound("service", id)
		}
		out = copyService(svc)
		return nil
	})
	return out, err
}

func (r services) GetByIDs(ctx context.Context, ids []string) ([]*entities.Service, error) {
	out := []*entities.Service{}
	err := r.s.read(func(st *state) error {
		for _, id := range ids {
			if svc, ok := st.services[id]; ok {
				out = append(out, copyService(svc))
			}
		}
		return nil
	})
	return out, err
}

func (r services) Update(ctx context.Context, service *entities.Service) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.services[service.ID]; !ok {
			return notFound("service", service.ID)
		}
		st.services[service.ID] = *copyService(*service)
		return nil
	})
}

func (r services) ListByProvider(ctx context.Context, providerID string, includeArchived bool) ([]*entities.Service, error) {
	out := []*entities.Service{}
	err := r.s.read(func(st *state) error {
		for _, svc := range st.services {
			if svc.ProviderID == providerID && (includeArchived || !svc.Archived) {
				out = append(out, copyService(svc))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}
