package loaders

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/repositories"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

type ctxKey string

const loadersKey ctxKey = "dataloaders"

// Loaders batches the lookups booking listings fan out into
type Loaders struct {
	ServiceLoader *dataloader.Loader[string, *entities.Service]
	UserLoader    *dataloader.Loader[string, *entities.User]
}

// NewLoaders creates request-scoped loaders over the store
func NewLoaders(store repositories.Store) *Loaders {
	return &Loaders{
		ServiceLoader: dataloader.NewBatchedLoader(
			batch(store.Services().GetByIDs, func(s *entities.Service) string { return s.ID }, "service"),
			dataloader.WithWait[string, *entities.Service](2*time.Millisecond),
		),
		UserLoader: dataloader.NewBatchedLoader(
			batch(store.Accounts().GetUsersByIDs, func(u *entities.User) string { return u.ID }, "user"),
			dataloader.WithWait[string, *entities.User](2*time.Millisecond),
		),
	}
}

// batch turns a GetByIDs repository call into a dataloader batch function
// whose results line up with keys.
func batch[V any](fetch func(context.Context, []string) ([]V, error), idOf func(V) string, kind string) dataloader.BatchFunc[string, V] {
	return func(ctx context.Context, keys []string) []*dataloader.Result[V] {
		results := make([]*dataloader.Result[V], len(keys))
		items, err := fetch(ctx, keys)

		byID := make(map[string]V, len(items))
		if err == nil {
			for _, item := range items {
				byID[idOf(item)] = item
			}
		}

		for i, key := range keys {
			if err != nil {
				results[i] = &dataloader.Result[V]{Error: err}
			} else if item, ok := byID[key]; ok {
				results[i] = &dataloader.Result[V]{Data: item}
			} else {
				results[i] = &dataloader.Result[V]{Error: apperrors.NewNotFoundError(fmt.Sprintf("%s %s", kind, key))}
			}
		}
		return results
	}
}

// For returns the loaders for a given context, or nil when none are attached
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(loadersKey).(*Loaders)
	return l
}

// WithLoaders returns a new context with the loaders attached
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}

// Middleware attaches fresh loaders to every request so cached entries never
// outlive the request that loaded them.
func Middleware(store repositories.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithLoaders(r.Context(), NewLoaders(store))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
