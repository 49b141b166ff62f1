// Package memory is an in-process implementation of repositories.Store used
// for local runs and tests. Transactions are serialised and work on a
// copy-on-write snapshot that replaces the committed state on success.
package memory

import (
	"context"
	"sync"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/repositories"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

type state struct {
	users          map[string]entities.User
	providers      map[string]entities.Provider
	services       map[string]entities.Service
	windows        map[string]entities.AvailabilityWindow
	bookings       map[string]entities.Booking
	events         map[string]entities.BookingEventRecord
	eventKeys      map[string]string
	reviews        map[string]entities.Review
	transactions   map[string]entities.Transaction
	messages       map[string]entities.Message
	sideEffects    map[string]entities.SideEffect
	sideEffectKeys map[string]string
}

func newState() *state {
	return &state{
		users:          map[string]entities.User{},
		providers:      map[string]entities.Provider{},
		services:       map[string]entities.Service{},
		windows:        map[string]entities.AvailabilityWindow{},
		bookings:       map[string]entities.Booking{},
		events:         map[string]entities.BookingEventRecord{},
		eventKeys:      map[string]string{},
		reviews:        map[string]entities.Review{},
		transactions:   map[string]entities.Transaction{},
		messages:       map[string]entities.Message{},
		sideEffects:    map[string]entities.SideEffect{},
		sideEffectKeys: map[string]string{},
	}
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// clone copies the maps. Stored values never share mutable slices with
// callers, so a shallow copy per map is enough.
func (s *state) clone() *state {
	return &state{
		users:          copyMap(s.users),
		providers:      copyMap(s.providers),
		services:       copyMap(s.services),
		windows:        copyMap(s.windows),
		bookings:       copyMap(s.bookings),
		events:         copyMap(s.events),
		eventKeys:      copyMap(s.eventKeys),
		reviews:        copyMap(s.reviews),
		transactions:   copyMap(s.transactions),
		messages:       copyMap(s.messages),
		sideEffects:    copyMap(s.sideEffects),
		sideEffectKeys: copyMap(s.sideEffectKeys),
	}
}

type db struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   *state
}

// Store implements repositories.Store in memory
type Store struct {
	db *db
	tx *state
}

// Ensure Store implements repositories.Store
var _ repositories.Store = (*Store)(nil)

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{db: &db{st: newState()}}
}

func (s *Store) Accounts() repositories.AccountRepository         { return accounts{s} }
func (s *Store) Services() repositories.ServiceRepository         { return services{s} }
func (s *Store) Availability() repositories.AvailabilityRepository { return availability{s} }
func (s *Store) Bookings() repositories.BookingRepository         { return bookings{s} }
func (s *Store) Reviews() repositories.ReviewRepository           { return reviews{s} }
func (s *Store) Transactions() repositories.TransactionRepository { return transactions{s} }
func (s *Store) Messages() repositories.MessageRepository         { return messages{s} }
func (s *Store) SideEffects() repositories.SideEffectRepository   { return sideEffects{s} }
func (s *Store) Stats() repositories.StatsRepository              { return stats{s} }

// WithinTx runs fn against a private snapshot and publishes it if fn succeeds.
// Only one transaction runs at a time.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.Store) error) error {
	if s.tx != nil {
		return fn(ctx, s)
	}

	s.db.txMu.Lock()
	defer s.db.txMu.Unlock()

	s.db.mu.RLock()
	snapshot := s.db.st.clone()
	s.db.mu.RUnlock()

	if err := fn(ctx, &Store{db: s.db, tx: snapshot}); err != nil {
		return err
	}

	s.db.mu.Lock()
	s.db.st = snapshot
	s.db.mu.Unlock()
	return nil
}

func (s *Store) read(fn func(st *state) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return fn(s.db.st)
}

// write applies a single-statement change. Outside a transaction it is
// serialised with transactions so a commit cannot overwrite it.
func (s *Store) write(fn func(st *state) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.txMu.Lock()
	defer s.db.txMu.Unlock()
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fn(s.db.st)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func notFound(kind, id string) error {
	return apperrors.NewNotFoundError(kind + " with id " + id + " not found")
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
