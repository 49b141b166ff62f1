package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/zatekoja/servicemarket/internal/domain/repositories"
	"github.com/zatekoja/servicemarket/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/servicemarket/internal/infrastructure/observability"
)

// querier is satisfied by both *sqlx.DB and *sqlx.Tx
type querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Store implements repositories.Store on PostgreSQL
type Store struct {
	client  *postgres.Client
	q       querier
	inTx    bool
	dialect goqu.DialectWrapper
	metrics *observability.Metrics
}

// Ensure Store implements repositories.Store
var _ repositories.Store = (*Store)(nil)

// NewStore creates a new PostgreSQL store. metrics may be nil.
func NewStore(client *postgres.Client, metrics *observability.Metrics) *Store {
	return &Store{
		client:  client,
		q:       client.DB(),
		dialect: goqu.Dialect("postgres"),
		metrics: metrics,
	}
}

func (s *Store) Accounts() repositories.AccountRepository         { return &AccountAdapter{s: s} }
func (s *Store) Services() repositories.ServiceRepository         { return &ServiceAdapter{s: s} }
func (s *Store) Availability() repositories.AvailabilityRepository { return &AvailabilityAdapter{s: s} }
func (s *Store) Bookings() repositories.BookingRepository         { return &BookingAdapter{s: s} }
func (s *Store) Reviews() repositories.ReviewRepository           { return &ReviewAdapter{s: s} }
func (s *Store) Transactions() repositories.TransactionRepository { return &TransactionAdapter{s: s} }
func (s *Store) Messages() repositories.MessageRepository         { return &MessageAdapter{s: s} }
func (s *Store) SideEffects() repositories.SideEffectRepository   { return &SideEffectAdapter{s: s} }
func (s *Store) Stats() repositories.StatsRepository              { return &StatsAdapter{s: s} }

// WithinTx runs fn in a database transaction
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	return s.client.WithTx(ctx, func(tx *sqlx.Tx) error {
		return fn(ctx, &Store{
			client:  s.client,
			q:       tx,
			inTx:    true,
			dialect: s.dialect,
			metrics: s.metrics,
		})
	})
}

func (s *Store) observe(ctx context.Context, op string, start time.Time) {
	if s.metrics == nil {
		return
	}
	observability.RecordDBMetric(ctx, s.metrics, op, time.Since(start))
}

func (s *Store) exec(ctx context.Context, op, query string, args ...interface{}) (sql.Result, error) {
	defer s.observe(ctx, op, time.Now())
	return s.q.ExecContext(ctx, query, args...)
}

func (s *Store) get(ctx context.Context, op string, dest interface{}, query string, args ...interface{}) error {
	defer s.observe(ctx, op, time.Now())
	return s.q.GetContext(ctx, dest, query, args...)
}

func (s *Store) selectAll(ctx context.Context, op string, dest interface{}, query string, args ...interface{}) error {
	defer s.observe(ctx, op, time.Now())
	return s.q.SelectContext(ctx, dest, query, args...)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func pagination(limit, offset int) (uint, uint) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return uint(limit), uint(offset)
}
