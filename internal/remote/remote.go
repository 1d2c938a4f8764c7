// Package remote mirrors day records and profiles into a PostgreSQL database.
// Every query is scoped to the calling user's id.
package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// BreakerConfig controls when the store stops calling a failing database
type BreakerConfig struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// DefaultBreakerConfig trips after 3 straight failures and retries after 30s
var DefaultBreakerConfig = BreakerConfig{ConsecutiveFailures: 3, OpenTimeout: 30 * time.Second}

// Store is the remote relational mirror
type Store struct {
	db      *sql.DB
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// Open connects to PostgreSQL, runs pending migrations and returns a Store
func Open(ctx context.Context, dsn string, bc BreakerConfig, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening remote database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging remote database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)

	runner, err := NewMigrationsRunner(db, logger.Named("migrations"))
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := runner.Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return NewWithDB(db, bc, logger), nil
}

// NewWithDB wraps an already open, migrated database
func NewWithDB(db *sql.DB, bc BreakerConfig, logger *zap.Logger) *Store {
	logger = logger.Named("remote")
	if bc.ConsecutiveFailures == 0 {
		bc = DefaultBreakerConfig
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "remote-store",
		Timeout: bc.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bc.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Store{db: db, breaker: breaker, logger: logger}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// run executes fn through the circuit breaker. ErrNotFound is an answer, not
// a failure, so it does not count against the breaker.
func (s *Store) run(fn func() error) error {
	var notFound bool
	_, err := s.breaker.Execute(func() (interface{}, error) {
		err := fn()
		if errors.Is(err, ErrNotFound) {
			notFound = true
			return nil, nil
		}
		return nil, err
	})
	if notFound {
		return ErrNotFound
	}
	return err
}

// withTx runs fn in a transaction, rolling back on any error
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.run(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("starting transaction: %w", err)
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing transaction: %w", err)
		}
		return nil
	})
}
