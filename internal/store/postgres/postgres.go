// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/eventboard/internal/model"
	"github.com/alfredjeanlab/eventboard/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ConnectTimeout bounds how long New keeps retrying the initial ping.
var ConnectTimeout = 30 * time.Second

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// waits for it to accept connections, and runs any pending migrations.
func New(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := ping(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// ping retries with exponential backoff until the database answers,
// ConnectTimeout elapses or ctx is done.
func ping(ctx context.Context, db *sql.DB) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = ConnectTimeout
	return backoff.RetryNotify(func() error {
		return db.PingContext(ctx)
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		slog.Warn("database not ready", "err", err, "retry_in", next)
	})
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateEvent(ctx context.Context, e *model.Event) error {
	return storeError("create", queryCreateEvent(ctx, s.db, e))
}

func (s *PostgresStore) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	e, err := queryGetEvent(ctx, s.db, id, false)
	return e, storeError("get", err)
}

func (s *PostgresStore) ListEvents(ctx context.Context) ([]*model.Event, error) {
	events, err := queryListEvents(ctx, s.db)
	return events, storeError("list", err)
}

// UpdateEvent locks the row with SELECT ... FOR UPDATE, applies fn and
// writes the result in the same transaction.
func (s *PostgresStore) UpdateEvent(ctx context.Context, id string, fn store.MutateFunc) (*model.Event, error) {
	var out *model.Event
	err := s.runInTransaction(ctx, func(tx *sql.Tx) error {
		e, err := queryGetEvent(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return errMutate{err}
		}
		e.ID = id
		if err := queryUpdateEvent(ctx, tx, e); err != nil {
			return err
		}
		out = e
		return nil
	})
	var me errMutate
	if errors.As(err, &me) {
		return nil, me.err
	}
	if err != nil {
		return nil, storeError("update", err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteEvent(ctx context.Context, id string) (*model.Event, error) {
	e, err := queryDeleteEvent(ctx, s.db, id)
	return e, storeError("delete", err)
}

// runInTransaction begins a transaction, calls fn, and commits on success
// or rolls back on error.
func (s *PostgresStore) runInTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// errMutate carries an error returned by a MutateFunc through the
// transaction so it reaches the caller unwrapped.
type errMutate struct{ err error }

func (e errMutate) Error() string { return e.err.Error() }

// storeError maps sql.ErrNoRows to store.ErrNotFound and anything else to
// a *store.UnavailableError.
func storeError(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return store.Unavailable(op, err)
}
