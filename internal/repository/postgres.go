package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type conn struct {
	q    querier
	inTx bool
}

// forUpdate locks selected rows when running inside a unit of work
func (c conn) forUpdate() string {
	if c.inTx {
		return " FOR UPDATE"
	}
	return ""
}

// PostgresStore implements Store on a pgx pool
type PostgresStore struct {
	pool *pgxpool.Pool
	*UserRepository
	*DepositRepository
	*WithdrawalRepository
	*SettingRepository
	*StatsRepository
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return newPostgresStore(pool, conn{q: pool})
}

func newPostgresStore(pool *pgxpool.Pool, c conn) *PostgresStore {
	return &PostgresStore{
		pool:                 pool,
		UserRepository:       &UserRepository{c},
		DepositRepository:    &DepositRepository{c},
		WithdrawalRepository: &WithdrawalRepository{c},
		SettingRepository:    &SettingRepository{c},
		StatsRepository:      &StatsRepository{c},
	}
}

// WithTx runs fn in a READ COMMITTED transaction; rows read through tx are locked FOR UPDATE.
// Nested calls reuse the outer transaction.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.UserRepository.inTx {
		return fn(s)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(newPostgresStore(s.pool, conn{q: tx, inTx: true})); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
