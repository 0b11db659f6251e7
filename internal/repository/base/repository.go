package base

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Коды ошибок PostgreSQL, которые разбирают репозитории
const (
	CodeLockNotAvailable   = "55P03"
	CodeExclusionViolation = "23P01"
	CodeUniqueViolation    = "23505"
)

// Querier общий набор методов пула и транзакции
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ Querier = (*pgxpool.Pool)(nil)
	_ Querier = (pgx.Tx)(nil)
)

// Repository базовый репозиторий с общими методами
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository создаёт новый базовый репозиторий
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Pool возвращает пул соединений
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// InLockedTx выполняет fn в транзакции, предварительно взяв transaction-level advisory locks по keys.
// Ключи берутся в переданном порядке. Ожидание каждой блокировки ограничено lockTimeout (0 без ограничения).
// Блокировки снимаются при фиксации или откате.
func (r *Repository) InLockedTx(ctx context.Context, lockTimeout time.Duration, keys []string, fn func(tx pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if lockTimeout > 0 {
			// SET LOCAL не принимает параметры, set_config(..., true) действует до конца транзакции
			ms := fmt.Sprintf("%dms", lockTimeout.Milliseconds())
			if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, ms); err != nil {
				return fmt.Errorf("set lock timeout: %w", err)
			}
		}

		for _, key := range keys {
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
				return fmt.Errorf("advisory lock %s: %w", key, err)
			}
		}

		return fn(tx)
	})
}

// IsNotFound проверяет является ли ошибка "строка не найдена"
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// HasCode проверяет SQLSTATE ошибки PostgreSQL
func HasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
