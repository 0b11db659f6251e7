package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/slotbook/internal/lock"
	"github.com/Freeeeeet/slotbook/internal/model"
	"github.com/Freeeeeet/slotbook/internal/repository/base"
	"github.com/Freeeeeet/slotbook/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const bookingColumns = `id, customer_id, provider_id, service_id, start_at, end_at, status, notes, created_at, updated_at`

// BookingRepository журнал записей в PostgreSQL.
// Вставка идёт только под advisory lock провайдера, exclusion constraint на активных записях
// страхует инвариант непересечения на уровне БД.
type BookingRepository struct {
	*base.Repository
	pool        *pgxpool.Pool
	loc         *time.Location
	lockTimeout time.Duration
	logger      *zap.Logger
}

func NewBookingRepository(pool *pgxpool.Pool, loc *time.Location, lockTimeout time.Duration, logger *zap.Logger) *BookingRepository {
	return &BookingRepository{
		Repository:  base.NewRepository(pool),
		pool:        pool,
		loc:         loc,
		lockTimeout: lockTimeout,
		logger:      logger,
	}
}

// Get получает запись по ID
func (r *BookingRepository) Get(ctx context.Context, id int64) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	b, err := r.scanBooking(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}
	return b, nil
}

// HasOverlap проверяет пересечение с записями провайдера без блокировки
func (r *BookingRepository) HasOverlap(ctx context.Context, providerID int64, start, end time.Time, exclude ...model.BookingStatus) (bool, error) {
	return hasOverlap(ctx, r.pool, providerID, start, end, exclude)
}

// FindByProviderAndDate записи провайдера, начинающиеся в календарную дату date
func (r *BookingRepository) FindByProviderAndDate(ctx context.Context, providerID int64, date time.Time) ([]*model.Booking, error) {
	day := model.StartOfDay(date)
	return r.ListByProviderBetween(ctx, providerID, day, day.AddDate(0, 0, 1))
}

// ListByProviderBetween записи провайдера с началом в [from, to)
func (r *BookingRepository) ListByProviderBetween(ctx context.Context, providerID int64, from, to time.Time) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE provider_id = $1 AND start_at >= $2 AND start_at < $3
		ORDER BY start_at, id
	`
	return r.list(ctx, query, providerID, from, to)
}

// ListByCustomer все записи клиента, новые первыми
func (r *BookingRepository) ListByCustomer(ctx context.Context, customerID int64) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE customer_id = $1
		ORDER BY start_at DESC, id
	`
	return r.list(ctx, query, customerID)
}

// WithProviderLock транзакция под pg_advisory_xact_lock провайдера.
// lock_timeout (55P03) превращается в model.ErrLockTimeout, нарушение exclusion constraint (23P01) в model.ErrSlotTaken.
func (r *BookingRepository) WithProviderLock(ctx context.Context, providerID int64, fn func(ctx context.Context, tx service.LedgerTx) error) error {
	keys := []string{lock.ProviderKey(providerID)}

	err := r.InLockedTx(ctx, r.lockTimeout, keys, func(tx pgx.Tx) error {
		return fn(ctx, &ledgerTx{q: tx})
	})

	switch {
	case base.HasCode(err, base.CodeLockNotAvailable):
		r.logger.Warn("Provider lock timeout", zap.Int64("provider_id", providerID))
		return fmt.Errorf("%w: provider %d", model.ErrLockTimeout, providerID)
	case base.HasCode(err, base.CodeExclusionViolation):
		r.logger.Warn("Exclusion constraint rejected booking", zap.Int64("provider_id", providerID))
		return fmt.Errorf("%w: provider %d", model.ErrSlotTaken, providerID)
	}
	return err
}

// UpdateStatus меняет статус одним UPDATE с условием на текущий статус
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, from, to model.BookingStatus) (*model.Booking, error) {
	query := `
		UPDATE bookings
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + bookingColumns

	b, err := r.scanBooking(r.pool.QueryRow(ctx, query, id, string(from), string(to)))
	if err == nil {
		return b, nil
	}
	if !base.IsNotFound(err) {
		return nil, fmt.Errorf("update booking status: %w", err)
	}

	// строка не обновилась: записи нет или статус уже другой
	var current string
	err = r.pool.QueryRow(ctx, `SELECT status FROM bookings WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, fmt.Errorf("booking %d: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("get booking status: %w", err)
	}
	return nil, fmt.Errorf("booking %d is %s, expected %s: %w", id, current, from, model.ErrStatusConflict)
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...any) ([]*model.Booking, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		b, err := r.scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}

	return bookings, rows.Err()
}

func (r *BookingRepository) scanBooking(row pgx.Row) (*model.Booking, error) {
	var (
		b      model.Booking
		status string
	)
	err := row.Scan(
		&b.ID,
		&b.CustomerID,
		&b.ProviderID,
		&b.ServiceID,
		&b.StartAt,
		&b.EndAt,
		&status,
		&b.Notes,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Status = model.BookingStatus(status)
	b.StartAt = b.StartAt.In(r.loc)
	b.EndAt = b.EndAt.In(r.loc)
	return &b, nil
}

type ledgerTx struct {
	q base.Querier
}

func (tx *ledgerTx) HasOverlap(ctx context.Context, providerID int64, start, end time.Time, exclude ...model.BookingStatus) (bool, error) {
	return hasOverlap(ctx, tx.q, providerID, start, end, exclude)
}

// Insert создаёт запись
func (tx *ledgerTx) Insert(ctx context.Context, b *model.Booking) error {
	query := `
		INSERT INTO bookings (customer_id, provider_id, service_id, start_at, end_at, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := tx.q.QueryRow(
		ctx, query,
		b.CustomerID,
		b.ProviderID,
		b.ServiceID,
		b.StartAt,
		b.EndAt,
		string(b.Status),
		b.Notes,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

func hasOverlap(ctx context.Context, q base.Querier, providerID int64, start, end time.Time, exclude []model.BookingStatus) (bool, error) {
	if len(exclude) == 0 {
		exclude = model.ReleasedStatuses
	}
	excluded := make([]string, len(exclude))
	for i, s := range exclude {
		excluded[i] = string(s)
	}

	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE provider_id = $1
			  AND start_at < $3
			  AND end_at > $2
			  AND NOT (status = ANY($4))
		)
	`

	var exists bool
	if err := q.QueryRow(ctx, query, providerID, start, end, excluded).Scan(&exists); err != nil {
		return false, fmt.Errorf("check booking overlap: %w", err)
	}
	return exists, nil
}
