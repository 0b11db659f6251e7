package repository

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Freeeeeet/slotbook/internal/lock"
	"github.com/Freeeeeet/slotbook/internal/model"
	"github.com/Freeeeeet/slotbook/internal/repository/base"
	"github.com/Freeeeeet/slotbook/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const windowColumns = `id, group_id, provider_id, weekday, start_minute, end_minute, created_at, updated_at`

// WindowRepository недельные окна доступности в PostgreSQL
type WindowRepository struct {
	*base.Repository
	pool        *pgxpool.Pool
	lockTimeout time.Duration
	logger      *zap.Logger
}

func NewWindowRepository(pool *pgxpool.Pool, lockTimeout time.Duration, logger *zap.Logger) *WindowRepository {
	return &WindowRepository{
		Repository:  base.NewRepository(pool),
		pool:        pool,
		lockTimeout: lockTimeout,
		logger:      logger,
	}
}

// ListWindows получает окна провайдера, при weekday == nil за все дни
func (r *WindowRepository) ListWindows(ctx context.Context, providerID int64, weekday *time.Weekday) ([]*model.Window, error) {
	return listWindows(ctx, r.pool, providerID, weekday)
}

// GetWindow получает окно по ID
func (r *WindowRepository) GetWindow(ctx context.Context, id int64) (*model.Window, error) {
	query := `SELECT ` + windowColumns + ` FROM availability_windows WHERE id = $1`

	w, err := scanWindow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get window by id: %w", err)
	}
	return w, nil
}

// DeleteWindow удаляет окно
func (r *WindowRepository) DeleteWindow(ctx context.Context, id int64) error {
	query := `DELETE FROM availability_windows WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete window: %w", err)
	}
	return nil
}

// DeleteGroup удаляет все окна группы провайдера
func (r *WindowRepository) DeleteGroup(ctx context.Context, providerID int64, groupID uuid.UUID) (int64, error) {
	query := `DELETE FROM availability_windows WHERE provider_id = $1 AND group_id = $2`

	tag, err := r.pool.Exec(ctx, query, providerID, groupID)
	if err != nil {
		return 0, fmt.Errorf("delete window group: %w", err)
	}
	return tag.RowsAffected(), nil
}

// WithDayLocks транзакция с advisory locks на каждый (провайдер, день) по возрастанию дня
func (r *WindowRepository) WithDayLocks(ctx context.Context, providerID int64, days []time.Weekday, fn func(ctx context.Context, tx service.WindowTx) error) error {
	sorted := slices.Clone(days)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	keys := make([]string, len(sorted))
	for i, d := range sorted {
		keys[i] = lock.DayKey(providerID, d)
	}

	err := r.InLockedTx(ctx, r.lockTimeout, keys, func(tx pgx.Tx) error {
		return fn(ctx, &windowTx{q: tx})
	})
	if base.HasCode(err, base.CodeLockNotAvailable) {
		r.logger.Warn("Window lock timeout", zap.Int64("provider_id", providerID))
		return fmt.Errorf("%w: provider %d schedule", model.ErrLockTimeout, providerID)
	}
	return err
}

type windowTx struct {
	q base.Querier
}

func (tx *windowTx) ListWindows(ctx context.Context, providerID int64, weekday *time.Weekday) ([]*model.Window, error) {
	return listWindows(ctx, tx.q, providerID, weekday)
}

// CreateWindow создаёт окно
func (tx *windowTx) CreateWindow(ctx context.Context, w *model.Window) error {
	query := `
		INSERT INTO availability_windows (group_id, provider_id, weekday, start_minute, end_minute)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := tx.q.QueryRow(
		ctx, query,
		w.GroupID,
		w.ProviderID,
		int16(w.Weekday),
		int16(w.Start),
		int16(w.End),
	).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	return nil
}

// UpdateWindow меняет границы окна
func (tx *windowTx) UpdateWindow(ctx context.Context, w *model.Window) error {
	query := `
		UPDATE availability_windows
		SET start_minute = $2, end_minute = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := tx.q.QueryRow(ctx, query, w.ID, int16(w.Start), int16(w.End)).Scan(&w.UpdatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return fmt.Errorf("window %d: %w", w.ID, model.ErrNotFound)
		}
		return fmt.Errorf("update window: %w", err)
	}
	return nil
}

func listWindows(ctx context.Context, q base.Querier, providerID int64, weekday *time.Weekday) ([]*model.Window, error) {
	query := `SELECT ` + windowColumns + ` FROM availability_windows WHERE provider_id = $1`
	args := []any{providerID}
	if weekday != nil {
		query += ` AND weekday = $2`
		args = append(args, int16(*weekday))
	}
	query += ` ORDER BY weekday, start_minute, id`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	defer rows.Close()

	var windows []*model.Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan window: %w", err)
		}
		windows = append(windows, w)
	}

	return windows, rows.Err()
}

func scanWindow(row pgx.Row) (*model.Window, error) {
	var (
		w                model.Window
		weekday          int16
		startMin, endMin int16
	)
	err := row.Scan(
		&w.ID,
		&w.GroupID,
		&w.ProviderID,
		&weekday,
		&startMin,
		&endMin,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	w.Weekday = time.Weekday(weekday)
	w.Start = model.TimeOfDay(startMin)
	w.End = model.TimeOfDay(endMin)
	return &w, nil
}
