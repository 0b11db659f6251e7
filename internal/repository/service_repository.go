package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slotbook/internal/model"
	"github.com/Freeeeeet/slotbook/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const serviceColumns = `id, provider_id, title, description, duration_minutes, display_price, is_active, created_at`

type ServiceRepository struct {
	pool *pgxpool.Pool
}

func NewServiceRepository(pool *pgxpool.Pool) *ServiceRepository {
	return &ServiceRepository{pool: pool}
}

// CreateService создаёт услугу
func (r *ServiceRepository) CreateService(ctx context.Context, s *model.Service) error {
	query := `
		INSERT INTO services (provider_id, title, description, duration_minutes, display_price, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		s.ProviderID,
		s.Title,
		s.Description,
		s.DurationMinutes,
		s.DisplayPrice,
		s.IsActive,
	).Scan(&s.ID, &s.CreatedAt)

	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	return nil
}

// GetService получает услугу по ID
func (r *ServiceRepository) GetService(ctx context.Context, id int64) (*model.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = $1`

	s, err := scanService(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get service by id: %w", err)
	}

	return s, nil
}

// ListByProvider получает услуги провайдера
func (r *ServiceRepository) ListByProvider(ctx context.Context, providerID int64, activeOnly bool) ([]*model.Service, error) {
	query := `
		SELECT ` + serviceColumns + `
		FROM services
		WHERE provider_id = $1 AND (is_active OR NOT $2)
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, providerID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("get services by provider: %w", err)
	}
	defer rows.Close()

	var services []*model.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, s)
	}

	return services, rows.Err()
}

// ListActive активные услуги с поиском по названию и описанию
func (r *ServiceRepository) ListActive(ctx context.Context, search string, limit, offset int) ([]*model.Service, error) {
	query := `
		SELECT ` + serviceColumns + `
		FROM services
		WHERE is_active
		  AND ($1 = '' OR strpos(lower(title), lower($1)) > 0 OR strpos(lower(description), lower($1)) > 0)
		ORDER BY id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, search, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list active services: %w", err)
	}
	defer rows.Close()

	var services []*model.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, s)
	}

	return services, rows.Err()
}

// SetActive включает или выключает услугу
func (r *ServiceRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE services SET is_active = $2 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("set service active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("service %d: %w", id, model.ErrNotFound)
	}

	return nil
}

func scanService(row pgx.Row) (*model.Service, error) {
	var s model.Service
	err := row.Scan(
		&s.ID,
		&s.ProviderID,
		&s.Title,
		&s.Description,
		&s.DurationMinutes,
		&s.DisplayPrice,
		&s.IsActive,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
