package app

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slotbook/internal/config"
	"github.com/Freeeeeet/slotbook/internal/lock"
	"github.com/Freeeeeet/slotbook/internal/repository"
	"github.com/Freeeeeet/slotbook/internal/repository/memory"
	"github.com/Freeeeeet/slotbook/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Stores хранилища, выбранные по STORAGE
type Stores struct {
	Windows service.WindowStore
	Ledger  service.BookingLedger
	Catalog service.ServiceCatalog
	Users   service.UserStore

	pool *pgxpool.Pool
}

// Close освобождает соединения с БД, если они есть
func (s *Stores) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// OpenPool создаёт пул соединений и проверяет доступность БД
func OpenPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// NewStores поднимает хранилища. Для postgres перед стартом применяются миграции.
func NewStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	if cfg.Storage == config.StorageMemory {
		locks := lock.NewKeyed(cfg.LockTimeout)
		logger.Warn("Using in-memory storage, data will be lost on restart")

		return &Stores{
			Windows: memory.NewWindowStore(locks),
			Ledger:  memory.NewBookingLedger(locks),
			Catalog: memory.NewServiceCatalog(),
			Users:   memory.NewUserStore(),
		}, nil
	}

	pool, err := OpenPool(ctx, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	logger.Info("✅ Connected to database")

	migrator, err := NewMigrator(pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &Stores{
		Windows: repository.NewWindowRepository(pool, cfg.LockTimeout, logger),
		Ledger:  repository.NewBookingRepository(pool, cfg.Location, cfg.LockTimeout, logger),
		Catalog: repository.NewServiceRepository(pool),
		Users:   repository.NewUserRepository(pool),
		pool:    pool,
	}, nil
}
