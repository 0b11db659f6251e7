package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/slotbook/internal/model"
	"github.com/google/uuid"
)

// Хранилища возвращают (nil, nil), если запись не найдена.
// Сервисы переводят это в model.ErrNotFound.

// WindowStore хранилище недельных окон доступности
type WindowStore interface {
	// ListWindows окна провайдера по началу; при weekday == nil все дни, сначала по дню недели
	ListWindows(ctx context.Context, providerID int64, weekday *time.Weekday) ([]*model.Window, error)
	GetWindow(ctx context.Context, id int64) (*model.Window, error)
	DeleteWindow(ctx context.Context, id int64) error
	// DeleteGroup удаляет окна группы провайдера, возвращает число удалённых
	DeleteGroup(ctx context.Context, providerID int64, groupID uuid.UUID) (int64, error)
	// WithDayLocks выполняет fn в одной транзакции, удерживая блокировки (провайдер, день) для всех days.
	// Блокировки берутся по возрастанию дня недели. Если fn вернула ошибку, изменения откатываются.
	WithDayLocks(ctx context.Context, providerID int64, days []time.Weekday, fn func(ctx context.Context, tx WindowTx) error) error
}

// WindowTx операции с окнами внутри WithDayLocks
type WindowTx interface {
	ListWindows(ctx context.Context, providerID int64, weekday *time.Weekday) ([]*model.Window, error)
	CreateWindow(ctx context.Context, w *model.Window) error
	UpdateWindow(ctx context.Context, w *model.Window) error
}

// BookingLedger журнал записей, единственный источник правды о занятом времени
type BookingLedger interface {
	Get(ctx context.Context, id int64) (*model.Booking, error)
	// HasOverlap есть ли запись провайдера со статусом вне exclude, пересекающая [start, end).
	// Пустой exclude означает model.ReleasedStatuses.
	HasOverlap(ctx context.Context, providerID int64, start, end time.Time, exclude ...model.BookingStatus) (bool, error)
	// FindByProviderAndDate все записи (любой статус), начинающиеся в календарную дату date, по началу
	FindByProviderAndDate(ctx context.Context, providerID int64, date time.Time) ([]*model.Booking, error)
	// ListByProviderBetween записи провайдера с началом в [from, to), по началу
	ListByProviderBetween(ctx context.Context, providerID int64, from, to time.Time) ([]*model.Booking, error)
	// ListByCustomer все записи клиента, новые первыми
	ListByCustomer(ctx context.Context, customerID int64) ([]*model.Booking, error)
	// WithProviderLock выполняет fn в транзакции под эксклюзивной блокировкой провайдера.
	// Ожидание ограничено, по таймауту возвращается model.ErrLockTimeout.
	WithProviderLock(ctx context.Context, providerID int64, fn func(ctx context.Context, tx LedgerTx) error) error
	// UpdateStatus атомарно меняет статус from -> to.
	// model.ErrStatusConflict, если текущий статус не from; model.ErrNotFound, если записи нет.
	UpdateStatus(ctx context.Context, id int64, from, to model.BookingStatus) (*model.Booking, error)
}

// LedgerTx операции журнала под блокировкой провайдера
type LedgerTx interface {
	HasOverlap(ctx context.Context, providerID int64, start, end time.Time, exclude ...model.BookingStatus) (bool, error)
	Insert(ctx context.Context, b *model.Booking) error
}

// ServiceCatalog хранилище услуг
type ServiceCatalog interface {
	CreateService(ctx context.Context, s *model.Service) error
	GetService(ctx context.Context, id int64) (*model.Service, error)
	ListByProvider(ctx context.Context, providerID int64, activeOnly bool) ([]*model.Service, error)
	// ListActive активные услуги всех провайдеров по ID. Непустой query ищет подстроку
	// в названии или описании без учёта регистра.
	ListActive(ctx context.Context, query string, limit, offset int) ([]*model.Service, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// UserStore хранилище пользователей
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	Update(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
}
