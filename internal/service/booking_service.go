package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/slotbook/internal/metrics"
	"github.com/Freeeeeet/slotbook/internal/model"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// MaxNotesLength ограничение заметок к записи в символах
const MaxNotesLength = 500

// ReserveRequest запрос на запись. Date берётся как календарная дата в рабочем часовом поясе.
type ReserveRequest struct {
	CustomerID int64           `validate:"gt=0"`
	ProviderID int64           `validate:"gt=0"`
	ServiceID  int64           `validate:"gt=0"`
	Date       time.Time       `validate:"required"`
	StartTime  model.TimeOfDay `validate:"min=0,max=1439"`
	Notes      string          `validate:"max=500"`
}

type BookingService struct {
	ledger       BookingLedger
	catalog      ServiceCatalog
	availability *AvailabilityService
	logger       *zap.Logger
	opts         options
}

func NewBookingService(
	ledger BookingLedger,
	catalog ServiceCatalog,
	availability *AvailabilityService,
	logger *zap.Logger,
	opts ...Option,
) *BookingService {
	return &BookingService{
		ledger:       ledger,
		catalog:      catalog,
		availability: availability,
		logger:       logger,
		opts:         buildOptions(opts),
	}
}

// Reserve единственный путь создания записи.
// Проверяет расписание, затем под блокировкой провайдера проверяет пересечения и вставляет запись в статусе pending.
// При таймауте блокировки попытка повторяется ограниченное число раз.
func (s *BookingService) Reserve(ctx context.Context, req ReserveRequest) (booking *model.Booking, err error) {
	defer func() { metrics.ObserveReservation(err) }()

	if err := validateStruct(req); err != nil {
		return nil, err
	}

	svc, err := s.bookableService(ctx, req)
	if err != nil {
		return nil, err
	}

	start := req.StartTime.On(s.opts.dayOf(req.Date))
	end := start.Add(svc.Duration())

	if start.Before(s.opts.now()) {
		return nil, fmt.Errorf("%w: start %s is in the past", model.ErrValidation, start.Format(time.RFC3339))
	}

	available, err := s.availability.IsAvailableAt(ctx, req.ProviderID, start)
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}
	if !available {
		return nil, fmt.Errorf("%w: %s", model.ErrOutsideAvailability, start.Format("2006-01-02 15:04"))
	}

	booking = &model.Booking{
		CustomerID: req.CustomerID,
		ProviderID: req.ProviderID,
		ServiceID:  req.ServiceID,
		StartAt:    start,
		EndAt:      end,
		Status:     model.BookingStatusPending,
		Notes:      req.Notes,
	}

	backoff := retry.WithMaxRetries(s.opts.retries, retry.NewExponential(s.opts.retryBase))
	attempt := 0

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := s.insertExclusive(ctx, booking)
		if model.IsRetryable(err) {
			s.logger.Warn("Provider lock timeout, retrying",
				zap.Int64("provider_id", req.ProviderID),
				zap.Int("attempt", attempt),
			)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking reserved",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("customer_id", req.CustomerID),
		zap.Int64("provider_id", req.ProviderID),
		zap.Int64("service_id", req.ServiceID),
		zap.Time("start", start),
		zap.Int("attempts", attempt),
	)

	booking.Service = svc
	return booking, nil
}

// insertExclusive проверка пересечений и вставка под блокировкой провайдера
func (s *BookingService) insertExclusive(ctx context.Context, booking *model.Booking) error {
	started := time.Now()
	defer func() { metrics.ObserveLockWait(time.Since(started)) }()

	return s.ledger.WithProviderLock(ctx, booking.ProviderID, func(ctx context.Context, tx LedgerTx) error {
		taken, err := tx.HasOverlap(ctx, booking.ProviderID, booking.StartAt, booking.EndAt)
		if err != nil {
			return fmt.Errorf("check overlap: %w", err)
		}
		if taken {
			return fmt.Errorf("%w: %s", model.ErrSlotTaken, booking.StartAt.Format("2006-01-02 15:04"))
		}

		if err := tx.Insert(ctx, booking); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		return nil
	})
}

func (s *BookingService) bookableService(ctx context.Context, req ReserveRequest) (*model.Service, error) {
	svc, err := s.catalog.GetService(ctx, req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}

	switch {
	case svc == nil:
		return nil, fmt.Errorf("%w: service %d not found", model.ErrValidation, req.ServiceID)
	case svc.ProviderID != req.ProviderID:
		return nil, fmt.Errorf("%w: service %d is not offered by provider %d", model.ErrValidation, req.ServiceID, req.ProviderID)
	case !svc.IsActive:
		return nil, fmt.Errorf("%w: service %d is not active", model.ErrValidation, req.ServiceID)
	case svc.DurationMinutes <= 0:
		return nil, fmt.Errorf("%w: service %d has no duration", model.ErrValidation, req.ServiceID)
	case req.CustomerID == req.ProviderID:
		return nil, fmt.Errorf("%w: provider cannot book own service", model.ErrValidation)
	}
	return svc, nil
}

// TransitionStatus переводит запись в статус target от имени actorID.
// Роль участника выводится из записи, допустимость перехода проверяет model.CanTransition.
// Запись статуса атомарна: из двух гонящихся переходов побеждает один.
func (s *BookingService) TransitionStatus(ctx context.Context, bookingID, actorID int64, target model.BookingStatus) (*model.Booking, error) {
	if _, err := model.ParseBookingStatus(string(target)); err != nil {
		return nil, err
	}

	booking, err := s.ledger.Get(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %d: %w", bookingID, model.ErrNotFound)
	}

	role, ok := booking.RoleOf(actorID)
	if !ok {
		return nil, fmt.Errorf("%w: user %d is not a participant of booking %d", model.ErrForbiddenTransition, actorID, bookingID)
	}

	if !model.CanTransition(booking.Status, target, role) {
		return nil, fmt.Errorf("%w: %s -> %s", model.ErrForbiddenTransition, booking.Status, target)
	}

	updated, err := s.ledger.UpdateStatus(ctx, bookingID, booking.Status, target)
	if err != nil {
		if errors.Is(err, model.ErrStatusConflict) {
			return nil, fmt.Errorf("%w: %w", model.ErrForbiddenTransition, err)
		}
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("booking %d: %w", bookingID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("update booking status: %w", err)
	}

	metrics.ObserveTransition(target)
	s.logger.Info("Booking status changed",
		zap.Int64("booking_id", bookingID),
		zap.Int64("actor_id", actorID),
		zap.String("from", string(booking.Status)),
		zap.String("to", string(target)),
	)

	return updated, nil
}

// Confirm провайдер подтверждает запись
func (s *BookingService) Confirm(ctx context.Context, bookingID, providerID int64) (*model.Booking, error) {
	return s.TransitionStatus(ctx, bookingID, providerID, model.BookingStatusConfirmed)
}

// Decline провайдер отклоняет запись
func (s *BookingService) Decline(ctx context.Context, bookingID, providerID int64) (*model.Booking, error) {
	return s.TransitionStatus(ctx, bookingID, providerID, model.BookingStatusDeclined)
}

// Cancel клиент отменяет свою запись
func (s *BookingService) Cancel(ctx context.Context, bookingID, customerID int64) (*model.Booking, error) {
	return s.TransitionStatus(ctx, bookingID, customerID, model.BookingStatusCancelled)
}

// Complete провайдер отмечает запись выполненной
func (s *BookingService) Complete(ctx context.Context, bookingID, providerID int64) (*model.Booking, error) {
	return s.TransitionStatus(ctx, bookingID, providerID, model.BookingStatusCompleted)
}

// Get запись, видимая только её клиенту и провайдеру
func (s *BookingService) Get(ctx context.Context, bookingID, actorID int64) (*model.Booking, error) {
	booking, err := s.ledger.Get(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %d: %w", bookingID, model.ErrNotFound)
	}
	if _, ok := booking.RoleOf(actorID); !ok {
		return nil, fmt.Errorf("booking %d: %w", bookingID, model.ErrForbidden)
	}

	if err := s.attachServices(ctx, []*model.Booking{booking}); err != nil {
		return nil, err
	}
	return booking, nil
}

// CustomerBookings записи клиента с фильтром
func (s *BookingService) CustomerBookings(ctx context.Context, customerID int64, filter model.BookingFilter) ([]*model.Booking, error) {
	all, err := s.ledger.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list customer bookings: %w", err)
	}

	now := s.opts.now()
	var result []*model.Booking
	for _, b := range all {
		switch filter {
		case model.BookingFilterUpcoming:
			if !b.StartAt.After(now) || !b.Status.In(model.ActiveStatuses) {
				continue
			}
		case model.BookingFilterPast:
			if b.StartAt.After(now) {
				continue
			}
		case model.BookingFilterAll, "":
		default:
			return nil, fmt.Errorf("%w: unknown filter %q", model.ErrValidation, filter)
		}
		result = append(result, b)
	}

	if err := s.attachServices(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// ProviderBookingsOn все записи провайдера, начинающиеся в дату date
func (s *BookingService) ProviderBookingsOn(ctx context.Context, providerID int64, date time.Time) ([]*model.Booking, error) {
	day := s.opts.dayOf(date)

	bookings, err := s.ledger.FindByProviderAndDate(ctx, providerID, day)
	if err != nil {
		return nil, fmt.Errorf("find provider bookings: %w", err)
	}

	if err := s.attachServices(ctx, bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// ProviderStats сколько записей у провайдера сегодня и на этой неделе (любой статус)
// и сколько завершено в текущем месяце. Границы считаются в рабочем часовом поясе.
func (s *BookingService) ProviderStats(ctx context.Context, providerID int64) (*model.ProviderStats, error) {
	today := model.StartOfDay(s.opts.nowIn())
	tomorrow := today.AddDate(0, 0, 1)

	// неделя начинается с понедельника
	weekStart := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
	weekEnd := weekStart.AddDate(0, 0, 7)

	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, s.opts.loc)
	monthEnd := monthStart.AddDate(0, 1, 0)

	from, to := weekStart, weekEnd
	if monthStart.Before(from) {
		from = monthStart
	}
	if monthEnd.After(to) {
		to = monthEnd
	}

	bookings, err := s.ledger.ListByProviderBetween(ctx, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list provider bookings: %w", err)
	}

	within := func(t, start, end time.Time) bool {
		return !t.Before(start) && t.Before(end)
	}

	stats := &model.ProviderStats{}
	for _, b := range bookings {
		if within(b.StartAt, today, tomorrow) {
			stats.Today++
		}
		if within(b.StartAt, weekStart, weekEnd) {
			stats.ThisWeek++
		}
		if b.Status == model.BookingStatusCompleted && within(b.StartAt, monthStart, monthEnd) {
			stats.CompletedThisMonth++
		}
	}
	return stats, nil
}

func (s *BookingService) attachServices(ctx context.Context, bookings []*model.Booking) error {
	cache := make(map[int64]*model.Service)
	for _, b := range bookings {
		svc, ok := cache[b.ServiceID]
		if !ok {
			var err error
			svc, err = s.catalog.GetService(ctx, b.ServiceID)
			if err != nil {
				return fmt.Errorf("get service: %w", err)
			}
			cache[b.ServiceID] = svc
		}
		b.Service = svc
	}
	return nil
}
