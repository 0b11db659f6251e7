package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/slotbook/internal/model"
	"github.com/Freeeeeet/slotbook/internal/slots"
	"go.uber.org/zap"
)

// maxBookingSpan самая длинная возможная запись, столько ленты смотрим назад от начала дня
const maxBookingSpan = MaxServiceDuration * time.Minute

// AvailabilityService сводит окна расписания и журнал записей в свободные слоты
type AvailabilityService struct {
	windows WindowStore
	ledger  BookingLedger
	logger  *zap.Logger
	opts    options
}

func NewAvailabilityService(windows WindowStore, ledger BookingLedger, logger *zap.Logger, opts ...Option) *AvailabilityService {
	return &AvailabilityService{
		windows: windows,
		ledger:  ledger,
		logger:  logger,
		opts:    buildOptions(opts),
	}
}

// GenerateSlots все слоты расписания на дату без учёта записей
func (s *AvailabilityService) GenerateSlots(ctx context.Context, providerID int64, date time.Time, durationMinutes int) ([]model.Slot, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("%w: slot duration must be positive", model.ErrValidation)
	}

	day := s.opts.dayOf(date)
	weekday := day.Weekday()

	windows, err := s.windows.ListWindows(ctx, providerID, &weekday)
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}

	return slots.Collect(windows, day, time.Duration(durationMinutes)*time.Minute), nil
}

// AvailableSlots слоты на дату минус всё, что пересекается с занимающими время записями провайдера.
// Слоты, начало которых уже прошло, не возвращаются.
func (s *AvailabilityService) AvailableSlots(ctx context.Context, providerID int64, date time.Time, durationMinutes int) ([]model.Slot, error) {
	all, err := s.GenerateSlots(ctx, providerID, date, durationMinutes)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return all, nil
	}

	busy, err := s.busyOn(ctx, providerID, s.opts.dayOf(date))
	if err != nil {
		return nil, err
	}

	now := s.opts.now()
	free := slots.Without(all, busy)
	result := free[:0]
	for _, slot := range free {
		if !slot.Start.Before(now) {
			result = append(result, slot)
		}
	}
	return result, nil
}

// busyOn интервалы записей, которые могут задевать сутки day.
// Захватываются и записи предыдущего дня, переходящие через полночь.
func (s *AvailabilityService) busyOn(ctx context.Context, providerID int64, day time.Time) ([]model.Slot, error) {
	dayEnd := day.AddDate(0, 0, 1)

	bookings, err := s.ledger.ListByProviderBetween(ctx, providerID, day.Add(-maxBookingSpan), dayEnd)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	var busy []model.Slot
	for _, b := range bookings {
		if b.Status.In(model.ReleasedStatuses) {
			continue
		}
		if b.Overlaps(day, dayEnd) {
			busy = append(busy, model.Slot{Start: b.StartAt, End: b.EndAt})
		}
	}
	return busy, nil
}

// IsAvailableAt проверяет только расписание: попадает ли момент в какое-нибудь окно провайдера.
// Журнал записей не учитывается.
func (s *AvailabilityService) IsAvailableAt(ctx context.Context, providerID int64, instant time.Time) (bool, error) {
	local := instant.In(s.opts.loc)
	weekday := local.Weekday()

	windows, err := s.windows.ListWindows(ctx, providerID, &weekday)
	if err != nil {
		return false, fmt.Errorf("list windows: %w", err)
	}

	t := model.TimeOfDayOf(local)
	for _, w := range windows {
		if w.Contains(t) {
			return true, nil
		}
	}
	return false, nil
}

// GetAvailableDates свободные слоты по дням начиная с сегодняшнего.
// daysAhead <= 0 означает горизонт по умолчанию.
func (s *AvailabilityService) GetAvailableDates(ctx context.Context, providerID int64, durationMinutes, daysAhead int) ([]model.DayAvailability, error) {
	if daysAhead <= 0 {
		daysAhead = s.opts.daysAhead
	}
	if daysAhead > MaxDaysAhead {
		return nil, fmt.Errorf("%w: days ahead must be at most %d", model.ErrValidation, MaxDaysAhead)
	}

	today := model.StartOfDay(s.opts.nowIn())

	days := make([]model.DayAvailability, 0, daysAhead)
	for i := 0; i < daysAhead; i++ {
		date := today.AddDate(0, 0, i)

		free, err := s.AvailableSlots(ctx, providerID, date, durationMinutes)
		if err != nil {
			return nil, err
		}

		days = append(days, model.DayAvailability{
			Date:    date,
			Weekday: date.Weekday(),
			Slots:   free,
		})
	}

	s.logger.Debug("Available dates resolved",
		zap.Int64("provider_id", providerID),
		zap.Int("duration_minutes", durationMinutes),
		zap.Int("days", daysAhead),
	)

	return days, nil
}
