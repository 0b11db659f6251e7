package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Freeeeeet/slotbook/internal/metrics"
	"github.com/Freeeeeet/slotbook/internal/model"
	"github.com/Freeeeeet/slotbook/internal/slots"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScheduleService управление недельными окнами доступности провайдера
type ScheduleService struct {
	windows WindowStore
	logger  *zap.Logger
}

func NewScheduleService(windows WindowStore, logger *zap.Logger) *ScheduleService {
	return &ScheduleService{
		windows: windows,
		logger:  logger,
	}
}

// AddWindow добавляет окно на один день недели
func (s *ScheduleService) AddWindow(ctx context.Context, providerID int64, weekday time.Weekday, start, end model.TimeOfDay) (*model.Window, error) {
	created, err := s.addWindows(ctx, providerID, []time.Weekday{weekday}, start, end)
	if err != nil {
		return nil, err
	}

	metrics.ObserveWindowChange("add")
	return created[0], nil
}

// AddWindowGroup создаёт одинаковое окно на несколько дней недели под общим GroupID.
// Либо создаются все окна, либо ни одного.
func (s *ScheduleService) AddWindowGroup(ctx context.Context, providerID int64, weekdays []time.Weekday, start, end model.TimeOfDay) ([]*model.Window, error) {
	created, err := s.addWindows(ctx, providerID, weekdays, start, end)
	if err != nil {
		return nil, err
	}

	metrics.ObserveWindowChange("add_group")
	return created, nil
}

func (s *ScheduleService) addWindows(ctx context.Context, providerID int64, weekdays []time.Weekday, start, end model.TimeOfDay) ([]*model.Window, error) {
	if len(weekdays) == 0 {
		return nil, fmt.Errorf("%w: at least one weekday is required", model.ErrValidation)
	}
	for _, d := range weekdays {
		if err := validateWindow(d, start, end); err != nil {
			return nil, err
		}
	}

	days := slices.Clone(weekdays)
	slices.Sort(days)
	days = slices.Compact(days)

	groupID := uuid.New()
	created := make([]*model.Window, 0, len(days))

	err := s.windows.WithDayLocks(ctx, providerID, days, func(ctx context.Context, tx WindowTx) error {
		for _, d := range days {
			existing, err := tx.ListWindows(ctx, providerID, &d)
			if err != nil {
				return fmt.Errorf("list windows: %w", err)
			}

			if other := slots.FindOverlap(existing, start, end, 0); other != nil {
				return overlapError(d, start, end, other)
			}

			w := &model.Window{
				GroupID:    groupID,
				ProviderID: providerID,
				Weekday:    d,
				Start:      start,
				End:        end,
			}
			if err := tx.CreateWindow(ctx, w); err != nil {
				return fmt.Errorf("create window: %w", err)
			}
			created = append(created, w)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Availability windows added",
		zap.Int64("provider_id", providerID),
		zap.String("group_id", groupID.String()),
		zap.Int("days", len(days)),
		zap.Stringer("start", start),
		zap.Stringer("end", end),
	)

	return created, nil
}

// UpdateWindow меняет границы окна. Пересечение проверяется со всеми окнами дня, кроме самого окна.
func (s *ScheduleService) UpdateWindow(ctx context.Context, providerID, windowID int64, start, end model.TimeOfDay) (*model.Window, error) {
	w, err := s.ownedWindow(ctx, providerID, windowID)
	if err != nil {
		return nil, err
	}

	if err := validateWindow(w.Weekday, start, end); err != nil {
		return nil, err
	}

	err = s.windows.WithDayLocks(ctx, providerID, []time.Weekday{w.Weekday}, func(ctx context.Context, tx WindowTx) error {
		existing, err := tx.ListWindows(ctx, providerID, &w.Weekday)
		if err != nil {
			return fmt.Errorf("list windows: %w", err)
		}

		if other := slots.FindOverlap(existing, start, end, w.ID); other != nil {
			return overlapError(w.Weekday, start, end, other)
		}

		w.Start = start
		w.End = end
		if err := tx.UpdateWindow(ctx, w); err != nil {
			return fmt.Errorf("update window: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ObserveWindowChange("update")
	s.logger.Info("Availability window updated",
		zap.Int64("provider_id", providerID),
		zap.Int64("window_id", windowID),
		zap.Stringer("start", start),
		zap.Stringer("end", end),
	)

	return w, nil
}

// RemoveWindow удаляет окно. Уже созданные записи в этом окне остаются в силе.
func (s *ScheduleService) RemoveWindow(ctx context.Context, providerID, windowID int64) error {
	if _, err := s.ownedWindow(ctx, providerID, windowID); err != nil {
		return err
	}

	if err := s.windows.DeleteWindow(ctx, windowID); err != nil {
		return fmt.Errorf("delete window: %w", err)
	}

	metrics.ObserveWindowChange("remove")
	s.logger.Info("Availability window removed",
		zap.Int64("provider_id", providerID),
		zap.Int64("window_id", windowID),
	)

	return nil
}

// RemoveWindowGroup удаляет все окна группы
func (s *ScheduleService) RemoveWindowGroup(ctx context.Context, providerID int64, groupID uuid.UUID) (int64, error) {
	deleted, err := s.windows.DeleteGroup(ctx, providerID, groupID)
	if err != nil {
		return 0, fmt.Errorf("delete window group: %w", err)
	}
	if deleted == 0 {
		return 0, fmt.Errorf("window group %s: %w", groupID, model.ErrNotFound)
	}

	metrics.ObserveWindowChange("remove_group")
	s.logger.Info("Availability window group removed",
		zap.Int64("provider_id", providerID),
		zap.String("group_id", groupID.String()),
		zap.Int64("deleted", deleted),
	)

	return deleted, nil
}

// ListWindows окна провайдера, упорядоченные по началу. при weekday == nil все дни.
func (s *ScheduleService) ListWindows(ctx context.Context, providerID int64, weekday *time.Weekday) ([]*model.Window, error) {
	if weekday != nil && !model.ValidWeekday(*weekday) {
		return nil, fmt.Errorf("%w: weekday %d is out of range", model.ErrValidation, *weekday)
	}

	windows, err := s.windows.ListWindows(ctx, providerID, weekday)
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	return windows, nil
}

// WeeklySchedule расписание на неделю: семь дней с воскресенья по субботу
func (s *ScheduleService) WeeklySchedule(ctx context.Context, providerID int64) ([]model.DaySchedule, error) {
	windows, err := s.ListWindows(ctx, providerID, nil)
	if err != nil {
		return nil, err
	}

	week := make([]model.DaySchedule, 7)
	for d := range week {
		week[d].Weekday = time.Weekday(d)
	}
	for _, w := range windows {
		week[w.Weekday].Windows = append(week[w.Weekday].Windows, w)
	}
	return week, nil
}

func (s *ScheduleService) ownedWindow(ctx context.Context, providerID, windowID int64) (*model.Window, error) {
	w, err := s.windows.GetWindow(ctx, windowID)
	if err != nil {
		return nil, fmt.Errorf("get window: %w", err)
	}
	if w == nil {
		return nil, fmt.Errorf("window %d: %w", windowID, model.ErrNotFound)
	}
	if w.ProviderID != providerID {
		return nil, fmt.Errorf("window %d: %w", windowID, model.ErrForbidden)
	}
	return w, nil
}

func validateWindow(weekday time.Weekday, start, end model.TimeOfDay) error {
	if !model.ValidWeekday(weekday) {
		return fmt.Errorf("%w: weekday %d is out of range", model.ErrValidation, weekday)
	}
	if !start.Valid() || !end.Valid() {
		return fmt.Errorf("%w: window bounds must be within 00:00-24:00", model.ErrValidation)
	}
	if start >= end {
		return fmt.Errorf("%w: window start %s must be before end %s", model.ErrValidation, start, end)
	}
	return nil
}

func overlapError(weekday time.Weekday, start, end model.TimeOfDay, other *model.Window) error {
	return fmt.Errorf("%w: %s %s-%s intersects %s-%s",
		model.ErrOverlap, weekday, start, end, other.Start, other.End)
}
