package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/slotbook/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestScheduleService_AddWindow_Overlap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addWindow(t, time.Monday, "09:00", "11:00")

	tests := []struct {
		name    string
		day     time.Weekday
		start   string
		end     string
		wantErr error
	}{
		{"partial overlap", time.Monday, "10:00", "12:00", model.ErrOverlap},
		{"contained", time.Monday, "09:30", "10:00", model.ErrOverlap},
		{"containing", time.Monday, "08:00", "12:00", model.ErrOverlap},
		{"same bounds", time.Monday, "09:00", "11:00", model.ErrOverlap},
		{"adjacent after", time.Monday, "11:00", "12:00", nil},
		{"adjacent before", time.Monday, "08:00", "09:00", nil},
		{"other day", time.Tuesday, "09:00", "11:00", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := env.schedule.AddWindow(ctx, env.provider.ID, tt.day, tod(t, tt.start), tod(t, tt.end))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, w)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, w.ID)
			assert.NotEqual(t, uuid.Nil, w.GroupID)
		})
	}
}

func TestScheduleService_AddWindow_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		day        time.Weekday
		start, end model.TimeOfDay
	}{
		{"start equals end", time.Monday, model.NewTimeOfDay(9, 0), model.NewTimeOfDay(9, 0)},
		{"start after end", time.Monday, model.NewTimeOfDay(12, 0), model.NewTimeOfDay(9, 0)},
		{"weekday out of range", time.Weekday(7), model.NewTimeOfDay(9, 0), model.NewTimeOfDay(10, 0)},
		{"negative weekday", time.Weekday(-1), model.NewTimeOfDay(9, 0), model.NewTimeOfDay(10, 0)},
		{"end past midnight", time.Monday, model.NewTimeOfDay(23, 0), model.NewTimeOfDay(24, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.schedule.AddWindow(ctx, env.provider.ID, tt.day, tt.start, tt.end)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}

	w, err := env.schedule.AddWindow(ctx, env.provider.ID, time.Friday, model.NewTimeOfDay(22, 0), model.EndOfDay)
	require.NoError(t, err)
	assert.Equal(t, "24:00", w.End.String())
}

func TestScheduleService_UpdateWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.addWindow(t, time.Monday, "09:00", "11:00")
	env.addWindow(t, time.Monday, "13:00", "15:00")

	// пересечение с самим собой не считается
	updated, err := env.schedule.UpdateWindow(ctx, env.provider.ID, first.ID, tod(t, "08:30"), tod(t, "12:00"))
	require.NoError(t, err)
	assert.Equal(t, "08:30", updated.Start.String())
	assert.Equal(t, "12:00", updated.End.String())

	_, err = env.schedule.UpdateWindow(ctx, env.provider.ID, first.ID, tod(t, "09:00"), tod(t, "13:30"))
	assert.ErrorIs(t, err, model.ErrOverlap)

	_, err = env.schedule.UpdateWindow(ctx, env.provider.ID, first.ID, tod(t, "11:00"), tod(t, "10:00"))
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = env.schedule.UpdateWindow(ctx, env.customer.ID, first.ID, tod(t, "09:00"), tod(t, "10:00"))
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = env.schedule.UpdateWindow(ctx, env.provider.ID, 999, tod(t, "09:00"), tod(t, "10:00"))
	assert.ErrorIs(t, err, model.ErrNotFound)

	stored, err := env.windows.GetWindow(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "08:30", stored.Start.String(), "failed updates must not change the window")
}

func TestScheduleService_RemoveWindow_KeepsBookings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	w := env.addWindow(t, time.Monday, "09:00", "12:00")
	booking := env.reserve(t, nextMonday, "09:00")

	require.ErrorIs(t, env.schedule.RemoveWindow(ctx, env.customer.ID, w.ID), model.ErrForbidden)
	require.NoError(t, env.schedule.RemoveWindow(ctx, env.provider.ID, w.ID))
	assert.ErrorIs(t, env.schedule.RemoveWindow(ctx, env.provider.ID, w.ID), model.ErrNotFound)

	got, err := env.bookings.Get(ctx, booking.ID, env.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, got.Status)

	windows, err := env.schedule.ListWindows(ctx, env.provider.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestScheduleService_ListWindows_Ordered(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addWindow(t, time.Wednesday, "09:00", "10:00")
	env.addWindow(t, time.Monday, "14:00", "16:00")
	env.addWindow(t, time.Monday, "08:00", "09:00")

	monday := time.Monday
	day, err := env.schedule.ListWindows(ctx, env.provider.ID, &monday)
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.Equal(t, "08:00", day[0].Start.String())
	assert.Equal(t, "14:00", day[1].Start.String())

	all, err := env.schedule.ListWindows(ctx, env.provider.ID, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, time.Wednesday, all[2].Weekday)

	bad := time.Weekday(9)
	_, err = env.schedule.ListWindows(ctx, env.provider.ID, &bad)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestScheduleService_WindowGroup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addWindow(t, time.Monday, "09:00", "12:00")

	// понедельник занят, поэтому не создаётся ни одно окно группы
	_, err := env.schedule.AddWindowGroup(ctx, env.provider.ID,
		[]time.Weekday{time.Wednesday, time.Monday}, tod(t, "10:00"), tod(t, "11:00"))
	assert.ErrorIs(t, err, model.ErrOverlap)

	wednesday := time.Wednesday
	wed, err := env.schedule.ListWindows(ctx, env.provider.ID, &wednesday)
	require.NoError(t, err)
	assert.Empty(t, wed)

	group, err := env.schedule.AddWindowGroup(ctx, env.provider.ID,
		[]time.Weekday{time.Thursday, time.Tuesday, time.Thursday}, tod(t, "10:00"), tod(t, "11:00"))
	require.NoError(t, err)
	require.Len(t, group, 2)
	assert.Equal(t, time.Tuesday, group[0].Weekday)
	assert.Equal(t, time.Thursday, group[1].Weekday)
	assert.Equal(t, group[0].GroupID, group[1].GroupID)

	_, err = env.schedule.AddWindowGroup(ctx, env.provider.ID, nil, tod(t, "10:00"), tod(t, "11:00"))
	assert.ErrorIs(t, err, model.ErrValidation)

	deleted, err := env.schedule.RemoveWindowGroup(ctx, env.provider.ID, group[0].GroupID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = env.schedule.RemoveWindowGroup(ctx, env.provider.ID, group[0].GroupID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestScheduleService_WeeklySchedule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addWindow(t, time.Sunday, "10:00", "12:00")
	env.addWindow(t, time.Saturday, "15:00", "16:00")
	env.addWindow(t, time.Saturday, "09:00", "10:00")

	week, err := env.schedule.WeeklySchedule(ctx, env.provider.ID)
	require.NoError(t, err)
	require.Len(t, week, 7)

	for d, day := range week {
		assert.Equal(t, time.Weekday(d), day.Weekday)
	}
	assert.Len(t, week[time.Sunday].Windows, 1)
	assert.Empty(t, week[time.Monday].Windows)
	require.Len(t, week[time.Saturday].Windows, 2)
	assert.Equal(t, "09:00", week[time.Saturday].Windows[0].Start.String())
}

func TestScheduleService_ConcurrentAddWindow_NoOverlap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var (
		g         errgroup.Group
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 16; i++ {
		// сдвинутые на 15 минут часовые окна попарно пересекаются с соседями
		start := model.NewTimeOfDay(9, 0) + model.TimeOfDay(i%4*15)
		g.Go(func() error {
			_, err := env.schedule.AddWindow(ctx, env.provider.ID, time.Monday, start, start+60)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return nil
			}
			if !assert.ErrorIs(t, err, model.ErrOverlap) {
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, succeeded)

	monday := time.Monday
	windows, err := env.schedule.ListWindows(ctx, env.provider.ID, &monday)
	require.NoError(t, err)
	for i := range windows {
		for j := i + 1; j < len(windows); j++ {
			assert.False(t, windows[i].Overlaps(windows[j].Start, windows[j].End))
		}
	}
}
