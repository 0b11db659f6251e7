package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Freeeeeet/slotbook/internal/lock"
	"github.com/Freeeeeet/slotbook/internal/model"
	"github.com/Freeeeeet/slotbook/internal/repository/memory"
	"github.com/Freeeeeet/slotbook/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestBookingService_Reserve(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addWindow(t, time.Monday, "09:00", "12:00")

	req := env.reserveRequest(t, nextMonday, "09:30")
	req.Notes = "first visit"

	b, err := env.bookings.Reserve(ctx, req)
	require.NoError(t, err)

	assert.NotZero(t, b.ID)
	assert.Equal(t, model.BookingStatusPending, b.Status)
	assert.Equal(t, monAt(9, 30), b.StartAt)
	assert.Equal(t, monAt(10, 0), b.EndAt)
	assert.Equal(t, "first visit", b.Notes)
	require.NotNil(t, b.Service)
	assert.Equal(t, env.service.ID, b.Service.ID)
}

func TestBookingService_Reserve_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addWindow(t, time.Monday, "09:00", "12:00")
	env.reserve(t, nextMonday, "10:00")

	other, err := env.users.RegisterUser(ctx, 300, "other", "Olga", "", "ru")
	require.NoError(t, err)
	other, err = env.users.MakeProvider(ctx, other.ID)
	require.NoError(t, err)

	inactive := env.newService(t, 30)
	require.NoError(t, env.catalog.SetServiceActive(ctx, env.provider.ID, inactive.ID, false))

	tests := []struct {
		name    string
		mutate  func(r *service.ReserveRequest)
		wantErr error
	}{
		{"outside window", func(r *service.ReserveRequest) { r.StartTime = tod(t, "13:00") }, model.ErrOutsideAvailability},
		{"window end is exclusive", func(r *service.ReserveRequest) { r.StartTime = tod(t, "12:00") }, model.ErrOutsideAvailability},
		{"wrong weekday", func(r *service.ReserveRequest) { r.Date = nextMonday.AddDate(0, 0, 1) }, model.ErrOutsideAvailability},
		{"same slot", func(r *service.ReserveRequest) {}, model.ErrSlotTaken},
		{"overlapping start", func(r *service.ReserveRequest) { r.StartTime = tod(t, "09:45") }, model.ErrSlotTaken},
		{"in the past", func(r *service.ReserveRequest) { r.Date = nextMonday.AddDate(0, 0, -7) }, model.ErrValidation},
		{"notes too long", func(r *service.ReserveRequest) { r.Notes = strings.Repeat("я", 501) }, model.ErrValidation},
		{"missing customer", func(r *service.ReserveRequest) { r.CustomerID = 0 }, model.ErrValidation},
		{"missing date", func(r *service.ReserveRequest) { r.Date = time.Time{} }, model.ErrValidation},
		{"unknown service", func(r *service.ReserveRequest) { r.ServiceID = 999 }, model.ErrValidation},
		{"service of another provider", func(r *service.ReserveRequest) { r.ProviderID = other.ID }, model.ErrValidation},
		{"inactive service", func(r *service.ReserveRequest) { r.ServiceID = inactive.ID }, model.ErrValidation},
		{"own service", func(r *service.ReserveRequest) { r.CustomerID = env.provider.ID }, model.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := env.reserveRequest(t, nextMonday, "10:00")
			tt.mutate(&req)

			b, err := env.bookings.Reserve(ctx, req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, b)
			assert.False(t, model.IsRetryable(err))
		})
	}
}

func TestBookingService_Reserve_NotesLimitCountsRunes(t *testing.T) {
	env := newTestEnv(t)
	env.addWindow(t, time.Monday, "09:00", "12:00")

	req := env.reserveRequest(t, nextMonday, "09:00")
	req.Notes = strings.Repeat("я", service.MaxNotesLength)

	_, err := env.bookings.Reserve(context.Background(), req)
	assert.NoError(t, err)
}

func TestBookingService_Reserve_ConcurrentSameSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addWindow(t, time.Monday, "09:00", "12:00")

	const callers = 25
	var (
		g         errgroup.Group
		succeeded atomic.Int32
		taken     atomic.Int32
	)
	for i := 0; i < callers; i++ {
		customer, err := env.users.RegisterUser(ctx, int64(1000+i), "", "Customer", "", "ru")
		require.NoError(t, err)

		req := env.reserveRequest(t, nextMonday, "09:00")
		req.CustomerID = customer.ID

		g.Go(func() error {
			_, err := env.bookings.Reserve(ctx, req)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, model.ErrSlotTaken):
				taken.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(callers-1), taken.Load())

	bookings, err := env.bookings.ProviderBookingsOn(ctx, env.provider.ID, nextMonday)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, model.BookingStatusPending, bookings[0].Status)
}

func TestBookingService_Reserve_ConcurrentNeverOverlaps(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addWindow(t, time.Monday, "09:00", "12:00")
	long := env.newService(t, 45)

	var g errgroup.Group
	for i := 0; i < 36; i++ {
		// начала с шагом 5 минут, записи по 30 и 45 минут
		start := model.NewTimeOfDay(9, 0) + model.TimeOfDay(i*5)
		serviceID := env.service.ID
		if i%2 == 1 {
			serviceID = long.ID
		}
		req := env.reserveRequest(t, nextMonday, "09:00")
		req.StartTime = start
		req.ServiceID = serviceID

		g.Go(func() error {
			_, err := env.bookings.Reserve(ctx, req)
			if err != nil && !errors.Is(err, model.ErrSlotTaken) {
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	bookings, err := env.bookings.ProviderBookingsOn(ctx, env.provider.ID, nextMonday)
	require.NoError(t, err)
	require.NotEmpty(t, bookings)

	for i := range bookings {
		for j := i + 1; j < len(bookings); j++ {
			assert.False(t, bookings[i].Overlaps(bookings[j].StartAt, bookings[j].EndAt),
				"bookings %d and %d overlap", bookings[i].ID, bookings[j].ID)
		}
	}
}

func TestBookingService_Reserve_DifferentProvidersDoNotBlock(t *testing.T) {
	env := newTestEnv(t, withLockTimeout(50*time.Millisecond))
	ctx := context.Background()

	env.addWindow(t, time.Monday, "09:00", "12:00")

	// чужой провайдер держит свою блокировку
	release, err := env.locks.Acquire(ctx, lock.ProviderKey(env.provider.ID+100))
	require.NoError(t, err)
	defer release()

	_, err = env.bookings.Reserve(ctx, env.reserveRequest(t, nextMonday, "09:00"))
	assert.NoError(t, err)
}

func TestBookingService_Reserve_LockTimeoutIsRetryable(t *testing.T) {
	env := newTestEnv(t, withLockTimeout(20*time.Millisecond))
	ctx := context.Background()

	env.addWindow(t, time.Monday, "09:00", "12:00")

	release, err := env.locks.Acquire(ctx, lock.ProviderKey(env.provider.ID))
	require.NoError(t, err)
	defer release()

	_, err = env.bookings.Reserve(ctx, env.reserveRequest(t, nextMonday, "09:00"))
	assert.ErrorIs(t, err, model.ErrLockTimeout)
	assert.True(t, model.IsRetryable(err))
}

// flakyLedger отдаёт таймаут блокировки первые failures раз
type flakyLedger struct {
	*memory.BookingLedger
	failures int32
	calls    atomic.Int32
}

func (l *flakyLedger) WithProviderLock(ctx context.Context, providerID int64, fn func(ctx context.Context, tx service.LedgerTx) error) error {
	if l.calls.Add(1) <= l.failures {
		return model.ErrLockTimeout
	}
	return l.BookingLedger.WithProviderLock(ctx, providerID, fn)
}

func TestBookingService_Reserve_RetriesLockTimeout(t *testing.T) {
	flaky := &flakyLedger{BookingLedger: memory.NewBookingLedger(lock.NewKeyed(time.Second)), failures: 2}
	env := newTestEnv(t, withLedger(flaky))

	env.addWindow(t, time.Monday, "09:00", "12:00")

	b, err := env.bookings.Reserve(context.Background(), env.reserveRequest(t, nextMonday, "09:00"))
	require.NoError(t, err)
	assert.NotZero(t, b.ID)
	assert.Equal(t, int32(3), flaky.calls.Load())
}

func TestBookingService_Reserve_RetriesExhausted(t *testing.T) {
	flaky := &flakyLedger{BookingLedger: memory.NewBookingLedger(lock.NewKeyed(time.Second)), failures: 10}
	env := newTestEnv(t, withLedger(flaky))

	env.addWindow(t, time.Monday, "09:00", "12:00")

	_, err := env.bookings.Reserve(context.Background(), env.reserveRequest(t, nextMonday, "09:00"))
	assert.ErrorIs(t, err, model.ErrLockTimeout)
	// первая попытка и два повтора
	assert.Equal(t, int32(3), flaky.calls.Load())
}

func TestBookingService_TransitionStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addWindow(t, time.Monday, "09:00", "12:00")

	stranger, err := env.users.RegisterUser(ctx, 400, "stranger", "Petr", "", "ru")
	require.NoError(t, err)

	b := env.reserve(t, nextMonday, "09:00")

	_, err = env.bookings.TransitionStatus(ctx, b.ID, env.customer.ID, model.BookingStatusConfirmed)
	assert.ErrorIs(t, err, model.ErrForbiddenTransition, "only the provider confirms")

	_, err = env.bookings.TransitionStatus(ctx, b.ID, env.provider.ID, model.BookingStatusCompleted)
	assert.ErrorIs(t, err, model.ErrForbiddenTransition, "pending cannot be completed")

	_, err = env.bookings.TransitionStatus(ctx, b.ID, stranger.ID, model.BookingStatusCancelled)
	assert.ErrorIs(t, err, model.ErrForbiddenTransition)

	_, err = env.bookings.TransitionStatus(ctx, 999, env.provider.ID, model.BookingStatusConfirmed)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = env.bookings.TransitionStatus(ctx, b.ID, env.provider.ID, model.BookingStatus("archived"))
	assert.ErrorIs(t, err, model.ErrValidation)

	confirmed, err := env.bookings.Confirm(ctx, b.ID, env.provider.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, confirmed.Status)

	_, err = env.bookings.Decline(ctx, b.ID, env.provider.ID)
	assert.ErrorIs(t, err, model.ErrForbiddenTransition, "confirmed cannot be declined")

	completed, err := env.bookings.Complete(ctx, b.ID, env.provider.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCompleted, completed.Status)

	_, err = env.bookings.Cancel(ctx, b.ID, env.customer.ID)
	assert.ErrorIs(t, err, model.ErrForbiddenTransition, "completed is terminal")
}

func TestBookingService_CancelConfirmed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addWindow(t, time.Monday, "09:00", "12:00")
	b := env.reserve(t, nextMonday, "09:00")

	_, err := env.bookings.Confirm(ctx, b.ID, env.provider.ID)
	require.NoError(t, err)

	_, err = env.bookings.Cancel(ctx, b.ID, env.provider.ID)
	assert.ErrorIs(t, err, model.ErrForbiddenTransition, "only the customer cancels")

	cancelled, err := env.bookings.Cancel(ctx, b.ID, env.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, cancelled.Status)

	// освобождённое время снова можно занять
	again := env.reserve(t, nextMonday, "09:00")
	assert.NotEqual(t, b.ID, again.ID)
}

func TestBookingService_CompletedStillOccupies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addWindow(t, time.Monday, "09:00", "12:00")
	b := env.reserve(t, nextMonday, "09:00")

	_, err := env.bookings.Confirm(ctx, b.ID, env.provider.ID)
	require.NoError(t, err)
	_, err = env.bookings.Complete(ctx, b.ID, env.provider.ID)
	require.NoError(t, err)

	_, err = env.bookings.Reserve(ctx, env.reserveRequest(t, nextMonday, "09:00"))
	assert.ErrorIs(t, err, model.ErrSlotTaken)
}

func TestBookingService_ConcurrentCancelAndDecline(t *testing.T) {
	for round := 0; round < 20; round++ {
		env := newTestEnv(t)
		ctx := context.Background()

		env.addWindow(t, time.Monday, "09:00", "12:00")
		b := env.reserve(t, nextMonday, "09:00")

		var (
			wg   sync.WaitGroup
			wins atomic.Int32
			errs = make(chan error, 2)
		)
		transitions := []func() (*model.Booking, error){
			func() (*model.Booking, error) { return env.bookings.Cancel(ctx, b.ID, env.customer.ID) },
			func() (*model.Booking, error) { return env.bookings.Decline(ctx, b.ID, env.provider.ID) },
		}
		for _, transition := range transitions {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := transition(); err != nil {
					errs <- err
					return
				}
				wins.Add(1)
			}()
		}
		wg.Wait()
		close(errs)

		require.Equal(t, int32(1), wins.Load())
		for err := range errs {
			assert.ErrorIs(t, err, model.ErrForbiddenTransition)
		}
	}
}

func TestBookingService_Get(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addWindow(t, time.Monday, "09:00", "12:00")
	b := env.reserve(t, nextMonday, "09:00")

	got, err := env.bookings.Get(ctx, b.ID, env.provider.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Service)
	assert.Equal(t, "Haircut", got.Service.Title)

	_, err = env.bookings.Get(ctx, b.ID, 12345)
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = env.bookings.Get(ctx, 999, env.provider.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestBookingService_CustomerBookings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addWindow(t, time.Monday, "09:00", "12:00")
	first := env.reserve(t, nextMonday, "09:00")
	second := env.reserve(t, nextMonday, "10:00")

	_, err := env.bookings.Cancel(ctx, second.ID, env.customer.ID)
	require.NoError(t, err)

	all, err := env.bookings.CustomerBookings(ctx, env.customer.ID, model.BookingFilterAll)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	upcoming, err := env.bookings.CustomerBookings(ctx, env.customer.ID, model.BookingFilterUpcoming)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, first.ID, upcoming[0].ID)

	past, err := env.bookings.CustomerBookings(ctx, env.customer.ID, model.BookingFilterPast)
	require.NoError(t, err)
	assert.Empty(t, past)

	_, err = env.bookings.CustomerBookings(ctx, env.customer.ID, model.BookingFilter("soon"))
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestBookingService_ProviderStats(t *testing.T) {
	mondayMorning := time.Date(2025, 1, 6, 7, 0, 0, 0, time.UTC)
	env := newTestEnv(t, withNow(mondayMorning))
	ctx := context.Background()

	env.addWindow(t, time.Monday, "09:00", "12:00")
	env.addWindow(t, time.Wednesday, "09:00", "12:00")

	complete := func(b *model.Booking) {
		t.Helper()
		_, err := env.bookings.Confirm(ctx, b.ID, env.provider.ID)
		require.NoError(t, err)
		_, err = env.bookings.Complete(ctx, b.ID, env.provider.ID)
		require.NoError(t, err)
	}

	env.reserve(t, nextMonday, "09:00")
	declined := env.reserve(t, nextMonday, "10:00")
	_, err := env.bookings.Decline(ctx, declined.ID, env.provider.ID)
	require.NoError(t, err)
	complete(env.reserve(t, nextMonday, "11:00"))

	// среда этой недели, следующий понедельник и февраль
	env.reserve(t, nextMonday.AddDate(0, 0, 2), "09:00")
	complete(env.reserve(t, nextMonday.AddDate(0, 0, 7), "09:00"))
	complete(env.reserve(t, time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC), "09:00"))

	stats, err := env.bookings.ProviderStats(ctx, env.provider.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Today)
	assert.Equal(t, 4, stats.ThisWeek)
	assert.Equal(t, 2, stats.CompletedThisMonth)

	empty, err := env.bookings.ProviderStats(ctx, env.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProviderStats{}, *empty)
}
