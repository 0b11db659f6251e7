package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/slotbook/internal/lock"
	"github.com/Freeeeeet/slotbook/internal/model"
	"github.com/Freeeeeet/slotbook/internal/repository/memory"
	"github.com/Freeeeeet/slotbook/internal/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// sunday 2025-01-05 12:00 UTC, следующий понедельник 2025-01-06
var (
	testNow    = time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC)
	nextMonday = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
)

type testEnv struct {
	locks        *lock.Keyed
	windows      *memory.WindowStore
	ledger       *memory.BookingLedger
	catalogStore *memory.ServiceCatalog
	userStore    *memory.UserStore

	schedule     *service.ScheduleService
	availability *service.AvailabilityService
	bookings     *service.BookingService
	catalog      *service.CatalogService
	users        *service.UserService

	provider *model.User
	customer *model.User
	service  *model.Service // 30 минут
}

type envConfig struct {
	lockTimeout time.Duration
	now         time.Time
	loc         *time.Location
	ledger      service.BookingLedger
}

type envOption func(*envConfig)

func withLockTimeout(d time.Duration) envOption {
	return func(c *envConfig) { c.lockTimeout = d }
}

func withNow(t time.Time) envOption {
	return func(c *envConfig) { c.now = t }
}

func withLocation(loc *time.Location) envOption {
	return func(c *envConfig) { c.loc = loc }
}

func withLedger(l service.BookingLedger) envOption {
	return func(c *envConfig) { c.ledger = l }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	cfg := envConfig{lockTimeout: 2 * time.Second, now: testNow, loc: time.UTC}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := zap.NewNop()
	env := &testEnv{
		locks:        lock.NewKeyed(cfg.lockTimeout),
		catalogStore: memory.NewServiceCatalog(),
		userStore:    memory.NewUserStore(),
	}
	env.windows = memory.NewWindowStore(env.locks)
	env.ledger = memory.NewBookingLedger(env.locks)

	var ledger service.BookingLedger = env.ledger
	if cfg.ledger != nil {
		ledger = cfg.ledger
	}

	svcOpts := []service.Option{
		service.WithClock(func() time.Time { return cfg.now }),
		service.WithLocation(cfg.loc),
		service.WithReserveRetries(2, time.Millisecond),
	}

	env.schedule = service.NewScheduleService(env.windows, logger)
	env.availability = service.NewAvailabilityService(env.windows, ledger, logger, svcOpts...)
	env.bookings = service.NewBookingService(ledger, env.catalogStore, env.availability, logger, svcOpts...)
	env.catalog = service.NewCatalogService(env.catalogStore, env.userStore, logger)
	env.users = service.NewUserService(env.userStore, logger)

	ctx := context.Background()

	provider, err := env.users.RegisterUser(ctx, 100, "master", "Anna", "", "ru")
	require.NoError(t, err)
	env.provider, err = env.users.MakeProvider(ctx, provider.ID)
	require.NoError(t, err)

	env.customer, err = env.users.RegisterUser(ctx, 200, "client", "Ivan", "", "ru")
	require.NoError(t, err)

	env.service, err = env.catalog.CreateService(ctx, service.CreateServiceRequest{
		ProviderID:      env.provider.ID,
		Title:           "Haircut",
		DurationMinutes: 30,
		DisplayPrice:    "1500 RUB",
	})
	require.NoError(t, err)

	return env
}

func tod(t *testing.T, s string) model.TimeOfDay {
	t.Helper()
	v, err := model.ParseTimeOfDay(s)
	require.NoError(t, err)
	return v
}

func (e *testEnv) addWindow(t *testing.T, day time.Weekday, start, end string) *model.Window {
	t.Helper()
	w, err := e.schedule.AddWindow(context.Background(), e.provider.ID, day, tod(t, start), tod(t, end))
	require.NoError(t, err)
	return w
}

func (e *testEnv) newService(t *testing.T, minutes int) *model.Service {
	t.Helper()
	svc, err := e.catalog.CreateService(context.Background(), service.CreateServiceRequest{
		ProviderID:      e.provider.ID,
		Title:           "Service",
		DurationMinutes: minutes,
	})
	require.NoError(t, err)
	return svc
}

func (e *testEnv) reserveRequest(t *testing.T, date time.Time, start string) service.ReserveRequest {
	t.Helper()
	return service.ReserveRequest{
		CustomerID: e.customer.ID,
		ProviderID: e.provider.ID,
		ServiceID:  e.service.ID,
		Date:       date,
		StartTime:  tod(t, start),
	}
}

func (e *testEnv) reserve(t *testing.T, date time.Time, start string) *model.Booking {
	t.Helper()
	b, err := e.bookings.Reserve(context.Background(), e.reserveRequest(t, date, start))
	require.NoError(t, err)
	return b
}

func monAt(hour, minute int) time.Time {
	return nextMonday.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}
