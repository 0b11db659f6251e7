package service

import "time"

type options struct {
	now       func() time.Time
	loc       *time.Location
	retries   uint64
	retryBase time.Duration
	daysAhead int
}

func defaultOptions() options {
	return options{
		now:       time.Now,
		loc:       time.UTC,
		retries:   3,
		retryBase: 50 * time.Millisecond,
		daysAhead: 7,
	}
}

// Option настройка сервисов
type Option func(*options)

// WithClock подменяет источник текущего времени
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLocation рабочий часовой пояс. Все даты и времена суток трактуются в нём.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

// WithReserveRetries число повторов записи при таймауте блокировки и начальная пауза
func WithReserveRetries(retries uint64, base time.Duration) Option {
	return func(o *options) {
		o.retries = retries
		if base > 0 {
			o.retryBase = base
		}
	}
}

// WithDaysAhead горизонт GetAvailableDates по умолчанию
func WithDaysAhead(days int) Option {
	return func(o *options) {
		if days > 0 {
			o.daysAhead = days
		}
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// nowIn текущее время в рабочем часовом поясе
func (o options) nowIn() time.Time {
	return o.now().In(o.loc)
}

// dayOf полночь календарной даты date в рабочем часовом поясе.
// Берётся год, месяц и день самого значения, без перевода в рабочий пояс.
func (o options) dayOf(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, o.loc)
}
