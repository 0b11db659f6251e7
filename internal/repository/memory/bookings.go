package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Freeeeeet/slotbook/internal/lock"
	"github.com/Freeeeeet/slotbook/internal/model"
	"github.com/Freeeeeet/slotbook/internal/service"
)

// BookingLedger журнал записей в памяти.
// Проверка и вставка под WithProviderLock сериализуются блокировкой провайдера из lock.Keyed.
type BookingLedger struct {
	mu       sync.RWMutex
	bookings map[int64]*model.Booking
	nextID   int64
	locks    *lock.Keyed
	now      func() time.Time
}

func NewBookingLedger(locks *lock.Keyed) *BookingLedger {
	return &BookingLedger{
		bookings: make(map[int64]*model.Booking),
		locks:    locks,
		now:      time.Now,
	}
}

func (l *BookingLedger) Get(_ context.Context, id int64) (*model.Booking, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	b, ok := l.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (l *BookingLedger) HasOverlap(_ context.Context, providerID int64, start, end time.Time, exclude ...model.BookingStatus) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.hasOverlap(providerID, start, end, exclude), nil
}

func (l *BookingLedger) hasOverlap(providerID int64, start, end time.Time, exclude []model.BookingStatus) bool {
	if len(exclude) == 0 {
		exclude = model.ReleasedStatuses
	}
	for _, b := range l.bookings {
		if b.ProviderID == providerID && !b.Status.In(exclude) && b.Overlaps(start, end) {
			return true
		}
	}
	return false
}

func (l *BookingLedger) FindByProviderAndDate(ctx context.Context, providerID int64, date time.Time) ([]*model.Booking, error) {
	day := model.StartOfDay(date)
	return l.ListByProviderBetween(ctx, providerID, day, day.AddDate(0, 0, 1))
}

func (l *BookingLedger) ListByProviderBetween(_ context.Context, providerID int64, from, to time.Time) ([]*model.Booking, error) {
	return l.filter(func(b *model.Booking) bool {
		return b.ProviderID == providerID && !b.StartAt.Before(from) && b.StartAt.Before(to)
	}, false), nil
}

func (l *BookingLedger) ListByCustomer(_ context.Context, customerID int64) ([]*model.Booking, error) {
	return l.filter(func(b *model.Booking) bool {
		return b.CustomerID == customerID
	}, true), nil
}

func (l *BookingLedger) filter(match func(*model.Booking) bool, newestFirst bool) []*model.Booking {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []*model.Booking
	for _, b := range l.bookings {
		if match(b) {
			cp := *b
			result = append(result, &cp)
		}
	}

	slices.SortFunc(result, func(a, b *model.Booking) int {
		if c := a.StartAt.Compare(b.StartAt); c != 0 {
			if newestFirst {
				return -c
			}
			return c
		}
		return int(a.ID - b.ID)
	})
	return result
}

// WithProviderLock вставки fn применяются только если fn завершилась без ошибки
func (l *BookingLedger) WithProviderLock(ctx context.Context, providerID int64, fn func(ctx context.Context, tx service.LedgerTx) error) error {
	release, err := l.locks.Acquire(ctx, lock.ProviderKey(providerID))
	if err != nil {
		return err
	}
	defer release()

	tx := &ledgerTx{ledger: l}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	// последняя линия защиты, как exclusion constraint в PostgreSQL
	for i, b := range tx.pending {
		if !b.Status.In(model.ActiveStatuses) {
			continue
		}
		taken := l.hasOverlap(b.ProviderID, b.StartAt, b.EndAt, nil)
		for _, other := range tx.pending[:i] {
			taken = taken || (other.ProviderID == b.ProviderID && other.Status.In(model.ActiveStatuses) && other.Overlaps(b.StartAt, b.EndAt))
		}
		if taken {
			return fmt.Errorf("%w: %s", model.ErrSlotTaken, b.StartAt.Format("2006-01-02 15:04"))
		}
	}
	for _, b := range tx.pending {
		l.bookings[b.ID] = b
	}
	return nil
}

func (l *BookingLedger) UpdateStatus(_ context.Context, id int64, from, to model.BookingStatus) (*model.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %d: %w", id, model.ErrNotFound)
	}
	if b.Status != from {
		return nil, fmt.Errorf("booking %d is %s, expected %s: %w", id, b.Status, from, model.ErrStatusConflict)
	}

	b.Status = to
	b.UpdatedAt = l.now()

	cp := *b
	return &cp, nil
}

type ledgerTx struct {
	ledger  *BookingLedger
	pending []*model.Booking
}

func (tx *ledgerTx) HasOverlap(ctx context.Context, providerID int64, start, end time.Time, exclude ...model.BookingStatus) (bool, error) {
	taken, err := tx.ledger.HasOverlap(ctx, providerID, start, end, exclude...)
	if err != nil || taken {
		return taken, err
	}

	if len(exclude) == 0 {
		exclude = model.ReleasedStatuses
	}
	for _, b := range tx.pending {
		if b.ProviderID == providerID && !b.Status.In(exclude) && b.Overlaps(start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (tx *ledgerTx) Insert(_ context.Context, b *model.Booking) error {
	if !b.StartAt.Before(b.EndAt) {
		return fmt.Errorf("%w: booking start must be before end", model.ErrValidation)
	}

	tx.ledger.mu.Lock()
	tx.ledger.nextID++
	b.ID = tx.ledger.nextID
	tx.ledger.mu.Unlock()

	now := tx.ledger.now()
	b.CreatedAt = now
	b.UpdatedAt = now

	cp := *b
	tx.pending = append(tx.pending, &cp)
	return nil
}
