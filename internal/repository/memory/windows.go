// Package memory хранилища в памяти процесса.
// Используются для локального запуска (STORAGE=memory) и в тестах сервисов.
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
	"github.com/google/uuid"
)

// WindowStore окна доступности в памяти
type WindowStore struct {
	mu      sync.RWMutex
	windows map[int64]*model.Window
	nextID  int64
	locks   *lock.Keyed
	now     func() time.Time
}

func NewWindowStore(locks *lock.Keyed) *WindowStore {
	return &WindowStore{
		windows: make(map[int64]*model.Window),
		locks:   locks,
		now:     time.Now,
	}
}

func (s *WindowStore) ListWindows(_ context.Context, providerID int64, weekday *time.Weekday) ([]*model.Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(providerID, weekday), nil
}

func (s *WindowStore) list(providerID int64, weekday *time.Weekday) []*model.Window {
	var result []*model.Window
	for _, w := range s.windows {
		if w.ProviderID != providerID {
			continue
		}
		if weekday != nil && w.Weekday != *weekday {
			continue
		}
		cp := *w
		result = append(result, &cp)
	}

	slices.SortFunc(result, func(a, b *model.Window) int {
		if a.Weekday != b.Weekday {
			return int(a.Weekday - b.Weekday)
		}
		if a.Start != b.Start {
			return int(a.Start - b.Start)
		}
		return int(a.ID - b.ID)
	})
	return result
}

func (s *WindowStore) GetWindow(_ context.Context, id int64) (*model.Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.windows[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (s *WindowStore) DeleteWindow(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.windows, id)
	return nil
}

func (s *WindowStore) DeleteGroup(_ context.Context, providerID int64, groupID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, w := range s.windows {
		if w.ProviderID == providerID && w.GroupID == groupID {
			delete(s.windows, id)
			deleted++
		}
	}
	return deleted, nil
}

// WithDayLocks держит блокировки дней и применяет изменения fn только при успехе
func (s *WindowStore) WithDayLocks(ctx context.Context, providerID int64, days []time.Weekday, fn func(ctx context.Context, tx service.WindowTx) error) error {
	sorted := slices.Clone(days)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	keys := make([]string, len(sorted))
	for i, d := range sorted {
		keys[i] = lock.DayKey(providerID, d)
	}

	release, err := s.locks.AcquireAll(ctx, keys)
	if err != nil {
		return err
	}
	defer release()

	tx := &windowTx{store: s, pending: make(map[int64]*model.Window), created: make(map[int64]bool)}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, w := range tx.pending {
		// окно могли удалить, пока шла транзакция
		if _, ok := s.windows[id]; !ok && !tx.created[id] {
			continue
		}
		s.windows[id] = w
	}
	return nil
}

type windowTx struct {
	store   *WindowStore
	pending map[int64]*model.Window
	created map[int64]bool
}

func (tx *windowTx) ListWindows(_ context.Context, providerID int64, weekday *time.Weekday) ([]*model.Window, error) {
	tx.store.mu.RLock()
	committed := tx.store.list(providerID, weekday)
	tx.store.mu.RUnlock()

	byID := make(map[int64]*model.Window, len(committed))
	for _, w := range committed {
		byID[w.ID] = w
	}
	for id, w := range tx.pending {
		if w.ProviderID == providerID && (weekday == nil || w.Weekday == *weekday) {
			cp := *w
			byID[id] = &cp
		}
	}

	result := make([]*model.Window, 0, len(byID))
	for _, w := range byID {
		result = append(result, w)
	}
	slices.SortFunc(result, func(a, b *model.Window) int {
		if a.Weekday != b.Weekday {
			return int(a.Weekday - b.Weekday)
		}
		return int(a.Start - b.Start)
	})
	return result, nil
}

func (tx *windowTx) CreateWindow(_ context.Context, w *model.Window) error {
	tx.store.mu.Lock()
	tx.store.nextID++
	w.ID = tx.store.nextID
	tx.store.mu.Unlock()

	now := tx.store.now()
	w.CreatedAt = now
	w.UpdatedAt = now

	cp := *w
	tx.pending[w.ID] = &cp
	tx.created[w.ID] = true
	return nil
}

func (tx *windowTx) UpdateWindow(_ context.Context, w *model.Window) error {
	if _, ok := tx.pending[w.ID]; !ok {
		tx.store.mu.RLock()
		_, ok := tx.store.windows[w.ID]
		tx.store.mu.RUnlock()
		if !ok {
			return fmt.Errorf("window %d: %w", w.ID, model.ErrNotFound)
		}
	}

	w.UpdatedAt = tx.store.now()
	cp := *w
	tx.pending[w.ID] = &cp
	return nil
}
