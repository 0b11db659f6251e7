// Package lock эксклюзивные блокировки по строковому ключу с ограниченным ожиданием.
// Используется in-memory хранилищами вместо advisory locks PostgreSQL.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/slotbook/internal/model"
	"golang.org/x/sync/semaphore"
)

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// Keyed набор семафоров, по одному на ключ.
// Записи удаляются, когда их никто не держит и не ждёт.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]*entry
	timeout time.Duration
}

// NewKeyed создаёт набор блокировок. timeout ограничивает ожидание одного ключа.
// При 0 ожидание длится до отмены контекста.
func NewKeyed(timeout time.Duration) *Keyed {
	return &Keyed{
		entries: make(map[string]*entry),
		timeout: timeout,
	}
}

// Acquire захватывает ключ. Возвращает функцию освобождения.
// Если ключ не удалось получить за timeout, возвращается model.ErrLockTimeout.
func (k *Keyed) Acquire(ctx context.Context, key string) (func(), error) {
	e := k.ref(key)

	waitCtx := ctx
	if k.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, k.timeout)
		defer cancel()
	}

	if err := e.sem.Acquire(waitCtx, 1); err != nil {
		k.unref(key)
		// истёк собственный таймаут, а не контекст вызывающего
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: key %s", model.ErrLockTimeout, key)
		}
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(1)
			k.unref(key)
		})
	}, nil
}

// AcquireAll захватывает ключи в переданном порядке. При ошибке уже взятые ключи освобождаются.
// Вызывающий обязан передавать ключи в одном и том же порядке, иначе возможна взаимная блокировка.
func (k *Keyed) AcquireAll(ctx context.Context, keys []string) (func(), error) {
	releases := make([]func(), 0, len(keys))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}

	for _, key := range keys {
		release, err := k.Acquire(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}

// Len количество ключей, которые сейчас кто-то держит или ждёт
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

func (k *Keyed) ref(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.entries[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		k.entries[key] = e
	}
	e.refs++
	return e
}

func (k *Keyed) unref(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e := k.entries[key]
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

// ProviderKey ключ блокировки записей провайдера
func ProviderKey(providerID int64) string {
	return fmt.Sprintf("booking:%d", providerID)
}

// DayKey ключ блокировки окон провайдера на день недели
func DayKey(providerID int64, weekday time.Weekday) string {
	return fmt.Sprintf("window:%d:%d", providerID, int(weekday))
}
