package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/slotbook/internal/model"
)

// UserStore пользователи в памяти
type UserStore struct {
	mu         sync.RWMutex
	users      map[int64]*model.User
	byTelegram map[int64]int64
	nextID     int64
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:      make(map[int64]*model.User),
		byTelegram: make(map[int64]int64),
	}
}

func (s *UserStore) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byTelegram[u.TelegramID]; ok {
		return fmt.Errorf("user with telegram id %d already exists", u.TelegramID)
	}

	s.nextID++
	u.ID = s.nextID
	u.CreatedAt = time.Now()

	cp := *u
	s.users[u.ID] = &cp
	s.byTelegram[u.TelegramID] = u.ID
	return nil
}

func (s *UserStore) Update(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; !ok {
		return fmt.Errorf("user %d: %w", u.ID, model.ErrNotFound)
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id int64) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *UserStore) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	s.mu.RLock()
	id, ok := s.byTelegram[telegramID]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	return s.GetByID(ctx, id)
}
