package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Freeeeeet/slotbook/internal/model"
)

// ServiceCatalog услуги в памяти
type ServiceCatalog struct {
	mu       sync.RWMutex
	services map[int64]*model.Service
	nextID   int64
}

func NewServiceCatalog() *ServiceCatalog {
	return &ServiceCatalog{services: make(map[int64]*model.Service)}
}

func (c *ServiceCatalog) CreateService(_ context.Context, s *model.Service) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	s.ID = c.nextID
	s.CreatedAt = time.Now()

	cp := *s
	c.services[s.ID] = &cp
	return nil
}

func (c *ServiceCatalog) GetService(_ context.Context, id int64) (*model.Service, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.services[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (c *ServiceCatalog) ListByProvider(_ context.Context, providerID int64, activeOnly bool) ([]*model.Service, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var result []*model.Service
	for _, s := range c.services {
		if s.ProviderID != providerID || (activeOnly && !s.IsActive) {
			continue
		}
		cp := *s
		result = append(result, &cp)
	}
	slices.SortFunc(result, func(a, b *model.Service) int { return int(a.ID - b.ID) })
	return result, nil
}

func (c *ServiceCatalog) ListActive(_ context.Context, query string, limit, offset int) ([]*model.Service, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	query = strings.ToLower(query)

	var matched []*model.Service
	for _, s := range c.services {
		if !s.IsActive {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(s.Title), query) &&
			!strings.Contains(strings.ToLower(s.Description), query) {
			continue
		}
		cp := *s
		matched = append(matched, &cp)
	}
	slices.SortFunc(matched, func(a, b *model.Service) int { return int(a.ID - b.ID) })

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (c *ServiceCatalog) SetActive(_ context.Context, id int64, active bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.services[id]
	if !ok {
		return fmt.Errorf("service %d: %w", id, model.ErrNotFound)
	}
	s.IsActive = active
	return nil
}
