package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/slotbook/internal/model"
	"go.uber.org/zap"
)

const (
	MinServiceDuration = 5
	MaxServiceDuration = 480
	// MaxDaysAhead наибольший горизонт поиска свободных дат
	MaxDaysAhead = 60
	// CatalogPageSize услуг на одной странице каталога
	CatalogPageSize = 10
	maxCatalogQuery = 100
)

// CatalogPage страница общего каталога услуг
type CatalogPage struct {
	Services []*model.Service
	Page     int
	HasNext  bool
}

// CreateServiceRequest данные новой услуги
type CreateServiceRequest struct {
	ProviderID      int64  `validate:"gt=0"`
	Title           string `validate:"min=3,max=100"`
	Description     string `validate:"max=1000"`
	DurationMinutes int    `validate:"min=5,max=480"`
	DisplayPrice    string `validate:"max=32"`
}

// CatalogService услуги провайдеров
type CatalogService struct {
	services ServiceCatalog
	users    UserStore
	logger   *zap.Logger
}

func NewCatalogService(services ServiceCatalog, users UserStore, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		services: services,
		users:    users,
		logger:   logger,
	}
}

// CreateService создаёт услугу. Владеть услугами могут только провайдеры.
func (s *CatalogService) CreateService(ctx context.Context, req CreateServiceRequest) (*model.Service, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.DisplayPrice = strings.TrimSpace(req.DisplayPrice)

	if err := validateStruct(req); err != nil {
		return nil, err
	}

	provider, err := s.users.GetByID(ctx, req.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("get provider: %w", err)
	}
	if provider == nil {
		return nil, fmt.Errorf("user %d: %w", req.ProviderID, model.ErrNotFound)
	}
	if !provider.IsProvider {
		return nil, fmt.Errorf("user %d is not a provider: %w", req.ProviderID, model.ErrForbidden)
	}

	svc := &model.Service{
		ProviderID:      req.ProviderID,
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		DisplayPrice:    req.DisplayPrice,
		IsActive:        true,
	}

	if err := s.services.CreateService(ctx, svc); err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}

	s.logger.Info("Service created",
		zap.Int64("service_id", svc.ID),
		zap.Int64("provider_id", svc.ProviderID),
		zap.String("title", svc.Title),
		zap.Int("duration_minutes", svc.DurationMinutes),
	)

	return svc, nil
}

// GetService услуга по ID
func (s *CatalogService) GetService(ctx context.Context, id int64) (*model.Service, error) {
	svc, err := s.services.GetService(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	if svc == nil {
		return nil, fmt.Errorf("service %d: %w", id, model.ErrNotFound)
	}
	return svc, nil
}

// ListProviderServices услуги провайдера
func (s *CatalogService) ListProviderServices(ctx context.Context, providerID int64, activeOnly bool) ([]*model.Service, error) {
	services, err := s.services.ListByProvider(ctx, providerID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return services, nil
}

// BrowseServices активные услуги всех провайдеров постранично, с необязательным поиском
// по названию и описанию. Страницы нумеруются с 1.
func (s *CatalogService) BrowseServices(ctx context.Context, query string, page int) (*CatalogPage, error) {
	query = strings.TrimSpace(query)
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be positive", model.ErrValidation)
	}
	if len([]rune(query)) > maxCatalogQuery {
		return nil, fmt.Errorf("%w: search query is longer than %d characters", model.ErrValidation, maxCatalogQuery)
	}

	services, err := s.services.ListActive(ctx, query, CatalogPageSize+1, (page-1)*CatalogPageSize)
	if err != nil {
		return nil, fmt.Errorf("list active services: %w", err)
	}

	result := &CatalogPage{Page: page}
	if len(services) > CatalogPageSize {
		result.HasNext = true
		services = services[:CatalogPageSize]
	}
	result.Services = services
	return result, nil
}

// SetServiceActive включает или выключает услугу. Выключенную услугу нельзя забронировать,
// существующие записи остаются.
func (s *CatalogService) SetServiceActive(ctx context.Context, providerID, serviceID int64, active bool) error {
	svc, err := s.GetService(ctx, serviceID)
	if err != nil {
		return err
	}
	if svc.ProviderID != providerID {
		return fmt.Errorf("service %d: %w", serviceID, model.ErrForbidden)
	}

	if err := s.services.SetActive(ctx, serviceID, active); err != nil {
		return fmt.Errorf("set service active: %w", err)
	}

	s.logger.Info("Service active flag changed",
		zap.Int64("service_id", serviceID),
		zap.Bool("active", active),
	)
	return nil
}
