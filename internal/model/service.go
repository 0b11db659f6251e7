package model

import "time"

// Service услуга провайдера
type Service struct {
	ID              int64     `json:"id"`
	ProviderID      int64     `json:"provider_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration_minutes"`
	DisplayPrice    string    `json:"display_price"` // только для отображения
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

// Duration длительность услуги
func (s *Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}
