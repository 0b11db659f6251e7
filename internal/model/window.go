package model

import (
	"time"

	"github.com/google/uuid"
)

// Window еженедельное окно доступности провайдера
type Window struct {
	ID         int64        `json:"id"`
	GroupID    uuid.UUID    `json:"group_id"` // общий для окон, созданных одной операцией
	ProviderID int64        `json:"provider_id"`
	Weekday    time.Weekday `json:"weekday"` // 0 = Sunday, 6 = Saturday
	Start      TimeOfDay    `json:"start"`
	End        TimeOfDay    `json:"end"` // не включается
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Contains проверяет попадание времени суток в окно [Start, End)
func (w *Window) Contains(t TimeOfDay) bool {
	return w.Start <= t && t < w.End
}

// Overlaps проверяет пересечение с другим окном того же дня
func (w *Window) Overlaps(start, end TimeOfDay) bool {
	return w.Start < end && start < w.End
}

// Span длительность окна
func (w *Window) Span() time.Duration {
	return time.Duration(w.End-w.Start) * time.Minute
}

// ValidWeekday проверяет что день недели в диапазоне 0..6
func ValidWeekday(d time.Weekday) bool {
	return d >= time.Sunday && d <= time.Saturday
}

// DaySchedule окна одного дня недели, упорядоченные по началу
type DaySchedule struct {
	Weekday time.Weekday `json:"weekday"`
	Windows []*Window    `json:"windows"`
}
