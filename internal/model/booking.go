package model

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"   // Ожидает решения провайдера
	BookingStatusConfirmed BookingStatus = "confirmed" // Подтверждено
	BookingStatusDeclined  BookingStatus = "declined"  // Отклонено провайдером
	BookingStatusCancelled BookingStatus = "cancelled" // Отменено клиентом
	BookingStatusCompleted BookingStatus = "completed" // Завершено
)

// ActiveStatuses статусы, которые занимают время провайдера
var ActiveStatuses = []BookingStatus{BookingStatusPending, BookingStatusConfirmed}

// ReleasedStatuses статусы, которые по умолчанию не учитываются при проверке пересечений
var ReleasedStatuses = []BookingStatus{BookingStatusCancelled, BookingStatusDeclined}

// ParseBookingStatus проверяет что строка является известным статусом
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	switch status {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusDeclined,
		BookingStatusCancelled, BookingStatusCompleted:
		return status, nil
	}
	return "", fmt.Errorf("%w: unknown booking status %q", ErrValidation, s)
}

// IsTerminal сообщает что из статуса нет переходов
func (s BookingStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// In проверяет принадлежность статуса списку
func (s BookingStatus) In(statuses []BookingStatus) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

// Role роль участника по отношению к конкретной записи
type Role string

const (
	RoleCustomer Role = "customer"
	RoleProvider Role = "provider"
)

// transitions таблица допустимых переходов и кто их может выполнять.
// Все проверки переходов статуса идут только через CanTransition.
var transitions = map[BookingStatus]map[BookingStatus]Role{
	BookingStatusPending: {
		BookingStatusConfirmed: RoleProvider,
		BookingStatusDeclined:  RoleProvider,
		BookingStatusCancelled: RoleCustomer,
	},
	BookingStatusConfirmed: {
		BookingStatusCancelled: RoleCustomer,
		BookingStatusCompleted: RoleProvider,
	},
}

// CanTransition проверяет, может ли участник с ролью role перевести запись из from в to
func CanTransition(from, to BookingStatus, role Role) bool {
	allowed, ok := transitions[from][to]
	return ok && allowed == role
}

type Booking struct {
	ID         int64         `json:"id"`
	CustomerID int64         `json:"customer_id"`
	ProviderID int64         `json:"provider_id"`
	ServiceID  int64         `json:"service_id"`
	StartAt    time.Time     `json:"start_at"`
	EndAt      time.Time     `json:"end_at"` // не включается
	Status     BookingStatus `json:"status"`
	Notes      string        `json:"notes,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`

	// Дополнительные поля для удобства (не из БД)
	Service *Service `json:"service,omitempty"`
}

// RoleOf роль участника в записи. Клиент и провайдер записи всегда разные пользователи.
func (b *Booking) RoleOf(actorID int64) (Role, bool) {
	switch actorID {
	case b.ProviderID:
		return RoleProvider, true
	case b.CustomerID:
		return RoleCustomer, true
	}
	return "", false
}

// Overlaps проверяет пересечение записи с интервалом [start, end)
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartAt.Before(end) && start.Before(b.EndAt)
}

// BookingFilter фильтр списка записей клиента
type BookingFilter string

const (
	BookingFilterAll      BookingFilter = "all"
	BookingFilterUpcoming BookingFilter = "upcoming" // начало в будущем, без отменённых
	BookingFilterPast     BookingFilter = "past"     // начало в прошлом
)

// ProviderStats сводка для провайдера
type ProviderStats struct {
	Today              int `json:"today"`                // записи, начинающиеся сегодня
	ThisWeek           int `json:"this_week"`            // неделя с понедельника
	CompletedThisMonth int `json:"completed_this_month"` // завершённые в текущем месяце
}
