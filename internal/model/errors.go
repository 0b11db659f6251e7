package model

import "errors"

var (
	// ErrValidation некорректные входные данные, исправляется вызывающей стороной
	ErrValidation = errors.New("validation error")
	// ErrOverlap новое окно расписания пересекается с существующим
	ErrOverlap = errors.New("availability window overlaps an existing window")
	// ErrOutsideAvailability запрошенное время вне окон доступности провайдера
	ErrOutsideAvailability = errors.New("requested time is outside provider availability")
	// ErrSlotTaken интервал уже занят другой записью
	ErrSlotTaken = errors.New("slot is no longer available")
	// ErrForbiddenTransition недопустимый переход статуса или не тот участник
	ErrForbiddenTransition = errors.New("forbidden status transition")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
)

var (
	// ErrLockTimeout не удалось получить блокировку провайдера за отведённое время.
	// Единственная ошибка, которую можно повторять автоматически.
	ErrLockTimeout = errors.New("provider lock wait timed out")
	// ErrStatusConflict статус записи изменился между чтением и записью
	ErrStatusConflict = errors.New("booking status changed concurrently")
)

// IsRetryable сообщает, можно ли повторить операцию без изменения входных данных
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
