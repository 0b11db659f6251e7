package handlers

import (
	"errors"

	"github.com/Freeeeeet/slotbook/internal/model"
)

// userMessages порядок важен: ErrStatusConflict оборачивается вместе с ErrForbiddenTransition
var userMessages = []struct {
	err  error
	text string
}{
	{model.ErrStatusConflict, "⚠️ Статус записи только что изменился. Проверьте её ещё раз: /mybookings"},
	{model.ErrForbiddenTransition, "❌ Это действие недоступно для записи в текущем статусе."},
	{model.ErrSlotTaken, "😔 Это время уже занято. Выберите другой слот: /slots"},
	{model.ErrOutsideAvailability, "❌ Провайдер не работает в это время."},
	{model.ErrOverlap, "❌ Окно пересекается с уже существующим окном расписания."},
	{model.ErrLockTimeout, "⏳ Сервис сейчас перегружен. Попробуйте ещё раз через пару секунд."},
	{model.ErrNotFound, "❌ Не найдено."},
	{model.ErrForbidden, "🚫 Нет доступа."},
	{model.ErrValidation, "❌ Некорректные данные. Справка: /help"},
}

// UserMessage переводит ошибку сервиса в текст для пользователя.
// Второе значение false для неожиданных ошибок.
func UserMessage(err error) (string, bool) {
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.text, true
		}
	}
	return "❌ Произошла ошибка. Попробуйте позже.", false
}
