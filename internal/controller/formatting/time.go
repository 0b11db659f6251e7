package formatting

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/slotbook/internal/model"
)

// FormatDateTime форматирует дату и время
func FormatDateTime(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}

// FormatDate форматирует только дату
func FormatDate(t time.Time) string {
	return t.Format("02.01.2006")
}

// FormatDateWithWeekday форматирует дату с кратким днём недели
func FormatDateWithWeekday(t time.Time) string {
	return fmt.Sprintf("%s (%s)", t.Format("02.01.2006"), GetWeekdayShortName(t.Weekday()))
}

// FormatTimeRange форматирует диапазон времени
func FormatTimeRange(start, end time.Time) string {
	return fmt.Sprintf("%s-%s", start.Format("15:04"), end.Format("15:04"))
}

// FormatWindow форматирует окно расписания
func FormatWindow(w *model.Window) string {
	return fmt.Sprintf("%s-%s", w.Start, w.End)
}

// FormatDuration форматирует длительность в минутах
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d мин", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	if mins == 0 {
		return fmt.Sprintf("%d ч", hours)
	}
	return fmt.Sprintf("%d ч %d мин", hours, mins)
}

var (
	weekdayNames      = []string{"Воскресенье", "Понедельник", "Вторник", "Среда", "Четверг", "Пятница", "Суббота"}
	weekdayShortNames = []string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}
)

// GetWeekdayName возвращает название дня недели на русском
func GetWeekdayName(weekday time.Weekday) string {
	if model.ValidWeekday(weekday) {
		return weekdayNames[weekday]
	}
	return "Неизвестно"
}

// GetWeekdayShortName возвращает краткое название дня недели на русском
func GetWeekdayShortName(weekday time.Weekday) string {
	if model.ValidWeekday(weekday) {
		return weekdayShortNames[weekday]
	}
	return "?"
}

// FormatSlots перечисляет начала слотов в одну строку
func FormatSlots(slots []model.Slot) string {
	starts := make([]string, len(slots))
	for i, s := range slots {
		starts[i] = s.Start.Format("15:04")
	}
	return strings.Join(starts, " ")
}
