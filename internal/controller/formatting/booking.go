package formatting

import (
	"fmt"
	"strings"

	"github.com/Freeeeeet/slotbook/internal/model"
)

// FormatBooking форматирует запись для отображения.
// Время выводится в локации StartAt, то есть в рабочем часовом поясе.
func FormatBooking(b *model.Booking) string {
	display := GetBookingStatusDisplay(b.Status)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s Запись #%d\n", display.Emoji, b.ID)
	if b.Service != nil {
		fmt.Fprintf(&sb, "📚 %s (%s)\n", b.Service.Title, FormatDuration(b.Service.DurationMinutes))
	}
	fmt.Fprintf(&sb, "📅 %s %s\n", FormatDateWithWeekday(b.StartAt), FormatTimeRange(b.StartAt, b.EndAt))
	fmt.Fprintf(&sb, "📊 Статус: %s", display.Text)
	if b.Notes != "" {
		fmt.Fprintf(&sb, "\n📝 %s", b.Notes)
	}
	return sb.String()
}

// FormatService форматирует услугу одной строкой
func FormatService(s *model.Service) string {
	line := fmt.Sprintf("#%d %s, %s", s.ID, s.Title, FormatDuration(s.DurationMinutes))
	if s.DisplayPrice != "" {
		line += ", " + s.DisplayPrice
	}
	if !s.IsActive {
		line += " (скрыта)"
	}
	return line
}

// FormatProviderStats короткая сводка провайдера
func FormatProviderStats(s *model.ProviderStats) string {
	return fmt.Sprintf("📊 Сегодня: %d, на неделе: %d, завершено за месяц: %d",
		s.Today, s.ThisWeek, s.CompletedThisMonth)
}
