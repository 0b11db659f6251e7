package formatting

import (
	"testing"
	"time"

	"github.com/Freeeeeet/slotbook/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45 мин", FormatDuration(45))
	assert.Equal(t, "2 ч", FormatDuration(120))
	assert.Equal(t, "1 ч 30 мин", FormatDuration(90))
}

func TestGetWeekdayName(t *testing.T) {
	assert.Equal(t, "Воскресенье", GetWeekdayName(time.Sunday))
	assert.Equal(t, "Сб", GetWeekdayShortName(time.Saturday))
	assert.Equal(t, "Неизвестно", GetWeekdayName(time.Weekday(7)))
}

func TestFormatBooking(t *testing.T) {
	b := &model.Booking{
		ID:      7,
		StartAt: time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC),
		EndAt:   time.Date(2025, 1, 6, 9, 30, 0, 0, time.UTC),
		Status:  model.BookingStatusConfirmed,
		Notes:   "позвонить заранее",
		Service: &model.Service{Title: "Стрижка", DurationMinutes: 30},
	}

	got := FormatBooking(b)

	assert.Contains(t, got, "✅ Запись #7")
	assert.Contains(t, got, "Стрижка (30 мин)")
	assert.Contains(t, got, "06.01.2025 (Пн) 09:00-09:30")
	assert.Contains(t, got, "📝 позвонить заранее")
}

func TestFormatSlots(t *testing.T) {
	day := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	slots := []model.Slot{
		{Start: day.Add(9 * time.Hour), End: day.Add(9*time.Hour + 30*time.Minute)},
		{Start: day.Add(9*time.Hour + 30*time.Minute), End: day.Add(10 * time.Hour)},
	}

	assert.Equal(t, "09:00 09:30", FormatSlots(slots))
	assert.Equal(t, "", FormatSlots(nil))
}

func TestFormatProviderStats(t *testing.T) {
	text := FormatProviderStats(&model.ProviderStats{Today: 3, ThisWeek: 4, CompletedThisMonth: 2})
	assert.Equal(t, "📊 Сегодня: 3, на неделе: 4, завершено за месяц: 2", text)
}
