package model

import (
	"fmt"
	"time"
)

// TimeOfDay время суток в минутах от полуночи (0..1440)
// 1440 допустимо только как правая (исключающая) граница окна
type TimeOfDay int

const (
	MinutesPerDay = 24 * 60

	Midnight TimeOfDay = 0
	EndOfDay TimeOfDay = MinutesPerDay
)

// NewTimeOfDay собирает время из часов и минут
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay разбирает строку вида "HH:MM", "24:00" означает конец суток
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != 5 || s[2] != ':' || !isDigits(s[:2]) || !isDigits(s[3:]) {
		return 0, fmt.Errorf("%w: time %q must be HH:MM", ErrValidation, s)
	}

	hour := int(s[0]-'0')*10 + int(s[1]-'0')
	minute := int(s[3]-'0')*10 + int(s[4]-'0')
	if minute > 59 {
		return 0, fmt.Errorf("%w: time %q is out of range", ErrValidation, s)
	}

	t := NewTimeOfDay(hour, minute)
	if !t.Valid() {
		return 0, fmt.Errorf("%w: time %q is out of range", ErrValidation, s)
	}
	return t, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// TimeOfDayOf возвращает время суток момента t в его локации
func TimeOfDayOf(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute())
}

// Valid проверяет что значение в пределах суток
func (t TimeOfDay) Valid() bool {
	return t >= Midnight && t <= EndOfDay
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// On возвращает момент времени для даты date в её локации.
// Используется time.Date, поэтому стенные часы сохраняются при переходе на летнее время.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, date.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// StartOfDay обрезает момент до полуночи в его локации
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
