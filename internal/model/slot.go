package model

import "time"

// Slot конкретный интервал для записи [Start, End)
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DayAvailability свободные слоты на одну дату
type DayAvailability struct {
	Date    time.Time    `json:"date"`
	Weekday time.Weekday `json:"weekday"`
	Slots   []Slot       `json:"slots"`
}
