// Package slots разворачивает недельные окна доступности в конкретные слоты для записи.
// Все функции чистые: результат зависит только от аргументов.
package slots

import (
	"iter"
	"slices"
	"time"

	"github.com/Freeeeeet/slotbook/internal/model"
)

// Generate возвращает ленивую конечную последовательность слотов длительности duration
// на дату date. Последовательность можно обходить повторно, результат будет тем же.
//
// Берутся только окна, день недели которых совпадает с date.Weekday(), в порядке начала.
// Каждое окно обрабатывается отдельно: слот [cursor, cursor+duration) выдаётся,
// только если он целиком помещается в окно, хвост короче duration отбрасывается.
func Generate(windows []*model.Window, date time.Time, duration time.Duration) iter.Seq[model.Slot] {
	day := ForDay(windows, date.Weekday())

	return func(yield func(model.Slot) bool) {
		if duration <= 0 {
			return
		}

		for _, w := range day {
			windowStart := w.Start.On(date)
			windowEnd := w.End.On(date)

			for cursor := windowStart; !cursor.Add(duration).After(windowEnd); cursor = cursor.Add(duration) {
				if !yield(model.Slot{Start: cursor, End: cursor.Add(duration)}) {
					return
				}
			}
		}
	}
}

// Collect собирает все слоты в срез
func Collect(windows []*model.Window, date time.Time, duration time.Duration) []model.Slot {
	return slices.Collect(Generate(windows, date, duration))
}

// ForDay отбирает окна одного дня недели и сортирует их по началу.
// Исходный срез не меняется.
func ForDay(windows []*model.Window, weekday time.Weekday) []*model.Window {
	var day []*model.Window
	for _, w := range windows {
		if w.Weekday == weekday {
			day = append(day, w)
		}
	}

	slices.SortStableFunc(day, func(a, b *model.Window) int {
		if a.Start != b.Start {
			return int(a.Start - b.Start)
		}
		return int(a.End - b.End)
	})
	return day
}

// Overlaps проверка пересечения полуоткрытых интервалов [a0, a1) и [b0, b1)
func Overlaps(a0, a1, b0, b1 time.Time) bool {
	return a0.Before(b1) && b0.Before(a1)
}

// FindOverlap возвращает первое окно из windows, пересекающееся с [start, end).
// Окно с ID = excludeID пропускается (0 ничего не пропускает).
func FindOverlap(windows []*model.Window, start, end model.TimeOfDay, excludeID int64) *model.Window {
	for _, w := range windows {
		if excludeID != 0 && w.ID == excludeID {
			continue
		}
		if w.Overlaps(start, end) {
			return w
		}
	}
	return nil
}

// Without убирает из slots все слоты, пересекающиеся с занятыми интервалами
func Without(all []model.Slot, busy []model.Slot) []model.Slot {
	free := make([]model.Slot, 0, len(all))
	for _, s := range all {
		taken := false
		for _, b := range busy {
			if Overlaps(s.Start, s.End, b.Start, b.End) {
				taken = true
				break
			}
		}
		if !taken {
			free = append(free, s)
		}
	}
	return free
}
