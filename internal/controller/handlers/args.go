package handlers

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/slotbook/internal/model"
)

// ParseCommand отделяет имя команды от аргументов.
// "/book@slotbook_bot 3 2025-01-06 09:00" -> "book", ["3", "2025-01-06", "09:00"]
func ParseCommand(text string) (string, []string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}

	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return "", nil, false
	}

	return strings.ToLower(name), fields[1:], true
}

// commandArgs аргументы команды из текста сообщения
func commandArgs(text string) []string {
	_, args, _ := ParseCommand(text)
	return args
}

// ParseCatalogArgs разбирает аргументы /catalog: первое положительное число считается
// номером страницы, остальное строкой поиска.
func ParseCatalogArgs(args []string) (page int, query string) {
	page = 1
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			page = n
			args = args[1:]
		}
	}
	return page, strings.Join(args, " ")
}

// ParseID разбирает положительный идентификатор
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q is not a valid id", model.ErrValidation, s)
	}
	return id, nil
}

// ParseDate разбирает дату YYYY-MM-DD или DD.MM.YYYY в рабочем часовом поясе
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "02.01.2006"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", model.ErrValidation, s)
}

var weekdayAliases = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
	"вс": time.Sunday, "пн": time.Monday, "вт": time.Tuesday, "ср": time.Wednesday,
	"чт": time.Thursday, "пт": time.Friday, "сб": time.Saturday,
}

// ParseWeekdays разбирает список дней: "1,3,5", "mon,wed", "пн,ср" или диапазон "1-5".
// Цифры: 0 и 7 = воскресенье, 6 = суббота. Воскресенье в конце диапазона считается последним днём недели.
// Результат отсортирован и без повторов.
func ParseWeekdays(s string) ([]time.Weekday, error) {
	var days []time.Weekday

	for _, part := range strings.Split(strings.ToLower(s), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if from, to, ok := strings.Cut(part, "-"); ok {
			a, err := parseWeekday(from)
			if err != nil {
				return nil, err
			}
			b, err := parseWeekday(to)
			if err != nil {
				return nil, err
			}
			// воскресенье в конце диапазона закрывает неделю: 5-7, сб-вс
			last := int(b)
			if b == time.Sunday {
				last = 7
			}
			if int(a) > last {
				return nil, fmt.Errorf("%w: weekday range %q is reversed", model.ErrValidation, part)
			}
			for d := int(a); d <= last; d++ {
				days = append(days, time.Weekday(d%7))
			}
			continue
		}

		d, err := parseWeekday(part)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}

	if len(days) == 0 {
		return nil, fmt.Errorf("%w: no weekdays in %q", model.ErrValidation, s)
	}

	slices.Sort(days)
	return slices.Compact(days), nil
}

func parseWeekday(s string) (time.Weekday, error) {
	s = strings.TrimSpace(s)
	if d, ok := weekdayAliases[s]; ok {
		return d, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 7 {
		return 0, fmt.Errorf("%w: unknown weekday %q", model.ErrValidation, s)
	}
	return time.Weekday(n % 7), nil
}
