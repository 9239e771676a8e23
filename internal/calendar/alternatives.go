package calendar

import (
	"errors"
	"slices"
	"time"
)

var ErrInvalidDate = errors.New("invalid date, want YYYY-MM-DD")

// DateLayout: формат календарного дня во всех интерфейсах и в таблице bookings.
const DateLayout = "2006-01-02"

// NearestSlots выбирает до limit слотов из available, ближайших к target.
// Порядок: по возрастанию |slot - target|, при равенстве раньше идёт более раннее время.
// Сам target в результат не попадает.
func NearestSlots(available []WallClock, target WallClock, limit int) []WallClock {
	if limit <= 0 {
		return []WallClock{}
	}

	candidates := make([]WallClock, 0, len(available))
	for _, s := range available {
		if s != target {
			candidates = append(candidates, s)
		}
	}

	slices.SortStableFunc(candidates, func(a, b WallClock) int {
		da, db := distance(a, target), distance(b, target)
		if da != db {
			return da - db
		}
		return int(a) - int(b)
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func distance(a, b WallClock) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// ParseDate разбирает календарный день без времени.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}
