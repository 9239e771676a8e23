package calendar

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidWallClock = errors.New("invalid wall-clock time, want HH:MM")
	ErrInvalidStep      = errors.New("slot step must be positive")
	ErrCrossesMidnight  = errors.New("closing time before opening time, midnight-crossing hours are not supported")
)

const (
	// DefaultStepMinutes: шаг сетки слотов по умолчанию.
	DefaultStepMinutes = 30

	minutesPerDay = 24 * 60
)

// WallClock: время суток в минутах от локальной полуночи ресторана.
type WallClock int

// DefaultHours используются, пока ресторан не заполнил часы работы.
var DefaultHours = Hours{Opening: 12 * 60, Closing: 23 * 60}

// Hours: окно обслуживания внутри одних суток.
type Hours struct {
	Opening WallClock
	Closing WallClock
}

// NewWallClock собирает время из часов и минут.
func NewWallClock(hour, minute int) (WallClock, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, ErrInvalidWallClock
	}
	return WallClock(hour*60 + minute), nil
}

// ParseWallClock разбирает "HH:MM". Секунды ("HH:MM:SS", так Postgres отдаёт тип time)
// допускаются только нулевые.
func ParseWallClock(s string) (WallClock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWallClock, s)
	}
	if len(parts) == 3 && parts[2] != "00" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWallClock, s)
	}
	if !twoDigits(parts[0]) || !twoDigits(parts[1]) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWallClock, s)
	}
	hour := int(parts[0][0]-'0')*10 + int(parts[0][1]-'0')
	minute := int(parts[1][0]-'0')*10 + int(parts[1][1]-'0')
	w, err := NewWallClock(hour, minute)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", err, s)
	}
	return w, nil
}

// twoDigits: ровно две ASCII-цифры, без знака и пробелов.
func twoDigits(s string) bool {
	return len(s) == 2 && s[0] >= '0' && s[0] <= '9' && s[1] >= '0' && s[1] <= '9'
}

// String возвращает время в формате "HH:MM" (24 часа, с ведущими нулями).
func (w WallClock) String() string {
	return fmt.Sprintf("%02d:%02d", int(w)/60, int(w)%60)
}

// GenerateSlots возвращает все точки opening + k*step, не выходящие за closing.
// Слот ровно в closing попадает в сетку, только если совпадает с шагом.
// Функция чистая: повторный вызов даёт тот же результат.
func GenerateSlots(opening, closing WallClock, stepMinutes int) ([]WallClock, error) {
	if stepMinutes <= 0 {
		return nil, ErrInvalidStep
	}
	if opening < 0 || closing < 0 || opening >= minutesPerDay || closing >= minutesPerDay {
		return nil, ErrInvalidWallClock
	}
	if opening > closing {
		return nil, ErrCrossesMidnight
	}

	slots := make([]WallClock, 0, int(closing-opening)/stepMinutes+1)
	for cur := opening; cur <= closing; cur += WallClock(stepMinutes) {
		slots = append(slots, cur)
	}
	return slots, nil
}

// Slots: то же самое для окна Hours.
func (h Hours) Slots(stepMinutes int) ([]WallClock, error) {
	return GenerateSlots(h.Opening, h.Closing, stepMinutes)
}

// ResolveHours превращает сохранённые часы работы в окно обслуживания.
// Пустое значение заменяется значением из DefaultHours.
func ResolveHours(opening, closing string) (Hours, error) {
	h := DefaultHours
	if strings.TrimSpace(opening) != "" {
		w, err := ParseWallClock(opening)
		if err != nil {
			return Hours{}, fmt.Errorf("opening time: %w", err)
		}
		h.Opening = w
	}
	if strings.TrimSpace(closing) != "" {
		w, err := ParseWallClock(closing)
		if err != nil {
			return Hours{}, fmt.Errorf("closing time: %w", err)
		}
		h.Closing = w
	}
	if h.Opening > h.Closing {
		return Hours{}, ErrCrossesMidnight
	}
	return h, nil
}

// FormatSlots переводит слоты в строки "HH:MM".
func FormatSlots(slots []WallClock) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.String())
	}
	return out
}

// Contains проверяет, что t входит в сетку слотов.
func Contains(slots []WallClock, t WallClock) bool {
	for _, s := range slots {
		if s == t {
			return true
		}
	}
	return false
}
