package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Leganyst/table-booking/internal/calendar"
	"github.com/Leganyst/table-booking/internal/model"
)

// dayPlan: сетка слотов ресторана на дату и та её часть, что ещё свободна.
type dayPlan struct {
	restaurant *model.Restaurant
	slots      []calendar.WallClock
	available  []calendar.WallClock
}

// plan строит сетку из часов работы и вычитает слоты, где уже набрано
// CapacityPerSlot подтверждённых броней. pending и cancelled слот не занимают.
func (l *Ledger) plan(ctx context.Context, restaurantID, date string) (*dayPlan, error) {
	r, err := l.restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		if isNotFound(err) {
			return nil, notFound("restaurant")
		}
		return nil, upstream("load restaurant", err)
	}

	hours, err := calendar.ResolveHours(r.OpeningTime, r.ClosingTime)
	if err != nil {
		return nil, &Error{Code: CodeValidation, Message: "restaurant hours are misconfigured", Err: err}
	}
	slots, err := hours.Slots(l.step)
	if err != nil {
		return nil, &Error{Code: CodeValidation, Message: "restaurant hours are misconfigured", Err: err}
	}

	confirmed, err := l.bookings.CountByTime(ctx, restaurantID, date, model.BookingStatusConfirmed)
	if err != nil {
		return nil, upstream("count confirmed bookings", err)
	}

	available := make([]calendar.WallClock, 0, len(slots))
	for _, s := range slots {
		if confirmed[s.String()] < CapacityPerSlot {
			available = append(available, s)
		}
	}

	return &dayPlan{restaurant: r, slots: slots, available: available}, nil
}

// checkSlot: время должно лежать на сетке и быть свободным.
func (l *Ledger) checkSlot(p *dayPlan, slot calendar.WallClock) error {
	if !calendar.Contains(p.slots, slot) {
		return validationError("time %s is not a bookable slot", slot)
	}
	if !calendar.Contains(p.available, slot) {
		alternatives := calendar.FormatSlots(calendar.NearestSlots(p.available, slot, l.maxAlternatives))
		return conflict("slot "+slot.String()+" is already booked", alternatives, nil)
	}
	return nil
}

// GetAvailability возвращает свободные слоты "HH:MM" по возрастанию.
func (l *Ledger) GetAvailability(ctx context.Context, restaurantID, date string) (slots []string, err error) {
	ctx, span := l.start(ctx, "Ledger.GetAvailability",
		attribute.String("restaurant.id", restaurantID),
		attribute.String("booking.date", date),
	)
	defer func() { finish(span, err) }()

	id, err := parseID("restaurant_id", restaurantID)
	if err != nil {
		return nil, err
	}
	if err := checkDate(date); err != nil {
		return nil, err
	}

	// Поколение читается до расчёта: если подтверждение успеет сбросить кэш
	// между подсчётом и Set, результат ляжет под устаревшим поколением.
	st, cerr := l.cache.Stamp(ctx, id, date)
	useCache := cerr == nil
	if cerr != nil {
		l.log.WarnContext(ctx, "availability cache stamp failed", "restaurant_id", id, "date", date, "err", cerr)
	} else {
		cached, ok, cerr := l.cache.Get(ctx, id, date, st)
		switch {
		case cerr != nil:
			l.log.WarnContext(ctx, "availability cache get failed", "restaurant_id", id, "date", date, "err", cerr)
		case ok:
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		}
	}

	p, err := l.plan(ctx, id, date)
	if err != nil {
		return nil, err
	}

	slots = calendar.FormatSlots(p.available)
	if useCache {
		if cerr := l.cache.Set(ctx, id, date, st, slots); cerr != nil {
			l.log.WarnContext(ctx, "availability cache set failed", "restaurant_id", id, "date", date, "err", cerr)
		}
	}
	return slots, nil
}

// SuggestAlternatives: до limit ближайших свободных слотов к rejectedTime.
// limit = 0 берёт значение по умолчанию.
func (l *Ledger) SuggestAlternatives(
	ctx context.Context,
	restaurantID, date, rejectedTime string,
	limit int,
) (alternatives []string, err error) {
	ctx, span := l.start(ctx, "Ledger.SuggestAlternatives",
		attribute.String("restaurant.id", restaurantID),
		attribute.String("booking.date", date),
		attribute.String("booking.time", rejectedTime),
	)
	defer func() { finish(span, err) }()

	if limit < 0 {
		return nil, validationError("limit must not be negative")
	}
	if limit == 0 {
		limit = l.maxAlternatives
	}

	id, err := parseID("restaurant_id", restaurantID)
	if err != nil {
		return nil, err
	}
	if err := checkDate(date); err != nil {
		return nil, err
	}
	target, err := parseSlotTime(rejectedTime)
	if err != nil {
		return nil, err
	}

	p, err := l.plan(ctx, id, date)
	if err != nil {
		return nil, err
	}
	return calendar.FormatSlots(calendar.NearestSlots(p.available, target, limit)), nil
}
