package service

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Leganyst/table-booking/internal/auth"
	"github.com/Leganyst/table-booking/internal/calendar"
	"github.com/Leganyst/table-booking/internal/events"
	"github.com/Leganyst/table-booking/internal/model"
	"github.com/Leganyst/table-booking/internal/repository"
)

type CreateBookingInput struct {
	RestaurantID    string `json:"restaurant_id" validate:"required"`
	UserID          string `json:"user_id" validate:"required"`
	Date            string `json:"date" validate:"required"`
	Time            string `json:"time" validate:"required"`
	Guests          int    `json:"guests" validate:"gte=1"`
	SpecialRequests string `json:"special_requests" validate:"max=500"`
}

type UpdateBookingInput struct {
	Date            string `json:"date" validate:"required"`
	Time            string `json:"time" validate:"required"`
	Guests          int    `json:"guests" validate:"gte=1"`
	SpecialRequests string `json:"special_requests" validate:"max=500"`
}

// CreateBooking всегда создаёт бронь в статусе pending: другие pending
// на тот же слот не мешают, спор решается при подтверждении.
// Если слот уже занят подтверждённой бронью, возвращается конфликт с альтернативами.
func (l *Ledger) CreateBooking(ctx context.Context, in CreateBookingInput) (b *model.Booking, err error) {
	ctx, span := l.start(ctx, "Ledger.CreateBooking",
		attribute.String("restaurant.id", in.RestaurantID),
		attribute.String("booking.date", in.Date),
		attribute.String("booking.time", in.Time),
	)
	defer func() { finish(span, err) }()

	if err := l.validate.Struct(in); err != nil {
		return nil, fromValidator(err)
	}
	restaurantID, err := parseID("restaurant_id", in.RestaurantID)
	if err != nil {
		return nil, err
	}
	if err := checkDate(in.Date); err != nil {
		return nil, err
	}
	slot, err := parseSlotTime(in.Time)
	if err != nil {
		return nil, err
	}

	p, err := l.plan(ctx, restaurantID, in.Date)
	if err != nil {
		return nil, err
	}
	if err := l.checkSlot(p, slot); err != nil {
		return nil, err
	}

	b = &model.Booking{
		RestaurantID:    p.restaurant.ID,
		UserID:          strings.TrimSpace(in.UserID),
		Date:            in.Date,
		Time:            slot.String(),
		Guests:          in.Guests,
		Status:          model.BookingStatusPending,
		SpecialRequests: strings.TrimSpace(in.SpecialRequests),
	}
	if err := l.bookings.Create(ctx, b); err != nil {
		return nil, upstream("create booking", err)
	}

	l.log.InfoContext(ctx, "booking created",
		"booking_id", b.ID, "restaurant_id", restaurantID, "date", b.Date, "time", b.Time)
	l.publish(ctx, events.KeyBookingCreated, b)
	return b, nil
}

// ConfirmBooking переводит pending → confirmed. Проверка занятости и переход
// выполняются атомарно в репозитории; повторное подтверждение возвращает бронь как есть.
func (l *Ledger) ConfirmBooking(ctx context.Context, bookingID string) (b *model.Booking, err error) {
	ctx, span := l.start(ctx, "Ledger.ConfirmBooking", attribute.String("booking.id", bookingID))
	defer func() { finish(span, err) }()

	id, err := parseID("booking_id", bookingID)
	if err != nil {
		return nil, err
	}

	b, changed, err := l.bookings.Confirm(ctx, id, CapacityPerSlot)
	switch {
	case err == nil:
	case isNotFound(err):
		return nil, notFound("booking")
	case errors.Is(err, repository.ErrSlotTaken):
		return nil, conflict("slot already has a confirmed booking", nil, err)
	case errors.Is(err, repository.ErrBookingCancelled):
		return nil, conflict("cancelled booking cannot be confirmed", nil, err)
	case errors.Is(err, repository.ErrStatusChanged):
		return nil, conflict("booking status changed concurrently", nil, err)
	default:
		return nil, upstream("confirm booking", err)
	}

	if changed {
		l.invalidate(ctx, b.RestaurantID.String(), b.Date)
		l.log.InfoContext(ctx, "booking confirmed", "booking_id", b.ID, "date", b.Date, "time", b.Time)
		l.publish(ctx, events.KeyBookingConfirmed, b)
	}
	return b, nil
}

// CancelBooking идемпотентна: отменённая бронь возвращается без ошибки.
func (l *Ledger) CancelBooking(ctx context.Context, bookingID string) (b *model.Booking, err error) {
	ctx, span := l.start(ctx, "Ledger.CancelBooking", attribute.String("booking.id", bookingID))
	defer func() { finish(span, err) }()

	id, err := parseID("booking_id", bookingID)
	if err != nil {
		return nil, err
	}

	b, changed, err := l.bookings.Cancel(ctx, id)
	switch {
	case err == nil:
	case isNotFound(err):
		return nil, notFound("booking")
	case errors.Is(err, repository.ErrStatusChanged):
		return nil, conflict("booking status changed concurrently", nil, err)
	default:
		return nil, upstream("cancel booking", err)
	}

	if changed {
		l.invalidate(ctx, b.RestaurantID.String(), b.Date)
		l.log.InfoContext(ctx, "booking cancelled", "booking_id", b.ID, "date", b.Date, "time", b.Time)
		l.publish(ctx, events.KeyBookingCancelled, b)
	}
	return b, nil
}

// UpdateBooking меняет дату, время, количество гостей и пожелания у брони
// в статусе pending. Новый слот проверяется так же, как при создании.
func (l *Ledger) UpdateBooking(ctx context.Context, bookingID string, in UpdateBookingInput) (b *model.Booking, err error) {
	ctx, span := l.start(ctx, "Ledger.UpdateBooking", attribute.String("booking.id", bookingID))
	defer func() { finish(span, err) }()

	id, err := parseID("booking_id", bookingID)
	if err != nil {
		return nil, err
	}
	if err := l.validate.Struct(in); err != nil {
		return nil, fromValidator(err)
	}
	if err := checkDate(in.Date); err != nil {
		return nil, err
	}
	slot, err := parseSlotTime(in.Time)
	if err != nil {
		return nil, err
	}

	current, err := l.getBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != model.BookingStatusPending {
		return nil, conflict("only pending bookings can be changed", nil, repository.ErrNotPending)
	}

	p, err := l.plan(ctx, current.RestaurantID.String(), in.Date)
	if err != nil {
		return nil, err
	}
	if err := l.checkSlot(p, slot); err != nil {
		return nil, err
	}

	b, err = l.bookings.UpdatePending(ctx, id, repository.BookingChanges{
		Date:            in.Date,
		Time:            slot.String(),
		Guests:          in.Guests,
		SpecialRequests: strings.TrimSpace(in.SpecialRequests),
	})
	switch {
	case err == nil:
	case isNotFound(err):
		return nil, notFound("booking")
	case errors.Is(err, repository.ErrNotPending), errors.Is(err, repository.ErrStatusChanged):
		return nil, conflict("only pending bookings can be changed", nil, err)
	default:
		return nil, upstream("update booking", err)
	}

	l.invalidate(ctx, b.RestaurantID.String(), current.Date)
	if current.Date != b.Date {
		l.invalidate(ctx, b.RestaurantID.String(), b.Date)
	}
	l.log.InfoContext(ctx, "booking updated", "booking_id", b.ID, "date", b.Date, "time", b.Time)
	l.publish(ctx, events.KeyBookingUpdated, b)
	return b, nil
}

func (l *Ledger) GetBooking(ctx context.Context, bookingID string) (b *model.Booking, err error) {
	ctx, span := l.start(ctx, "Ledger.GetBooking", attribute.String("booking.id", bookingID))
	defer func() { finish(span, err) }()

	id, err := parseID("booking_id", bookingID)
	if err != nil {
		return nil, err
	}
	return l.getBooking(ctx, id)
}

func (l *Ledger) getBooking(ctx context.Context, id string) (*model.Booking, error) {
	b, err := l.bookings.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, notFound("booking")
		}
		return nil, upstream("load booking", err)
	}
	return b, nil
}

// ListUserBookings: брони пользователя, свежие даты первыми.
func (l *Ledger) ListUserBookings(
	ctx context.Context,
	userID string,
	page, pageSize int,
) (result calendar.Page[model.Booking], err error) {
	ctx, span := l.start(ctx, "Ledger.ListUserBookings")
	defer func() { finish(span, err) }()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return result, validationError("user_id is required")
	}

	page, pageSize, offset := calendar.NormalizePage(page, pageSize)
	items, total, err := l.bookings.ListByUser(ctx, userID, pageSize, offset)
	if err != nil {
		return result, upstream("list user bookings", err)
	}
	return calendar.NewPage(items, page, pageSize, total), nil
}

// ListRestaurantBookings: брони ресторана; пустая date означает все дни.
func (l *Ledger) ListRestaurantBookings(
	ctx context.Context,
	restaurantID, date string,
	page, pageSize int,
) (result calendar.Page[model.Booking], err error) {
	ctx, span := l.start(ctx, "Ledger.ListRestaurantBookings",
		attribute.String("restaurant.id", restaurantID),
		attribute.String("booking.date", date),
	)
	defer func() { finish(span, err) }()

	id, err := parseID("restaurant_id", restaurantID)
	if err != nil {
		return result, err
	}
	if date != "" {
		if err := checkDate(date); err != nil {
			return result, err
		}
	}
	if _, err := l.restaurant(ctx, id); err != nil {
		return result, err
	}

	page, pageSize, offset := calendar.NormalizePage(page, pageSize)
	items, total, err := l.bookings.ListByRestaurant(ctx, id, date, pageSize, offset)
	if err != nil {
		return result, upstream("list restaurant bookings", err)
	}
	return calendar.NewPage(items, page, pageSize, total), nil
}

func (l *Ledger) restaurant(ctx context.Context, id string) (*model.Restaurant, error) {
	r, err := l.restaurants.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, notFound("restaurant")
		}
		return nil, upstream("load restaurant", err)
	}
	return r, nil
}

// AuthorizeBooking пускает к брони её автора или владельца ресторана.
func (l *Ledger) AuthorizeBooking(ctx context.Context, s auth.Session, bookingID string) (*model.Booking, error) {
	b, err := l.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	switch s.Role {
	case auth.RoleCustomer:
		if b.UserID != s.UserID {
			return nil, forbidden("booking belongs to another user")
		}
	case auth.RoleRestaurant:
		r, err := l.restaurant(ctx, b.RestaurantID.String())
		if err != nil {
			return nil, err
		}
		if r.OwnerID != s.UserID {
			return nil, forbidden("booking belongs to another restaurant")
		}
	default:
		return nil, forbidden("unknown role")
	}
	return b, nil
}

// AuthorizeRestaurant пускает только владельца ресторана.
func (l *Ledger) AuthorizeRestaurant(ctx context.Context, s auth.Session, restaurantID string) error {
	if !s.Is(auth.RoleRestaurant) {
		return forbidden("restaurant role required")
	}
	id, err := parseID("restaurant_id", restaurantID)
	if err != nil {
		return err
	}
	r, err := l.restaurant(ctx, id)
	if err != nil {
		return err
	}
	if r.OwnerID != s.UserID {
		return forbidden("restaurant belongs to another owner")
	}
	return nil
}
