package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/table-booking/internal/model"
)

var (
	// ErrSlotTaken: слот уже занят подтверждённой бронью.
	ErrSlotTaken = errors.New("slot already has a confirmed booking")
	// ErrBookingCancelled: бронь отменена, переходы из cancelled запрещены.
	ErrBookingCancelled = errors.New("booking is cancelled")
	// ErrNotPending: менять детали можно только у брони в статусе pending.
	ErrNotPending = errors.New("booking is not pending")
	// ErrStatusChanged: статус поменялся между чтением и условным обновлением.
	ErrStatusChanged = errors.New("booking status changed concurrently")
)

// BookingChanges: новые детали брони в статусе pending.
type BookingChanges struct {
	Date            string
	Time            string
	Guests          int
	SpecialRequests string
}

type BookingRepository interface {
	// Создать новое бронирование (вместе с записью аудита).
	Create(ctx context.Context, booking *model.Booking) error
	// Получить бронирование по ID.
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	// Количество броней с указанным статусом по каждому слоту дня.
	CountByTime(ctx context.Context, restaurantID, date string, status model.BookingStatus) (map[string]int, error)
	// Брони пользователя с пагинацией, свежие даты первыми.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Booking, int64, error)
	// Брони ресторана с пагинацией; пустой date: все дни.
	ListByRestaurant(ctx context.Context, restaurantID, date string, limit, offset int) ([]model.Booking, int64, error)
	// Перевести pending → confirmed, если в слоте меньше capacity подтверждённых броней.
	// changed = false, если бронь уже была подтверждена.
	Confirm(ctx context.Context, id string, capacity int) (booking *model.Booking, changed bool, err error)
	// Отменить бронь; повторная отмена возвращает запись без изменений (changed = false).
	Cancel(ctx context.Context, id string) (booking *model.Booking, changed bool, err error)
	// Обновить детали брони, пока она в статусе pending.
	UpdatePending(ctx context.Context, id string, changes BookingChanges) (*model.Booking, error)
}

// Реализация на GORM.
type GormBookingRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *GormBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	now := r.now()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(booking).Error; err != nil {
			return err
		}
		return appendEvent(tx, booking, model.EventTypeBookingCreated, map[string]any{
			"user_id": booking.UserID,
			"date":    booking.Date,
			"time":    booking.Time,
			"guests":  booking.Guests,
		})
	})
}

func (r *GormBookingRepository) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	var b model.Booking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *GormBookingRepository) CountByTime(
	ctx context.Context,
	restaurantID, date string,
	status model.BookingStatus,
) (map[string]int, error) {
	var rows []struct {
		Time string
		N    int
	}
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Select(`"time", COUNT(*) AS n`).
		Where(`restaurant_id = ? AND "date" = ? AND status = ?`, restaurantID, date, status).
		Group("time").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Time] = row.N
	}
	return counts, nil
}

func (r *GormBookingRepository) ListByUser(
	ctx context.Context,
	userID string,
	limit, offset int,
) ([]model.Booking, int64, error) {
	return r.list(ctx, limit, offset, `"date" DESC, "time" DESC`, func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id = ?", userID)
	})
}

func (r *GormBookingRepository) ListByRestaurant(
	ctx context.Context,
	restaurantID, date string,
	limit, offset int,
) ([]model.Booking, int64, error) {
	return r.list(ctx, limit, offset, `"date" DESC, "time" ASC`, func(q *gorm.DB) *gorm.DB {
		q = q.Where("restaurant_id = ?", restaurantID)
		if date != "" {
			q = q.Where(`"date" = ?`, date)
		}
		return q
	})
}

func (r *GormBookingRepository) list(
	ctx context.Context,
	limit, offset int,
	order string,
	filter func(*gorm.DB) *gorm.DB,
) ([]model.Booking, int64, error) {
	var (
		bookings []model.Booking
		total    int64
	)

	base := func() *gorm.DB {
		return filter(r.db.WithContext(ctx).Model(&model.Booking{}))
	}

	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := base()
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Order(order).Find(&bookings).Error; err != nil {
		return nil, 0, err
	}

	return bookings, total, nil
}

// Confirm выполняет проверку и переход в одной транзакции:
// строка брони блокируется, считаются подтверждённые брони слота, статус меняется
// условным UPDATE ... WHERE status = 'pending'. Если две транзакции всё же
// разойдутся на разных строках, вторую остановит частичный уникальный индекс.
func (r *GormBookingRepository) Confirm(ctx context.Context, id string, capacity int) (*model.Booking, bool, error) {
	var (
		b       model.Booking
		changed bool
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockBooking(tx, id, &b); err != nil {
			return err
		}

		if b.Status == model.BookingStatusConfirmed {
			return nil
		}
		if !b.Status.CanTransition(model.BookingStatusConfirmed) {
			return ErrBookingCancelled
		}

		var taken int64
		err := tx.Model(&model.Booking{}).
			Where(`restaurant_id = ? AND "date" = ? AND "time" = ?`, b.RestaurantID, b.Date, b.Time).
			Where("status = ? AND id <> ?", model.BookingStatusConfirmed, b.ID).
			Count(&taken).Error
		if err != nil {
			return err
		}
		if taken >= int64(capacity) {
			return ErrSlotTaken
		}

		now := r.now()
		res := tx.Model(&model.Booking{}).
			Where("id = ? AND status = ?", b.ID, model.BookingStatusPending).
			Updates(map[string]any{
				"status":     model.BookingStatusConfirmed,
				"updated_at": now,
			})
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return ErrSlotTaken
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStatusChanged
		}

		b.Status = model.BookingStatusConfirmed
		b.UpdatedAt = now
		changed = true
		return appendEvent(tx, &b, model.EventTypeBookingConfirmed, nil)
	})
	if err != nil {
		return nil, false, err
	}
	return &b, changed, nil
}

func (r *GormBookingRepository) Cancel(ctx context.Context, id string) (*model.Booking, bool, error) {
	var (
		b       model.Booking
		changed bool
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockBooking(tx, id, &b); err != nil {
			return err
		}
		if b.Status == model.BookingStatusCancelled {
			return nil
		}

		previous := b.Status
		now := r.now()
		res := tx.Model(&model.Booking{}).
			Where("id = ? AND status = ?", b.ID, previous).
			Updates(map[string]any{
				"status":       model.BookingStatusCancelled,
				"cancelled_at": now,
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStatusChanged
		}

		b.Status = model.BookingStatusCancelled
		b.CancelledAt = &now
		b.UpdatedAt = now
		changed = true
		return appendEvent(tx, &b, model.EventTypeBookingCancelled, map[string]any{
			"previous_status": previous,
		})
	})
	if err != nil {
		return nil, false, err
	}
	return &b, changed, nil
}

func (r *GormBookingRepository) UpdatePending(ctx context.Context, id string, changes BookingChanges) (*model.Booking, error) {
	var b model.Booking

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockBooking(tx, id, &b); err != nil {
			return err
		}
		if b.Status != model.BookingStatusPending {
			return ErrNotPending
		}

		now := r.now()
		res := tx.Model(&model.Booking{}).
			Where("id = ? AND status = ?", b.ID, model.BookingStatusPending).
			Updates(map[string]any{
				"date":             changes.Date,
				"time":             changes.Time,
				"guests":           changes.Guests,
				"special_requests": changes.SpecialRequests,
				"updated_at":       now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStatusChanged
		}

		details := map[string]any{
			"from": map[string]any{"date": b.Date, "time": b.Time, "guests": b.Guests},
			"to":   map[string]any{"date": changes.Date, "time": changes.Time, "guests": changes.Guests},
		}
		b.Date = changes.Date
		b.Time = changes.Time
		b.Guests = changes.Guests
		b.SpecialRequests = changes.SpecialRequests
		b.UpdatedAt = now
		return appendEvent(tx, &b, model.EventTypeBookingUpdated, details)
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// lockBooking читает бронь с блокировкой строки (SQLite блокировку игнорирует,
// у него и так один писатель).
func lockBooking(tx *gorm.DB, id string, b *model.Booking) error {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(b, "id = ?", id).Error
}

func appendEvent(tx *gorm.DB, b *model.Booking, typ model.EventType, details map[string]any) error {
	ev := &model.Event{
		EventType: typ,
		BookingID: b.ID,
		Status:    b.Status,
		CreatedAt: b.UpdatedAt,
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return err
		}
		ev.Details = datatypes.JSON(raw)
	}
	return tx.Create(ev).Error
}
