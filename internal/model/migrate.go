package model

import (
	"fmt"

	"gorm.io/gorm"
)

// ConfirmedSlotIndex не даёт двум подтверждённым броням занять один
// (restaurant_id, date, time). Частичный уникальный индекс поддерживают и Postgres, и SQLite.
const ConfirmedSlotIndex = "idx_bookings_confirmed_slot"

// AutoMigrate выполняет миграцию всех сущностей ядра бронирования.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&Restaurant{},
		&Booking{},
		&Event{},
	); err != nil {
		return err
	}

	stmt := fmt.Sprintf(
		`CREATE UNIQUE INDEX IF NOT EXISTS %s ON bookings ("restaurant_id", "date", "time") WHERE status = '%s'`,
		ConfirmedSlotIndex, BookingStatusConfirmed,
	)
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("create %s: %w", ConfirmedSlotIndex, err)
	}
	return nil
}
