package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// CanTransition описывает автомат статусов брони:
// pending → confirmed, pending → cancelled, confirmed → cancelled.
// cancelled: терминальное состояние.
func (s BookingStatus) CanTransition(to BookingStatus) bool {
	switch s {
	case BookingStatusPending:
		return to == BookingStatusConfirmed || to == BookingStatusCancelled
	case BookingStatusConfirmed:
		return to == BookingStatusCancelled
	default:
		return false
	}
}

// bookings
type Booking struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RestaurantID uuid.UUID `gorm:"type:uuid;not null;index:idx_bookings_slot,priority:1" json:"restaurant_id"`
	UserID       string    `gorm:"type:varchar(64);not null;index" json:"user_id"`

	// Календарный день "YYYY-MM-DD" и слот "HH:MM" в локальном времени ресторана.
	Date string `gorm:"type:varchar(10);not null;index:idx_bookings_slot,priority:2" json:"date"`
	Time string `gorm:"type:varchar(5);not null;index:idx_bookings_slot,priority:3" json:"time"`

	Guests          int           `gorm:"not null" json:"guests"`
	Status          BookingStatus `gorm:"type:varchar(32);not null;index" json:"status"`
	SpecialRequests string        `gorm:"type:text" json:"special_requests"`

	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`

	Restaurant *Restaurant `gorm:"foreignKey:RestaurantID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

func (b *Booking) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
