package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// restaurants: только то, что нужно ядру бронирования; профиль ресторана ведётся снаружи.
type Restaurant struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	OwnerID     string `gorm:"type:varchar(64);index"`
	Name        string `gorm:"type:varchar(255);not null"`
	CuisineType string `gorm:"type:varchar(64)"`

	// Часы работы в формате "HH:MM"; пустая строка: ресторан ещё не прошёл настройку.
	OpeningTime string `gorm:"type:varchar(8)"`
	ClosingTime string `gorm:"type:varchar(8)"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (r *Restaurant) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
