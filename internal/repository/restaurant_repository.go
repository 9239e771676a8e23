package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/table-booking/internal/model"
)

type RestaurantRepository interface {
	// Получить ресторан по ID.
	GetByID(ctx context.Context, id string) (*model.Restaurant, error)
	// Создать ресторан или обновить название, кухню и часы работы существующего.
	Upsert(ctx context.Context, restaurant *model.Restaurant) error
}

type GormRestaurantRepository struct {
	db *gorm.DB
}

func NewGormRestaurantRepository(db *gorm.DB) *GormRestaurantRepository {
	return &GormRestaurantRepository{db: db}
}

func (r *GormRestaurantRepository) GetByID(ctx context.Context, id string) (*model.Restaurant, error) {
	var restaurant model.Restaurant
	if err := r.db.WithContext(ctx).First(&restaurant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func (r *GormRestaurantRepository) Upsert(ctx context.Context, restaurant *model.Restaurant) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"owner_id", "name", "cuisine_type", "opening_time", "closing_time", "updated_at"}),
		}).
		Create(restaurant).
		Error
}
