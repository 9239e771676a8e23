// Package seed загружает статический набор ресторанов, который используется,
// пока владельцы не завели свои заведения.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Leganyst/table-booking/internal/cache"
	"github.com/Leganyst/table-booking/internal/calendar"
	"github.com/Leganyst/table-booking/internal/model"
	"github.com/Leganyst/table-booking/internal/repository"
)

//go:embed restaurants.yaml
var defaultData []byte

type File struct {
	Restaurants []Restaurant `yaml:"restaurants"`
}

type Restaurant struct {
	ID          string `yaml:"id"`
	OwnerID     string `yaml:"owner_id"`
	Name        string `yaml:"name"`
	CuisineType string `yaml:"cuisine_type"`
	OpeningTime string `yaml:"opening_time,omitempty"`
	ClosingTime string `yaml:"closing_time,omitempty"`
}

// Default: встроенный набор данных.
func Default() ([]model.Restaurant, error) {
	return Parse(bytes.NewReader(defaultData))
}

func Load(path string) ([]model.Restaurant, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse читает YAML со строгой проверкой полей и валидирует каждую запись.
func Parse(r io.Reader) ([]model.Restaurant, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse seed yaml: %w", err)
	}

	seen := make(map[uuid.UUID]struct{}, len(file.Restaurants))
	out := make([]model.Restaurant, 0, len(file.Restaurants))
	for i, r := range file.Restaurants {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return nil, fmt.Errorf("restaurant #%d: invalid id %q", i+1, r.ID)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("restaurant #%d: duplicate id %s", i+1, id)
		}
		seen[id] = struct{}{}

		if r.Name == "" {
			return nil, fmt.Errorf("restaurant %s: name is required", id)
		}
		if _, err := calendar.ResolveHours(r.OpeningTime, r.ClosingTime); err != nil {
			return nil, fmt.Errorf("restaurant %s: %w", id, err)
		}

		out = append(out, model.Restaurant{
			ID:          id,
			OwnerID:     r.OwnerID,
			Name:        r.Name,
			CuisineType: r.CuisineType,
			OpeningTime: r.OpeningTime,
			ClosingTime: r.ClosingTime,
		})
	}
	return out, nil
}

// Apply сохраняет рестораны; повторный запуск обновляет записи по id.
// Часы работы могли измениться, поэтому доступность каждого ресторана
// в кэше сбрасывается целиком.
func Apply(
	ctx context.Context,
	repo repository.RestaurantRepository,
	availability cache.AvailabilityCache,
	restaurants []model.Restaurant,
) (int, error) {
	for i := range restaurants {
		r := &restaurants[i]
		if err := repo.Upsert(ctx, r); err != nil {
			return i, fmt.Errorf("upsert %s: %w", r.Name, err)
		}
		if err := availability.InvalidateRestaurant(ctx, r.ID.String()); err != nil {
			return i, fmt.Errorf("invalidate availability of %s: %w", r.Name, err)
		}
	}
	return len(restaurants), nil
}
