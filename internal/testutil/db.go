// Package testutil: общие фикстуры для тестов пакетов.
package testutil

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Leganyst/table-booking/internal/db"
	"github.com/Leganyst/table-booking/internal/model"
)

// OpenSQLite открывает мигрированную in-memory базу, видимую только тесту.
// Одно соединение держит все запросы на одной и той же in-memory базе.
func OpenSQLite(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:?_foreign_keys=on"), db.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := model.AutoMigrate(gdb); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return gdb
}

// SeedRestaurant создаёт ресторан с заданными часами работы (владелец owner-1).
func SeedRestaurant(t testing.TB, gdb *gorm.DB, opening, closing string) *model.Restaurant {
	t.Helper()

	r := &model.Restaurant{Name: "Test Bistro", OwnerID: "owner-1", OpeningTime: opening, ClosingTime: closing}
	if err := gdb.Create(r).Error; err != nil {
		t.Fatalf("seed restaurant: %v", err)
	}
	return r
}

// ConfirmBeforeNextUpdate подтверждает бронь rival прямо перед следующим
// UPDATE таблицы bookings и в той же транзакции. Так конкурент проходит
// между подсчётом занятости и условным обновлением внутри Confirm.
func ConfirmBeforeNextUpdate(t testing.TB, gdb *gorm.DB, rival uuid.UUID) {
	t.Helper()

	fired := false
	err := gdb.Callback().Update().Before("gorm:update").Register("testutil:confirm_rival", func(tx *gorm.DB) {
		if fired || tx.Statement.Table != "bookings" {
			return
		}
		fired = true
		err := tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE bookings SET status = ? WHERE id = ?", model.BookingStatusConfirmed, rival).Error
		if err != nil {
			t.Errorf("confirm rival: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
}
