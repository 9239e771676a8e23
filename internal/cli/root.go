// Package cli собирает команды бинаря table-booking.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Leganyst/table-booking/internal/cache"
	"github.com/Leganyst/table-booking/internal/config"
	"github.com/Leganyst/table-booking/internal/db"
)

// RootOptions: глобальные флаги.
type RootOptions struct {
	Format string // "text" | "json"
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "table-booking",
		Short:         "Restaurant table booking core",
		Long:          "Slot availability and booking ledger for restaurants, served over HTTP and gRPC.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewMigrateCommand())
	cmd.AddCommand(NewSeedCommand())
	cmd.AddCommand(NewSlotsCommand(opts))
	cmd.AddCommand(NewTokenCommand())

	return cmd
}

func newLogger(w io.Writer, cfg *config.App) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

// openDB подключается к базе по DB_* и возвращает функцию закрытия пула.
func openDB() (*gorm.DB, func(), error) {
	dbCfg, err := config.LoadDBConfig()
	if err != nil {
		return nil, nil, err
	}
	gdb, err := db.NewGormDB(dbCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init db: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("sql DB: %w", err)
	}
	return gdb, func() { _ = sqlDB.Close() }, nil
}

// openCache подключает Redis, если задан REDIS_ADDR; иначе кэш выключен.
func openCache(ctx context.Context, cfg *config.App, log *slog.Logger) (cache.AvailabilityCache, func()) {
	if cfg.RedisAddr == "" {
		return cache.NopCache{}, func() {}
	}
	rc := cache.NewRedisCache(cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), cfg.AvailabilityTTL)
	if err := rc.Ping(ctx); err != nil {
		// кэш не обязателен: ошибки чтения всё равно уходят в БД
		log.Warn("redis unavailable", slog.String("addr", cfg.RedisAddr), slog.Any("error", err))
	}
	return rc, func() { _ = rc.Close() }
}
