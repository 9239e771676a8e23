package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Leganyst/table-booking/internal/calendar"
)

// App собирает настройки процесса, кроме базы данных.
type App struct {
	Env      string `envconfig:"APP_ENV" default:"dev"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	GRPCAddr string `envconfig:"GRPC_ADDR" default:":50051"`

	SlotStepMinutes int `envconfig:"SLOT_STEP_MINUTES" default:"30"`
	MaxAlternatives int `envconfig:"MAX_ALTERNATIVES" default:"4"`

	JWTSecret string `envconfig:"JWT_SECRET"`

	// События броней; пустой URL: публикация выключена.
	RabbitURL       string `envconfig:"RABBIT_URL"`
	BookingExchange string `envconfig:"BOOKING_EXCHANGE" default:"booking.exchange"`

	// Кэш доступности; пустой адрес: кэш выключен.
	RedisAddr       string        `envconfig:"REDIS_ADDR"`
	RedisPassword   string        `envconfig:"REDIS_PASSWORD"`
	RedisDB         int           `envconfig:"REDIS_DB" default:"0"`
	AvailabilityTTL time.Duration `envconfig:"AVAILABILITY_TTL" default:"30s"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// LoadDotEnv подхватывает .env вне production; отсутствие файла не ошибка.
func LoadDotEnv() {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}
}

// Load читает настройки приложения из окружения.
func Load() (*App, error) {
	var cfg App
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load app config: %w", err)
	}
	if cfg.SlotStepMinutes <= 0 {
		cfg.SlotStepMinutes = calendar.DefaultStepMinutes
	}
	if cfg.MaxAlternatives < 0 {
		return nil, fmt.Errorf("invalid app config: MAX_ALTERNATIVES must not be negative")
	}
	return &cfg, nil
}

// SlogLevel переводит LOG_LEVEL в уровень slog; неизвестное значение: info.
func (c *App) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
