package service

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/Leganyst/table-booking/internal/cache"
	"github.com/Leganyst/table-booking/internal/calendar"
	"github.com/Leganyst/table-booking/internal/events"
	"github.com/Leganyst/table-booking/internal/model"
	"github.com/Leganyst/table-booking/internal/repository"
)

// CapacityPerSlot: сколько подтверждённых броней вмещает один слот.
// Сейчас занятость бинарная: один столик на слот.
const CapacityPerSlot = 1

const DefaultMaxAlternatives = 4

const tracerName = "github.com/Leganyst/table-booking/internal/service"

type Options struct {
	StepMinutes     int
	MaxAlternatives int
	Cache           cache.AvailabilityCache
	Publisher       events.Publisher
	Logger          *slog.Logger
	Tracer          trace.Tracer
}

// Ledger: единственный владелец статусов броней. Создаёт их,
// переводит между состояниями и считает доступность слотов.
type Ledger struct {
	restaurants repository.RestaurantRepository
	bookings    repository.BookingRepository

	step            int
	maxAlternatives int

	cache     cache.AvailabilityCache
	publisher events.Publisher
	log       *slog.Logger
	tracer    trace.Tracer
	validate  *validator.Validate
}

func NewLedger(
	restaurants repository.RestaurantRepository,
	bookings repository.BookingRepository,
	opts Options,
) *Ledger {
	l := &Ledger{
		restaurants:     restaurants,
		bookings:        bookings,
		step:            opts.StepMinutes,
		maxAlternatives: opts.MaxAlternatives,
		cache:           opts.Cache,
		publisher:       opts.Publisher,
		log:             opts.Logger,
		tracer:          opts.Tracer,
		validate:        newValidator(),
	}
	if l.step <= 0 {
		l.step = calendar.DefaultStepMinutes
	}
	if l.maxAlternatives <= 0 {
		l.maxAlternatives = DefaultMaxAlternatives
	}
	if l.cache == nil {
		l.cache = cache.NopCache{}
	}
	if l.publisher == nil {
		l.publisher = events.NopPublisher{}
	}
	if l.log == nil {
		l.log = slog.Default()
	}
	if l.tracer == nil {
		l.tracer = otel.Tracer(tracerName)
	}
	return l
}

// newValidator называет поля по json-тегам, чтобы сообщения совпадали с телом запроса.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

func (l *Ledger) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return l.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.code", string(CodeOf(err))))
		span.SetStatus(otelcodes.Error, MessageOf(err))
	}
	span.End()
}

// parseID проверяет идентификатор и приводит его к каноничному виду.
func parseID(field, raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", validationError("%s is not a valid uuid", field)
	}
	return id.String(), nil
}

func checkDate(date string) error {
	if _, err := calendar.ParseDate(date); err != nil {
		return validationError("date must be YYYY-MM-DD, got %q", date)
	}
	return nil
}

func parseSlotTime(raw string) (calendar.WallClock, error) {
	t, err := calendar.ParseWallClock(raw)
	if err != nil {
		return 0, validationError("time must be HH:MM, got %q", raw)
	}
	return t, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func (l *Ledger) invalidate(ctx context.Context, restaurantID, date string) {
	if err := l.cache.Invalidate(ctx, restaurantID, date); err != nil {
		l.log.WarnContext(ctx, "availability cache invalidate failed",
			"restaurant_id", restaurantID, "date", date, "err", err)
	}
}

// publish не влияет на результат операции: состояние уже зафиксировано в БД,
// а таблица events хранит тот же факт.
func (l *Ledger) publish(ctx context.Context, key string, b *model.Booking) {
	ev := events.BookingEvent{
		BookingID:    b.ID.String(),
		RestaurantID: b.RestaurantID.String(),
		UserID:       b.UserID,
		Date:         b.Date,
		Time:         b.Time,
		Guests:       b.Guests,
		Status:       string(b.Status),
		OccurredAt:   b.UpdatedAt,
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if err := l.publisher.PublishJSON(ctx, key, ev); err != nil {
		l.log.WarnContext(ctx, "publish booking event failed",
			"key", key, "booking_id", ev.BookingID, "err", err)
	}
}
