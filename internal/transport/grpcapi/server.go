// Package grpcapi: gRPC-поверхность ядра бронирования.
package grpcapi

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Leganyst/table-booking/internal/auth"
	"github.com/Leganyst/table-booking/internal/model"
	"github.com/Leganyst/table-booking/internal/service"
)

// Ledger: операции ядра, которые нужны gRPC-слою.
type Ledger interface {
	GetAvailability(ctx context.Context, restaurantID, date string) ([]string, error)
	SuggestAlternatives(ctx context.Context, restaurantID, date, rejectedTime string, limit int) ([]string, error)
	CreateBooking(ctx context.Context, in service.CreateBookingInput) (*model.Booking, error)
	ConfirmBooking(ctx context.Context, bookingID string) (*model.Booking, error)
	CancelBooking(ctx context.Context, bookingID string) (*model.Booking, error)
	AuthorizeBooking(ctx context.Context, s auth.Session, bookingID string) (*model.Booking, error)
}

type BookingService struct {
	ledger Ledger
}

func NewBookingService(ledger Ledger) *BookingService {
	return &BookingService{ledger: ledger}
}

// NewServer собирает gRPC-сервер: сервис бронирования, health и reflection.
func NewServer(ledger Ledger, secret []byte, log *slog.Logger) *grpc.Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(
		loggingInterceptor(log),
		authInterceptor(secret),
	))

	RegisterBookingServiceServer(s, NewBookingService(ledger))

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	reflection.Register(s)
	return s
}

func (s *BookingService) GetAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	restaurantID := str(req, "restaurant_id")
	date := str(req, "date")

	slots, err := s.ledger.GetAvailability(ctx, restaurantID, date)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{
		"restaurant_id": restaurantID,
		"date":          date,
		"slots":         list(slots),
	})
}

func (s *BookingService) SuggestAlternatives(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	limit, err := integer(req, "limit")
	if err != nil {
		return nil, err
	}

	slots, err := s.ledger.SuggestAlternatives(ctx,
		str(req, "restaurant_id"),
		str(req, "date"),
		str(req, "time"),
		limit,
	)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{"alternatives": list(slots)})
}

func (s *BookingService) CreateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := requireRole(ctx, auth.RoleCustomer)
	if err != nil {
		return nil, err
	}
	guests, err := integer(req, "guests")
	if err != nil {
		return nil, err
	}

	b, err := s.ledger.CreateBooking(ctx, service.CreateBookingInput{
		RestaurantID:    str(req, "restaurant_id"),
		UserID:          sess.UserID,
		Date:            str(req, "date"),
		Time:            str(req, "time"),
		Guests:          guests,
		SpecialRequests: str(req, "special_requests"),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return bookingStruct(b)
}

func (s *BookingService) ConfirmBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.transition(ctx, req, s.ledger.ConfirmBooking, auth.RoleRestaurant)
}

func (s *BookingService) CancelBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.transition(ctx, req, s.ledger.CancelBooking, auth.RoleCustomer, auth.RoleRestaurant)
}

func (s *BookingService) GetBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := requireRole(ctx, auth.RoleCustomer, auth.RoleRestaurant)
	if err != nil {
		return nil, err
	}
	b, err := s.ledger.AuthorizeBooking(ctx, sess, str(req, "booking_id"))
	if err != nil {
		return nil, toStatus(err)
	}
	return bookingStruct(b)
}

func (s *BookingService) transition(
	ctx context.Context,
	req *structpb.Struct,
	apply func(context.Context, string) (*model.Booking, error),
	roles ...auth.Role,
) (*structpb.Struct, error) {
	sess, err := requireRole(ctx, roles...)
	if err != nil {
		return nil, err
	}
	id := str(req, "booking_id")
	if _, err := s.ledger.AuthorizeBooking(ctx, sess, id); err != nil {
		return nil, toStatus(err)
	}

	b, err := apply(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return bookingStruct(b)
}

// toStatus: ошибка ядра → gRPC-статус; альтернативы уходят в details.
func toStatus(err error) error {
	var code codes.Code
	switch service.CodeOf(err) {
	case service.CodeValidation:
		code = codes.InvalidArgument
	case service.CodeNotFound:
		code = codes.NotFound
	case service.CodeConflict:
		code = codes.FailedPrecondition
	case service.CodeForbidden:
		code = codes.PermissionDenied
	default:
		code = codes.Unavailable
	}

	st := status.New(code, service.MessageOf(err))
	if alts := service.AlternativesOf(err); len(alts) > 0 {
		detail, derr := structpb.NewStruct(map[string]any{"alternatives": list(alts)})
		if derr == nil {
			if withDetails, derr := st.WithDetails(detail); derr == nil {
				st = withDetails
			}
		}
	}
	return st.Err()
}

// AlternativesFromStatus достаёт альтернативные слоты из details ошибки.
func AlternativesFromStatus(err error) []string {
	st, ok := status.FromError(err)
	if !ok {
		return nil
	}
	for _, d := range st.Details() {
		s, ok := d.(*structpb.Struct)
		if !ok {
			continue
		}
		return stringList(s.GetFields()["alternatives"])
	}
	return nil
}

func bookingStruct(b *model.Booking) (*structpb.Struct, error) {
	fields := map[string]any{
		"id":               b.ID.String(),
		"restaurant_id":    b.RestaurantID.String(),
		"user_id":          b.UserID,
		"date":             b.Date,
		"time":             b.Time,
		"guests":           b.Guests,
		"status":           string(b.Status),
		"special_requests": b.SpecialRequests,
		"created_at":       b.CreatedAt.UTC().Format(timeLayout),
		"updated_at":       b.UpdatedAt.UTC().Format(timeLayout),
	}
	if b.CancelledAt != nil {
		fields["cancelled_at"] = b.CancelledAt.UTC().Format(timeLayout)
	}
	return structpb.NewStruct(fields)
}
