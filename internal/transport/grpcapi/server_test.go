package grpcapi

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"gorm.io/gorm"

	"github.com/Leganyst/table-booking/internal/auth"
	"github.com/Leganyst/table-booking/internal/model"
	"github.com/Leganyst/table-booking/internal/repository"
	"github.com/Leganyst/table-booking/internal/service"
	"github.com/Leganyst/table-booking/internal/testutil"
)

var testSecret = []byte("grpc-test-secret")

type grpcFixture struct {
	gdb        *gorm.DB
	conn       *grpc.ClientConn
	client     *BookingServiceClient
	restaurant *model.Restaurant
}

func newGRPC(t *testing.T) *grpcFixture {
	t.Helper()

	gdb := testutil.OpenSQLite(t)
	restaurant := testutil.SeedRestaurant(t, gdb, "12:00", "23:00")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledger := service.NewLedger(
		repository.NewGormRestaurantRepository(gdb),
		repository.NewGormBookingRepository(gdb),
		service.Options{Logger: logger},
	)

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(ledger, testSecret, logger)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &grpcFixture{gdb: gdb, conn: conn, client: NewBookingServiceClient(conn), restaurant: restaurant}
}

func withToken(t *testing.T, user string, role auth.Role) context.Context {
	t.Helper()
	tok, err := auth.IssueToken(testSecret, auth.Session{UserID: user, Role: role}, time.Hour)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+tok)
}

func request(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

func TestBookingService_Flow(t *testing.T) {
	f := newGRPC(t)
	restaurantID := f.restaurant.ID.String()
	customerA := withToken(t, "customer-a", auth.RoleCustomer)
	customerB := withToken(t, "customer-b", auth.RoleCustomer)
	owner := withToken(t, "owner-1", auth.RoleRestaurant)

	create := request(t, map[string]any{
		"restaurant_id": restaurantID, "date": "2025-06-01", "time": "20:00", "guests": 2,
	})

	a, err := f.client.Call(customerA, MethodCreateBooking, create)
	require.NoError(t, err)
	assert.Equal(t, "pending", str(a, "status"))
	guests, err := integer(a, "guests")
	require.NoError(t, err)
	assert.Equal(t, 2, guests)

	b, err := f.client.Call(customerB, MethodCreateBooking, create)
	require.NoError(t, err)

	confirmed, err := f.client.Call(owner, MethodConfirmBooking, request(t, map[string]any{"booking_id": str(a, "id")}))
	require.NoError(t, err)
	assert.Equal(t, "confirmed", str(confirmed, "status"))

	avail, err := f.client.Call(context.Background(), MethodGetAvailability, request(t, map[string]any{
		"restaurant_id": restaurantID, "date": "2025-06-01",
	}))
	require.NoError(t, err)
	slots := stringList(avail.GetFields()["slots"])
	assert.Len(t, slots, 22)
	assert.NotContains(t, slots, "20:00")

	_, err = f.client.Call(owner, MethodConfirmBooking, request(t, map[string]any{"booking_id": str(b, "id")}))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = f.client.Call(customerB, MethodCreateBooking, create)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.Equal(t, []string{"19:30", "20:30", "19:00", "21:00"}, AlternativesFromStatus(err))

	for i := 0; i < 2; i++ {
		cancelled, err := f.client.Call(customerA, MethodCancelBooking, request(t, map[string]any{"booking_id": str(a, "id")}))
		require.NoError(t, err)
		assert.Equal(t, "cancelled", str(cancelled, "status"))
		assert.NotEmpty(t, str(cancelled, "cancelled_at"))
	}

	got, err := f.client.Call(customerB, MethodGetBooking, request(t, map[string]any{"booking_id": str(b, "id")}))
	require.NoError(t, err)
	assert.Equal(t, "pending", str(got, "status"))
}

func TestBookingService_SuggestAlternatives(t *testing.T) {
	f := newGRPC(t)

	resp, err := f.client.Call(context.Background(), MethodSuggestAlternatives, request(t, map[string]any{
		"restaurant_id": f.restaurant.ID.String(), "date": "2025-06-01", "time": "20:00", "limit": 2,
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"19:30", "20:30"}, stringList(resp.GetFields()["alternatives"]))
}

func TestBookingService_ErrorCodes(t *testing.T) {
	f := newGRPC(t)
	customer := withToken(t, "customer-a", auth.RoleCustomer)
	stranger := withToken(t, "owner-2", auth.RoleRestaurant)
	missing := "7f1c0dd2-4f61-4b8e-9a55-3c5a0f7b9a10"

	_, err := f.client.Call(context.Background(), MethodGetAvailability, request(t, map[string]any{
		"restaurant_id": f.restaurant.ID.String(), "date": "tomorrow",
	}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = f.client.Call(context.Background(), MethodGetAvailability, request(t, map[string]any{
		"restaurant_id": missing, "date": "2025-06-01",
	}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = f.client.Call(context.Background(), MethodCreateBooking, request(t, map[string]any{}))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = f.client.Call(stranger, MethodCreateBooking, request(t, map[string]any{}))
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = f.client.Call(customer, MethodCreateBooking, request(t, map[string]any{
		"restaurant_id": f.restaurant.ID.String(), "date": "2025-06-01", "time": "20:00", "guests": 0,
	}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	b, err := f.client.Call(customer, MethodCreateBooking, request(t, map[string]any{
		"restaurant_id": f.restaurant.ID.String(), "date": "2025-06-01", "time": "20:00", "guests": 3,
	}))
	require.NoError(t, err)

	_, err = f.client.Call(stranger, MethodConfirmBooking, request(t, map[string]any{"booking_id": str(b, "id")}))
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = f.client.Call(customer, MethodGetBooking, request(t, map[string]any{"booking_id": missing}))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestHealth(t *testing.T) {
	f := newGRPC(t)

	resp, err := healthpb.NewHealthClient(f.conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestToStatus_Upstream(t *testing.T) {
	err := toStatus(assert.AnError)
	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.Nil(t, AlternativesFromStatus(err))
}

func TestInteger(t *testing.T) {
	tests := []struct {
		name  string
		field any
		want  int
		ok    bool
	}{
		{"whole", 4, 4, true},
		{"negative", -2, -2, true},
		{"fraction", 2.7, 0, false},
		{"too large", 1e12, 0, false},
		{"string", "4", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := integer(request(t, map[string]any{"guests": tt.field}), "guests")
			if !tt.ok {
				assert.Equal(t, codes.InvalidArgument, status.Code(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	missing, err := integer(request(t, map[string]any{}), "guests")
	require.NoError(t, err)
	assert.Equal(t, 0, missing)
}

func TestBookingService_RejectsFractionalNumbers(t *testing.T) {
	f := newGRPC(t)
	customer := withToken(t, "customer-a", auth.RoleCustomer)

	_, err := f.client.Call(customer, MethodCreateBooking, request(t, map[string]any{
		"restaurant_id": f.restaurant.ID.String(), "date": "2025-06-01", "time": "20:00", "guests": 2.7,
	}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = f.client.Call(context.Background(), MethodSuggestAlternatives, request(t, map[string]any{
		"restaurant_id": f.restaurant.ID.String(), "date": "2025-06-01", "time": "20:00", "limit": 1.5,
	}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	var n int64
	require.NoError(t, f.gdb.Model(&model.Booking{}).Count(&n).Error)
	assert.EqualValues(t, 0, n)
}
