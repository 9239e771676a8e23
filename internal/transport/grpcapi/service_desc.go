package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName: полное имя gRPC-сервиса. Сообщения: google.protobuf.Struct,
// поля совпадают с JSON REST-API.
const ServiceName = "tablebooking.v1.BookingService"

const (
	MethodGetAvailability     = "GetAvailability"
	MethodSuggestAlternatives = "SuggestAlternatives"
	MethodCreateBooking       = "CreateBooking"
	MethodConfirmBooking      = "ConfirmBooking"
	MethodCancelBooking       = "CancelBooking"
	MethodGetBooking          = "GetBooking"
)

func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type BookingServiceServer interface {
	GetAvailability(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SuggestAlternatives(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ConfirmBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryFunc func(BookingServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryFunc) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BookingServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BookingServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var bookingServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: MethodGetAvailability,
			Handler:    unaryHandler(MethodGetAvailability, BookingServiceServer.GetAvailability),
		},
		{
			MethodName: MethodSuggestAlternatives,
			Handler:    unaryHandler(MethodSuggestAlternatives, BookingServiceServer.SuggestAlternatives),
		},
		{
			MethodName: MethodCreateBooking,
			Handler:    unaryHandler(MethodCreateBooking, BookingServiceServer.CreateBooking),
		},
		{
			MethodName: MethodConfirmBooking,
			Handler:    unaryHandler(MethodConfirmBooking, BookingServiceServer.ConfirmBooking),
		},
		{
			MethodName: MethodCancelBooking,
			Handler:    unaryHandler(MethodCancelBooking, BookingServiceServer.CancelBooking),
		},
		{
			MethodName: MethodGetBooking,
			Handler:    unaryHandler(MethodGetBooking, BookingServiceServer.GetBooking),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tablebooking/v1/booking.proto",
}

func RegisterBookingServiceServer(s grpc.ServiceRegistrar, srv BookingServiceServer) {
	s.RegisterService(&bookingServiceDesc, srv)
}

// BookingServiceClient: клиент поверх любого grpc.ClientConnInterface.
type BookingServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewBookingServiceClient(cc grpc.ClientConnInterface) *BookingServiceClient {
	return &BookingServiceClient{cc: cc}
}

func (c *BookingServiceClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
