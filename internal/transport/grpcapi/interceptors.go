package grpcapi

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/Leganyst/table-booking/internal/auth"
)

type sessionKey struct{}

// Методы, доступные без токена.
var publicMethods = map[string]bool{
	FullMethod(MethodGetAvailability):     true,
	FullMethod(MethodSuggestAlternatives): true,
}

// authInterceptor читает "authorization: Bearer <jwt>" из metadata.
// Сервисы вне BookingService (health, reflection) пропускаются.
func authInterceptor(secret []byte) grpc.UnaryServerInterceptor {
	prefix := "/" + ServiceName + "/"
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, prefix) || publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		var raw string
		if values := md.Get("authorization"); len(values) > 0 {
			raw = values[0]
		}
		if !strings.HasPrefix(raw, "Bearer ") {
			return nil, status.Error(codes.Unauthenticated, auth.ErrMissingToken.Error())
		}

		s, err := auth.ParseToken(secret, strings.TrimPrefix(raw, "Bearer "))
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, auth.ErrInvalidToken.Error())
		}
		return handler(context.WithValue(ctx, sessionKey{}, s), req)
	}
}

func sessionFrom(ctx context.Context) (auth.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(auth.Session)
	return s, ok
}

func requireRole(ctx context.Context, roles ...auth.Role) (auth.Session, error) {
	s, ok := sessionFrom(ctx)
	if !ok {
		return auth.Session{}, status.Error(codes.Unauthenticated, auth.ErrMissingToken.Error())
	}
	for _, r := range roles {
		if s.Is(r) {
			return s, nil
		}
	}
	return auth.Session{}, status.Error(codes.PermissionDenied, "role is not allowed")
}

func loggingInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		attrs := []any{"method", info.FullMethod, "code", code.String(), "latency", time.Since(start)}
		if code == codes.Unavailable || code == codes.Internal {
			log.ErrorContext(ctx, "grpc request", append(attrs, "err", err)...)
		} else {
			log.InfoContext(ctx, "grpc request", attrs...)
		}
		return resp, err
	}
}
