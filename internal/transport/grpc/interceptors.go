package grpcx

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/cwrk-planet/room-sync/pkg/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UnaryServerInterceptor: логирование + recovery + deadline guard,
// если у вызова нет собственного deadline.
func UnaryServerInterceptor(guard time.Duration) grpc.UnaryServerInterceptor {
	if guard <= 0 {
		guard = 10 * time.Second
	}
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		start := time.Now()
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, guard)
			defer cancel()
		}

		l := logger.FromContext(ctx).With(slog.String("method", info.FullMethod))
		ctx = logger.WithContext(ctx, l)

		defer func() {
			if r := recover(); r != nil {
				l.Error("grpc unary panic",
					"panic", r,
					"stack", string(debug.Stack()))
				err = status.Error(codes.Internal, "internal server error")
			}
			logCall(ctx, l, "grpc unary", start, err)
		}()

		return handler(ctx, req)
	}
}

func StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		start := time.Now()
		l := logger.FromContext(ss.Context()).With(slog.String("method", info.FullMethod))

		defer func() {
			if r := recover(); r != nil {
				l.Error("grpc stream panic",
					"panic", r,
					"stack", string(debug.Stack()))
				err = status.Error(codes.Internal, "internal server error")
			}
			logCall(ss.Context(), l, "grpc stream", start, err)
		}()

		return handler(srv, ss)
	}
}

func logCall(ctx context.Context, l *slog.Logger, msg string, start time.Time, err error) {
	code := status.Code(err)
	level := slog.LevelInfo
	switch code {
	case codes.OK, codes.Canceled:
	case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable:
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}
	l.LogAttrs(ctx, level, msg,
		slog.String("code", code.String()),
		slog.Int64("dur_ms", time.Since(start).Milliseconds()),
		slog.String("err", errString(err)),
	)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
