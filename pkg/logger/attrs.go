package logger

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Ключи, общие для всех компонентов room-sync.
const (
	KeyRoom = "room"
	KeyUser = "user"
	KeyConn = "conn"
)

func Room(id string) slog.Attr { return slog.String(KeyRoom, id) }
func User(id string) slog.Attr { return slog.String(KeyUser, id) }
func Conn(id string) slog.Attr { return slog.String(KeyConn, id) }

// instanceID: hostname + короткий суффикс, чтобы различать реплики на одном хосте.
func instanceID(cfg Config) string {
	if cfg.InstanceID != "" {
		return cfg.InstanceID
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return host + "-" + uuid.NewString()[:8]
}

func serviceAttrs(cfg Config) []slog.Attr {
	return []slog.Attr{
		slog.String("service", cfg.Service),
		slog.String("env", string(cfg.Env)),
		slog.String("version", cfg.Version),
		slog.String("instance_id", cfg.InstanceID),
	}
}

// traceArgs: trace_id/span_id активного span, если он есть.
func traceArgs(ctx context.Context) []any {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []any{
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	}
}
