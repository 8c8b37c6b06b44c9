package logger

import (
	"log/slog"
	"time"

	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultSampleInitial    = 100
	defaultSampleThereafter = 10
)

func zapEncoderConfig(addSource bool) zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.MessageKey = "msg"
	enc.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339Nano)
	enc.EncodeLevel = zapcore.LowercaseLevelEncoder
	if !addSource {
		enc.CallerKey = zapcore.OmitKey
	}
	return enc
}

func newZapHandler(cfg Config) slog.Handler {
	lvl := cfg.level()

	initial, thereafter := cfg.SampleInitial, cfg.SampleThereafter
	if initial <= 0 {
		initial = defaultSampleInitial
	}
	if thereafter <= 0 {
		thereafter = defaultSampleThereafter
	}

	// broadcast в большую комнату даёт всплески одинаковых строк
	core := zapcore.NewSamplerWithOptions(
		zapcore.NewCore(
			zapcore.NewJSONEncoder(zapEncoderConfig(cfg.AddSource)),
			zapcore.Lock(zapcore.AddSync(cfg.Output)),
			zapLevel(lvl),
		),
		time.Second, initial, thereafter,
	)

	opts := []zap.Option{}
	if cfg.AddSource {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}

	return slogzap.Option{Level: lvl, Logger: zap.New(core, opts...)}.NewZapHandler()
}

// zapLevel: шаг уровней slog равен 4, у zap 1.
func zapLevel(lvl slog.Level) zapcore.Level {
	z := zapcore.Level(int(lvl) / 4)
	if lvl < 0 && int(lvl)%4 != 0 {
		z--
	}
	return max(zapcore.DebugLevel, min(z, zapcore.ErrorLevel))
}
