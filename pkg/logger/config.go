package logger

import (
	"io"
	"log/slog"
)

type Backend string

const (
	BackendStd Backend = "std" // slog.TextHandler, удобно в dev
	BackendZap Backend = "zap" // JSON через slog-zap, для stage/prod
)

type Config struct {
	Service    string
	Version    string
	InstanceID string

	Level   slog.Level
	Env     Env
	Backend Backend // по умолчанию: std для dev, zap для остального
	Debug   bool

	// Zap sampling: первые SampleInitial записей в секунду, дальше каждая SampleThereafter
	SampleInitial    int
	SampleThereafter int

	AddSource bool

	// Куда писать; nil = os.Stdout
	Output io.Writer
}

func (c Config) level() slog.Level {
	if c.Debug && c.Level == 0 {
		return slog.LevelDebug
	}
	return c.Level
}
